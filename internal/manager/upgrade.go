package manager

import (
	"context"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/ppiankov/iocwriter/internal/convert"
	"github.com/ppiankov/iocwriter/internal/xmlutil"
)

type legacyEntry struct {
	path string
	data []byte
	tree *xmlquery.Node
}

// UpgradeManager holds raw OpenIOC 1.0 trees and converts them to 1.1.
// Documents are kept unparsed until conversion so that structural problems
// are reported per id by ConvertTo11 rather than at load time.
type UpgradeManager struct {
	opts      options
	registry  *registry
	entries   map[string]*legacyEntry
	order     []string
	converted map[string]*Converted
}

// NewUpgradeManager creates an empty upgrade manager.
func NewUpgradeManager(opts ...Option) *UpgradeManager {
	return &UpgradeManager{
		opts:      buildOptions("upgrade", opts),
		registry:  newRegistry(),
		entries:   make(map[string]*legacyEntry),
		converted: make(map[string]*Converted),
	}
}

// Len returns the number of documents held.
func (m *UpgradeManager) Len() int {
	return len(m.entries)
}

// Insert loads a file or every .ioc file of a directory. A file fails when
// it is not well-formed XML or its root has no id.
func (m *UpgradeManager) Insert(ctx context.Context, path string) (*InsertResult, error) {
	files, failed, err := load(ctx, m.opts, path, func(data []byte) (interface{}, error) {
		tree, err := xmlutil.Parse(data)
		if err != nil {
			return nil, err
		}
		root := xmlutil.Root(tree)
		if root == nil {
			return nil, ErrMissingID
		}
		if id, ok := xmlutil.Attr(root, "id"); !ok || id == "" {
			return nil, ErrMissingID
		}
		return tree, nil
	})
	if err != nil {
		return nil, err
	}

	res := &InsertResult{Loaded: len(files), Failed: failed}
	for _, f := range files {
		tree := f.value.(*xmlquery.Node)
		root := xmlutil.Root(tree)
		id, _ := xmlutil.Attr(root, "id")
		name, _ := xmlutil.ChildText(root, "short_description")
		if w := m.registry.record(id, name); w != nil {
			m.opts.log.Warn().Str("ioc_id", w.ID).Str("old_name", w.OldName).Str("new_name", w.NewName).Msg("duplicate IOC id")
			res.Duplicates = append(res.Duplicates, *w)
		} else {
			m.order = append(m.order, id)
		}
		m.entries[id] = &legacyEntry{path: f.path, data: f.data, tree: tree}
	}
	m.opts.metrics.RecordLoad(res.Loaded, len(res.Failed), len(res.Duplicates))
	m.opts.log.Info().Int("count", m.Len()).Msg("parsed IOCs")
	return res, nil
}

// ConvertTo11 upgrades every held document. Failures are returned per id;
// they do not stop the batch.
func (m *UpgradeManager) ConvertTo11() []ConversionError {
	if m.Len() == 0 {
		m.opts.log.Error().Msg("no IOCs available to convert")
		return nil
	}
	m.opts.log.Info().Msg("converting IOCs from 1.0 to 1.1")

	var errs []ConversionError
	for _, id := range m.order {
		e := m.entries[id]
		delete(m.converted, id)
		start := time.Now()
		c, err := m.opts.memo(DirectionUpgrade, e.data, func() (*Converted, error) {
			doc, err := convert.Upgrade(e.tree)
			if err != nil {
				return nil, err
			}
			return marshalConverted(doc, convert.Clean, nil)
		})
		if err != nil {
			m.opts.log.Error().Err(err).Str("ioc_id", id).Str("file", e.path).Msg("problem converting IOC")
			m.opts.metrics.RecordConversionError(DirectionUpgrade)
			errs = append(errs, ConversionError{ID: id, Err: err})
			continue
		}
		m.converted[id] = c
		m.opts.metrics.RecordConversion(DirectionUpgrade, c.Classification.String(), time.Since(start))
	}
	return errs
}

// Converted returns the converted outputs in first-insertion order.
func (m *UpgradeManager) Converted() []*Converted {
	out := make([]*Converted, 0, len(m.converted))
	for _, id := range m.order {
		if c, ok := m.converted[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// WriteIOCs writes every converted document to dir.
func (m *UpgradeManager) WriteIOCs(dir string) (int, error) {
	return writeConverted(m.opts, dir, "upgraded", m.Converted())
}
