package manager

import (
	"fmt"
	"time"

	"github.com/ppiankov/iocwriter/internal/convert"
	"github.com/ppiankov/iocwriter/internal/ioc"
)

// DowngradeManager converts a collection of OpenIOC 1.1 documents to 1.0
// and buckets them by how much was pruned.
type DowngradeManager struct {
	*Manager
	converted map[string]*Converted
	pruned    map[string]bool
	null      map[string]bool
}

// NewDowngradeManager creates an empty downgrade manager.
func NewDowngradeManager(opts ...Option) *DowngradeManager {
	return &DowngradeManager{
		Manager:   newManager("downgrade", opts),
		converted: make(map[string]*Converted),
		pruned:    make(map[string]bool),
		null:      make(map[string]bool),
	}
}

// ConvertTo10 downgrades every held document. Failures are returned per id;
// they do not stop the batch. Each call replaces the previous result and
// bucket of every id, so documents changed in place are re-sorted.
func (m *DowngradeManager) ConvertTo10() []ConversionError {
	if m.Len() == 0 {
		m.opts.log.Error().Msg("no IOCs available to convert")
		return nil
	}
	m.opts.log.Info().Msg("converting IOCs from 1.1 to 1.0")

	var errs []ConversionError
	for _, id := range m.order {
		e := m.entries[id]
		delete(m.converted, id)
		delete(m.pruned, id)
		delete(m.null, id)

		start := time.Now()
		// Keyed on the document as held, not as read.
		src, err := ioc.Marshal(e.doc)
		if err != nil {
			src = nil
		}
		c, err := m.opts.memo(DirectionDowngrade, src, func() (*Converted, error) {
			res, err := convert.Downgrade(e.doc)
			if err != nil {
				return nil, err
			}
			return marshalConverted(res.Document, res.Classification, res.Skipped)
		})
		if err != nil {
			m.opts.log.Error().Err(err).Str("ioc_id", id).Str("file", e.path).Msg("problem converting IOC")
			m.opts.metrics.RecordConversionError(DirectionDowngrade)
			errs = append(errs, ConversionError{ID: id, Err: err})
			continue
		}

		m.converted[id] = c
		switch c.Classification {
		case convert.Null:
			m.null[id] = true
		case convert.Pruned:
			m.pruned[id] = true
		}
		if len(c.Skipped) > 0 {
			m.opts.log.Debug().Str("ioc_id", id).Strs("skipped", c.Skipped).Msg("pruned top-level branches")
		}
		m.opts.metrics.RecordConversion(DirectionDowngrade, c.Classification.String(), time.Since(start))
	}
	return errs
}

// Pruned returns the ids that lost some but not all top-level branches.
func (m *DowngradeManager) Pruned() []string {
	return sortedKeys(m.pruned)
}

// Null returns the ids that lost every top-level branch.
func (m *DowngradeManager) Null() []string {
	return sortedKeys(m.null)
}

// Result returns the converted output for id.
func (m *DowngradeManager) Result(id string) (*Converted, bool) {
	c, ok := m.converted[id]
	return c, ok
}

// WriteIOCs writes the documents that converted without pruning.
func (m *DowngradeManager) WriteIOCs(dir string) (int, error) {
	var items []*Converted
	for _, id := range m.order {
		c, ok := m.converted[id]
		if !ok || m.pruned[id] || m.null[id] {
			continue
		}
		items = append(items, c)
	}
	return writeConverted(m.opts, dir, convert.Clean.String(), items)
}

// WritePruned writes the converted documents named by ids, typically
// Pruned() or Null().
func (m *DowngradeManager) WritePruned(dir string, ids []string) (int, error) {
	items := make([]*Converted, 0, len(ids))
	bucket := convert.Pruned.String()
	for _, id := range ids {
		c, ok := m.converted[id]
		if !ok {
			return 0, fmt.Errorf("%s: %w", id, ErrNotConverted)
		}
		if m.null[id] {
			bucket = convert.Null.String()
		}
		items = append(items, c)
	}
	return writeConverted(m.opts, dir, bucket, items)
}
