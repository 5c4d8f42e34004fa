// Package manager loads collections of OpenIOC documents into memory and
// drives batch conversions over them.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/ppiankov/iocwriter/internal/cache"
	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/logger"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/worker"
)

// DefaultName stands in for documents without a short description.
const DefaultName = "NoName"

var (
	// ErrMissingID is returned for files whose root carries no id.
	ErrMissingID = errors.New("document has no id")
	// ErrNotConverted is returned when writing an id that has no converted output.
	ErrNotConverted = errors.New("document has not been converted")
)

// DuplicateIDWarning reports a document replaced by a later one sharing its id.
type DuplicateIDWarning struct {
	ID      string
	OldName string
	NewName string
}

func (w DuplicateIDWarning) String() string {
	return fmt.Sprintf("duplicate IOC id [%s] [old name: %s] [new name: %s]", w.ID, w.OldName, w.NewName)
}

// InsertResult summarises one Insert call.
type InsertResult struct {
	Loaded     int
	Failed     []string
	Duplicates []DuplicateIDWarning
}

// ConversionError records a document that failed to convert.
type ConversionError struct {
	ID  string
	Err error
}

func (e ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.ID, e.Err)
}

func (e ConversionError) Unwrap() error {
	return e.Err
}

// Option configures a manager.
type Option func(*options)

type options struct {
	workers int
	cache   cache.Cache
	metrics *metrics.Metrics
	log     *logger.Logger
}

// WithWorkers sets how many files are parsed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithCache memoises conversion output. Without it nothing is cached.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithMetrics records batch outcomes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger overrides the package logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(component string, opts []Option) options {
	o := options{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewMetrics()
	}
	if o.log == nil {
		o.log = logger.Get()
	}
	o.log = o.log.Component(component)
	return o
}

// registry tracks id -> name for duplicate detection.
type registry struct {
	names map[string]string
}

func newRegistry() *registry {
	return &registry{names: make(map[string]string)}
}

// record registers id and reports whether it replaced an earlier document.
func (r *registry) record(id, name string) *DuplicateIDWarning {
	if name == "" {
		name = DefaultName
	}
	old, seen := r.names[id]
	r.names[id] = name
	if !seen {
		return nil
	}
	return &DuplicateIDWarning{ID: id, OldName: old, NewName: name}
}

type loadedFile struct {
	path  string
	data  []byte
	value interface{}
}

// load reads and parses path (a file, or every .ioc file of a directory)
// across the worker pool. Files come back in path order.
func load(ctx context.Context, o options, path string, parse func(data []byte) (interface{}, error)) ([]*loadedFile, []string, error) {
	loader := worker.NewBatchLoader(worker.LoaderFunc(func(ctx context.Context, p string) (interface{}, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		v, err := parse(data)
		if err != nil {
			return nil, err
		}
		return &loadedFile{path: p, data: data, value: v}, nil
	}), o.workers)

	o.log.Info().Str("path", path).Msg("loading IOCs")
	results, err := loader.LoadPath(ctx, path, ioc.FileExt)
	if err != nil {
		return nil, nil, err
	}

	var files []*loadedFile
	var failed []string
	for _, r := range results {
		if r.Error != nil {
			o.log.Warn().Err(r.Error).Str("file", r.Path).Msg("failed to parse")
			failed = append(failed, r.Path)
			continue
		}
		files = append(files, r.Value.(*loadedFile))
	}
	return files, failed, nil
}

type entry struct {
	path string
	doc  *ioc.Document
}

// Manager holds a collection of OpenIOC 1.1 documents keyed by id.
type Manager struct {
	opts     options
	registry *registry
	entries  map[string]*entry
	order    []string
	callback func(*ioc.Document)
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	return newManager("manager", opts)
}

func newManager(component string, opts []Option) *Manager {
	return &Manager{
		opts:     buildOptions(component, opts),
		registry: newRegistry(),
		entries:  make(map[string]*entry),
	}
}

// Len returns the number of documents held.
func (m *Manager) Len() int {
	return len(m.entries)
}

// RegisterParserCallback sets a function run on every document as it is
// inserted, after it is registered.
func (m *Manager) RegisterParserCallback(fn func(*ioc.Document)) {
	m.callback = fn
}

// Insert loads a file or every .ioc file of a directory. Files that fail to
// parse are listed in the result; a later document with an existing id
// replaces the earlier one and is reported as a duplicate.
func (m *Manager) Insert(ctx context.Context, path string) (*InsertResult, error) {
	files, failed, err := load(ctx, m.opts, path, func(data []byte) (interface{}, error) {
		return ioc.Parse(data)
	})
	if err != nil {
		return nil, err
	}

	res := &InsertResult{Loaded: len(files), Failed: failed}
	for _, f := range files {
		if w := m.add(f.path, f.value.(*ioc.Document)); w != nil {
			res.Duplicates = append(res.Duplicates, *w)
		}
	}
	m.opts.metrics.RecordLoad(res.Loaded, len(res.Failed), len(res.Duplicates))
	m.opts.log.Info().Int("count", m.Len()).Msg("parsed IOCs")
	return res, nil
}

func (m *Manager) add(path string, doc *ioc.Document) *DuplicateIDWarning {
	w := m.registry.record(doc.ID, doc.Metadata.ShortDescription)
	if w != nil {
		m.opts.log.Warn().Str("ioc_id", w.ID).Str("old_name", w.OldName).Str("new_name", w.NewName).Msg("duplicate IOC id")
	} else {
		m.order = append(m.order, doc.ID)
	}
	m.entries[doc.ID] = &entry{path: path, doc: doc}
	if m.callback != nil {
		m.callback(doc)
	}
	return w
}

// Document returns the document with the given id.
func (m *Manager) Document(id string) (*ioc.Document, bool) {
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// IDs returns the held ids in first-insertion order.
func (m *Manager) IDs() []string {
	return append([]string(nil), m.order...)
}

// Documents returns the held documents in first-insertion order.
func (m *Manager) Documents() []*ioc.Document {
	docs := make([]*ioc.Document, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, m.entries[id].doc)
	}
	return docs
}

// WriteIOCs writes every held document to dir as <id>.ioc. Schema ordering
// is repaired on the way out.
func (m *Manager) WriteIOCs(dir string) (int, error) {
	if m.Len() == 0 {
		m.opts.log.Error().Msg("no IOCs available to write out")
		return 0, nil
	}
	if err := checkOutputDir(dir); err != nil {
		return 0, err
	}
	written := 0
	for _, doc := range m.Documents() {
		if err := checkFileID(doc.ID); err != nil {
			return written, err
		}
		if _, err := ioc.WriteFile(doc, dir); err != nil {
			return written, fmt.Errorf("write %s: %w", doc.ID, err)
		}
		written++
	}
	m.opts.metrics.RecordWrite("repaired", written)
	m.opts.log.Info().Str("dir", dir).Int("count", written).Msg("wrote IOCs")
	return written, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
