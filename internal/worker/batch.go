package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader reads and parses a single file
type Loader interface {
	Load(ctx context.Context, path string) (interface{}, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, path string) (interface{}, error)

// Load calls f(ctx, path)
func (f LoaderFunc) Load(ctx context.Context, path string) (interface{}, error) {
	return f(ctx, path)
}

// LoadJob represents a file load job
type LoadJob struct {
	Index  int
	Path   string
	Loader Loader
}

// Execute executes the load job
func (j *LoadJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &FileResult{Index: j.Index, Path: j.Path, Error: err}
	}
	value, err := j.Loader.Load(ctx, j.Path)
	return &FileResult{
		Index: j.Index,
		Path:  j.Path,
		Value: value,
		Error: err,
	}
}

// FileResult represents the result of a load job
type FileResult struct {
	Index int
	Path  string
	Value interface{}
	Error error
}

// GetError returns the error from the load result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchLoader loads multiple files concurrently
type BatchLoader struct {
	loader      Loader
	concurrency int
}

// NewBatchLoader creates a new batch loader
func NewBatchLoader(loader Loader, concurrency int) *BatchLoader {
	return &BatchLoader{
		loader:      loader,
		concurrency: concurrency,
	}
}

// LoadFiles loads every path concurrently. Results come back in input order
// so callers can merge them deterministically, one per path: a path the pool
// never reached because ctx was cancelled carries the context error.
func (b *BatchLoader) LoadFiles(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	jobs := make([]Job, len(paths))
	for i, path := range paths {
		jobs[i] = &LoadJob{
			Index:  i,
			Path:   path,
			Loader: b.loader,
		}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	results := pool.Process(jobs)

	fileResults := make([]*FileResult, len(paths))
	for _, result := range results {
		r := result.(*FileResult)
		fileResults[r.Index] = r
	}
	for i, r := range fileResults {
		if r != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		fileResults[i] = &FileResult{Index: i, Path: paths[i], Error: err}
	}

	return fileResults
}

// LoadPath loads a single file, or every matching file of a directory
func (b *BatchLoader) LoadPath(ctx context.Context, path, ext string) ([]*FileResult, error) {
	paths, err := ListFiles(path, ext)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return b.LoadFiles(ctx, paths), nil
}

// ListFiles returns path itself when it is a file, otherwise the sorted
// regular files directly under it whose name ends in ext (case-insensitive).
// An empty ext matches every file.
func ListFiles(path, ext string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		full := filepath.Join(path, name)
		if !seen[full] {
			seen[full] = true
			files = append(files, full)
		}
	}
	sort.Strings(files)

	return files, nil
}
