package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Report summarises one batch run
type Report struct {
	Command    string           `yaml:"command"`              // upgrade, downgrade, repair
	Input      string           `yaml:"input"`                // file or directory read
	Output     string           `yaml:"output"`               // directory written
	StartedAt  time.Time        `yaml:"started_at"`           // when the run began
	Duration   string           `yaml:"duration"`             // wall time, rounded
	Loaded     int              `yaml:"loaded"`               // documents parsed successfully
	Failed     []string         `yaml:"failed,omitempty"`     // files that did not parse
	Duplicates []DuplicateEntry `yaml:"duplicates,omitempty"` // ids seen more than once
	Converted  int              `yaml:"converted"`            // documents converted
	Errors     []FailureEntry   `yaml:"errors,omitempty"`     // per-document conversion failures
	Pruned     []string         `yaml:"pruned,omitempty"`     // downgrade only
	Null       []string         `yaml:"null,omitempty"`       // downgrade only
	Written    map[string]int   `yaml:"written,omitempty"`    // files written per output bucket
	CacheHits  int              `yaml:"cache_hits,omitempty"` // conversions served from cache
}

// DuplicateEntry records a document replaced by a later one with the same id
type DuplicateEntry struct {
	ID      string `yaml:"id"`
	OldName string `yaml:"old_name"`
	NewName string `yaml:"new_name"`
}

// FailureEntry records a document that failed to convert
type FailureEntry struct {
	ID    string `yaml:"id"`
	Error string `yaml:"error"`
}

// NewReport starts a report for a run
func NewReport(command, input, output string) *Report {
	return &Report{
		Command:   command,
		Input:     input,
		Output:    output,
		StartedAt: time.Now().UTC(),
		Written:   make(map[string]int),
	}
}

// Finish stamps the run duration
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt).Round(time.Millisecond).String()
}

// WriteYAML writes the report to path, creating parent directories
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
