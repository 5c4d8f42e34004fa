package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/iocwriter/internal/cache"
	"github.com/ppiankov/iocwriter/internal/convert"
	"github.com/ppiankov/iocwriter/internal/ioc"
)

// Conversion directions, used as cache key and metric label.
const (
	DirectionUpgrade   = "upgrade"
	DirectionDowngrade = "downgrade"
)

// Converted is the serialized output of one document conversion.
type Converted struct {
	ID             string                 `json:"id"`
	Data           []byte                 `json:"data"`
	Classification convert.Classification `json:"classification"`
	Skipped        []string               `json:"skipped,omitempty"`
	Cached         bool                   `json:"-"`
}

// memo returns the cached conversion of src in direction, or runs fn and
// caches its output. A nil src bypasses the cache.
func (o options) memo(direction string, src []byte, fn func() (*Converted, error)) (*Converted, error) {
	if o.cache == nil || src == nil {
		return fn()
	}

	key := cache.CacheKey(direction, src)
	if data, ok := o.cache.Get(key); ok {
		var c Converted
		if err := json.Unmarshal(data, &c); err == nil {
			o.metrics.RecordCacheLookup(true)
			c.Cached = true
			return &c, nil
		}
	}
	o.metrics.RecordCacheLookup(false)

	c, err := fn()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err == nil {
		err = o.cache.Set(key, data, 0)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("ioc_id", c.ID).Msg("failed to cache conversion")
	}
	return c, nil
}

func marshalConverted(doc *ioc.Document, class convert.Classification, skipped []string) (*Converted, error) {
	data, err := ioc.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &Converted{
		ID:             doc.ID,
		Data:           data,
		Classification: class,
		Skipped:        skipped,
	}, nil
}

func checkOutputDir(dir string) error {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	return nil
}

// checkFileID rejects ids that cannot be used verbatim as a file name.
func checkFileID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("id %q is not a valid file name", id)
	}
	return nil
}

// writeConverted writes each output to dir/<id>.ioc.
func writeConverted(o options, dir, bucket string, items []*Converted) (int, error) {
	if len(items) == 0 {
		o.log.Error().Str("bucket", bucket).Msg("no IOCs available to write out")
		return 0, nil
	}
	if err := checkOutputDir(dir); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	written := 0
	for _, c := range items {
		if err := checkFileID(c.ID); err != nil {
			return written, err
		}
		path := filepath.Join(dir, c.ID+ioc.FileExt)
		if err := os.WriteFile(path, c.Data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written++
	}
	o.metrics.RecordWrite(bucket, written)
	o.log.Info().Str("dir", dir).Str("bucket", bucket).Int("count", written).Msg("wrote IOCs")
	return written, nil
}
