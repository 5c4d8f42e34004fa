package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/iocwriter/internal/convert"
	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/model"
)

// Output sub-directories of the downgrade command
const (
	bucketUnpruned = "unpruned"
	bucketPruned   = "pruned"
	bucketNull     = "null"
)

// downgradeCmd represents the downgrade command
var downgradeCmd = &cobra.Command{
	Use:   "downgrade",
	Short: "Convert OpenIOC 1.1 documents to OpenIOC 1.0",
	Long: `Downgrade converts OpenIOC 1.1 documents to the 1.0 schema. The
conversion is lossy:
- Top-level branches holding a 1.1-only condition (starts-with, ends-with,
  greater-than, less-than, matches) or preserve-case are removed whole
- Only "comment" parameters on items survive, as inline comments
- Link href attributes and the published date are dropped

Results are sorted into sub-directories of the output directory:
  unpruned/  converted without losing a branch
  pruned/    lost some top-level branches
  null/      lost every top-level branch

Example:
  iocwriter downgrade -i ./iocs_11 -o ./iocs_10
  iocwriter downgrade -i ./iocs_11 -o ./iocs_10 --metrics-file iocwriter.prom`,
	Args: cobra.NoArgs,
	RunE: runDowngrade,
}

func init() {
	rootCmd.AddCommand(downgradeCmd)
	addBatchFlags(downgradeCmd, "./iocs_10")
}

func runDowngrade(cmd *cobra.Command, args []string) error {
	readBatchFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printRunHeader("OpenIOC 1.1 → 1.0 Downgrade", cfg)

	reg := metrics.NewMetrics()
	report := model.NewReport("downgrade", inputPath, outputDir)
	if err := downgradeBatch(cmd.Context(), inputPath, report, managerOptions(cfg, reg)); err != nil {
		return err
	}

	return finishRun(report, reg)
}

// downgradeBatch downgrades input into the bucket directories of outputDir
// and records the outcome in report. A document's output in any other
// bucket, left by an earlier run, is removed.
func downgradeBatch(ctx context.Context, input string, report *model.Report, opts []manager.Option) error {
	m := manager.NewDowngradeManager(opts...)

	res, err := m.Insert(ctx, input)
	if err != nil {
		return fmt.Errorf("load IOCs: %w", err)
	}
	recordInsert(report, res)

	recordConversionErrors(report, m.ConvertTo10())
	report.Pruned = m.Pruned()
	report.Null = m.Null()

	buckets := map[string][]string{bucketPruned: report.Pruned, bucketNull: report.Null}
	for _, id := range m.IDs() {
		c, ok := m.Result(id)
		if !ok {
			continue
		}
		report.Converted++
		if c.Cached {
			report.CacheHits++
		}
		if err := removeStale(id, bucketOf(c.Classification)); err != nil {
			return err
		}
	}

	if err := writeBucket(report, bucketUnpruned, m.WriteIOCs); err != nil {
		return err
	}
	for _, bucket := range []string{bucketPruned, bucketNull} {
		ids := buckets[bucket]
		if len(ids) == 0 {
			continue
		}
		if err := writeBucket(report, bucket, func(dir string) (int, error) {
			return m.WritePruned(dir, ids)
		}); err != nil {
			return err
		}
	}
	return nil
}

func bucketOf(c convert.Classification) string {
	switch c {
	case convert.Pruned:
		return bucketPruned
	case convert.Null:
		return bucketNull
	}
	return bucketUnpruned
}

// removeStale deletes id's output from every bucket except keep
func removeStale(id, keep string) error {
	for _, bucket := range []string{bucketUnpruned, bucketPruned, bucketNull} {
		if bucket == keep {
			continue
		}
		path := filepath.Join(outputDir, bucket, id+ioc.FileExt)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale output: %w", err)
		}
	}
	return nil
}
