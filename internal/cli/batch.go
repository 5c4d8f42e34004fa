package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/iocwriter/internal/cache"
	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/model"
)

// Set by readBatchFlags from the running command
var (
	inputPath   string
	outputDir   string
	reportPath  string
	metricsFile string
)

// addBatchFlags registers the input/output flags shared by the batch
// commands
func addBatchFlags(cmd *cobra.Command, defaultOut string) {
	cmd.Flags().StringP("input", "i", "", "input .ioc file or directory")
	cmd.Flags().StringP("output-dir", "o", defaultOut, "output directory")
	cmd.Flags().String("report", "", "write a YAML batch report to this file")
	cmd.Flags().String("metrics-file", "", "write prometheus metrics in textfile format to this file")
	_ = cmd.MarkFlagRequired("input")
}

// readBatchFlags copies the running command's batch flags into the
// package variables
func readBatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	inputPath, _ = flags.GetString("input")
	outputDir, _ = flags.GetString("output-dir")
	reportPath, _ = flags.GetString("report")
	metricsFile, _ = flags.GetString("metrics-file")
}

// managerOptions builds manager options from the resolved configuration
func managerOptions(cfg model.Config, reg *metrics.Metrics) []manager.Option {
	opts := []manager.Option{
		manager.WithWorkers(cfg.Concurrency.Workers),
		manager.WithMetrics(reg),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, manager.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)))
	}
	return opts
}

func printBanner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func printRunHeader(title string, cfg model.Config) {
	printBanner(title)
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", inputPath)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(os.Stderr, "\n")
}

// recordInsert prints load failures and duplicates and copies them into the report
func recordInsert(report *model.Report, res *manager.InsertResult) {
	report.Loaded += res.Loaded
	report.Failed = append(report.Failed, res.Failed...)
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "✗ %s: failed to parse\n", f)
	}
	for _, d := range res.Duplicates {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", d)
		report.Duplicates = append(report.Duplicates, model.DuplicateEntry{ID: d.ID, OldName: d.OldName, NewName: d.NewName})
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d IOCs\n", res.Loaded)
}

// recordConversionErrors prints per-document failures and copies them into the report
func recordConversionErrors(report *model.Report, errs []manager.ConversionError) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", e.ID, e.Err)
		report.Errors = append(report.Errors, model.FailureEntry{ID: e.ID, Error: e.Err.Error()})
	}
}

// writeBucket writes via write into outputDir/bucket and records the count
func writeBucket(report *model.Report, bucket string, write func(dir string) (int, error)) error {
	dir := outputDir
	if bucket != "" {
		dir = filepath.Join(outputDir, bucket)
	}
	n, err := write(dir)
	if err != nil {
		return fmt.Errorf("write %s: %w", dir, err)
	}
	if bucket == "" {
		bucket = "output"
	}
	report.Written[bucket] += n
	return nil
}

// finishRun prints the summary and writes the optional report and metrics files
func finishRun(report *model.Report, reg *metrics.Metrics) error {
	report.Finish()

	printBanner("Batch Complete")
	fmt.Fprintf(os.Stderr, "  Loaded:     %d IOCs\n", report.Loaded)
	fmt.Fprintf(os.Stderr, "  Failed:     %d files\n", len(report.Failed))
	fmt.Fprintf(os.Stderr, "  Converted:  %d\n", report.Converted)
	fmt.Fprintf(os.Stderr, "  Errors:     %d\n", len(report.Errors))
	for bucket, n := range report.Written {
		fmt.Fprintf(os.Stderr, "  Written:    %d (%s)\n", n, bucket)
	}
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", report.Duration)
	fmt.Fprintf(os.Stderr, "\n")

	if reportPath != "" {
		if err := report.WriteYAML(reportPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Report written to %s\n", reportPath)
	}
	if metricsFile != "" {
		if err := reg.WriteTextfile(metricsFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Metrics written to %s\n", metricsFile)
	}
	return nil
}
