package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/logger"
	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/model"
	"github.com/ppiankov/iocwriter/internal/worker"
)

var watchMode string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert OpenIOC documents as they appear in a directory",
	Long: `Watch monitors a directory and converts every .ioc file that is created
or modified, writing the result the same way the upgrade and downgrade
commands do. Events are rate limited per directory and each file is given
a short settle delay so partially written files are not read.

Stop with Ctrl-C.

Example:
  iocwriter watch --mode upgrade -i ./incoming -o ./iocs_11
  iocwriter watch --mode downgrade -i ./iocs_11 -o ./iocs_10`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("input", "i", "", "directory to watch")
	watchCmd.Flags().StringP("output-dir", "o", "", "output directory")
	watchCmd.Flags().StringVar(&watchMode, "mode", manager.DirectionUpgrade, "conversion to run: upgrade or downgrade")
	_ = watchCmd.MarkFlagRequired("input")
	_ = watchCmd.MarkFlagRequired("output-dir")
}

func runWatch(cmd *cobra.Command, args []string) error {
	readBatchFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchMode != manager.DirectionUpgrade && watchMode != manager.DirectionDowngrade {
		return fmt.Errorf("unknown mode %q: want upgrade or downgrade", watchMode)
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input %s is not a directory", inputPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(inputPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inputPath, err)
	}

	printBanner("iocwriter Watch")
	fmt.Fprintf(os.Stderr, "  Watching:     %s\n", inputPath)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", watchMode)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	limiter := worker.NewLimiter(cfg.Watch.EventsPerSecond, cfg.Watch.Burst)
	reg := metrics.NewMetrics()
	opts := managerOptions(cfg, reg)
	log := logger.Get().Component("watch")
	ctx := cmd.Context()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "\n✓ Stopped watching %s\n", inputPath)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.EqualFold(filepath.Ext(event.Name), ioc.FileExt) {
				continue
			}
			if err := limiter.WaitWithDelay(ctx, event.Name, cfg.Watch.Settle); err != nil {
				continue
			}
			report, err := convertOne(ctx, watchMode, event.Name, opts)
			if err != nil {
				log.Error().Err(err).Str("file", event.Name).Msg("conversion failed")
				continue
			}
			if report.Converted > 0 {
				fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", filepath.Base(event.Name), watchMode)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("file watcher error")
		}
	}
}

// convertOne runs a single-file batch in the given direction
func convertOne(ctx context.Context, mode, path string, opts []manager.Option) (*model.Report, error) {
	report := model.NewReport(mode, path, outputDir)

	var err error
	switch mode {
	case manager.DirectionUpgrade:
		err = upgradeBatch(ctx, path, report, opts)
	case manager.DirectionDowngrade:
		err = downgradeBatch(ctx, path, report, opts)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	report.Finish()
	return report, nil
}
