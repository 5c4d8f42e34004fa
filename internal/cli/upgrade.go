package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/model"
)

// upgradeCmd represents the upgrade command
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Convert OpenIOC 1.0 documents to OpenIOC 1.1",
	Long: `Upgrade converts OpenIOC 1.0 documents to the 1.1 schema:
- Negated conditions (isnot, containsnot) become the negate attribute
- Inline comments become "comment" parameters
- Trailing Z is stripped from dates
- Link href attributes are not carried over

Each converted document is written to <output-dir>/<id>.ioc with the
encoding declared by its source.

Example:
  iocwriter upgrade -i ./iocs_10 -o ./iocs_11
  iocwriter upgrade -i legacy.ioc -o ./out --report upgrade.yaml`,
	Args: cobra.NoArgs,
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	addBatchFlags(upgradeCmd, "./iocs_11")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	readBatchFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printRunHeader("OpenIOC 1.0 → 1.1 Upgrade", cfg)

	reg := metrics.NewMetrics()
	report := model.NewReport("upgrade", inputPath, outputDir)
	if err := upgradeBatch(cmd.Context(), inputPath, report, managerOptions(cfg, reg)); err != nil {
		return err
	}

	return finishRun(report, reg)
}

// upgradeBatch upgrades input into outputDir and records the outcome in report
func upgradeBatch(ctx context.Context, input string, report *model.Report, opts []manager.Option) error {
	m := manager.NewUpgradeManager(opts...)

	res, err := m.Insert(ctx, input)
	if err != nil {
		return fmt.Errorf("load IOCs: %w", err)
	}
	recordInsert(report, res)

	recordConversionErrors(report, m.ConvertTo11())
	for _, c := range m.Converted() {
		report.Converted++
		if c.Cached {
			report.CacheHits++
		}
	}

	return writeBucket(report, "", m.WriteIOCs)
}
