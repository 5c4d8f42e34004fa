package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
	"github.com/ppiankov/iocwriter/internal/model"
)

// repairCmd represents the repair command
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite OpenIOC 1.1 documents with schema-valid child ordering",
	Long: `Repair loads OpenIOC 1.1 documents and rewrites them so that every
Indicator lists its IndicatorItem children before its Indicator children,
as the 1.1 schema requires. Relative order within each group is kept.

Example:
  iocwriter repair -i ./iocs -o ./iocs_fixed`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
	addBatchFlags(repairCmd, "./iocs_repaired")
}

func runRepair(cmd *cobra.Command, args []string) error {
	readBatchFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printRunHeader("OpenIOC 1.1 Schema-Order Repair", cfg)

	reg := metrics.NewMetrics()
	report := model.NewReport("repair", inputPath, outputDir)
	m := manager.New(managerOptions(cfg, reg)...)

	res, err := m.Insert(cmd.Context(), inputPath)
	if err != nil {
		return fmt.Errorf("load IOCs: %w", err)
	}
	recordInsert(report, res)
	report.Converted = m.Len()

	if err := writeBucket(report, "", m.WriteIOCs); err != nil {
		return err
	}

	return finishRun(report, reg)
}
