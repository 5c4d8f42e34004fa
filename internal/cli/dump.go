package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/iocwriter/internal/ioc"
	"github.com/ppiankov/iocwriter/internal/manager"
	"github.com/ppiankov/iocwriter/internal/metrics"
)

var noParams bool

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file|dir>...",
	Short: "Print a textual representation of OpenIOC 1.1 documents",
	Long: `Dump prints the metadata, links and criteria tree of each OpenIOC 1.1
document found in the given files and directories. Parameters are printed
above the node they reference unless --no-params is set.

Example:
  iocwriter dump ./iocs
  iocwriter dump a.ioc b.ioc --no-params --sep "    "`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().BoolVarP(&noParams, "no-params", "n", false, "do not display parameters attached to an IOC")
	dumpCmd.Flags().String("sep", ioc.DefaultSeparator, "indent used for each level of the criteria tree")
	_ = viper.BindPFlag("output.separator", dumpCmd.Flags().Lookup("sep"))
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m := manager.New(managerOptions(cfg, metrics.NewMetrics())...)
	for _, path := range args {
		res, err := m.Insert(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		for _, f := range res.Failed {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to parse\n", f)
		}
	}

	opts := ioc.DisplayOptions{
		Params:    cfg.Output.Params && !noParams,
		Separator: cfg.Output.Separator,
	}
	out := cmd.OutOrStdout()
	for _, doc := range m.Documents() {
		fmt.Fprintln(out, ioc.Display(doc, opts))
	}
	return nil
}
