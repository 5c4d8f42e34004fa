package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/iocwriter/internal/logger"
	"github.com/ppiankov/iocwriter/internal/model"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "iocwriter",
	Short: "iocwriter - OpenIOC 1.0/1.1 conversion and inspection",
	Long: `iocwriter converts OpenIOC indicator documents between the 1.0 and 1.1
schemas and prints readable summaries of them.

Upgrading 1.0 documents to 1.1 is lossless. Downgrading 1.1 documents to 1.0
drops any top-level branch that uses a 1.1-only condition or preserve-case,
and sorts the results into unpruned, pruned and null buckets.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of iocwriter.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "iocwriter %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.iocwriter/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Int("workers", 0, "number of files parsed concurrently (default: number of CPUs)")
	flags.Bool("cache", false, "memoise conversion output")
	flags.String("cache-dir", "", "persist the conversion cache in this directory")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("cache.enabled", flags.Lookup("cache"))
	_ = viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))

	setDefaults(model.DefaultConfig())

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// setDefaults registers every config key with viper so env vars and the
// config file can override it
func setDefaults(cfg model.Config) {
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)
	viper.SetDefault("output.verbose", cfg.Output.Verbose)
	viper.SetDefault("output.separator", cfg.Output.Separator)
	viper.SetDefault("output.params", cfg.Output.Params)
	viper.SetDefault("watch.events_per_second", cfg.Watch.EventsPerSecond)
	viper.SetDefault("watch.burst", cfg.Watch.Burst)
	viper.SetDefault("watch.settle", cfg.Watch.Settle)
	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("log.pretty", cfg.Log.Pretty)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".iocwriter"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match IOCWRITER_*, e.g.
	// IOCWRITER_LOG_LEVEL for log.level
	viper.SetEnvPrefix("IOCWRITER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the layered configuration, validates it and sets up
// the global logger
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	level := cfg.Log.Level
	if cfg.Output.Verbose {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Pretty: cfg.Log.Pretty})

	return cfg, nil
}
