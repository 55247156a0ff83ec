package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pable/go-cs-demostats/internal/config"
	"github.com/pable/go-cs-demostats/internal/log"
)

var (
	cfgFile   string
	v         = config.New()
	cfg       config.Config
	logger    *slog.Logger
	logCloser = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "csdemostats",
	Short: "CS2 demo statistics tool",
	Long:  "Parse CS2 .dem files into per-match, per-round and per-player statistics.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Read(v, cfgFile)
		if err != nil {
			return err
		}
		logger, logCloser = log.MustCreateLogger(os.Stderr, cfg.Logging.File, cfg.Logging.Level)
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("Using config file", slog.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logCloser()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ~/.csdemostats and .)")
	flags.String("db", filepath.Join(config.DefaultDir(), "demostats.db"), "path to SQLite database")
	flags.String("log-level", string(log.Info), "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write debug logs to this file")

	mustBind(v, "db", flags.Lookup("db"))
	mustBind(v, "logging.level", flags.Lookup("log-level"))
	mustBind(v, "logging.file", flags.Lookup("log-file"))

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(shareCodeCmd)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
