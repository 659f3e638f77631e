package cli

import (
	"io"
	"os"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	dbFile   string

	// loaded at init time
	paths    config.Paths
	cfg      config.Config
	log      *logging.Logger
	logClose io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aegis",
		Short: "AEGIS, a tool-using personal health assistant",
		Long: "AEGIS answers health questions by reasoning with a language model and calling " +
			"medical tools: knowledge lookups, facility search, records, wellness and emergency response.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if env := os.Getenv("AEGIS_CONFIG"); env != "" {
				paths.Config = env
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			cfg, err = config.Load(paths.Config)
			if err != nil {
				return err
			}
			if dbFile != "" {
				cfg.Database.Path = dbFile
			}

			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			if level == "" {
				level = "info"
			}
			log, logClose, err = logging.Open(logging.Options{
				Level:   level,
				Console: cfg.Logging.ConsoleStyle,
				File:    cfg.Logging.File,
			})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logClose != nil {
				return logClose.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.aegis/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")
	cmd.PersistentFlags().StringVar(&dbFile, "db", "", "SQLite database path (default ~/.aegis/data/aegis.db)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newCalendarCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
