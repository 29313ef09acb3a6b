package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/tasknest/internal/config"
	"github.com/existflow/tasknest/internal/logger"
)

var (
	logLevel   string
	logConsole bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tasknest",
	Short: "TaskNest - personal task tracker backend",
	Long: `TaskNest is the privileged backend for the TaskNest task tracker.

Run 'tasknest serve' to start the local bridge the UI talks to.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
		}

		logConfig := logger.DefaultConfig()
		logConfig.Level = logger.ParseLevel(cfg.LogLevel)
		logConfig.Console = cfg.LogConsole
		if cfg.LogFile != "" {
			logConfig.FilePath = cfg.LogFile
		}
		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Also log to stderr")

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command
func Execute() error {
	defer logger.Close()
	return rootCmd.Execute()
}
