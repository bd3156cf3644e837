package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/4Lajf/karczma-wrapped/config"
	"github.com/4Lajf/karczma-wrapped/database"
	"github.com/4Lajf/karczma-wrapped/models"
	"github.com/4Lajf/karczma-wrapped/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	inputDir   string
	dbPath     string
	dbDriver   string

	cfg    *models.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "karczma-wrapped",
	Short:         "Load Discord channel exports into a SQLite store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if inputDir != "" {
			loaded.InputDir = inputDir
		}
		if dbPath != "" {
			loaded.Database.Path = dbPath
		}
		if dbDriver != "" {
			loaded.Database.Driver = dbDriver
		}
		cfg = loaded

		logger, err = utils.NewLogger(cfg.Log.Level, cfg.Log.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input", "", "Directory of export files (overrides input_dir)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "SQLite driver: sqlite3 or sqlite (overrides database.driver)")
}

// openStore opens the configured store; the caller closes it.
func openStore(ctx context.Context) (*database.Store, error) {
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened database", zap.String("path", store.Path()), zap.String("driver", cfg.Database.Driver))
	return store, nil
}
