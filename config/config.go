package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Bounds applied to ingest.batch_size.
const (
	MinBatchSize = 100
	MaxBatchSize = 5000
)

// Load reads configuration from several sources:
// 1. .env file (environment variables)
// 2. config.yaml in the working directory, or the file given by path
// 3. environment variables, which override file values (database.path -> DATABASE_PATH)
//
// A missing config file is not an error; defaults and the environment are used instead.
func Load(path string) (*models.Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("admin.bot_token", "BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind BOT_TOKEN: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	normalize(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./input")
	v.SetDefault("database.path", "./karczma.db")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.busy_timeout_ms", 10000)
	v.SetDefault("ingest.batch_size", 1000)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.continue_on_error", true)
	v.SetDefault("ingest.schedule", "@hourly")
	v.SetDefault("ingest.status_file", "")
	v.SetDefault("merge.output", "merged-output.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("admin.bot_token", "")
	v.SetDefault("admin.channel_id", "")
}

func normalize(cfg *models.Config) {
	cfg.Ingest.BatchSize = ClampBatchSize(cfg.Ingest.BatchSize)
	if cfg.Ingest.Workers < 1 {
		cfg.Ingest.Workers = 1
	}
	if cfg.Database.BusyTimeoutMS < 0 {
		cfg.Database.BusyTimeoutMS = 0
	}
}

// ClampBatchSize keeps a configured batch size inside [MinBatchSize, MaxBatchSize].
func ClampBatchSize(n int) int {
	switch {
	case n < MinBatchSize:
		return MinBatchSize
	case n > MaxBatchSize:
		return MaxBatchSize
	default:
		return n
	}
}
