package models

// Config is the full application configuration, decoded from config.yaml and the environment.
type Config struct {
	InputDir string         `mapstructure:"input_dir"`
	Database DatabaseConfig `mapstructure:"database"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Merge    MergeConfig    `mapstructure:"merge"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// DatabaseConfig selects the SQLite file and driver.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	Driver        string `mapstructure:"driver"` // "sqlite3" (mattn) or "sqlite" (modernc)
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	BatchSize       int    `mapstructure:"batch_size"`
	Workers         int    `mapstructure:"workers"`
	ContinueOnError bool   `mapstructure:"continue_on_error"`
	Schedule        string `mapstructure:"schedule"`    // cron spec used by --watch
	StatusFile      string `mapstructure:"status_file"` // empty disables the run status file
}

// MergeConfig configures the merge command.
type MergeConfig struct {
	Output string `mapstructure:"output"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AdminConfig enables run reports in a Discord admin channel.
type AdminConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChannelID string `mapstructure:"channel_id"`
}
