package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./karczma.db", cfg.Database.Path)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 10000, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
	assert.Equal(t, 1, cfg.Ingest.Workers)
	assert.True(t, cfg.Ingest.ContinueOnError)
	assert.Equal(t, "@hourly", cfg.Ingest.Schedule)
	assert.Equal(t, "merged-output.json", cfg.Merge.Output)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
input_dir: /data/exports
database:
  path: /data/store.db
  driver: sqlite
ingest:
  batch_size: 250
  workers: 4
  continue_on_error: false
  status_file: /data/status.json
admin:
  channel_id: "123"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/exports", cfg.InputDir)
	assert.Equal(t, "/data/store.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 250, cfg.Ingest.BatchSize)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.False(t, cfg.Ingest.ContinueOnError)
	assert.Equal(t, "/data/status.json", cfg.Ingest.StatusFile)
	assert.Equal(t, "123", cfg.Admin.ChannelID)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /from/file.db\n")
	t.Setenv("DATABASE_PATH", "/from/env.db")
	t.Setenv("BOT_TOKEN", "secret-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env.db", cfg.Database.Path)
	assert.Equal(t, "secret-token", cfg.Admin.BotToken)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "database: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_NormalizesOutOfRangeValues(t *testing.T) {
	path := writeConfig(t, "ingest:\n  batch_size: 5\n  workers: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, MinBatchSize, cfg.Ingest.BatchSize)
	assert.Equal(t, 1, cfg.Ingest.Workers)
}

func TestClampBatchSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "below minimum", in: 1, want: MinBatchSize},
		{name: "zero", in: 0, want: MinBatchSize},
		{name: "in range", in: 1000, want: 1000},
		{name: "above maximum", in: 100000, want: MaxBatchSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampBatchSize(tt.in))
		})
	}
}
