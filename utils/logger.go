package utils

import (
	"fmt"
	"time"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// Discord rejects embed field values longer than this.
const maxFieldValue = 1024

// NewLogger builds a JSON production logger, or a console logger when
// development is set, at the given level.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// embedSender is the part of *discordgo.Session the reporter uses.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Reporter sends operator-facing reports to the admin channel when one is
// configured. Every report is also written to the logger.
type Reporter struct {
	sender    embedSender
	channelID string
	logger    *zap.Logger
}

// NewReporter creates a reporter. Without a bot token or channel id it only logs.
func NewReporter(cfg models.AdminConfig, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reporter{channelID: cfg.ChannelID, logger: logger}
	if cfg.BotToken == "" || cfg.ChannelID == "" {
		logger.Debug("Admin channel reporting disabled")
		return r, nil
	}

	s, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	r.sender = s
	return r, nil
}

// Enabled reports whether reports reach the admin channel.
func (r *Reporter) Enabled() bool {
	return r.sender != nil
}

// Log writes a report at level (INFO, WARN or ERROR).
func (r *Reporter) Log(level, module, operation, details string) {
	fields := []zap.Field{zap.String("module", module), zap.String("operation", operation)}
	var color int
	switch level {
	case "WARN":
		color = ColorWarn
		r.logger.Warn(details, fields...)
	case "ERROR":
		color = ColorError
		r.logger.Error(details, fields...)
	default:
		color = ColorInfo
		r.logger.Info(details, fields...)
	}

	if r.sender == nil {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: truncate(details, maxFieldValue),
			},
		},
	}

	if _, err := r.sender.ChannelMessageSendEmbed(r.channelID, embed); err != nil {
		r.logger.Warn("Error sending report to Discord", zap.Error(err))
	}
}

// Info reports an informational message.
func (r *Reporter) Info(module, operation, details string) {
	r.Log("INFO", module, operation, details)
}

// Warn reports a warning.
func (r *Reporter) Warn(module, operation, details string) {
	r.Log("WARN", module, operation, details)
}

// Error reports an error.
func (r *Reporter) Error(module, operation, details string) {
	r.Log("ERROR", module, operation, details)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
