package models

import "time"

// Defaults substituted when neither the export header nor the filename supplies a value.
const (
	DefaultGuildID      = "0"
	DefaultGuildName    = "Unknown Guild"
	DefaultChannelID    = "0"
	DefaultChannelName  = "Unknown Channel"
	DefaultCategoryName = "Unknown"
	DefaultChannelType  = "GuildText"
)

// ChannelMeta is the file-level channel/guild metadata resolved once per export file.
type ChannelMeta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryName string `json:"category"`
	Type         string `json:"type"`
	GuildID      string `json:"guildId"`
	GuildName    string `json:"guildName"`
}

// AttachmentRef is the stored form of one attachment in messages.attachment_urls.
type AttachmentRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Derived holds the per-message values computed at ingestion time.
type Derived struct {
	WordCount       int
	CharCount       int
	HasAttachments  bool
	AttachmentTypes string
	AttachmentURLs  []AttachmentRef
	ReplyToMsgID    string
	Timestamp       string
}

// Record is a decoded message paired with its derived fields, ready to commit.
type Record struct {
	Message *Message
	Derived Derived
}

// ProcessedFile is a row of the processed_files ledger.
type ProcessedFile struct {
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableCounts is the number of rows in each table of the store.
type TableCounts struct {
	Channels       int64 `json:"channels"`
	Users          int64 `json:"users"`
	Messages       int64 `json:"messages"`
	Mentions       int64 `json:"mentions"`
	Reactions      int64 `json:"reactions"`
	ProcessedFiles int64 `json:"processed_files"`
}
