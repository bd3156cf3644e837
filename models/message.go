package models

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Snowflake is a platform identifier. Exports normally quote ids, but some tools
// write them as bare numbers, so both forms are accepted.
type Snowflake string

// UnmarshalJSON accepts a JSON string, an integer or null.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Snowflake(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	if i, err := num.Int64(); err == nil {
		*s = Snowflake(strconv.FormatInt(i, 10))
		return nil
	}
	*s = Snowflake(num.String())
	return nil
}

// String returns the id as a plain string.
func (s Snowflake) String() string { return string(s) }

// MessageType is the kind of a message ("Default", "Reply", ...). Some
// exporters write the platform's numeric code instead of the name; known codes
// are mapped to the name and unknown ones are kept as their decimal form.
type MessageType string

var messageTypeNames = map[discordgo.MessageType]MessageType{
	discordgo.MessageTypeDefault:              "Default",
	discordgo.MessageTypeRecipientAdd:         "RecipientAdd",
	discordgo.MessageTypeRecipientRemove:      "RecipientRemove",
	discordgo.MessageTypeCall:                 "Call",
	discordgo.MessageTypeChannelNameChange:    "ChannelNameChange",
	discordgo.MessageTypeChannelIconChange:    "ChannelIconChange",
	discordgo.MessageTypeChannelPinnedMessage: "ChannelPinnedMessage",
	discordgo.MessageTypeGuildMemberJoin:      "GuildMemberJoin",
	discordgo.MessageTypeThreadCreated:        "ThreadCreated",
	discordgo.MessageTypeReply:                "Reply",
	discordgo.MessageTypeChatInputCommand:     "ApplicationCommand",
	discordgo.MessageTypeThreadStarterMessage: "ThreadStarterMessage",
}

// UnmarshalJSON accepts a JSON string, an integer code or null.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var raw Snowflake
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' && raw != "" {
		if code, err := strconv.Atoi(string(raw)); err == nil {
			if name, ok := messageTypeNames[discordgo.MessageType(code)]; ok {
				*t = name
				return nil
			}
		}
	}
	*t = MessageType(raw)
	return nil
}

// String returns the type name.
func (t MessageType) String() string { return string(t) }

// Message is one entry of an export file's "messages" array.
type Message struct {
	ID              Snowflake    `json:"id"`
	Type            MessageType  `json:"type"`
	Timestamp       string       `json:"timestamp"`
	TimestampEdited *string      `json:"timestampEdited"`
	IsPinned        bool         `json:"isPinned"`
	Content         string       `json:"content"`
	Author          *User        `json:"author"`
	Attachments     []Attachment `json:"attachments"`
	Reactions       []Reaction   `json:"reactions"`
	Mentions        []User       `json:"mentions"`
	Reference       *Reference   `json:"reference"`
}

// User is the user-shaped object used for authors, mentions and reacting users.
type User struct {
	ID            Snowflake `json:"id"`
	Name          string    `json:"name"`
	Discriminator string    `json:"discriminator"`
	Nickname      string    `json:"nickname"`
	AvatarURL     string    `json:"avatarUrl"`
	IsBot         bool      `json:"isBot"`
	Roles         []Role    `json:"roles"`
}

// Role is a guild role as embedded in an author record.
type Role struct {
	ID       Snowflake       `json:"id,omitempty"`
	Name     string          `json:"name"`
	Color    json.RawMessage `json:"color,omitempty"`
	Position int             `json:"position"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID          Snowflake `json:"id,omitempty"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType,omitempty"`
	FileSize    int64     `json:"fileSizeBytes,omitempty"`
}

// Reaction is one emoji applied to a message together with every user who applied it.
type Reaction struct {
	Emoji Emoji  `json:"emoji"`
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// Emoji identifies a reaction emoji. ID is empty for unicode emoji.
type Emoji struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

// Reference points at the message being replied to.
type Reference struct {
	MessageID Snowflake `json:"messageId"`
	ChannelID Snowflake `json:"channelId"`
	GuildID   Snowflake `json:"guildId"`
}
