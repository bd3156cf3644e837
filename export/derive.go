package export

import (
	"path"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/bwmarrin/discordgo"
)

// Attachment categories.
const (
	CategoryImage = "image"
	CategoryVideo = "video"
	CategoryAudio = "audio"
	CategoryFile  = "file"
)

var extensionCategories = map[string]string{
	".png":  CategoryImage,
	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".gif":  CategoryImage,
	".webp": CategoryImage,
	".mp4":  CategoryVideo,
	".mov":  CategoryVideo,
	".webm": CategoryVideo,
	".mp3":  CategoryAudio,
	".wav":  CategoryAudio,
	".ogg":  CategoryAudio,
}

// Derive computes the stored per-message fields. It performs no I/O and never
// fails; missing optional fields produce empty values.
func Derive(msg *models.Message) models.Derived {
	d := models.Derived{
		WordCount:      WordCount(msg.Content),
		CharCount:      CharCount(msg.Content),
		HasAttachments: len(msg.Attachments) > 0,
		AttachmentURLs: make([]models.AttachmentRef, 0, len(msg.Attachments)),
		Timestamp:      msg.Timestamp,
	}

	types := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		category := ClassifyAttachment(a)
		types = append(types, category)
		d.AttachmentURLs = append(d.AttachmentURLs, models.AttachmentRef{
			URL:  a.URL,
			Name: a.FileName,
			Type: category,
		})
	}
	d.AttachmentTypes = strings.Join(types, ",")

	if msg.Reference != nil && msg.Reference.MessageID != "" {
		d.ReplyToMsgID = msg.Reference.MessageID.String()
	}

	if d.Timestamp == "" && msg.ID != "" {
		// Snowflakes embed their creation time.
		if ts, err := discordgo.SnowflakeTimestamp(msg.ID.String()); err == nil {
			d.Timestamp = ts.UTC().Format(time.RFC3339Nano)
		}
	}
	return d
}

// WordCount counts whitespace-delimited non-empty tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// CharCount is the length of content in UTF-16 code units, matching how
// exporters and browsers report string length.
func CharCount(content string) int {
	n := 0
	for _, r := range content {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// ClassifyAttachment prefers the content-type prefix and falls back to the file
// extension of the file name, or of the URL when no name is given.
func ClassifyAttachment(a models.Attachment) string {
	if ct := strings.TrimSpace(a.ContentType); ct != "" {
		major, _, _ := strings.Cut(ct, "/")
		return strings.ToLower(major)
	}

	name := a.FileName
	if name == "" {
		name = a.URL
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
	}
	if category, ok := extensionCategories[strings.ToLower(path.Ext(name))]; ok {
		return category
	}
	return CategoryFile
}
