package export

import (
	"testing"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Basic(t *testing.T) {
	msg := &models.Message{
		ID:      "m1",
		Content: "hello world  foo",
		Attachments: []models.Attachment{
			{URL: "https://cdn/x", FileName: "x", ContentType: "image/png"},
		},
	}

	d := Derive(msg)
	assert.Equal(t, 3, d.WordCount)
	assert.Equal(t, 16, d.CharCount)
	assert.True(t, d.HasAttachments)
	assert.Equal(t, "image", d.AttachmentTypes)
	assert.Equal(t, []models.AttachmentRef{{URL: "https://cdn/x", Name: "x", Type: "image"}}, d.AttachmentURLs)
	assert.Empty(t, d.ReplyToMsgID)
}

func TestDerive_EmptyMessage(t *testing.T) {
	d := Derive(&models.Message{ID: "1", Timestamp: "2025-01-01T00:00:00+00:00"})
	assert.Equal(t, 0, d.WordCount)
	assert.Equal(t, 0, d.CharCount)
	assert.False(t, d.HasAttachments)
	assert.Equal(t, "", d.AttachmentTypes)
	assert.NotNil(t, d.AttachmentURLs, "serialises as an empty list")
	assert.Empty(t, d.AttachmentURLs)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", d.Timestamp)
}

func TestDerive_AttachmentTypesKeepOrderAndDuplicates(t *testing.T) {
	msg := &models.Message{Attachments: []models.Attachment{
		{FileName: "a.PNG"},
		{FileName: "clip.mp4"},
		{FileName: "b.jpg"},
		{FileName: "notes.txt"},
		{FileName: "song.ogg"},
	}}

	d := Derive(msg)
	assert.Equal(t, "image,video,image,file,audio", d.AttachmentTypes)
	require.Len(t, d.AttachmentURLs, 5)
	assert.Equal(t, "video", d.AttachmentURLs[1].Type, "stored urls mirror the classification")
}

func TestDerive_Reply(t *testing.T) {
	tests := []struct {
		name string
		ref  *models.Reference
		want string
	}{
		{name: "no reference", ref: nil, want: ""},
		{name: "reference without message", ref: &models.Reference{ChannelID: "5"}, want: ""},
		{name: "dangling reference", ref: &models.Reference{MessageID: "never-seen"}, want: "never-seen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Derive(&models.Message{ID: "1", Reference: tt.ref})
			assert.Equal(t, tt.want, d.ReplyToMsgID)
		})
	}
}

func TestDerive_TimestampFromSnowflake(t *testing.T) {
	// Discord epoch (2015-01-01) plus 1000ms, shifted past the 22 low bits.
	id := models.Snowflake("4194304000")

	d := Derive(&models.Message{ID: id})
	assert.Equal(t, "2015-01-01T00:00:01Z", d.Timestamp)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{" leading and trailing ", 3},
		{"tabs\tand\nnewlines", 3},
		{"zażółć gęślą jaźń", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordCount(tt.in), "WordCount(%q)", tt.in)
	}
}

func TestCharCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"zażółć", 6},
		{"👍", 2},
		{"a👍b", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CharCount(tt.in), "CharCount(%q)", tt.in)
	}
}

func TestClassifyAttachment(t *testing.T) {
	tests := []struct {
		name string
		in   models.Attachment
		want string
	}{
		{name: "content type wins over extension", in: models.Attachment{FileName: "x.png", ContentType: "video/mp4"}, want: "video"},
		{name: "content type without slash", in: models.Attachment{ContentType: "application"}, want: "application"},
		{name: "content type prefix kept verbatim", in: models.Attachment{ContentType: "application/pdf"}, want: "application"},
		{name: "jpeg extension", in: models.Attachment{FileName: "photo.jpeg"}, want: "image"},
		{name: "webp extension", in: models.Attachment{FileName: "s.webp"}, want: "image"},
		{name: "mov extension", in: models.Attachment{FileName: "clip.MOV"}, want: "video"},
		{name: "wav extension", in: models.Attachment{FileName: "a.wav"}, want: "audio"},
		{name: "url fallback strips query", in: models.Attachment{URL: "https://cdn/a/b.gif?ex=1&is=2"}, want: "image"},
		{name: "unknown extension", in: models.Attachment{FileName: "archive.zip"}, want: "file"},
		{name: "nothing to go on", in: models.Attachment{}, want: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAttachment(tt.in))
		})
	}
}
