package export

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/buger/jsonparser"
)

// HeaderPeekSize is how much of a file the header reader inspects. Exporters write
// the guild and channel objects before the message array, well inside this window.
const HeaderPeekSize = 4096

var channelIDPattern = regexp.MustCompile(`\[(\d+)\]`)

// FileMeta is what the filename convention
// "<Guild> - <Category> - <Channel> [<ChannelID>]<anything>.json" yields.
// Empty fields were not present in the name.
type FileMeta struct {
	ChannelID    string
	ChannelName  string
	CategoryName string
	GuildName    string
}

// HeaderMeta is what the embedded "guild"/"channel" objects yield.
// Empty fields were absent or unparseable.
type HeaderMeta struct {
	ChannelID    string
	ChannelName  string
	CategoryName string
	ChannelType  string
	GuildID      string
	GuildName    string
}

// ParseFilename extracts channel metadata from an export's file name.
// Without a bracketed numeric id the channel id is the sentinel default and the
// channel name is the whole stem.
func ParseFilename(path string) FileMeta {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	loc := channelIDPattern.FindStringSubmatchIndex(stem)
	if loc == nil {
		return FileMeta{ChannelID: models.DefaultChannelID, ChannelName: stem}
	}

	meta := FileMeta{ChannelID: stem[loc[2]:loc[3]]}
	parts := strings.Split(strings.TrimSpace(stem[:loc[0]]), " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch {
	case len(parts) >= 2:
		meta.GuildName = parts[0]
		meta.ChannelName = parts[len(parts)-1]
		if len(parts) > 2 {
			meta.CategoryName = strings.Join(parts[1:len(parts)-1], " - ")
		}
	case len(parts) == 1:
		meta.ChannelName = parts[0]
	}
	return meta
}

// ReadHeader inspects the first HeaderPeekSize bytes of the file for the top-level
// "channel" and "guild" objects. It never fails: a missing file, a bare-array
// document, truncation or malformed JSON simply leave fields empty.
func ReadHeader(path string) HeaderMeta {
	f, err := os.Open(path)
	if err != nil {
		return HeaderMeta{}
	}
	defer f.Close()

	buf := make([]byte, HeaderPeekSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return HeaderMeta{}
	}
	return ParseHeader(buf[:n])
}

// ParseHeader extracts header metadata from a document prefix.
func ParseHeader(prefix []byte) HeaderMeta {
	var meta HeaderMeta
	if channel, ok := headerObject(prefix, "channel"); ok {
		meta.ChannelID = headerString(channel, "id")
		meta.ChannelName = headerString(channel, "name")
		meta.CategoryName = headerString(channel, "category")
		meta.ChannelType = headerString(channel, "type")
	}
	if guild, ok := headerObject(prefix, "guild"); ok {
		meta.GuildID = headerString(guild, "id")
		meta.GuildName = headerString(guild, "name")
	}
	return meta
}

// Resolve combines header and filename metadata field by field, header first,
// then named defaults. It always returns a usable record.
func Resolve(path string) models.ChannelMeta {
	return Merge(ReadHeader(path), ParseFilename(path))
}

// Merge applies the precedence header > filename > default.
func Merge(h HeaderMeta, f FileMeta) models.ChannelMeta {
	return models.ChannelMeta{
		ID:           firstNonEmpty(h.ChannelID, f.ChannelID, models.DefaultChannelID),
		Name:         firstNonEmpty(h.ChannelName, f.ChannelName, models.DefaultChannelName),
		CategoryName: firstNonEmpty(h.CategoryName, f.CategoryName, models.DefaultCategoryName),
		Type:         firstNonEmpty(h.ChannelType, models.DefaultChannelType),
		GuildID:      firstNonEmpty(h.GuildID, models.DefaultGuildID),
		GuildName:    firstNonEmpty(h.GuildName, f.GuildName, models.DefaultGuildName),
	}
}

// headerObject returns the raw object stored under a top-level key, provided it
// is complete inside the prefix.
func headerObject(prefix []byte, key string) ([]byte, bool) {
	value, dataType, _, err := jsonparser.Get(prefix, key)
	if err != nil || dataType != jsonparser.Object {
		return nil, false
	}
	return value, true
}

// headerString reads a string or numeric field; ids are occasionally unquoted.
func headerString(obj []byte, key string) string {
	value, dataType, _, err := jsonparser.Get(obj, key)
	if err != nil {
		return ""
	}
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case jsonparser.Number:
		if i, err := jsonparser.ParseInt(value); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return string(value)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
