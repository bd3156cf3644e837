// Package merge concatenates a directory of channel exports into a single
// export document, tagging every message with the channel it came from.
package merge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/4Lajf/karczma-wrapped/export"

	"github.com/buger/jsonparser"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Tool identifies merged documents in their meta block.
const Tool = "karczma-wrapped-merger"

type docMeta struct {
	GeneratedAt string `json:"generatedAt"`
	Tool        string `json:"tool"`
}

type ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result reports what a merge wrote.
type Result struct {
	Files    int
	Messages int64
	Bytes    int64
}

// Merger writes merged export documents.
type Merger struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Merger.
func New(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{logger: logger, now: time.Now}
}

// MergeDir merges every export in inputDir into outputPath. The output file is
// removed again if the merge fails, and is never read as an input.
func (m *Merger) MergeDir(ctx context.Context, inputDir, outputPath string) (*Result, error) {
	files, err := export.ListFiles(inputDir)
	if err != nil {
		return nil, err
	}
	files = excludePath(files, outputPath)
	m.logger.Info("Found files to merge", zap.Int("files", len(files)))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge output: %w", err)
	}

	res, err := m.Merge(ctx, files, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close merge output: %w", cerr)
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	m.logger.Info("Merge complete",
		zap.String("output", outputPath),
		zap.Int64("messages", res.Messages),
		zap.String("size", humanize.Bytes(uint64(res.Bytes))))
	return res, nil
}

// Merge streams the messages of files, in order, into w as one document of
// the form {"meta":{...},"guild":{...},"messages":[...]}. The guild is taken
// from the first file's metadata. Each message gets a "channel" object with
// the id and name resolved for its file.
func (m *Merger) Merge(ctx context.Context, files []string, w io.Writer) (*Result, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	cw := &countingWriter{w: bw}
	res := &Result{}

	guild := ref{ID: "0", Name: "Unknown Guild"}
	if len(files) > 0 {
		first := export.Resolve(files[0])
		guild = ref{ID: first.GuildID, Name: first.GuildName}
	}

	metaJSON, err := json.Marshal(docMeta{GeneratedAt: m.now().UTC().Format(time.RFC3339Nano), Tool: Tool})
	if err != nil {
		return nil, err
	}
	guildJSON, err := json.Marshal(guild)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(cw, "{\n  \"meta\": %s,\n  \"guild\": %s,\n  \"messages\": [\n", metaJSON, guildJSON)

	first := true
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := m.mergeFile(path, cw, &first)
		if err != nil {
			return nil, err
		}
		res.Files++
		res.Messages += n
	}

	io.WriteString(cw, "\n  ]\n}\n")
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write merge output: %w", err)
	}
	if cw.err != nil {
		return nil, fmt.Errorf("failed to write merge output: %w", cw.err)
	}
	res.Bytes = cw.n
	return res, nil
}

func (m *Merger) mergeFile(path string, w io.Writer, first *bool) (int64, error) {
	name := filepath.Base(path)
	meta := export.Resolve(path)
	channelJSON, err := json.Marshal(ref{ID: meta.ID, Name: meta.Name})
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	m.logger.Info("Merging file", zap.String("file", name), zap.String("channel_id", meta.ID))

	dec := export.NewDecoder(f)
	var count int64
	for {
		raw, err := dec.NextRaw()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("merge %s: %w", name, err)
		}

		tagged, err := jsonparser.Set(raw, channelJSON, "channel")
		if err != nil {
			return count, fmt.Errorf("merge %s: message %d is not an object: %w", name, dec.Count(), err)
		}

		if !*first {
			io.WriteString(w, ",\n")
		}
		*first = false
		w.Write(tagged)
		count++
	}
	return count, nil
}

func excludePath(files []string, path string) []string {
	target, err := filepath.Abs(path)
	if err != nil {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil && abs == target {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// countingWriter tracks bytes written and keeps the first write error.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
