// Package export reads chat-export files: it streams message records out of
// arbitrarily large documents, resolves per-file channel metadata and computes
// the derived fields stored alongside each message.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/4Lajf/karczma-wrapped/models"
)

// MessagesField is the top-level key holding the message array in object-form exports.
const MessagesField = "messages"

// ErrMalformed marks a document that cannot be decoded past some point.
var ErrMalformed = errors.New("malformed export document")

// Decoder yields the elements of an export's message array one at a time.
// It accepts either {"...": ..., "messages": [...]} or a bare array at the root.
// The sequence is forward-only; reprocessing requires a new Decoder on a fresh reader.
type Decoder struct {
	dec     *json.Decoder
	counter *countingReader
	started bool
	done    bool
	err     error
	index   int
}

// NewDecoder wraps r. Nothing is read until the first call to Next or NextRaw.
func NewDecoder(r io.Reader) *Decoder {
	cr := &countingReader{r: r}
	return &Decoder{
		dec:     json.NewDecoder(bufio.NewReaderSize(cr, 64*1024)),
		counter: cr,
	}
}

// Next decodes the next message. It returns io.EOF (unwrapped) once the array is
// exhausted; any other error is terminal and wraps ErrMalformed.
func (d *Decoder) Next() (*models.Message, error) {
	if err := d.advance(); err != nil {
		return nil, err
	}
	var msg models.Message
	if err := d.dec.Decode(&msg); err != nil {
		return nil, d.fail(fmt.Errorf("message %d: %w", d.index, err))
	}
	d.index++
	return &msg, nil
}

// NextRaw returns the next array element undecoded.
func (d *Decoder) NextRaw() (json.RawMessage, error) {
	if err := d.advance(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		return nil, d.fail(fmt.Errorf("message %d: %w", d.index, err))
	}
	d.index++
	return raw, nil
}

// Count is the number of messages yielded so far.
func (d *Decoder) Count() int { return d.index }

// BytesRead is the number of bytes consumed from the underlying reader.
// Reads are buffered, so it runs ahead of the decoding position by up to one buffer.
func (d *Decoder) BytesRead() int64 { return d.counter.n }

// advance positions the decoder on the next array element, or reports the end.
func (d *Decoder) advance() error {
	if d.err != nil {
		return d.err
	}
	if d.done {
		return io.EOF
	}
	if !d.started {
		d.started = true
		found, err := d.seekArray()
		if err != nil {
			return d.fail(err)
		}
		if !found {
			d.done = true
			return io.EOF
		}
	}
	if d.dec.More() {
		return nil
	}
	// Consume the closing bracket; trailing content after the array is never read.
	if _, err := d.dec.Token(); err != nil {
		return d.fail(fmt.Errorf("closing message array: %w", err))
	}
	d.done = true
	return io.EOF
}

// seekArray consumes tokens until the opening bracket of the message array.
// It returns false when the document is an object without a messages array.
func (d *Decoder) seekArray() (bool, error) {
	tok, err := d.dec.Token()
	if err == io.EOF {
		return false, fmt.Errorf("empty document")
	}
	if err != nil {
		return false, err
	}
	switch tok {
	case json.Delim('['):
		return true, nil
	case json.Delim('{'):
	default:
		return false, fmt.Errorf("unexpected root token %v", tok)
	}

	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return false, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return false, fmt.Errorf("unexpected object key %v", keyTok)
		}
		if key != MessagesField {
			if err := d.skipValue(); err != nil {
				return false, fmt.Errorf("skipping %q: %w", key, err)
			}
			continue
		}
		tok, err := d.dec.Token()
		if err != nil {
			return false, err
		}
		if tok == nil {
			// "messages": null
			return false, nil
		}
		if tok != json.Delim('[') {
			return false, fmt.Errorf("%q is not an array", MessagesField)
		}
		return true, nil
	}
	return false, nil
}

// skipValue discards one complete JSON value token by token, so large
// non-message values are never held in memory.
func (d *Decoder) skipValue() error {
	depth := 0
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

func (d *Decoder) fail(err error) error {
	// Never let io.EOF leak through the chain: callers treat it as end of stream.
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("unexpected end of document: %v", err)
	}
	d.err = fmt.Errorf("%w: %w", ErrMalformed, err)
	return d.err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
