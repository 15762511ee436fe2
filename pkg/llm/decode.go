package llm

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
)

// StreamDecoder incrementally turns raw byte buffers into decoded
// StreamChunks. The wire format is newline-delimited JSON: one self-contained
// object per line. Frames may be split across reads at arbitrary byte
// boundaries; the decoder buffers the trailing partial line until the rest
// arrives, so its output is invariant to I/O chunking.
//
// A malformed line is not fatal: it is logged and skipped, and decoding
// continues with the next line. Chunks that carry no content are dropped,
// except the terminal frame (done: true), which is always emitted exactly
// once. After the terminal frame the decoder stays closed and emits nothing.
type StreamDecoder struct {
	logger *zap.Logger
	buf    bytes.Buffer
	done   bool
}

// NewStreamDecoder creates a decoder. A nil logger disables frame logging.
func NewStreamDecoder(logger *zap.Logger) *StreamDecoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamDecoder{logger: logger}
}

// Feed appends raw bytes and returns the chunks completed by them, in order.
// Keep-alive frames (blank lines and content-less non-terminal frames) are
// consumed silently and never emitted, so the returned sequence depends only
// on the line content, not on how the bytes were sliced across calls.
func (d *StreamDecoder) Feed(p []byte) []StreamChunk {
	if d.done {
		return nil
	}
	d.buf.Write(p)

	var out []StreamChunk
	for {
		raw := d.buf.Bytes()
		i := bytes.IndexByte(raw, '\n')
		if i < 0 {
			return out
		}
		line := append([]byte(nil), raw[:i]...)
		d.buf.Next(i + 1)

		chunk, ok := d.decodeLine(line)
		if !ok {
			continue
		}
		out = append(out, chunk)
		if d.done {
			return out
		}
	}
}

// Flush decodes whatever remains buffered as a final line. Call it once when
// the transport reports EOF: some backends end the body without a trailing
// newline.
func (d *StreamDecoder) Flush() []StreamChunk {
	if d.done || d.buf.Len() == 0 {
		return nil
	}
	line := append([]byte(nil), d.buf.Bytes()...)
	d.buf.Reset()

	chunk, ok := d.decodeLine(line)
	if !ok {
		return nil
	}
	return []StreamChunk{chunk}
}

// Done reports whether the terminal frame has been seen.
func (d *StreamDecoder) Done() bool { return d.done }

// decodeLine parses one frame. Empty lines are keep-alives. The returned
// chunk is only meaningful when ok is true.
func (d *StreamDecoder) decodeLine(line []byte) (StreamChunk, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StreamChunk{}, false
	}

	var chunk StreamChunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		d.logger.Warn("skipping malformed stream frame",
			zap.Error(err),
			zap.String("line", string(line)),
		)
		return StreamChunk{}, false
	}

	if chunk.Done {
		// Terminal frames end the stream even with empty content.
		d.done = true
		return chunk, true
	}
	if chunk.Message.Content == "" {
		return StreamChunk{}, false
	}
	return chunk, true
}
