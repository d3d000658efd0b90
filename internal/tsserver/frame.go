package tsserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxContentLength is the maximum allowed body size for a single frame (10MB).
const MaxContentLength = 10 * 1024 * 1024

// maxHeaderLength caps the buffered bytes the decoder will scan for a frame
// header. A well-formed header is tens of bytes; anything bigger without a
// parseable Content-Length is garbage output, not a slow arrival.
const maxHeaderLength = 4096

// Decoder incrementally slices Content-Length framed JSON messages off an
// accumulating byte buffer. Inbound frames look like
//
//	Content-Length: <N>\r\n
//	\r\n
//	<N bytes of JSON body><boundary byte>
//
// where N counts encoded bytes, never runes; payloads are UTF-8 and a rune
// count would misalign the body boundary. Decoder is not safe for concurrent
// use; each session owns exactly one.
type Decoder struct {
	buf []byte
	max int
}

// NewDecoder creates a decoder with the default frame size limit.
func NewDecoder() *Decoder {
	return &Decoder{max: MaxContentLength}
}

// NewDecoderSize creates a decoder with a custom frame size limit. Limits of
// zero or less fall back to MaxContentLength.
func NewDecoderSize(max int) *Decoder {
	if max <= 0 {
		max = MaxContentLength
	}
	return &Decoder{max: max}
}

// Feed appends a raw chunk from the server's output stream.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Len returns the number of buffered, not yet consumed bytes.
func (d *Decoder) Len() int {
	return len(d.buf)
}

// Next extracts one complete message from the front of the buffer. It
// returns nil with no error when the buffer does not yet hold a full frame;
// truncated or malformed headers stall decoding the same way, up to the
// header cap. A body that is not valid JSON is a fatal protocol error, as
// is headerless data past the cap.
func (d *Decoder) Next() (json.RawMessage, error) {
	bodyStart, length, ok := d.parseHeader()
	if !ok {
		// A truncated header stalls until more data arrives, but only up to
		// the header cap: past it the stream cannot be a frame boundary and
		// stalling would grow the buffer without limit.
		if len(d.buf) > maxHeaderLength {
			return nil, &ProtocolError{Err: fmt.Errorf("no frame header in %d buffered bytes", len(d.buf))}
		}
		return nil, nil
	}
	if length > d.max {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	// The body is followed by one boundary byte; wait until both are here.
	if len(d.buf) < bodyStart+length+1 {
		return nil, nil
	}

	body := make(json.RawMessage, length)
	copy(body, d.buf[bodyStart:bodyStart+length])

	if !json.Valid(body) {
		return nil, &ProtocolError{Err: fmt.Errorf("invalid JSON body: %q", truncateForError(body))}
	}

	// Drop header, body, and boundary byte from the front.
	d.buf = d.buf[bodyStart+length+1:]
	return body, nil
}

// Drain repeatedly extracts messages until no complete frame remains. A
// single chunk can carry several concatenated frames; all of them decode in
// one pass, in arrival order.
func (d *Decoder) Drain() ([]json.RawMessage, error) {
	var msgs []json.RawMessage
	for {
		msg, err := d.Next()
		if err != nil {
			return msgs, err
		}
		if msg == nil {
			return msgs, nil
		}
		msgs = append(msgs, msg)
	}
}

// parseHeader scans the header block at the front of the buffer. It returns
// the body start offset and declared length, or ok=false while the header is
// incomplete or no Content-Length marker has arrived yet.
func (d *Decoder) parseHeader() (bodyStart, length int, ok bool) {
	pos := 0
	length = -1
	for {
		nl := bytes.IndexByte(d.buf[pos:], '\n')
		if nl < 0 {
			return 0, 0, false
		}
		line := strings.TrimRight(string(d.buf[pos:pos+nl]), "\r")
		pos += nl + 1

		if line == "" {
			if length < 0 {
				// Blank line before any Content-Length: keep waiting, the
				// marker may still be on its way in a later chunk.
				continue
			}
			return pos, length, true
		}

		if v, found := strings.CutPrefix(strings.ToLower(line), "content-length:"); found {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				// Malformed count stalls decoding rather than crashing.
				continue
			}
			length = n
		}
		// Other headers (Content-Type and friends) are ignored.
	}
}

// truncateForError shortens a body for inclusion in an error message.
func truncateForError(b []byte) []byte {
	const max = 64
	if len(b) <= max {
		return b
	}
	return b[:max]
}

// writeRequest serializes a request as JSON terminated by a newline and
// writes it to w in a single call.
func writeRequest(w io.Writer, req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}
