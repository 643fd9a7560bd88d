package chatprotocol

import "bytes"

var lineTerminator = []byte(LineTerminator)

// FrameDecoder reassembles protocol lines from arbitrarily sized reads.
//
// Bytes after the last terminator of a read are kept and prepended to the
// next one, so the lines produced never depend on how the stream was
// chunked. A FrameDecoder is not safe for concurrent use; it belongs to
// whichever goroutine reads the transport.
type FrameDecoder struct {
	leftover []byte
}

// NewFrameDecoder creates an empty decoder.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends chunk to the buffered bytes and returns every complete line,
// without terminators. Empty lines are skipped.
func (d *FrameDecoder) Feed(chunk []byte) []string {
	data := chunk
	if len(d.leftover) > 0 {
		data = append(d.leftover, chunk...)
	}

	var lines []string
	for {
		idx := bytes.Index(data, lineTerminator)
		if idx < 0 {
			break
		}
		if idx > 0 {
			lines = append(lines, string(data[:idx]))
		}
		data = data[idx+len(lineTerminator):]
	}

	// Copy so the caller's read buffer can be reused.
	d.leftover = append(d.leftover[:0:0], data...)
	return lines
}

// Pending returns the number of buffered bytes not yet forming a line.
func (d *FrameDecoder) Pending() int {
	return len(d.leftover)
}

// Reset discards any buffered bytes.
func (d *FrameDecoder) Reset() {
	d.leftover = nil
}
