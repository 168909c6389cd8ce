// Package websocket provides the minimal WebSocket surface the server
// needs: a stream wrapper that guarantees a close frame is sent when the
// stream is released without an explicit close.
package websocket

import (
	"io"
	"sync"
)

// closeFrame is a single unmasked Close frame: FIN set, opcode 0x8, empty
// payload.
var closeFrame = []byte{0x88, 0x00}

// Stream wraps a bidirectional byte stream carrying WebSocket frames.
//
// A Stream released without an explicit Close writes a close frame on the
// underlying stream on a best-effort basis.
type Stream struct {
	inner io.ReadWriter

	mu     sync.Mutex
	closed bool
}

// NewStream wraps an underlying stream, usually a net.Conn.
func NewStream(inner io.ReadWriter) *Stream {
	return &Stream{inner: inner}
}

// Read reads raw bytes from the underlying stream.
func (s *Stream) Read(p []byte) (int, error) {
	return s.inner.Read(p)
}

// Write writes raw bytes to the underlying stream.
func (s *Stream) Write(p []byte) (int, error) {
	return s.inner.Write(p)
}

// Inner returns the underlying stream.
func (s *Stream) Inner() io.ReadWriter {
	return s.inner
}

// Close sends a close frame. It is safe to call more than once; only the
// first call writes.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, err := s.inner.Write(closeFrame)
	return err
}

// Release marks the end of the stream's life. If Close was never called, a
// close frame is written, ignoring any error.
func (s *Stream) Release() {
	_ = s.Close()
}
