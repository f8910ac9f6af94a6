package body

import (
	"io"
	"sync/atomic"

	"github.com/kbukum/httpkit/errors"
)

// Marker is implemented by readers that can return to a marked position,
// such as a buffered reader with a rewind window.
type Marker interface {
	Mark(readLimit int)
	Reset() error
}

// StreamSource is a body backed by a caller-supplied reader. It is retryable
// until any consuming operation (read, discard, close) reaches the reader.
// Probes (Available, Mark, Reset, MarkSupported) leave it retryable.
type StreamSource struct {
	stream   *Stream
	consumed atomic.Bool
}

// FromReader returns a body that reads from r.
func FromReader(r io.Reader) *StreamSource {
	s := &StreamSource{}
	s.stream = &Stream{r: r, owner: s}
	return s
}

func (s *StreamSource) Kind() Kind       { return KindStream }
func (s *StreamSource) Replayable() bool { return s.Retryable() }
func (s *StreamSource) sealed()          {}

// Retryable reports whether the underlying reader is still untouched.
func (s *StreamSource) Retryable() bool { return !s.consumed.Load() }

// Stream returns the tracking wrapper around the reader. It fails with
// ErrStreamConsumed once the stream has been consumed.
func (s *StreamSource) Stream() (*Stream, error) {
	if s.consumed.Load() {
		return nil, ErrStreamConsumed
	}
	return s.stream, nil
}

// Stream forwards to the wrapped reader and records consumption on its source.
type Stream struct {
	r     io.Reader
	owner *StreamSource
	mark  int64
}

func (st *Stream) consume() { st.owner.consumed.Store(true) }

// Read reads from the underlying reader.
func (st *Stream) Read(p []byte) (int, error) {
	st.consume()
	return st.r.Read(p)
}

// Discard skips up to n bytes.
func (st *Stream) Discard(n int64) (int64, error) {
	st.consume()
	if s, ok := st.r.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := s.Seek(n, io.SeekCurrent)
			return end - cur, err
		}
	}
	return io.CopyN(io.Discard, st.r, n)
}

// Close closes the underlying reader if it is an io.Closer.
func (st *Stream) Close() error {
	st.consume()
	if c, ok := st.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Available returns the number of bytes readable without blocking, when the
// reader can tell.
func (st *Stream) Available() int {
	switch r := st.r.(type) {
	case interface{ Buffered() int }:
		return r.Buffered()
	case interface{ Len() int }:
		return r.Len()
	}
	return 0
}

// MarkSupported reports whether Mark and Reset are usable.
func (st *Stream) MarkSupported() bool {
	switch st.r.(type) {
	case Marker, io.Seeker:
		return true
	}
	return false
}

// Mark records the current position.
func (st *Stream) Mark(readLimit int) {
	switch r := st.r.(type) {
	case Marker:
		r.Mark(readLimit)
	case io.Seeker:
		if pos, err := r.Seek(0, io.SeekCurrent); err == nil {
			st.mark = pos
		}
	}
}

// Reset returns to the last mark.
func (st *Stream) Reset() error {
	switch r := st.r.(type) {
	case Marker:
		return r.Reset()
	case io.Seeker:
		_, err := r.Seek(st.mark, io.SeekStart)
		return err
	}
	return errors.IllegalState("mark/reset not supported")
}
