package body

import (
	"io"
	"os"

	"github.com/kbukum/httpkit/errors"
)

// Kind identifies the variant of a Source.
type Kind int

const (
	// KindAbsent is a request without a body (a nil Source).
	KindAbsent Kind = iota
	// KindStatic is an in-memory byte slice.
	KindStatic
	// KindDynamic is a writer callback invoked once per transmission.
	KindDynamic
	// KindStream is backed by a caller-supplied reader.
	KindStream
	// KindFile is read from a file, reopened per transmission.
	KindFile
	// KindSingleUse is a generator that may write exactly once.
	KindSingleUse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindStream:
		return "stream"
	case KindFile:
		return "file"
	case KindSingleUse:
		return "single_use"
	default:
		return "unknown"
	}
}

// Source is a request payload. The set of implementations is closed; a nil
// Source means the request has no body.
type Source interface {
	// Kind reports the variant.
	Kind() Kind
	// Replayable reports whether the body can be transmitted again, for
	// a retry or a redirect.
	Replayable() bool

	sealed()
}

// KindOf returns the kind of src, treating nil as KindAbsent.
func KindOf(src Source) Kind {
	if src == nil {
		return KindAbsent
	}
	return src.Kind()
}

// IsReplayable reports whether src can be sent more than once. An absent
// body is always replayable.
func IsReplayable(src Source) bool {
	return src == nil || src.Replayable()
}

var (
	// ErrGeneratorConsumed is returned when a single-use generator is written twice.
	ErrGeneratorConsumed = errors.IllegalState("body generator has been consumed")
	// ErrStreamConsumed is returned when the stream of a consumed StreamSource is requested again.
	ErrStreamConsumed = errors.IllegalState("input stream has been consumed")
)

// StaticSource is an immutable in-memory body.
type StaticSource struct {
	data []byte
}

// Static returns a body holding a copy of data.
func Static(data []byte) *StaticSource {
	return &StaticSource{data: append([]byte(nil), data...)}
}

// String returns a body holding s.
func String(s string) *StaticSource {
	return &StaticSource{data: []byte(s)}
}

func (s *StaticSource) Kind() Kind       { return KindStatic }
func (s *StaticSource) Replayable() bool { return true }
func (s *StaticSource) sealed()          {}

// Bytes returns a copy of the body.
func (s *StaticSource) Bytes() []byte { return append([]byte(nil), s.data...) }

// Len returns the body length in bytes.
func (s *StaticSource) Len() int { return len(s.data) }

// WriterFunc writes a complete body to w.
type WriterFunc func(w io.Writer) error

// DynamicSource produces its body on demand. The callback runs once per
// transmission, so the body is replayable as long as the callback is.
type DynamicSource struct {
	write WriterFunc
}

// Dynamic returns a body written by fn.
func Dynamic(fn WriterFunc) *DynamicSource {
	return &DynamicSource{write: fn}
}

func (d *DynamicSource) Kind() Kind       { return KindDynamic }
func (d *DynamicSource) Replayable() bool { return true }
func (d *DynamicSource) sealed()          {}

// Write runs the callback against w.
func (d *DynamicSource) Write(w io.Writer) error { return d.write(w) }

// FileSource streams a file. Each transmission reopens the file.
type FileSource struct {
	path string
}

// File returns a body read from path.
func File(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Kind() Kind       { return KindFile }
func (f *FileSource) Replayable() bool { return true }
func (f *FileSource) sealed()          {}

// Path returns the file path.
func (f *FileSource) Path() string { return f.path }

// Open opens the file and returns it with its size.
func (f *FileSource) Open() (*os.File, int64, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, 0, errors.InvalidArgument("unable to open body file %s", f.path).WithCause(err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, errors.InvalidArgument("unable to stat body file %s", f.path).WithCause(err)
	}
	return file, info.Size(), nil
}
