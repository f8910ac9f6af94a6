package body

import (
	"bytes"
	"io"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Open returns a reader producing the body of src and its length, or -1 when
// the length is unknown. A nil reader means there is no body. Generator-backed
// bodies run on a separate goroutine feeding a pipe; a generator error is
// delivered to the reader.
func Open(src Source) (io.ReadCloser, int64, error) {
	switch s := src.(type) {
	case nil:
		return nil, 0, nil
	case *StaticSource:
		return io.NopCloser(bytes.NewReader(s.data)), int64(len(s.data)), nil
	case *FileSource:
		f, size, err := s.Open()
		if err != nil {
			return nil, 0, err
		}
		return f, size, nil
	case *DynamicSource:
		return pipe(s.Write), -1, nil
	case *SingleUseSource:
		if s.Consumed() {
			return nil, 0, ErrGeneratorConsumed
		}
		return pipe(s.Write), -1, nil
	case *StreamSource:
		st, err := s.Stream()
		if err != nil {
			return nil, 0, err
		}
		return st, -1, nil
	}
	panic("body: unknown source type " + reflect.TypeOf(src).String())
}

func pipe(write func(io.Writer) error) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_ = pw.CloseWithError(write(pw))
	}()
	return pr
}

// Equal compares two sources. Static and file bodies compare by content;
// generator and stream bodies compare by identity.
func Equal(a, b Source) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *StaticSource:
		y, ok := b.(*StaticSource)
		return ok && bytes.Equal(x.data, y.data)
	case *FileSource:
		y, ok := b.(*FileSource)
		return ok && x.path == y.path
	}
	return a == b
}

// Hash returns a hash consistent with Equal.
func Hash(src Source) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(KindOf(src))})
	switch s := src.(type) {
	case nil:
	case *StaticSource:
		_, _ = d.Write(s.data)
	case *FileSource:
		_, _ = d.WriteString(s.path)
	default:
		p := reflect.ValueOf(src).Pointer()
		var buf [8]byte
		for i := range buf {
			buf[i] = byte(p >> (8 * i))
		}
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
