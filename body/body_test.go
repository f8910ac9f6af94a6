package body

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/errors"
)

func readAll(t *testing.T, src Source) []byte {
	t.Helper()
	rc, _, err := Open(src)
	require.NoError(t, err)
	require.NotNil(t, rc)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestAbsent(t *testing.T) {
	rc, n, err := Open(nil)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Zero(t, n)
	assert.Equal(t, KindAbsent, KindOf(nil))
	assert.True(t, IsReplayable(nil))
}

func TestStatic_Replayable(t *testing.T) {
	data := []byte("hello")
	src := Static(data)
	data[0] = 'j'

	assert.Equal(t, KindStatic, src.Kind())
	assert.True(t, src.Replayable())
	assert.Equal(t, "hello", string(readAll(t, src)))
	assert.Equal(t, "hello", string(readAll(t, src)))

	_, n, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestDynamic_RunsPerOpen(t *testing.T) {
	var calls atomic.Int32
	src := Dynamic(func(w io.Writer) error {
		calls.Add(1)
		_, err := io.WriteString(w, "dynamic")
		return err
	})

	assert.Equal(t, "dynamic", string(readAll(t, src)))
	assert.Equal(t, "dynamic", string(readAll(t, src)))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDynamic_ErrorReachesReader(t *testing.T) {
	boom := errors.New(errors.KindTransport, "boom")
	src := Dynamic(func(w io.Writer) error { return boom })

	rc, _, err := Open(src)
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, boom)
}

func TestFile_ReopensPerWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o600))

	src := File(path)
	assert.True(t, src.Replayable())
	assert.Equal(t, "file body", string(readAll(t, src)))
	assert.Equal(t, "file body", string(readAll(t, src)))

	_, n, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestFile_Missing(t *testing.T) {
	_, _, err := Open(File(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestSingleUse_SecondWriteFails(t *testing.T) {
	src := SingleUse(GeneratorFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, "once")
		return err
	}))
	assert.False(t, src.Replayable())

	var buf bytes.Buffer
	require.NoError(t, src.Write(&buf))
	assert.Equal(t, "once", buf.String())

	err := src.Write(&buf)
	require.ErrorIs(t, err, ErrGeneratorConsumed)
	assert.True(t, errors.IsKind(err, errors.KindIllegalState))
	assert.Contains(t, err.Error(), "has been consumed")
	assert.Equal(t, "once", buf.String())

	_, _, err = Open(src)
	assert.ErrorIs(t, err, ErrGeneratorConsumed)
}

func TestSingleUse_ConcurrentWriters(t *testing.T) {
	var writes atomic.Int32
	src := SingleUse(GeneratorFunc(func(w io.Writer) error {
		writes.Add(1)
		return nil
	}))

	const n = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Write(io.Discard); err != nil {
				failures.Add(1)
				return
			}
			successes.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(n-1), failures.Load())
	assert.Equal(t, int32(1), writes.Load())
}

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestStream_ConsumingOperations(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Stream) error
	}{
		{"read", func(s *Stream) error { _, err := s.Read(make([]byte, 1)); return err }},
		{"discard", func(s *Stream) error { _, err := s.Discard(1); return err }},
		{"close", func(s *Stream) error { return s.Close() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := FromReader(&trackingReader{Reader: strings.NewReader("abc")})
			assert.True(t, src.Retryable())

			st, err := src.Stream()
			require.NoError(t, err)
			require.NoError(t, tt.op(st))

			assert.False(t, src.Retryable())
			assert.False(t, src.Replayable())
			_, err = src.Stream()
			require.ErrorIs(t, err, ErrStreamConsumed)
			assert.Equal(t, "ILLEGAL_STATE: input stream has been consumed", err.Error())
		})
	}
}

func TestStream_ProbesDoNotConsume(t *testing.T) {
	tests := []struct {
		name string
		r    io.Reader
		op   func(*Stream)
	}{
		{"available", strings.NewReader("abc"), func(s *Stream) { assert.Equal(t, 3, s.Available()) }},
		{"available buffered", bufio.NewReader(strings.NewReader("abc")), func(s *Stream) { assert.Equal(t, 0, s.Available()) }},
		{"mark", strings.NewReader("abc"), func(s *Stream) { s.Mark(0) }},
		{"reset", strings.NewReader("abc"), func(s *Stream) { assert.NoError(t, s.Reset()) }},
		{"mark supported", strings.NewReader("abc"), func(s *Stream) { assert.True(t, s.MarkSupported()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := FromReader(tt.r)
			st, err := src.Stream()
			require.NoError(t, err)
			tt.op(st)
			assert.True(t, src.Retryable())

			st, err = src.Stream()
			require.NoError(t, err)
			tt.op(st)
			assert.True(t, src.Retryable())
		})
	}
}

func TestStream_MarkResetWithSeeker(t *testing.T) {
	src := FromReader(strings.NewReader("abcdef"))
	st, err := src.Stream()
	require.NoError(t, err)

	st.Mark(16)
	buf := make([]byte, 3)
	_, err = io.ReadFull(st, buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))

	require.NoError(t, st.Reset())
	_, err = io.ReadFull(st, buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
}

func TestStream_ResetUnsupported(t *testing.T) {
	st, err := FromReader(io.MultiReader(strings.NewReader("x"))).Stream()
	require.NoError(t, err)
	assert.False(t, st.MarkSupported())
	assert.Error(t, st.Reset())
}

func TestStream_Open(t *testing.T) {
	r := &trackingReader{Reader: strings.NewReader("streamed")}
	src := FromReader(r)

	assert.Equal(t, "streamed", string(readAll(t, src)))
	assert.True(t, r.closed)

	_, _, err := Open(src)
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestEqualAndHash(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, String("a")))
	assert.True(t, Equal(String("a"), Static([]byte("a"))))
	assert.False(t, Equal(String("a"), String("b")))
	assert.Equal(t, Hash(String("a")), Hash(Static([]byte("a"))))
	assert.True(t, Equal(File("/tmp/x"), File("/tmp/x")))
	assert.Equal(t, Hash(File("/tmp/x")), Hash(File("/tmp/x")))
	assert.False(t, Equal(File("/tmp/x"), String("/tmp/x")))

	fn := func(w io.Writer) error { return nil }
	d1, d2 := Dynamic(fn), Dynamic(fn)
	assert.True(t, Equal(d1, d1))
	assert.False(t, Equal(d1, d2))
	assert.Equal(t, Hash(d1), Hash(d1))
}
