package mpqset

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mopaq/mpqset/storm"
	"github.com/mopaq/mpqset/storm/stormtest"
)

// openMember returns an open handle on a member holding content.
func openMember(t *testing.T, content []byte) *File {
	t.Helper()
	codec := stormtest.NewCodec()
	codec.Add("base.MPQ", stormtest.NewArchive().SetFile("data.bin", content))
	s := newTestSet(t, codec, "base.MPQ")

	f, err := s.Open("data.bin", storm.ScopeBase)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFileRead(t *testing.T) {
	t.Parallel()
	f := openMember(t, []byte("0123456789"))

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("0123"), buf)

	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), rest)
}

func TestFileSeekAndTell(t *testing.T) {
	t.Parallel()
	f := openMember(t, []byte("0123456789"))

	pos, err := f.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	pos, err = f.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	pos, err = f.Seek(2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	pos, err = f.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	pos, err = f.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	buf := make([]byte, 3)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("789"), buf)
}

func TestFileSize(t *testing.T) {
	t.Parallel()
	f := openMember(t, []byte("0123456789"))

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	// Reading must not change the reported size.
	_, err = io.ReadAll(f)
	require.NoError(t, err)
	size, err = f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestFileReadAll(t *testing.T) {
	t.Parallel()

	t.Run("from start", func(t *testing.T) {
		t.Parallel()
		f := openMember(t, []byte("0123456789"))
		data, err := f.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789"), data)
	})

	t.Run("from current position", func(t *testing.T) {
		t.Parallel()
		f := openMember(t, []byte("0123456789"))
		_, err := f.Seek(6, io.SeekStart)
		require.NoError(t, err)

		data, err := f.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []byte("6789"), data)
	})

	t.Run("at end", func(t *testing.T) {
		t.Parallel()
		f := openMember(t, []byte("0123456789"))
		_, err := f.Seek(0, io.SeekEnd)
		require.NoError(t, err)

		data, err := f.ReadAll()
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("short read", func(t *testing.T) {
		t.Parallel()
		f := &File{
			f:    &truncatedHandle{Reader: bytes.NewReader([]byte("abc")), size: 8},
			name: "trunc.dat",
		}
		_, err := f.ReadAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "short read (3 of 8 bytes)")
	})
}

func TestFileClose(t *testing.T) {
	t.Parallel()
	f := openMember(t, []byte("0123456789"))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err := f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Tell()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Size()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.ReadAll()
	assert.ErrorIs(t, err, ErrClosed)

	// Accessors stay usable on a closed handle.
	assert.Equal(t, "data.bin", f.Name())
	assert.Equal(t, storm.ScopeBase, f.Scope())
}

// truncatedHandle reports more bytes than it can deliver, the shape of
// a member whose archive was cut short.
type truncatedHandle struct {
	*bytes.Reader
	size int64
}

func (h *truncatedHandle) Size() (int64, error) {
	return h.size, nil
}

func (h *truncatedHandle) Info(kind storm.InfoKind) (uint64, error) {
	return 0, nil
}

func (h *truncatedHandle) Close() error {
	return nil
}
