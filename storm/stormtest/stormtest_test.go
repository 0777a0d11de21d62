package stormtest

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mopaq/mpqset/storm"
)

func TestCodecOpenArchive(t *testing.T) {
	t.Parallel()

	t.Run("registered", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().SetFile("a.txt", []byte("a")))

		ar, err := codec.OpenArchive("base.MPQ", 3, storm.OpenReadOnly)
		require.NoError(t, err)
		require.NotNil(t, ar)

		opened := codec.Opened("base.MPQ")
		require.NotNil(t, opened)
		assert.Equal(t, "base.MPQ", opened.Path())
		assert.Equal(t, 3, opened.Priority())
		assert.Equal(t, storm.OpenReadOnly, opened.Flags())
		assert.Equal(t, 1, codec.Opens())
	})

	t.Run("unregistered", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		_, err := codec.OpenArchive("missing.MPQ", 0, storm.OpenDefault)
		require.Error(t, err)
		assert.Nil(t, codec.Opened("missing.MPQ"))
	})

	t.Run("injected failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("disk gone")
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive())
		codec.FailOpen("base.MPQ", boom)

		_, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.ErrorIs(t, err, boom)
	})

	t.Run("fresh handle per open", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().SetFile("a.txt", []byte("a")))

		first, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		second, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)

		require.NoError(t, first.Close())
		assert.True(t, second.HasFile("a.txt"))
		assert.Equal(t, 2, codec.Opens())
	})
}

func TestArchiveMembers(t *testing.T) {
	t.Parallel()
	codec := NewCodec()
	codec.Add("base.MPQ", NewArchive().
		SetFile(`Units\Human\Footman.txt`, []byte("footman")))

	ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
	require.NoError(t, err)

	t.Run("lookup is case and separator insensitive", func(t *testing.T) {
		assert.True(t, ar.HasFile(`Units\Human\Footman.txt`))
		assert.True(t, ar.HasFile(`UNITS\HUMAN\FOOTMAN.TXT`))
		assert.True(t, ar.HasFile("units/human/footman.txt"))
		assert.False(t, ar.HasFile(`Units\Orc\Grunt.txt`))
	})

	t.Run("read content", func(t *testing.T) {
		f, err := ar.OpenFile("Units/Human/Footman.txt", storm.ScopeBase)
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("footman"), data)

		size, err := f.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(7), size)

		require.NoError(t, f.Close())
	})

	t.Run("open accounting", func(t *testing.T) {
		opened := codec.Opened("base.MPQ")
		assert.Equal(t, 1, opened.OpenCount(`UNITS\HUMAN\FOOTMAN.TXT`))
		assert.Equal(t, 0, opened.OpenStreams())
	})

	t.Run("closed file handle", func(t *testing.T) {
		f, err := ar.OpenFile(`Units\Human\Footman.txt`, storm.ScopeBase)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = f.Read(make([]byte, 1))
		assert.ErrorIs(t, err, errFileClosed)
		_, err = f.Seek(0, io.SeekStart)
		assert.ErrorIs(t, err, errFileClosed)
		assert.ErrorIs(t, f.Close(), errFileClosed)
	})
}

func TestGeneratedListing(t *testing.T) {
	t.Parallel()

	readListing := func(t *testing.T, ar storm.Archive) []byte {
		t.Helper()
		f, err := ar.OpenFile(storm.ListfileName, storm.ScopeBase)
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		return data
	}

	t.Run("insertion order with crlf", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetFile(`war3map.j`, []byte("j")).
			SetFile(`Units\unit.txt`, []byte("u")))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		assert.Equal(t, []byte("war3map.j\r\nUnits\\unit.txt\r\n"), readListing(t, ar))
	})

	t.Run("explicit listing wins", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetFile("a.txt", []byte("a")).
			SetFile(storm.ListfileName, []byte("only.txt\r\n")))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		assert.Equal(t, []byte("only.txt\r\n"), readListing(t, ar))
	})

	t.Run("disabled listing", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetFile("a.txt", []byte("a")).
			DisableListfile())

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		assert.False(t, ar.HasFile(storm.ListfileName))
	})

	t.Run("no listfile flag", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().SetFile("a.txt", []byte("a")))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenNoListfile)
		require.NoError(t, err)
		assert.False(t, ar.HasFile(storm.ListfileName))
		assert.True(t, ar.HasFile("a.txt"))
	})

	t.Run("no attributes flag", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetFile("a.txt", []byte("a")).
			SetFile(storm.AttributesName, []byte{100, 0, 0, 0, 0, 0, 0, 0}))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenNoAttributes)
		require.NoError(t, err)
		assert.False(t, ar.HasFile(storm.AttributesName))
		assert.True(t, ar.HasFile("a.txt"))
	})
}

func TestCompression(t *testing.T) {
	t.Parallel()

	compressible := bytes.Repeat([]byte("terrain tile "), 512)

	tests := []struct {
		name string
		comp Compression
	}{
		{name: "lz4", comp: CompressionLZ4},
		{name: "zstd", comp: CompressionZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			codec := NewCodec()
			codec.Add("base.MPQ", NewArchive().
				SetCompressed("map.dat", compressible, tt.comp))

			ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
			require.NoError(t, err)
			f, err := ar.OpenFile("map.dat", storm.ScopeBase)
			require.NoError(t, err)
			defer f.Close()

			data, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, compressible, data)

			fileSize, err := f.Info(storm.InfoFileSize)
			require.NoError(t, err)
			packed, err := f.Info(storm.InfoCompressedSize)
			require.NoError(t, err)
			assert.Equal(t, uint64(len(compressible)), fileSize)
			assert.Less(t, packed, fileSize)
		})
	}

	t.Run("incompressible falls back to raw", func(t *testing.T) {
		t.Parallel()
		data := []byte{0x01, 0xf7, 0x3c, 0x9a, 0x55, 0xe2, 0x08, 0xbd}
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetCompressed("noise.bin", data, CompressionLZ4))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		f, err := ar.OpenFile("noise.bin", storm.ScopeBase)
		require.NoError(t, err)
		defer f.Close()

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		packed, err := f.Info(storm.InfoCompressedSize)
		require.NoError(t, err)
		assert.Equal(t, uint64(len(data)), packed)
	})
}

func TestPatches(t *testing.T) {
	t.Parallel()
	codec := NewCodec()
	codec.Add("base.MPQ", NewArchive().
		SetFile("war3map.j", []byte("v1")).
		SetFile("unchanged.txt", []byte("same")))
	codec.Add("patch1.MPQ", NewArchive().
		SetFile(`base\war3map.j`, []byte("v2")).
		DisableListfile())
	codec.Add("patch2.MPQ", NewArchive().
		SetFile(`base\war3map.j`, []byte("v3")).
		SetFile(`base\newfile.txt`, []byte("new")).
		DisableListfile())

	ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
	require.NoError(t, err)

	assert.False(t, ar.IsPatched())
	require.NoError(t, ar.OpenPatch("patch1.MPQ", "base", storm.OpenReadOnly))
	require.NoError(t, ar.OpenPatch("patch2.MPQ", "base", storm.OpenReadOnly))
	assert.True(t, ar.IsPatched())

	readScope := func(t *testing.T, name string, scope storm.Scope) []byte {
		t.Helper()
		f, err := ar.OpenFile(name, scope)
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		return data
	}

	t.Run("newest patch wins", func(t *testing.T) {
		assert.Equal(t, []byte("v3"), readScope(t, "war3map.j", storm.ScopePatched))
	})

	t.Run("base scope unaffected", func(t *testing.T) {
		assert.Equal(t, []byte("v1"), readScope(t, "war3map.j", storm.ScopeBase))
	})

	t.Run("uncovered member falls back", func(t *testing.T) {
		assert.Equal(t, []byte("same"), readScope(t, "unchanged.txt", storm.ScopePatched))
	})

	t.Run("patch only member has no base entry", func(t *testing.T) {
		assert.False(t, ar.HasFile("newfile.txt"))
		_, err := ar.OpenFile("newfile.txt", storm.ScopePatched)
		assert.Error(t, err)
	})

	t.Run("accounting", func(t *testing.T) {
		assert.Equal(t, 2, codec.Opened("base.MPQ").PatchCount())
	})

	t.Run("unregistered patch", func(t *testing.T) {
		assert.Error(t, ar.OpenPatch("missing.MPQ", "base", storm.OpenDefault))
	})
}

func TestExtractFile(t *testing.T) {
	t.Parallel()
	codec := NewCodec()
	codec.Add("base.MPQ", NewArchive().SetFile("readme.txt", []byte("hello")))

	ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "readme.txt")
	require.NoError(t, ar.ExtractFile("readme.txt", dest, storm.ScopeBase))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("flush accounting", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive())

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		require.NoError(t, ar.Flush())
		require.NoError(t, ar.Flush())
		assert.Equal(t, 2, codec.Opened("base.MPQ").Flushes())
	})

	t.Run("injected flush failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("flush failed")
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().FailFlush(boom))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		assert.ErrorIs(t, ar.Flush(), boom)
	})

	t.Run("operations after close", func(t *testing.T) {
		t.Parallel()
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().SetFile("a.txt", []byte("a")))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		require.NoError(t, ar.Close())

		assert.False(t, ar.HasFile("a.txt"))
		_, err = ar.OpenFile("a.txt", storm.ScopeBase)
		assert.Error(t, err)
		assert.Error(t, ar.Flush())
		assert.Error(t, ar.OpenPatch("base.MPQ", "", storm.OpenDefault))
		assert.Error(t, ar.Close())
		assert.True(t, codec.Opened("base.MPQ").Closed())
	})

	t.Run("injected close failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("close failed")
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().FailClose(boom))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		assert.ErrorIs(t, ar.Close(), boom)
	})
}

func TestFailFile(t *testing.T) {
	t.Parallel()
	boom := errors.New("sector checksum mismatch")
	codec := NewCodec()
	codec.Add("base.MPQ", NewArchive().FailFile("corrupt.dat", boom))

	ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
	require.NoError(t, err)

	assert.True(t, ar.HasFile("corrupt.dat"))
	_, err = ar.OpenFile("corrupt.dat", storm.ScopeBase)
	assert.ErrorIs(t, err, boom)
}

func TestFileTime(t *testing.T) {
	t.Parallel()

	t.Run("recorded time", func(t *testing.T) {
		t.Parallel()
		mod := time.Date(2009, time.August, 4, 12, 30, 0, 0, time.UTC)
		codec := NewCodec()
		codec.Add("base.MPQ", NewArchive().
			SetFile("a.txt", []byte("a")).
			SetFileTime("a.txt", mod))

		ar, err := codec.OpenArchive("base.MPQ", 0, storm.OpenDefault)
		require.NoError(t, err)
		f, err := ar.OpenFile("a.txt", storm.ScopeBase)
		require.NoError(t, err)
		defer f.Close()

		ft, err := f.Info(storm.InfoFileTime)
		require.NoError(t, err)
		assert.Equal(t, Filetime(mod), ft)
	})

	t.Run("missing member panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			NewArchive().SetFileTime("missing.txt", time.Now())
		})
	})
}
