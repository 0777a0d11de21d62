package stormtest

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stored form of a member's bytes. It
// stands in for the sector compression a real archive would use, so
// that size metadata and decompression paths see realistic values.
type Compression uint8

const (
	// CompressionNone stores the member raw.
	CompressionNone Compression = 0
	// CompressionLZ4 stores the member as one LZ4 block.
	CompressionLZ4 Compression = 1
	// CompressionZstd stores the member as a zstd frame.
	CompressionZstd Compression = 2
)

// String returns the human-readable name of a compression mode.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// zstdEncoder and zstdDecoder are reused across members. Both are
// safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("stormtest: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("stormtest: zstd decoder initialization failed: " + err.Error())
	}
}

// compress encodes data with the requested mode and returns the
// stored bytes and the mode actually used. Incompressible data falls
// back to CompressionNone so the stored form is never larger than the
// original.
func compress(c Compression, data []byte) ([]byte, Compression) {
	switch c {
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil || n == 0 || n >= len(data) {
			return data, CompressionNone
		}
		return dst[:n], CompressionLZ4
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return data, CompressionNone
		}
		return compressed, CompressionZstd
	default:
		return data, CompressionNone
	}
}

// decompress restores a member's original bytes. The size must match
// the original length exactly.
func decompress(c Compression, data []byte, size int) ([]byte, error) {
	switch c {
	case CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, fmt.Errorf("stormtest: lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("stormtest: lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("stormtest: zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("stormtest: zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return data, nil
	}
}
