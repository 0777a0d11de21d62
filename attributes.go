package mpqset

import (
	"encoding/binary"
	"fmt"

	"github.com/mopaq/mpqset/storm"
)

// Attribute flag bits recorded in an archive's attributes member.
const (
	// AttrCRC32 marks a CRC32 checksum per block.
	AttrCRC32 = 0x00000001
	// AttrFileTime marks a Windows FILETIME per block.
	AttrFileTime = 0x00000002
	// AttrMD5 marks an MD5 digest per block.
	AttrMD5 = 0x00000004
	// AttrPatchBit marks one patch-flag bit per block.
	AttrPatchBit = 0x00000008
)

// attrVersion is the only attributes format revision in use.
const attrVersion = 100

// attrMD5Size is the byte length of one MD5 digest.
const attrMD5Size = 16

// Attributes holds the decoded per-block metadata arrays from an
// archive's attributes member. Indexes follow the archive's block
// table order, which is unrelated to listing order. Arrays for flags
// the archive did not record are nil.
type Attributes struct {
	Version  uint32
	Flags    uint32
	CRC32    []uint32
	FileTime []uint64
	MD5      [][attrMD5Size]byte
	PatchBit []bool
}

// BlockCount returns the number of blocks the member describes.
func (a *Attributes) BlockCount() int {
	switch {
	case a.CRC32 != nil:
		return len(a.CRC32)
	case a.FileTime != nil:
		return len(a.FileTime)
	case a.MD5 != nil:
		return len(a.MD5)
	default:
		return len(a.PatchBit)
	}
}

// ReadAttributes reads and decodes the attributes member resolved
// through the set. Only the first archive that has one contributes;
// per-archive attributes of lower-priority archives are shadowed like
// any other member.
func (s *Set) ReadAttributes() (*Attributes, error) {
	data, err := s.Read(storm.AttributesName)
	if err != nil {
		return nil, err
	}
	attrs, err := ParseAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", storm.AttributesName, err)
	}
	return attrs, nil
}

// ParseAttributes decodes a raw attributes member payload: a version
// and flag word followed by flag-gated little-endian arrays (CRC32,
// FILETIME, MD5, patch bits, in that order). The block count is not
// stored in the member; it is inferred from the payload length and
// must fit exactly.
func ParseAttributes(data []byte) (*Attributes, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("mpqset: attributes member too short (%d bytes)", len(data))
	}
	a := &Attributes{
		Version: binary.LittleEndian.Uint32(data[0:4]),
		Flags:   binary.LittleEndian.Uint32(data[4:8]),
	}
	if a.Version != attrVersion {
		return nil, fmt.Errorf("mpqset: unsupported attributes version %d", a.Version)
	}
	if a.Flags&^uint32(AttrCRC32|AttrFileTime|AttrMD5|AttrPatchBit) != 0 {
		return nil, fmt.Errorf("mpqset: unknown attributes flags %#x", a.Flags)
	}

	payload := data[8:]
	n, err := attrBlockCount(a.Flags, len(payload))
	if err != nil {
		return nil, err
	}

	if a.Flags&AttrCRC32 != 0 {
		a.CRC32 = make([]uint32, n)
		for i := range a.CRC32 {
			a.CRC32[i] = binary.LittleEndian.Uint32(payload[i*4:])
		}
		payload = payload[n*4:]
	}
	if a.Flags&AttrFileTime != 0 {
		a.FileTime = make([]uint64, n)
		for i := range a.FileTime {
			a.FileTime[i] = binary.LittleEndian.Uint64(payload[i*8:])
		}
		payload = payload[n*8:]
	}
	if a.Flags&AttrMD5 != 0 {
		a.MD5 = make([][attrMD5Size]byte, n)
		for i := range a.MD5 {
			copy(a.MD5[i][:], payload[i*attrMD5Size:])
		}
		payload = payload[n*attrMD5Size:]
	}
	if a.Flags&AttrPatchBit != 0 {
		a.PatchBit = make([]bool, n)
		for i := range a.PatchBit {
			a.PatchBit[i] = payload[i/8]&(1<<(uint(i)%8)) != 0
		}
	}
	return a, nil
}

// attrBlockCount infers the block count n from the payload length.
// Fixed-width arrays contribute a known number of bytes per block; the
// patch-bit array packs eight blocks per byte, so n is searched
// downward from the fixed-width bound until the total fits exactly.
func attrBlockCount(flags uint32, payload int) (int, error) {
	perBlock := 0
	if flags&AttrCRC32 != 0 {
		perBlock += 4
	}
	if flags&AttrFileTime != 0 {
		perBlock += 8
	}
	if flags&AttrMD5 != 0 {
		perBlock += attrMD5Size
	}

	if perBlock == 0 {
		if flags&AttrPatchBit != 0 {
			// Patch bits alone cannot pin n below the byte bound.
			return payload * 8, nil
		}
		if payload != 0 {
			return 0, fmt.Errorf("mpqset: attributes member has %d trailing bytes", payload)
		}
		return 0, nil
	}

	n := payload / perBlock
	if flags&AttrPatchBit != 0 {
		for n > 0 && n*perBlock+(n+7)/8 > payload {
			n--
		}
		if n*perBlock+(n+7)/8 != payload {
			return 0, fmt.Errorf("mpqset: attributes payload of %d bytes does not fit flags %#x", payload, flags)
		}
		return n, nil
	}
	if payload%perBlock != 0 {
		return 0, fmt.Errorf("mpqset: attributes payload of %d bytes does not fit flags %#x", payload, flags)
	}
	return n, nil
}
