package container

import (
	"encoding/binary"
	"fmt"

	"github.com/inspa-project/inspa/internal/errs"
)

// FooterSize is the fixed on-disk size of a Footer record.
const FooterSize = 72

// FooterMagic identifies the current container format. It is the
// sole version discriminator for the footer; the header carries its
// own schema_version for content-level compatibility.
const FooterMagic = "INSPAF01"

// LegacyMagic is the 8-byte header-magic signature scanned for by
// readers that predate the footer.
const LegacyMagic = "INSPRO1\x00"

// Footer is the fixed-size trailing locator record every container
// ends with (the last 72 bytes of the file).
type Footer struct {
	HeaderOffset  uint64
	HeaderLen     uint64
	PayloadOffset uint64
	PayloadSize   uint64
	PayloadSHA256 [32]byte
}

// Pack serializes the footer to its 72-byte little-endian wire form.
func (f *Footer) Pack() []byte {
	buf := make([]byte, FooterSize)
	copy(buf[0:8], FooterMagic)
	binary.LittleEndian.PutUint64(buf[8:16], f.HeaderOffset)
	binary.LittleEndian.PutUint64(buf[16:24], f.HeaderLen)
	binary.LittleEndian.PutUint64(buf[24:32], f.PayloadOffset)
	binary.LittleEndian.PutUint64(buf[32:40], f.PayloadSize)
	copy(buf[40:72], f.PayloadSHA256[:])
	return buf
}

// UnpackFooter parses a 72-byte buffer into a Footer. It returns
// errs.ErrInvalidMagic if the magic field does not match FooterMagic,
// which signals the caller to fall back to the legacy scan path.
func UnpackFooter(data []byte) (*Footer, error) {
	if len(data) != FooterSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", errs.ErrInvalidFooterSize, FooterSize, len(data))
	}
	if string(data[0:8]) != FooterMagic {
		return nil, errs.ErrInvalidMagic
	}

	f := &Footer{}
	f.HeaderOffset = binary.LittleEndian.Uint64(data[8:16])
	f.HeaderLen = binary.LittleEndian.Uint64(data[16:24])
	f.PayloadOffset = binary.LittleEndian.Uint64(data[24:32])
	f.PayloadSize = binary.LittleEndian.Uint64(data[32:40])
	copy(f.PayloadSHA256[:], data[40:72])
	return f, nil
}

// Validate checks the footer's internal offset invariants against a
// known file size and legacy-tail presence.
func (f *Footer) Validate(fileSize int64, hasLegacyTail bool) error {
	if f.HeaderOffset+8+f.HeaderLen != f.PayloadOffset {
		return fmt.Errorf("%w: header_offset+8+header_len != payload_offset", errs.ErrFooterInvariant)
	}
	tail := uint64(FooterSize)
	if hasLegacyTail {
		tail += 32
	}
	if f.PayloadOffset+f.PayloadSize+tail != uint64(fileSize) {
		return fmt.Errorf("%w: payload region + tail does not cover file size", errs.ErrFooterInvariant)
	}
	return nil
}
