package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/errs"
	"github.com/inspa-project/inspa/internal/hashutil"
)

// scanChunkSize bounds how much of the file the legacy scan reads at
// once, so a multi-GB installer with no footer doesn't get mapped
// into memory in one shot.
const scanChunkSize = 1 << 20

// Container is an opened installer, located either via its trailing
// footer or, for pre-footer builds, the in-band legacy magic.
type Container struct {
	file       *os.File
	path       string
	header     *Header
	footer     *Footer // nil in legacy mode
	legacyHash    [32]byte
	legacy        bool
	payloadOffset int64 // valid only when legacy is true
	logger        hclog.Logger
}

// Open locates and parses selfPath's embedded container metadata
// (spec §4.6 locate-in-self algorithm) without reading the payload.
func Open(selfPath string, logger hclog.Logger) (*Container, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	f, err := os.Open(selfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open self: %v", errs.ErrExtractIO, err)
	}

	c := &Container{file: f, path: selfPath, logger: logger}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat self: %v", errs.ErrExtractIO, err)
	}

	if err := c.locate(info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) locate(fileSize int64) error {
	if fileSize >= FooterSize {
		tail := make([]byte, FooterSize)
		if _, err := c.file.ReadAt(tail, fileSize-FooterSize); err != nil {
			return fmt.Errorf("%w: read footer: %v", errs.ErrFooterNotFound, err)
		}
		footer, err := UnpackFooter(tail)
		if err == nil {
			// The container layout always carries the 32-byte legacy
			// hash tail ahead of the footer, even on the footer-locate
			// path (spec §3.3), so hasLegacyTail is unconditionally true
			// here.
			if verr := footer.Validate(fileSize, true); verr != nil {
				return verr
			}
			c.footer = footer
			// header_offset points at the 8-byte length prefix; the
			// header JSON starts right after it.
			return c.loadHeader(int64(footer.HeaderOffset)+8, int64(footer.HeaderLen))
		}
	}

	c.logger.Debug("footer not found, entering legacy scan")
	return c.legacyLocate(fileSize)
}

// legacyLocate implements the pre-footer fallback: a linear scan
// from file start for the legacy header magic, first match wins.
func (c *Container) legacyLocate(fileSize int64) error {
	magic := []byte(LegacyMagic)
	buf := make([]byte, scanChunkSize+len(magic)-1)

	var offset int64
	for offset < fileSize {
		n, err := c.file.ReadAt(buf, offset)
		if n == 0 && err != nil && err != io.EOF {
			return fmt.Errorf("%w: %v", errs.ErrLegacyScanNotFound, err)
		}
		idx := bytes.Index(buf[:n], magic)
		if idx >= 0 {
			return c.legacyParseAt(offset+int64(idx), fileSize)
		}
		if err == io.EOF || n < len(buf) {
			break
		}
		offset += int64(scanChunkSize)
	}
	return errs.ErrLegacyScanNotFound
}

func (c *Container) legacyParseAt(magicOffset, fileSize int64) error {
	lenBuf := make([]byte, 8)
	if _, err := c.file.ReadAt(lenBuf, magicOffset+int64(len(LegacyMagic))); err != nil {
		return fmt.Errorf("%w: read legacy header length: %v", errs.ErrLegacyScanNotFound, err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf)
	headerOffset := magicOffset + int64(len(LegacyMagic)) + 8

	if fileSize-headerOffset-int64(headerLen)-32 < 0 {
		return fmt.Errorf("%w: legacy header length implausible", errs.ErrLegacyScanNotFound)
	}

	c.legacy = true
	c.payloadOffset = headerOffset + int64(headerLen)
	if _, err := c.file.ReadAt(c.legacyHash[:], fileSize-32); err != nil {
		return fmt.Errorf("%w: read legacy tail: %v", errs.ErrLegacyScanNotFound, err)
	}

	return c.loadHeader(headerOffset, int64(headerLen))
}

func (c *Container) loadHeader(headerOffset, headerLen int64) error {
	buf := make([]byte, headerLen)
	if _, err := c.file.ReadAt(buf, headerOffset); err != nil {
		return fmt.Errorf("%w: read header: %v", errs.ErrHeaderMalformed, err)
	}
	header, err := DecodeHeader(buf)
	if err != nil {
		return err
	}
	c.header = header
	return nil
}

// Header returns the parsed header record.
func (c *Container) Header() *Header { return c.header }

// Legacy reports whether this container was located via the
// pre-footer scan path rather than the trailing footer.
func (c *Container) Legacy() bool { return c.legacy }

// PayloadRange returns the [offset, size) of the compressed payload
// region within the container file.
func (c *Container) PayloadRange() (offset int64, size int64) {
	if c.footer != nil {
		return int64(c.footer.PayloadOffset), int64(c.footer.PayloadSize)
	}
	// Legacy mode: payload begins immediately after the header and
	// ends 32 bytes before EOF (the legacy hash tail).
	info, _ := c.file.Stat()
	return c.payloadOffset, info.Size() - 32 - c.payloadOffset
}

// expectedDigest returns the digest the reader should verify the
// payload region against, from whichever locate path succeeded.
func (c *Container) expectedDigest() [32]byte {
	if c.footer != nil {
		return c.footer.PayloadSHA256
	}
	return c.legacyHash
}

// PayloadReader returns a reader over the raw (still compressed)
// payload bytes.
func (c *Container) PayloadReader() (io.ReadSeeker, error) {
	offset, size := c.PayloadRange()
	return io.NewSectionReader(c.file, offset, size), nil
}

// Verify re-streams the payload region through a fresh hasher and
// compares the digest against the footer (or legacy tail). It must
// succeed before any filesystem mutation occurs.
func (c *Container) Verify() error {
	offset, size := c.PayloadRange()
	section := io.NewSectionReader(c.file, offset, size)

	h := hashutil.New()
	if _, err := io.Copy(h, section); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIntegrityFailure, err)
	}

	got := h.Sum()
	want := c.expectedDigest()
	if got != want {
		return errs.ErrIntegrityFailure
	}
	return nil
}

// Close releases the underlying file handle.
func (c *Container) Close() error { return c.file.Close() }
