// Package compressor implements the pluggable payload codec: a
// streaming zstd encoder/decoder as the primary path, with an
// archive/zip fallback used when zstd initialization fails or the
// configuration requests it explicitly.
package compressor

import (
	"fmt"
	"io"

	"github.com/inspa-project/inspa/internal/collector"
)

// Algo identifies a payload compression codec.
type Algo string

const (
	AlgoZstd Algo = "zstd"
	AlgoZip  Algo = "zip"
)

// windowBound caps the zstd encoder/decoder working set. Installers
// run on end-user machines with unknown memory pressure, so the
// window is bounded rather than left at the library default.
const windowBound = 8 << 20 // 8 MiB

// Writer streams a Manifest's files into dst using the codec's wire
// format. Implementations write in manifest order and flush/close
// their underlying stream when Close is called.
type Writer interface {
	io.Writer
	io.Closer
	// WriteFile streams a single manifest entry's content into the
	// payload body, in the codec's own framing.
	WriteFile(entry collector.Entry, content io.Reader) error
	// Algo reports which codec this writer implements.
	Algo() Algo
}

// Reader iterates the files stored by a matching Writer. Next
// returns io.EOF once all entries have been consumed.
type Reader interface {
	// Next advances to the next file record and returns its
	// manifest entry (path and size) plus a reader bounded to its
	// content.
	Next() (collector.Entry, io.Reader, error)
	Close() error
}

// NewWriter constructs a Writer for algo. zstd is attempted with a
// single initialization try; per the build algorithm's fallback
// policy the caller is expected to have already resolved which algo
// to use (see ResolveAlgo) rather than retrying mid-stream here.
func NewWriter(algo Algo, dst io.Writer, level int) (Writer, error) {
	switch algo {
	case AlgoZstd:
		return newZstdWriter(dst, level)
	case AlgoZip:
		return newZipWriter(dst)
	default:
		return nil, errUnsupportedAlgo(algo)
	}
}

// NewReader constructs a Reader for algo against src, which must
// support io.ReaderAt for the zip codec's central-directory access
// pattern (the zstd codec only needs io.Reader).
func NewReader(algo Algo, src io.Reader, size int64) (Reader, error) {
	switch algo {
	case AlgoZstd:
		return newZstdReader(src)
	case AlgoZip:
		ra, ok := src.(io.ReaderAt)
		if !ok {
			return nil, errZipNeedsReaderAt
		}
		return newZipReader(ra, size)
	default:
		return nil, errUnsupportedAlgo(algo)
	}
}

// ResolveAlgo attempts to construct a zstd writer as a probe; on
// failure it falls back to zip exactly once, matching the build
// algorithm's single-attempt fallback (spec: no mid-stream switch).
// The returned Writer is ready to use; callers should not call
// NewWriter again after ResolveAlgo picks a fallback.
func ResolveAlgo(preferred Algo, dst io.Writer, level int) (Writer, error) {
	if preferred == AlgoZip {
		w, err := newZipWriter(dst)
		return w, err
	}

	w, err := newZstdWriter(dst, level)
	if err == nil {
		return w, nil
	}
	return newZipWriter(dst)
}

// DetermineAlgo probes zstd initialization without committing any
// output, so the Container Writer can decide the algorithm to record
// in the header before the payload region begins. It embodies the
// same single-attempt fallback policy as ResolveAlgo but separates
// the decision from stream construction, since the header (which
// names the algorithm) is written before the payload stream opens.
func DetermineAlgo(preferred Algo, fallbackToZip bool, level int) (Algo, error) {
	if preferred == AlgoZip {
		return AlgoZip, nil
	}

	probe, err := newZstdWriter(io.Discard, level)
	if err == nil {
		_ = probe.Close()
		return AlgoZstd, nil
	}
	if !fallbackToZip {
		return "", fmt.Errorf("zstd init failed and zip fallback disabled: %w", err)
	}
	return AlgoZip, nil
}
