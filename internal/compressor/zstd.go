package compressor

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/inspa-project/inspa/internal/collector"
)

// zstdWriter frames each manifest entry as
// [8B path_len][path][8B size][content] and streams the concatenation
// through a bounded-window zstd encoder.
type zstdWriter struct {
	enc *zstd.Encoder
}

func newZstdWriter(dst io.Writer, level int) (*zstdWriter, error) {
	enc, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(levelToEncoderLevel(level)),
		zstd.WithWindowSize(windowBound),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder init: %w", err)
	}
	return &zstdWriter{enc: enc}, nil
}

func (w *zstdWriter) Write(p []byte) (int, error) { return w.enc.Write(p) }
func (w *zstdWriter) Close() error                { return w.enc.Close() }
func (w *zstdWriter) Algo() Algo                  { return AlgoZstd }

func (w *zstdWriter) WriteFile(entry collector.Entry, content io.Reader) error {
	var header [16]byte
	pathBytes := []byte(entry.LogicalPath)
	binary.LittleEndian.PutUint64(header[0:8], uint64(len(pathBytes)))
	if _, err := w.enc.Write(header[0:8]); err != nil {
		return err
	}
	if _, err := w.enc.Write(pathBytes); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(header[8:16], entry.Size)
	if _, err := w.enc.Write(header[8:16]); err != nil {
		return err
	}
	n, err := io.Copy(w.enc, content)
	if err != nil {
		return fmt.Errorf("stream %q: %w", entry.LogicalPath, err)
	}
	if uint64(n) != entry.Size {
		return fmt.Errorf("stream %q: wrote %d bytes, manifest declared %d", entry.LogicalPath, n, entry.Size)
	}
	return nil
}

// levelToEncoderLevel maps the config's 1-22 zstd level range (the
// same scale the reference implementation exposes) onto klauspost's
// four speed/ratio tiers.
func levelToEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// zstdReader parses the record framing written by zstdWriter.
type zstdReader struct {
	dec *zstd.Decoder
}

func newZstdReader(src io.Reader) (*zstdReader, error) {
	dec, err := zstd.NewReader(src, zstd.WithDecoderMaxWindow(windowBound))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder init: %w", err)
	}
	return &zstdReader{dec: dec}, nil
}

func (r *zstdReader) Close() error {
	r.dec.Close()
	return nil
}

func (r *zstdReader) Next() (collector.Entry, io.Reader, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r.dec, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return collector.Entry{}, nil, fmt.Errorf("truncated record header: %w", io.EOF)
		}
		return collector.Entry{}, nil, err
	}
	pathLen := binary.LittleEndian.Uint64(lenBuf[:])

	pathBytes := make([]byte, pathLen)
	if _, err := io.ReadFull(r.dec, pathBytes); err != nil {
		return collector.Entry{}, nil, fmt.Errorf("truncated record path: %w", err)
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(r.dec, sizeBuf[:]); err != nil {
		return collector.Entry{}, nil, fmt.Errorf("truncated record size: %w", err)
	}
	size := binary.LittleEndian.Uint64(sizeBuf[:])

	entry := collector.Entry{LogicalPath: string(pathBytes), Size: size}
	return entry, io.LimitReader(r.dec, int64(size)), nil
}
