package compressor

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/inspa-project/inspa/internal/collector"
)

// zipWriter is the fallback codec used when zstd initialization
// fails or the configuration forces it. Entries are stored
// uncompressed; the fallback trades payload size for the guarantee
// that archive/zip has no external native dependency to fail on.
type zipWriter struct {
	zw *zip.Writer
}

func newZipWriter(dst io.Writer) (*zipWriter, error) {
	return &zipWriter{zw: zip.NewWriter(dst)}, nil
}

func (w *zipWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("zip writer does not support raw Write; use WriteFile")
}

func (w *zipWriter) Close() error { return w.zw.Close() }
func (w *zipWriter) Algo() Algo   { return AlgoZip }

func (w *zipWriter) WriteFile(entry collector.Entry, content io.Reader) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   entry.LogicalPath,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("zip create %q: %w", entry.LogicalPath, err)
	}
	n, err := io.Copy(fw, content)
	if err != nil {
		return fmt.Errorf("zip stream %q: %w", entry.LogicalPath, err)
	}
	if uint64(n) != entry.Size {
		return fmt.Errorf("zip stream %q: wrote %d bytes, manifest declared %d", entry.LogicalPath, n, entry.Size)
	}
	return nil
}

// zipReader iterates a fallback payload's central directory in
// manifest order (archive/zip preserves append order in File).
type zipReader struct {
	zr   *zip.Reader
	idx  int
	open io.ReadCloser
}

func newZipReader(ra io.ReaderAt, size int64) (*zipReader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("zip reader init: %w", err)
	}
	return &zipReader{zr: zr}, nil
}

func (r *zipReader) Close() error {
	if r.open != nil {
		return r.open.Close()
	}
	return nil
}

func (r *zipReader) Next() (collector.Entry, io.Reader, error) {
	if r.open != nil {
		r.open.Close()
		r.open = nil
	}
	if r.idx >= len(r.zr.File) {
		return collector.Entry{}, nil, io.EOF
	}
	f := r.zr.File[r.idx]
	r.idx++

	rc, err := f.Open()
	if err != nil {
		return collector.Entry{}, nil, fmt.Errorf("zip open %q: %w", f.Name, err)
	}
	r.open = rc

	entry := collector.Entry{LogicalPath: f.Name, Size: f.UncompressedSize64}
	return entry, rc, nil
}
