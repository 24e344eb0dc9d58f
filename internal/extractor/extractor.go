// Package extractor consumes a container's decompressed payload
// stream and materializes files under a target install directory,
// staging them atomically and rejecting path traversal.
package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/compressor"
	"github.com/inspa-project/inspa/internal/container"
	"github.com/inspa-project/inspa/internal/errs"
)

// stagingDirName is the well-known subdirectory files are written to
// before being promoted into their final location on success.
const stagingDirName = ".inspa_staging"

// progressBufferSize is not referenced by Extract: callers create the
// SPSC progress channel and pass it in Options.Progress, and
// sendProgress drops events rather than block when it is full.
const progressBufferSize = 64

// progressIntervalMin bounds progress event emission to at most 30
// events per second per spec.
const progressIntervalMin = time.Second / 30

// Options configures an extraction run.
type Options struct {
	Header     *container.Header
	TargetDir  string
	Logger     hclog.Logger
	Cancelled  *atomic.Bool
	Progress   chan<- container.ProgressEvent
}

// Extract streams payload (compressed) through the codec named by
// opts.Header.Compression.Algo, validates every logical path, and
// atomically promotes staged files into opts.TargetDir.
func Extract(ctx context.Context, payload io.Reader, payloadSize int64, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	targetDir, err := filepath.Abs(opts.TargetDir)
	if err != nil {
		return fmt.Errorf("%w: resolve target dir: %v", errs.ErrExtractIO, err)
	}
	stagingDir := filepath.Join(targetDir, stagingDirName)

	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("%w: clear stale staging dir: %v", errs.ErrExtractIO, err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("%w: create staging dir: %v", errs.ErrExtractIO, err)
	}

	success := false
	defer func() {
		if !success {
			os.RemoveAll(stagingDir)
		}
	}()

	algo := compressor.Algo(opts.Header.Compression.Algo)
	reader, err := compressor.NewReader(algo, payload, payloadSize)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrExtractIO, err)
	}
	defer reader.Close()

	totalBytes := uint64(0)
	for _, f := range opts.Header.Files {
		totalBytes += f.Size
	}

	var doneBytes uint64
	lastEmit := time.Time{}
	filesByPath := make(map[string]container.FileRecord, len(opts.Header.Files))
	for _, f := range opts.Header.Files {
		filesByPath[f.Path] = f
	}

	count := 0
	for {
		if err := checkCancelled(ctx, opts.Cancelled); err != nil {
			return err
		}

		entry, content, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrExtractIO, err)
		}
		count++

		stagedPath, err := safeJoin(stagingDir, entry.LogicalPath)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(stagedPath), 0o755); err != nil {
			return fmt.Errorf("%w: create parent dirs for %q: %v", errs.ErrExtractIO, entry.LogicalPath, err)
		}

		n, err := writeStaged(stagedPath, content)
		if err != nil {
			return err
		}
		if n != entry.Size {
			return fmt.Errorf("%w: %q wrote %d bytes, header declared %d", errs.ErrExtractIO, entry.LogicalPath, n, entry.Size)
		}

		if rec, ok := filesByPath[entry.LogicalPath]; ok {
			mtime := time.Unix(rec.MTime, 0)
			_ = os.Chtimes(stagedPath, mtime, mtime)
		}

		doneBytes += entry.Size
		lastEmit = emitProgress(opts.Progress, lastEmit, container.ProgressEvent{
			Phase:       "extracting",
			CurrentFile: entry.LogicalPath,
			BytesDone:   doneBytes,
			BytesTotal:  totalBytes,
		})
	}

	if count != len(opts.Header.Files) {
		return fmt.Errorf("%w: extracted %d files, header declared %d", errs.ErrTrailingBytes, count, len(opts.Header.Files))
	}

	if err := promote(stagingDir, targetDir); err != nil {
		return err
	}
	success = true

	sendProgress(opts.Progress, container.ProgressEvent{Phase: "extracting", Done: true, BytesDone: doneBytes, BytesTotal: totalBytes})
	logger.Info("extraction complete", "files", count, "bytes", doneBytes)
	return nil
}

// safeJoin resolves target under root and rejects any result that
// escapes root once ".." segments are resolved. The check is lexical
// (filepath.Clean and filepath.Rel); symlinks and reparse points are
// not resolved.
func safeJoin(root, logicalPath string) (string, error) {
	joined := filepath.Join(root, filepath.FromSlash(logicalPath))
	cleanRoot := filepath.Clean(root)
	cleanJoined := filepath.Clean(joined)
	if cleanJoined != cleanRoot && !hasPathPrefix(cleanJoined, cleanRoot) {
		return "", fmt.Errorf("%w: %q", errs.ErrPathEscape, logicalPath)
	}
	return cleanJoined, nil
}

func hasPathPrefix(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.' &&
		(len(rel) == 2 || os.IsPathSeparator(rel[2]))
}

func writeStaged(path string, content io.Reader) (uint64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: create %q: %v", errs.ErrExtractIO, path, err)
	}
	defer f.Close()

	n, err := io.Copy(f, content)
	if err != nil {
		return uint64(n), fmt.Errorf("%w: write %q: %v", errs.ErrExtractIO, path, err)
	}
	return uint64(n), nil
}

// promote moves every entry out of stagingDir into targetDir, then
// removes the now-empty staging directory. Using per-entry Rename
// keeps each individual file's move atomic even though the whole
// tree's promotion is not a single filesystem operation.
func promote(stagingDir, targetDir string) error {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return fmt.Errorf("%w: read staging dir: %v", errs.ErrExtractIO, err)
	}
	for _, e := range entries {
		src := filepath.Join(stagingDir, e.Name())
		dst := filepath.Join(targetDir, e.Name())
		if err := promoteEntry(src, dst); err != nil {
			return err
		}
	}
	return os.RemoveAll(stagingDir)
}

func promoteEntry(src, dst string) error {
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("%w: create %q: %v", errs.ErrExtractIO, dst, err)
		}
		children, err := os.ReadDir(src)
		if err != nil {
			return fmt.Errorf("%w: read %q: %v", errs.ErrExtractIO, src, err)
		}
		for _, c := range children {
			if err := promoteEntry(filepath.Join(src, c.Name()), filepath.Join(dst, c.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: create parent of %q: %v", errs.ErrExtractIO, dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: promote %q: %v", errs.ErrExtractIO, dst, err)
	}
	return nil
}

func checkCancelled(ctx context.Context, flag *atomic.Bool) error {
	if flag != nil && flag.Load() {
		return errs.ErrCancelled
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errs.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

func emitProgress(ch chan<- container.ProgressEvent, last time.Time, ev container.ProgressEvent) time.Time {
	if ch == nil {
		return last
	}
	now := time.Now()
	if !last.IsZero() && now.Sub(last) < progressIntervalMin {
		return last
	}
	sendProgress(ch, ev)
	return now
}

func sendProgress(ch chan<- container.ProgressEvent, ev container.ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		// SPSC channel is sized generously; a full buffer means the
		// consumer has stalled. Drop rather than block extraction.
	}
}
