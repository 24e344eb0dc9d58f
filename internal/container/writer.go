package container

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/collector"
	"github.com/inspa-project/inspa/internal/compressor"
	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/errs"
	"github.com/inspa-project/inspa/internal/hashutil"
)

// BuilderVersion is stamped into every header's build.builder_version
// field. It is overridden at link time in release builds via
// -ldflags, mirroring the teacher's cmd version wiring.
var BuilderVersion = "dev"

// BuildOptions carries everything the Container Writer needs beyond
// the configuration itself.
type BuildOptions struct {
	Config     *config.Config
	BaseDir    string // directory input paths are resolved relative to
	StubPath   string
	OutputPath string
	Now        func() string // RFC3339 timestamp source, overridable for tests
	Logger     hclog.Logger
}

// Build runs the Container Writer algorithm (spec §4.5): collect,
// construct header, stream payload through the compressor while
// hashing, append legacy tail and footer, patch the header's hash
// placeholder, and atomically publish the result.
func Build(opts BuildOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg := opts.Config

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfigInvalid, err)
	}

	fingerprint := cfg.Fingerprint()

	manifest, err := collector.Collect(cfg, opts.BaseDir)
	if err != nil {
		return err
	}
	logger.Debug("collected manifest", "files", len(manifest.Entries))

	stubInfo, err := os.Stat(opts.StubPath)
	if err != nil {
		return fmt.Errorf("%w: stat stub: %v", errs.ErrStubMissing, err)
	}
	stubBytes, err := os.ReadFile(opts.StubPath)
	if err != nil {
		return fmt.Errorf("%w: read stub: %v", errs.ErrStubMissing, err)
	}
	stubSize := uint64(stubInfo.Size())

	tmpPath := opts.OutputPath + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("%w: create temp output: %v", errs.ErrBuildIO, err)
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := out.Write(stubBytes); err != nil {
		return fmt.Errorf("%w: write stub: %v", errs.ErrBuildIO, err)
	}

	algo, err := compressor.DetermineAlgo(compressor.Algo(cfg.Compression.Algo), cfg.Compression.FallbackToZip, cfg.Compression.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCompressionWrite, err)
	}
	logger.Debug("compression algorithm resolved", "algo", algo)

	nowFn := opts.Now
	if nowFn == nil {
		nowFn = defaultNow
	}

	var originalSize uint64
	for _, e := range manifest.Entries {
		originalSize += e.Size
	}
	compressedSize, err := probeCompressedSize(algo, cfg.Compression.Level, manifest.Entries)
	if err != nil {
		return fmt.Errorf("%w: probe compressed size: %v", errs.ErrCompressionWrite, err)
	}

	header := &Header{
		Magic:         HeaderMagic,
		SchemaVersion: cfg.SchemaVersion,
		Product:       cfg.Product,
		UI:            cfg.UI,
		Install:       cfg.Install,
		Compression:   config.Compression{Algo: config.CompressionAlgo(algo), Level: cfg.Compression.Level, FallbackToZip: cfg.Compression.FallbackToZip},
		Env:           cfg.Env,
		Files:         make([]FileRecord, 0, len(manifest.Entries)),
		Scripts:       make([]ScriptRecord, 0, len(cfg.PostActions)),
		Hash:          HashRecord{Algo: "sha256", Archive: hashPlaceholder},
		Build: BuildRecord{
			Timestamp:         nowFn(),
			BuilderVersion:    BuilderVersion,
			ConfigFingerprint: fingerprint,
		},
		Stats: &StatsRecord{
			OriginalSize:   originalSize,
			CompressedSize: compressedSize,
			FileCount:      len(manifest.Entries),
		},
		Runtime: &RuntimeRecord{Type: "unified"},
	}
	for _, e := range manifest.Entries {
		header.Files = append(header.Files, FileRecord{Path: e.LogicalPath, Size: e.Size, MTime: e.ModTime})
	}
	for _, a := range cfg.PostActions {
		header.Scripts = append(header.Scripts, ScriptRecord{
			Type: a.Type, Command: a.Command, Args: a.Args, TimeoutSec: a.TimeoutSec,
			RunIf: a.RunIf, Hidden: a.Hidden, ShowInUI: a.ShowInUI, WorkingDir: a.WorkingDir,
		})
	}

	headerBytes, err := EncodeHeader(header)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBuildIO, err)
	}
	placeholderOffset, err := HashPlaceholderOffset(headerBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBuildIO, err)
	}
	headerLen := uint64(len(headerBytes))

	var lenPrefix [8]byte
	binary.LittleEndian.PutUint64(lenPrefix[:], headerLen)
	if _, err := out.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("%w: write header length: %v", errs.ErrBuildIO, err)
	}
	if _, err := out.Write(headerBytes); err != nil {
		return fmt.Errorf("%w: write header: %v", errs.ErrBuildIO, err)
	}

	payloadOffset := stubSize + 8 + headerLen

	hasher := hashutil.New()
	counter := &countingWriter{}
	dst := io.MultiWriter(out, hasher, counter)

	comp, err := compressor.NewWriter(algo, dst, cfg.Compression.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCompressionWrite, err)
	}

	for _, e := range manifest.Entries {
		if err := streamEntry(comp, e); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrCompressionWrite, err)
		}
	}
	if err := comp.Close(); err != nil {
		return fmt.Errorf("%w: finish compressor: %v", errs.ErrCompressionWrite, err)
	}

	payloadSize := counter.n
	digest := hasher.Sum()

	if _, err := out.Write(digest[:]); err != nil {
		return fmt.Errorf("%w: write legacy tail: %v", errs.ErrBuildIO, err)
	}

	footer := &Footer{
		HeaderOffset:  stubSize,
		HeaderLen:     headerLen,
		PayloadOffset: payloadOffset,
		PayloadSize:   payloadSize,
		PayloadSHA256: digest,
	}
	if _, err := out.Write(footer.Pack()); err != nil {
		return fmt.Errorf("%w: write footer: %v", errs.ErrBuildIO, err)
	}

	digestHex := hex.EncodeToString(digest[:])
	patchOffset := int64(stubSize) + 8 + int64(placeholderOffset)
	if _, err := out.WriteAt([]byte(digestHex), patchOffset); err != nil {
		return fmt.Errorf("%w: patch hash placeholder: %v", errs.ErrBuildIO, err)
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", errs.ErrBuildIO, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", errs.ErrBuildIO, err)
	}
	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return fmt.Errorf("%w: rename into place: %v", errs.ErrBuildIO, err)
	}
	success = true

	logger.Info("installer built",
		"output", filepath.Base(opts.OutputPath),
		"payload_bytes", payloadSize,
		"files", len(manifest.Entries),
		"algo", algo,
	)
	return nil
}

func streamEntry(w compressor.Writer, e collector.Entry) error {
	f, err := os.Open(e.SourcePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", e.SourcePath, err)
	}
	defer f.Close()
	return w.WriteFile(e, f)
}

// probeCompressedSize runs a throwaway compression pass to learn the
// payload's compressed size before the header (which records it under
// stats for inspect/logging) is written, the same probe-before-commit
// approach DetermineAlgo uses to learn the codec.
func probeCompressedSize(algo compressor.Algo, level int, entries []collector.Entry) (uint64, error) {
	counter := &countingWriter{}
	comp, err := compressor.NewWriter(algo, counter, level)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := streamEntry(comp, e); err != nil {
			return 0, err
		}
	}
	if err := comp.Close(); err != nil {
		return 0, err
	}
	return counter.n, nil
}

type countingWriter struct{ n uint64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += uint64(len(p))
	return len(p), nil
}

func defaultNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
