package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/errs"
)

func testConfig(algo config.CompressionAlgo) *config.Config {
	cfg := &config.Config{
		SchemaVersion: 1,
		Product:       config.Product{Name: "Acme Widget", Version: "1.2.3"},
		Install:       config.Install{DefaultPath: `C:\Program Files\Acme Widget`},
		Compression:   config.Compression{Algo: algo, Level: 5, FallbackToZip: true},
		Inputs:        []config.InputRoot{{Path: "app", Recursive: true}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func buildFixture(t *testing.T, algo config.CompressionAlgo) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "a.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "b.txt"), []byte("second file contents"), 0o644))

	stubPath := filepath.Join(dir, "stub.exe")
	require.NoError(t, os.WriteFile(stubPath, []byte("FAKE-STUB-EXECUTABLE-BYTES"), 0o755))

	outPath := filepath.Join(dir, "out.exe")
	err := Build(BuildOptions{
		Config:     testConfig(algo),
		BaseDir:    dir,
		StubPath:   stubPath,
		OutputPath: outPath,
		Now:        func() string { return "2026-01-01T00:00:00Z" },
	})
	require.NoError(t, err)
	return outPath
}

func TestBuildAndOpenZstd(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZstd)

	c, err := Open(outPath, nil)
	require.NoError(t, err)
	defer c.Close()

	require.False(t, c.Legacy())
	require.Equal(t, "Acme Widget", c.Header().Product.Name)
	require.Len(t, c.Header().Files, 2)
	require.NoError(t, c.Verify())
}

func TestBuildAndOpenZip(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZip)

	c, err := Open(outPath, nil)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, string(config.CompressionZip), string(c.Header().Compression.Algo))
	require.NoError(t, c.Verify())
}

func TestBuildFooterInvariant(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZstd)

	info, err := os.Stat(outPath)
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	tail := make([]byte, FooterSize)
	_, err = f.ReadAt(tail, info.Size()-FooterSize)
	require.NoError(t, err)

	footer, err := UnpackFooter(tail)
	require.NoError(t, err)
	require.NoError(t, footer.Validate(info.Size(), true))
}

func TestBuildPatchesHashPlaceholder(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZstd)

	c, err := Open(outPath, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NotEqual(t, HashPlaceholder, c.Header().Hash.Archive)
	require.Len(t, c.Header().Hash.Archive, len(HashPlaceholder))
}

func TestBuildPopulatesStatsAndRuntime(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZstd)

	c, err := Open(outPath, nil)
	require.NoError(t, err)
	defer c.Close()

	h := c.Header()
	require.NotNil(t, h.Stats)
	require.Equal(t, 2, h.Stats.FileCount)
	require.Equal(t, uint64(len("hello world")+len("second file contents")), h.Stats.OriginalSize)
	require.NotZero(t, h.Stats.CompressedSize)

	require.NotNil(t, h.Runtime)
	require.Equal(t, "unified", h.Runtime.Type)
}

func TestVerifyRejectsFlippedPayloadByte(t *testing.T) {
	outPath := buildFixture(t, config.CompressionZstd)

	c, err := Open(outPath, nil)
	require.NoError(t, err)
	payloadOffset, payloadSize := c.PayloadRange()
	c.Close()

	require.NotZero(t, payloadSize)

	f, err := os.OpenFile(outPath, os.O_RDWR, 0o644)
	require.NoError(t, err)
	var b [1]byte
	_, err = f.ReadAt(b[:], payloadOffset)
	require.NoError(t, err)
	b[0] ^= 0xFF
	_, err = f.WriteAt(b[:], payloadOffset)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c2, err := Open(outPath, nil)
	require.NoError(t, err)
	defer c2.Close()

	err = c2.Verify()
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrIntegrityFailure)
}

func TestBuildRejectsMissingStub(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "a.txt"), []byte("x"), 0o644))

	err := Build(BuildOptions{
		Config:     testConfig(config.CompressionZstd),
		BaseDir:    dir,
		StubPath:   filepath.Join(dir, "missing-stub"),
		OutputPath: filepath.Join(dir, "out.exe"),
	})
	require.Error(t, err)
}
