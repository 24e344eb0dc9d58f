package extractor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/collector"
	"github.com/inspa-project/inspa/internal/compressor"
	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/container"
)

func containerCompression() config.Compression {
	return config.Compression{Algo: config.CompressionZstd, Level: 5}
}

func buildZstdPayload(t *testing.T, files map[string]string) ([]byte, []container.FileRecord) {
	t.Helper()
	var buf bytes.Buffer
	w, err := compressor.NewWriter(compressor.AlgoZstd, &buf, 5)
	require.NoError(t, err)

	var records []container.FileRecord
	for path, content := range files {
		require.NoError(t, w.WriteFile(
			collector.Entry{LogicalPath: path, Size: uint64(len(content))},
			bytes.NewReader([]byte(content)),
		))
		records = append(records, container.FileRecord{Path: path, Size: uint64(len(content))})
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), records
}

func TestExtractWritesFiles(t *testing.T) {
	files := map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
	}
	payload, records := buildZstdPayload(t, files)

	targetDir := t.TempDir()
	header := &container.Header{
		Compression: containerCompression(),
		Files:       records,
	}

	err := Extract(context.Background(), bytes.NewReader(payload), int64(len(payload)), Options{
		Header:    header,
		TargetDir: targetDir,
	})
	require.NoError(t, err)

	for path, content := range files {
		got, err := os.ReadFile(filepath.Join(targetDir, filepath.FromSlash(path)))
		require.NoError(t, err)
		require.Equal(t, content, string(got))
	}

	_, err = os.Stat(filepath.Join(targetDir, stagingDirName))
	require.True(t, os.IsNotExist(err))
}

func TestExtractRejectsPathEscape(t *testing.T) {
	payload, records := buildZstdPayload(t, map[string]string{"../evil.txt": "x"})
	targetDir := t.TempDir()

	err := Extract(context.Background(), bytes.NewReader(payload), int64(len(payload)), Options{
		Header:    &container.Header{Compression: containerCompression(), Files: records},
		TargetDir: targetDir,
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(targetDir, "..", "evil.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestExtractCleansUpStagingOnFailure(t *testing.T) {
	payload, records := buildZstdPayload(t, map[string]string{"a.txt": "hi"})
	// Declare a second file the payload never actually carries, so the
	// post-loop file-count check fails after staging has begun.
	records = append(records, container.FileRecord{Path: "missing.txt", Size: 1})

	targetDir := t.TempDir()
	err := Extract(context.Background(), bytes.NewReader(payload), int64(len(payload)), Options{
		Header:    &container.Header{Compression: containerCompression(), Files: records},
		TargetDir: targetDir,
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(targetDir, stagingDirName))
	require.True(t, os.IsNotExist(statErr))
}
