package collector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "z.txt"), "z")
	writeFile(t, filepath.Join(dir, "app", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "app", "sub", "b.txt"), "b")

	cfg := &config.Config{
		Inputs: []config.InputRoot{{Path: "app", Recursive: true, PreserveStructure: false}},
	}

	m, err := Collect(cfg, dir)
	require.NoError(t, err)
	require.Len(t, m.Entries, 3)
	require.Equal(t, "a.txt", m.Entries[0].LogicalPath)
	require.Equal(t, "sub/b.txt", m.Entries[1].LogicalPath)
	require.Equal(t, "z.txt", m.Entries[2].LogicalPath)
}

func TestCollectPreserveStructure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "a.txt"), "a")

	cfg := &config.Config{
		Inputs: []config.InputRoot{{Path: "app", Recursive: true, PreserveStructure: true}},
	}

	m, err := Collect(cfg, dir)
	require.NoError(t, err)
	require.Equal(t, "app/a.txt", m.Entries[0].LogicalPath)
}

func TestCollectExcludesAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "app", "b.log"), "b")

	cfg := &config.Config{
		Inputs:  []config.InputRoot{{Path: "app", Recursive: true, PreserveStructure: false}},
		Exclude: []string{"*"},
	}

	m, err := Collect(cfg, dir)
	require.NoError(t, err)
	require.Empty(t, m.Entries)
}

func TestCollectExcludeDoubleStar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "cache", "deep", "x.tmp"), "x")
	writeFile(t, filepath.Join(dir, "app", "keep.txt"), "keep")

	cfg := &config.Config{
		Inputs:  []config.InputRoot{{Path: "app", Recursive: true, PreserveStructure: false}},
		Exclude: []string{"**/*.tmp"},
	}

	m, err := Collect(cfg, dir)
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	require.Equal(t, "keep.txt", m.Entries[0].LogicalPath)
}

func TestCollectDuplicateLogicalPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "x.txt"), "1")
	writeFile(t, filepath.Join(dir, "b", "x.txt"), "2")

	cfg := &config.Config{
		Inputs: []config.InputRoot{
			{Path: "a", Recursive: true, PreserveStructure: false},
			{Path: "b", Recursive: true, PreserveStructure: false},
		},
	}

	_, err := Collect(cfg, dir)
	require.Error(t, err)
}
