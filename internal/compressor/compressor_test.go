package compressor

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/collector"
)

func roundTrip(t *testing.T, algo Algo) {
	t.Helper()

	entries := []collector.Entry{
		{LogicalPath: "a.txt", Size: 5},
		{LogicalPath: "dir/b.txt", Size: 11},
	}
	contents := [][]byte{
		[]byte("hello"),
		[]byte("hello world"),
	}

	var buf bytes.Buffer
	w, err := NewWriter(algo, &buf, 10)
	require.NoError(t, err)
	for i, e := range entries {
		require.NoError(t, w.WriteFile(e, bytes.NewReader(contents[i])))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(algo, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	defer r.Close()

	for i, want := range entries {
		entry, content, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, want.LogicalPath, entry.LogicalPath)
		got, err := io.ReadAll(content)
		require.NoError(t, err)
		require.Equal(t, contents[i], got)
	}

	_, _, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestZstdRoundTrip(t *testing.T) {
	roundTrip(t, AlgoZstd)
}

func TestZipRoundTrip(t *testing.T) {
	roundTrip(t, AlgoZip)
}

func TestResolveAlgoPrefersZstd(t *testing.T) {
	var buf bytes.Buffer
	w, err := ResolveAlgo(AlgoZstd, &buf, 10)
	require.NoError(t, err)
	require.Equal(t, AlgoZstd, w.Algo())
	require.NoError(t, w.Close())
}

func TestResolveAlgoZipForced(t *testing.T) {
	var buf bytes.Buffer
	w, err := ResolveAlgo(AlgoZip, &buf, 6)
	require.NoError(t, err)
	require.Equal(t, AlgoZip, w.Algo())
	require.NoError(t, w.Close())
}
