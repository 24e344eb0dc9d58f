package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefixWriterPrefixesCompleteLines(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPrefixWriter("[x] ", &buf)

	n, err := pw.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	require.Equal(t, len("first\nsecond\n"), n)
	require.Equal(t, "[x] first\n[x] second\n", buf.String())
}

func TestPrefixWriterBuffersPartialLineAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPrefixWriter("[x] ", &buf)

	_, err := pw.Write([]byte("partial-"))
	require.NoError(t, err)
	require.Empty(t, buf.String())

	_, err = pw.Write([]byte("line\n"))
	require.NoError(t, err)
	require.Equal(t, "[x] partial-line\n", buf.String())
}

func TestPrefixWriterLeavesTrailingUnterminatedLineBuffered(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPrefixWriter("[x] ", &buf)

	_, err := pw.Write([]byte("no newline yet"))
	require.NoError(t, err)
	require.Empty(t, buf.String())
	require.Equal(t, "no newline yet", string(pw.pending))
}
