package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/config"
)

func sampleHeader() *Header {
	return &Header{
		Magic:         HeaderMagic,
		SchemaVersion: 1,
		Product:       config.Product{Name: "Acme", Version: "1.0.0"},
		Compression:   config.Compression{Algo: config.CompressionZstd, Level: 10},
		Files:         []FileRecord{{Path: "a.txt", Size: 5, MTime: 1}},
		Hash:          HashRecord{Algo: "sha256", Archive: HashPlaceholder},
		Build:         BuildRecord{BuilderVersion: "dev"},
	}
}

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	buf, err := EncodeHeader(h)
	require.NoError(t, err)
	require.False(t, strings.HasSuffix(string(buf), "\n"))

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h.Product.Name, got.Product.Name)
	require.Equal(t, h.Files, got.Files)
}

func TestDecodeHeaderRejectsUnsupportedSchema(t *testing.T) {
	h := sampleHeader()
	h.SchemaVersion = 99
	buf, err := EncodeHeader(h)
	require.NoError(t, err)

	_, err = DecodeHeader(buf)
	require.Error(t, err)
}

func TestPatchHashPlaceholder(t *testing.T) {
	h := sampleHeader()
	buf, err := EncodeHeader(h)
	require.NoError(t, err)

	digest := strings.Repeat("ab", 32)
	patched, err := PatchHashPlaceholder(buf, digest)
	require.NoError(t, err)

	got, err := DecodeHeader(patched)
	require.NoError(t, err)
	require.Equal(t, digest, got.Hash.Archive)
	require.Len(t, patched, len(buf))
}
