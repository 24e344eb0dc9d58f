// Package hashutil provides the streaming SHA-256 hasher shared by the
// Container Writer (component F) and the Container Reader's verify
// path (component G).
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Hasher wraps a running SHA-256 digest as an io.Writer so it can be
// chained behind a compressor sink without buffering the payload.
type Hasher struct {
	h hash.Hash
}

// New returns a Hasher ready to accept Write calls.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the 32-byte digest of everything written so far without
// resetting the hasher.
func (h *Hasher) Sum() [32]byte {
	var out [32]byte
	copy(out[:], h.h.Sum(nil))
	return out
}

// Hex returns the lowercase hex encoding of Sum().
func (h *Hasher) Hex() string {
	sum := h.Sum()
	return hex.EncodeToString(sum[:])
}

// SumReader streams r through a fresh Hasher and returns the digest.
func SumReader(r io.Reader) ([32]byte, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, err
	}
	return h.Sum(), nil
}

// SumBytes hashes data in one call.
func SumBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}
