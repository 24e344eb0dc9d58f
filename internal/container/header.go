package container

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/inspa-project/inspa/internal/errs"
)

// EncodeHeader serializes h as canonical, compact UTF-8 JSON with no
// BOM and no trailing newline. Go's encoding/json emits object keys
// in struct field declaration order, which Header's field order
// fixes as the stable wire order.
func EncodeHeader(h *Header) ([]byte, error) {
	buf, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return buf, nil
}

// DecodeHeader parses a header JSON block and checks its
// schema_version against the set this build understands.
func DecodeHeader(data []byte) (*Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if !supportedSchemaVersions[h.SchemaVersion] {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnsupportedSchema, h.SchemaVersion)
	}
	return &h, nil
}

// supportedSchemaVersions mirrors config.SupportedSchemaVersions; it
// is duplicated here (rather than imported) because the header codec
// must remain decodable even by a build whose config package has
// moved on, matching the footer's own version-independence.
var supportedSchemaVersions = map[int]bool{1: true}

// PatchHashPlaceholder overwrites the fixed-length zero-hash run in
// headerBytes with digestHex, returning the patched copy. digestHex
// must be exactly len(HashPlaceholder) characters.
func PatchHashPlaceholder(headerBytes []byte, digestHex string) ([]byte, error) {
	if len(digestHex) != len(hashPlaceholder) {
		return nil, fmt.Errorf("container: digest hex length %d != placeholder length %d", len(digestHex), len(hashPlaceholder))
	}
	idx := bytes.Index(headerBytes, []byte(hashPlaceholder))
	if idx < 0 {
		return nil, errs.ErrHashPlaceholderNotFound
	}
	patched := make([]byte, len(headerBytes))
	copy(patched, headerBytes)
	copy(patched[idx:idx+len(digestHex)], digestHex)
	return patched, nil
}

// HashPlaceholderOffset returns the byte offset of the placeholder
// run within headerBytes, for callers that patch in place on disk
// rather than rewriting the whole block in memory.
func HashPlaceholderOffset(headerBytes []byte) (int, error) {
	idx := bytes.Index(headerBytes, []byte(hashPlaceholder))
	if idx < 0 {
		return 0, errs.ErrHashPlaceholderNotFound
	}
	return idx, nil
}
