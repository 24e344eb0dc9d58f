package container

import (
	"github.com/inspa-project/inspa/internal/config"
)

// HeaderMagic identifies the header record kind on the wire,
// independent of the footer's own binary magic.
const HeaderMagic = "INSPRO1"

// hashPlaceholder is written into the header before the payload
// size and digest are known; it is patched in place once the writer
// finishes hashing the payload region. Its length must never change.
const hashPlaceholder = "0000000000000000000000000000000000000000000000000000000000000000"

// HashPlaceholder exposes the fixed-length zero run patched by the
// writer once the payload digest is known.
const HashPlaceholder = hashPlaceholder

// FileRecord is a manifest entry as it appears in the header; unlike
// collector.Entry it never carries the build-time source_path.
type FileRecord struct {
	Path  string `json:"path"`
	Size  uint64 `json:"size"`
	MTime int64  `json:"mtime"`
}

// ScriptRecord mirrors a configured post-install action.
type ScriptRecord struct {
	Type       config.ScriptType   `json:"type"`
	Command    string              `json:"command"`
	Args       []string            `json:"args,omitempty"`
	TimeoutSec int                 `json:"timeout_sec"`
	RunIf      config.RunCondition `json:"run_if"`
	Hidden     bool                `json:"hidden"`
	ShowInUI   bool                `json:"show_in_ui"`
	WorkingDir string              `json:"working_dir,omitempty"`
}

// HashRecord duplicates the footer's payload digest for readers that
// only understand the in-band header (legacy scan path).
type HashRecord struct {
	Algo    string `json:"algo"`
	Archive string `json:"archive"`
}

// BuildRecord carries build provenance for diagnostics and repair
// installs (spec's config_fingerprint idempotency question).
type BuildRecord struct {
	Timestamp         string `json:"timestamp"`
	BuilderVersion    string `json:"builder_version"`
	ConfigFingerprint string `json:"config_fingerprint"`
}

// StatsRecord carries build-time size accounting for inspect/logging
// display. Never consulted by verification or extraction.
type StatsRecord struct {
	OriginalSize   uint64 `json:"original_size"`
	CompressedSize uint64 `json:"compressed_size"`
	FileCount      int    `json:"file_count"`
}

// RuntimeRecord identifies the launcher flavor that produced the
// stub, carried forward for diagnostics only.
type RuntimeRecord struct {
	Type string `json:"type"`
}

// Header is the full on-disk JSON record embedded between the stub
// and the payload. Field names are stable wire identifiers; do not
// rename without a schema_version bump.
type Header struct {
	Magic         string             `json:"magic"`
	SchemaVersion int                `json:"schema_version"`
	Product       config.Product     `json:"product"`
	UI            config.UI          `json:"ui"`
	Install       config.Install     `json:"install"`
	Compression   config.Compression `json:"compression"`
	Env           config.Environment `json:"env"`
	Files         []FileRecord       `json:"files"`
	Scripts       []ScriptRecord     `json:"scripts"`
	Hash          HashRecord         `json:"hash"`
	Build         BuildRecord        `json:"build"`
	Stats         *StatsRecord       `json:"stats,omitempty"`
	Runtime       *RuntimeRecord     `json:"runtime,omitempty"`
}
