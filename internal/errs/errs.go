// Package errs collects the sentinel error values shared across the
// builder and runtime pipelines. Call sites wrap these with fmt.Errorf's
// %w verb to add context; callers that need to branch on error kind
// compare against these sentinels with errors.Is.
package errs

import "errors"

var (
	// Configuration errors.
	ErrConfigInvalid        = errors.New("configuration invalid")
	ErrUnsupportedSchema    = errors.New("unsupported configuration schema version")
	ErrConflictingPathFlags = errors.New("force_hidden_path and allow_user_path cannot both be true")

	// File Collector errors.
	ErrDuplicateLogicalPath = errors.New("duplicate logical path in manifest")
	ErrCollectorIO          = errors.New("file collector I/O error")
	ErrSymlinkCycle         = errors.New("symlink cycle detected")
	ErrSymlinkEscapesRoot   = errors.New("symlink target escapes declared input root")

	// Compression errors.
	ErrCompressionInit  = errors.New("compressor initialization failed")
	ErrCompressionWrite = errors.New("compressor write failed")
	ErrSizeMismatch     = errors.New("file size does not match manifest")

	// Build errors.
	ErrStubMissing = errors.New("runtime stub binary not found")
	ErrBuildIO     = errors.New("builder I/O error")

	// Footer/header errors.
	ErrFooterNotFound     = errors.New("footer not found")
	ErrInvalidMagic       = errors.New("invalid container magic")
	ErrInvalidFooterSize  = errors.New("invalid footer size")
	ErrHeaderMalformed    = errors.New("header malformed")
	ErrFooterInvariant    = errors.New("footer offsets violate container invariants")
	ErrIntegrityFailure   = errors.New("payload integrity check failed")
	ErrLegacyScanNotFound = errors.New("legacy header magic not found during fallback scan")
	ErrHashPlaceholderNotFound = errors.New("hash.archive placeholder not found in header")

	// Extraction errors.
	ErrPathEscape    = errors.New("extracted path escapes target directory")
	ErrExtractIO     = errors.New("extraction I/O error")
	ErrTrailingBytes = errors.New("trailing bytes after payload decode")

	// Script errors.
	ErrScriptTimedOut = errors.New("script timed out")
	ErrScriptFailed   = errors.New("script exited with non-zero status")

	// Environment errors.
	ErrEnvScopeDenied = errors.New("insufficient privilege for requested environment scope")

	// Cancellation.
	ErrCancelled = errors.New("operation cancelled")
)
