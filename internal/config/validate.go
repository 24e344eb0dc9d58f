package config

import (
	"fmt"
	"strings"

	"github.com/inspa-project/inspa/internal/errs"
)

// privilegedPathPrefixes are install-path prefixes (after environment
// variable substitution is ignored — we match on the raw configured
// string, same as the original schema's model_validator) that imply the
// installer needs administrator rights to write there.
var privilegedPathPrefixes = []string{
	"%programfiles%",
	"%programfiles(x86)%",
	"%windir%",
	"%systemroot%",
	"c:\\program files",
	"c:\\program files (x86)",
	"c:\\windows",
}

// Validate checks a Config for internal consistency and applies the
// admin-promotion rule from spec §3.1: an install path that resolves
// under a system-privileged location forces RequireAdmin.
//
// Validate mutates c.Install.RequireAdmin when promotion applies; all
// other fields are read-only.
func (c *Config) Validate() error {
	if !SupportedSchemaVersions[c.SchemaVersion] {
		return fmt.Errorf("%w: schema_version %d", errs.ErrUnsupportedSchema, c.SchemaVersion)
	}

	if c.Product.Name == "" {
		return fmt.Errorf("%w: product.name is required", errs.ErrConfigInvalid)
	}
	if c.Product.Version == "" {
		return fmt.Errorf("%w: product.version is required", errs.ErrConfigInvalid)
	}

	if len(c.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input is required", errs.ErrConfigInvalid)
	}

	if c.Install.DefaultPath == "" {
		return fmt.Errorf("%w: install.default_path is required", errs.ErrConfigInvalid)
	}

	if c.Install.ForceHiddenPath && c.Install.AllowUserPath {
		return fmt.Errorf("%w", errs.ErrConflictingPathFlags)
	}

	if isPrivilegedInstallPath(c.Install.DefaultPath) {
		c.Install.RequireAdmin = true
	}

	if c.Env.SystemScope {
		c.Install.RequireAdmin = true
	}

	switch c.Compression.Algo {
	case CompressionZstd:
		if c.Compression.Level < 1 || c.Compression.Level > 22 {
			return fmt.Errorf("%w: zstd compression level must be in [1,22], got %d", errs.ErrConfigInvalid, c.Compression.Level)
		}
	case CompressionZip:
		if c.Compression.Level < 1 || c.Compression.Level > 9 {
			return fmt.Errorf("%w: zip compression level must be in [1,9], got %d", errs.ErrConfigInvalid, c.Compression.Level)
		}
	default:
		return fmt.Errorf("%w: unknown compression.algo %q", errs.ErrConfigInvalid, c.Compression.Algo)
	}

	for i, action := range c.PostActions {
		switch action.Type {
		case ScriptPowerShell, ScriptBatch:
		default:
			return fmt.Errorf("%w: post_actions[%d].type %q unsupported", errs.ErrConfigInvalid, i, action.Type)
		}
		if action.Command == "" {
			return fmt.Errorf("%w: post_actions[%d].command is required", errs.ErrConfigInvalid, i)
		}
		switch action.RunIf {
		case RunAlways, RunSuccess, RunFailure, "":
		default:
			return fmt.Errorf("%w: post_actions[%d].run_if %q unsupported", errs.ErrConfigInvalid, i, action.RunIf)
		}
	}

	return nil
}

func isPrivilegedInstallPath(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range privilegedPathPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ApplyDefaults fills in the zero-value defaults the schema documents,
// mirroring the field defaults set by the original Pydantic model.
func (c *Config) ApplyDefaults() {
	if c.SchemaVersion == 0 {
		c.SchemaVersion = 1
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "github-light"
	}
	if c.Compression.Algo == "" {
		c.Compression.Algo = CompressionZstd
	}
	if c.Compression.Level == 0 {
		c.Compression.Level = 10
	}
	for i := range c.PostActions {
		if c.PostActions[i].TimeoutSec == 0 {
			c.PostActions[i].TimeoutSec = 300
		}
		if c.PostActions[i].RunIf == "" {
			c.PostActions[i].RunIf = RunAlways
		}
	}
}
