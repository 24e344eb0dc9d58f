// Package envmutate applies PATH and persistent variable edits after
// a successful extraction, per a defined scope/permission contract.
package envmutate

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/errs"
)

// Store abstracts the platform's persistent environment mechanism
// (Windows registry, or a test fake). Real changes only take effect
// for new processes; the current process's os.Environ is not mutated.
type Store interface {
	// GetPath returns the current persistent PATH value for the given
	// scope ("" if unset).
	GetPath(systemScope bool) (string, error)
	// SetPath overwrites the persistent PATH value for the given scope.
	SetPath(systemScope bool, value string) error
	// SetVar writes a single persistent name=value pair for the given
	// scope.
	SetVar(systemScope bool, name, value string) error
}

// Result reports the outcome of one mutation for logging/UI display.
type Result struct {
	Kind    string // "add_path" or "set"
	Key     string
	Applied bool
	Err     error
}

// Apply applies env.add_path and env.set from cfg against store,
// substituting build-time placeholders in values first. Individual
// failures (including privilege denial) are reported as warnings in
// the returned slice rather than aborting.
func Apply(cfg config.Environment, installDir string, store Store, logger hclog.Logger) []Result {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var results []Result

	for _, entry := range cfg.AddPath {
		entry = substitutePlaceholders(entry, installDir)
		res := applyAddPath(store, cfg.SystemScope, entry, logger)
		results = append(results, res)
	}

	for name, value := range cfg.Set {
		value = substitutePlaceholders(value, installDir)
		res := applySet(store, cfg.SystemScope, name, value, logger)
		results = append(results, res)
	}

	return results
}

func applyAddPath(store Store, systemScope bool, dir string, logger hclog.Logger) Result {
	current, err := store.GetPath(systemScope)
	if err != nil {
		logger.Warn("could not read persistent PATH", "scope", scopeName(systemScope), "error", err)
		return Result{Kind: "add_path", Key: dir, Err: fmt.Errorf("%w: %v", errs.ErrEnvScopeDenied, err)}
	}

	if containsPathEntry(current, dir) {
		logger.Debug("PATH already contains entry", "dir", dir)
		return Result{Kind: "add_path", Key: dir, Applied: true}
	}

	updated := current
	if updated != "" && !strings.HasSuffix(updated, string(os.PathListSeparator)) {
		updated += string(os.PathListSeparator)
	}
	updated += dir

	if err := store.SetPath(systemScope, updated); err != nil {
		logger.Warn("failed to update persistent PATH", "scope", scopeName(systemScope), "error", err)
		return Result{Kind: "add_path", Key: dir, Err: fmt.Errorf("%w: %v", errs.ErrEnvScopeDenied, err)}
	}

	logger.Info("added PATH entry", "dir", dir, "scope", scopeName(systemScope))
	return Result{Kind: "add_path", Key: dir, Applied: true}
}

func applySet(store Store, systemScope bool, name, value string, logger hclog.Logger) Result {
	if err := store.SetVar(systemScope, name, value); err != nil {
		logger.Warn("failed to set environment variable", "name", name, "scope", scopeName(systemScope), "error", err)
		return Result{Kind: "set", Key: name, Err: fmt.Errorf("%w: %v", errs.ErrEnvScopeDenied, err)}
	}
	logger.Info("set environment variable", "name", name, "scope", scopeName(systemScope))
	return Result{Kind: "set", Key: name, Applied: true}
}

// containsPathEntry reports whether dir already appears in current
// (case-insensitively, matching Windows PATH semantics) when split
// on the platform list separator.
func containsPathEntry(current, dir string) bool {
	for _, seg := range strings.Split(current, string(os.PathListSeparator)) {
		if strings.EqualFold(strings.TrimRight(seg, `\/`), strings.TrimRight(dir, `\/`)) {
			return true
		}
	}
	return false
}

// substitutePlaceholders resolves %INSTALL_DIR%-style build-time
// tokens against the resolved install directory.
func substitutePlaceholders(value, installDir string) string {
	return strings.ReplaceAll(value, "%INSTALL_DIR%", installDir)
}

func scopeName(systemScope bool) string {
	if systemScope {
		return "system"
	}
	return "user"
}
