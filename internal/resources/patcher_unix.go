//go:build !windows

package resources

import (
	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/config"
)

type noopPatcher struct{}

func newPlatformPatcher() Patcher { return noopPatcher{} }

// PatchIcon is a no-op off Windows: there is no PE resource section
// to embed into.
func (noopPatcher) PatchIcon(exePath string, cfg config.ResourcesConfig, logger hclog.Logger) error {
	if logger != nil && cfg.Icon != "" {
		logger.Debug("skipping icon patch on non-Windows build", "icon", cfg.Icon)
	}
	return nil
}
