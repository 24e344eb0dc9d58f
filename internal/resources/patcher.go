// Package resources patches build-time resources (currently: the
// application icon) into the produced stub executable. This runs
// after the container writer has produced the installer, since
// resource embedding operates on a PE file, not on the appended
// container bytes.
package resources

import (
	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/config"
)

// Patcher embeds configured resources into a built executable.
type Patcher interface {
	PatchIcon(exePath string, cfg config.ResourcesConfig, logger hclog.Logger) error
}

// NewPatcher returns the platform resource patcher. Off Windows, PE
// resource sections don't exist; PatchIcon is a documented no-op so
// callers can invoke it unconditionally.
func NewPatcher() Patcher {
	return newPlatformPatcher()
}
