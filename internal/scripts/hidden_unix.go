//go:build !windows

package scripts

import "os/exec"

// configureHidden is a no-op outside Windows; there is no console
// window to suppress.
func configureHidden(cmd *exec.Cmd, hidden bool) {}
