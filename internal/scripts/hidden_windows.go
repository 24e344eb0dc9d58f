//go:build windows

package scripts

import (
	"os/exec"
	"syscall"
)

// configureHidden suppresses the console window a spawned interpreter
// would otherwise flash open, matching an installer's expectation
// that post-install scripts run invisibly unless hidden is false.
func configureHidden(cmd *exec.Cmd, hidden bool) {
	if !hidden {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
