package scripts

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/container"
)

func skipOnNonWindowsInterpreter(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "windows" {
		t.Skip("post-install actions invoke powershell.exe/cmd.exe, Windows-only")
	}
}

func TestShouldRunSemantics(t *testing.T) {
	require.True(t, shouldRun(config.RunAlways, false))
	require.True(t, shouldRun(config.RunAlways, true))
	require.True(t, shouldRun(config.RunSuccess, false))
	require.False(t, shouldRun(config.RunSuccess, true))
	require.False(t, shouldRun(config.RunFailure, false))
	require.True(t, shouldRun(config.RunFailure, true))
	require.True(t, shouldRun("", false), "empty run_if defaults to success semantics")
}

func TestRunAllSkipsBasedOnRunIf(t *testing.T) {
	skipOnNonWindowsInterpreter(t)

	actions := []container.ScriptRecord{
		{Type: config.ScriptBatch, Command: "exit 1", RunIf: config.RunAlways, TimeoutSec: 5},
		{Type: config.ScriptBatch, Command: "exit 0", RunIf: config.RunSuccess, TimeoutSec: 5},
		{Type: config.ScriptBatch, Command: "exit 0", RunIf: config.RunFailure, TimeoutSec: 5},
	}

	r := &Runner{WorkingDir: t.TempDir()}
	results, err := r.RunAll(context.Background(), actions)
	require.NoError(t, err)
	// action[0] fails, action[1] (run_if success) is skipped, action[2]
	// (run_if failure) runs because a prior action failed.
	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
}

func TestRunOneRespectsTimeout(t *testing.T) {
	skipOnNonWindowsInterpreter(t)

	r := &Runner{WorkingDir: t.TempDir()}
	action := container.ScriptRecord{
		Type:       config.ScriptBatch,
		Command:    "ping -n 30 127.0.0.1 >nul",
		TimeoutSec: 1,
	}
	res := r.runOne(context.Background(), action)
	require.Error(t, res.Err)
	require.Less(t, res.Duration, 5*time.Second)
}

func TestBuildCommandRejectsUnknownType(t *testing.T) {
	_, err := buildCommand(context.Background(), container.ScriptRecord{Type: "lua"}, ".")
	require.Error(t, err)
}
