// Package scripts sequences post-install actions declared in the
// header: interpreter selection, timeout enforcement, output capture,
// and run_if ordering semantics.
package scripts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/container"
	"github.com/inspa-project/inspa/internal/errs"
)

// Result records the outcome of a single action for run_if
// evaluation and reporting.
type Result struct {
	Action   container.ScriptRecord
	ExitCode int
	Err      error
	Duration time.Duration
}

// Runner sequences a header's post-install actions in declaration
// order, evaluating each action's run_if against the accumulated
// results of all prior actions.
type Runner struct {
	WorkingDir string
	Logger     hclog.Logger
	Progress   chan<- container.ProgressEvent
}

// RunAll executes every action in order and returns per-action
// results. It stops early only on cancellation; a failed action does
// not halt the sequence, since later actions may declare run_if to
// react to that failure.
func (r *Runner) RunAll(ctx context.Context, actions []container.ScriptRecord) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var results []Result
	anyFailed := false

	for _, action := range actions {
		if ctx.Err() != nil {
			return results, fmt.Errorf("%w: %v", errs.ErrCancelled, ctx.Err())
		}

		if !shouldRun(action.RunIf, anyFailed) {
			logger.Debug("skipping action", "command", action.Command, "run_if", action.RunIf)
			continue
		}

		res := r.runOne(ctx, action)
		results = append(results, res)
		if res.Err != nil {
			anyFailed = true
			logger.Warn("post-install action failed", "command", action.Command, "error", res.Err)
		} else {
			logger.Info("post-install action completed", "command", action.Command, "duration", res.Duration)
		}
	}

	return results, nil
}

// shouldRun implements run_if semantics: "always" unconditionally,
// "success" only if nothing prior failed, "failure" if any prior
// action in the sequence failed.
func shouldRun(cond config.RunCondition, anyPriorFailed bool) bool {
	switch cond {
	case config.RunSuccess, "":
		return !anyPriorFailed
	case config.RunFailure:
		return anyPriorFailed
	default: // config.RunAlways
		return true
	}
}

func (r *Runner) runOne(ctx context.Context, action container.ScriptRecord) Result {
	start := timeNow()

	timeout := time.Duration(action.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd, err := buildCommand(runCtx, action, r.WorkingDir)
	if err != nil {
		return Result{Action: action, Err: err, Duration: timeNow().Sub(start)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Action: action, Err: fmt.Errorf("%w: stdout pipe: %v", errs.ErrScriptFailed, err), Duration: timeNow().Sub(start)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Action: action, Err: fmt.Errorf("%w: stderr pipe: %v", errs.ErrScriptFailed, err), Duration: timeNow().Sub(start)}
	}

	if err := cmd.Start(); err != nil {
		return Result{Action: action, Err: fmt.Errorf("%w: start: %v", errs.ErrScriptFailed, err), Duration: timeNow().Sub(start)}
	}

	done := make(chan struct{})
	go r.pipeLines(action, stdout, done)
	go r.pipeLines(action, stderr, done)
	<-done
	<-done

	waitErr := cmd.Wait()
	duration := timeNow().Sub(start)

	if runCtx.Err() != nil {
		return Result{Action: action, Err: fmt.Errorf("%w: %v", errs.ErrScriptTimedOut, runCtx.Err()), Duration: duration}
	}
	if waitErr != nil {
		exitCode := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return Result{Action: action, ExitCode: exitCode, Err: fmt.Errorf("%w: %v", errs.ErrScriptFailed, waitErr), Duration: duration}
	}
	return Result{Action: action, Duration: duration}
}

// pipeLines forwards a subprocess stream line-by-line to the logger
// (always) and to the progress sink (only when show_in_ui is set).
func (r *Runner) pipeLines(action container.ScriptRecord, rc io.ReadCloser, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := scanner.Text()
		if r.Logger != nil {
			r.Logger.Debug("script output", "command", action.Command, "line", line)
		}
		if action.ShowInUI && r.Progress != nil {
			select {
			case r.Progress <- container.ProgressEvent{Phase: "running-scripts", LogLine: line}:
			default:
			}
		}
	}
}

// buildCommand selects the interpreter (PowerShell or batch) and
// configures the working directory and hidden-console attribute. ctx
// is expected to already carry the per-action timeout.
func buildCommand(ctx context.Context, action container.ScriptRecord, workingDir string) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch action.Type {
	case config.ScriptPowerShell:
		args := append([]string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", action.Command}, action.Args...)
		cmd = exec.CommandContext(ctx, "powershell.exe", args...)
	case config.ScriptBatch:
		args := append([]string{"/C", action.Command}, action.Args...)
		cmd = exec.CommandContext(ctx, "cmd.exe", args...)
	default:
		return nil, fmt.Errorf("%w: unknown script type %q", errs.ErrScriptFailed, action.Type)
	}

	wd := workingDir
	if action.WorkingDir != "" {
		wd = action.WorkingDir
	}
	cmd.Dir = wd
	configureHidden(cmd, action.Hidden)
	return cmd, nil
}

var timeNow = time.Now
