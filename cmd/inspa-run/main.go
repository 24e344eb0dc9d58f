// Command inspa-run is the runtime installer entry point appended to
// a self-extracting installer's stub. It self-locates its own
// container, verifies and extracts the payload, runs post-install
// scripts, and applies environment edits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/inspa-project/inspa/internal/container"
	"github.com/inspa-project/inspa/internal/envmutate"
	"github.com/inspa-project/inspa/internal/errs"
	"github.com/inspa-project/inspa/internal/extractor"
	"github.com/inspa-project/inspa/internal/logging"
	"github.com/inspa-project/inspa/internal/scripts"
)

// Exit codes mirror inspa-build's taxonomy so wrapper tooling can
// treat both entry points uniformly.
const (
	exitSuccess      = 0
	exitConfigError  = 1
	exitIntegrityErr = 2
	exitIOError      = 3
)

var version = "dev"

func buildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// options captures the hand-parsed installer-convention flags. Unlike
// inspa-build, the runtime does not use cobra: `/S` is a Windows
// installer convention, not a `--flag`, and the well-known
// `--version`/`-V` short-circuit must run before any flag framework
// gets a chance to misinterpret it.
type options struct {
	silent bool
}

func parseArgs(args []string) options {
	var opts options
	for _, a := range args {
		if a == "/S" || a == "/s" {
			opts.silent = true
		}
	}
	return opts
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("inspa-run %s\n", version)
		fmt.Printf("Built: %s\n", buildTimestamp())
		os.Exit(exitSuccess)
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			debug.PrintStack()
			os.Exit(exitIntegrityErr)
		}
	}()

	os.Exit(run(parseArgs(os.Args[1:])))
}

func run(opts options) int {
	logOutput, closeLog := openInstallLog()
	defer closeLog()
	logger := logging.New(logging.Options{Name: "inspa-run", Prefix: "[install] ", Output: logOutput})

	exePath, err := os.Executable()
	if err != nil {
		logger.Error("failed to resolve own executable path", "error", err)
		return exitIOError
	}

	c, err := container.Open(exePath, logger)
	if err != nil {
		logger.Error("failed to locate installer container", "error", err)
		return exitIntegrityErr
	}
	defer c.Close()

	header := c.Header()

	if err := c.Verify(); err != nil {
		logger.Error("payload integrity check failed", "error", err)
		return exitIntegrityErr
	}

	if opts.silent && !header.Install.SilentAllowed {
		logger.Error("silent installation is not permitted by this installer")
		return exitConfigError
	}
	if !opts.silent {
		logger.Warn("interactive GUI is not implemented in this build; proceeding as if /S were given")
	}

	targetDir := expandPercentVars(header.Install.DefaultPath)

	ctx := context.Background()
	var cancelled atomic.Bool

	payload, err := c.PayloadReader()
	if err != nil {
		logger.Error("failed to open payload reader", "error", err)
		return exitIOError
	}
	_, payloadSize := c.PayloadRange()

	progress := make(chan container.ProgressEvent, 64)
	go drainProgress(progress, logger)

	if err := extractor.Extract(ctx, payload, payloadSize, extractor.Options{
		Header:    header,
		TargetDir: targetDir,
		Logger:    logger,
		Cancelled: &cancelled,
		Progress:  progress,
	}); err != nil {
		close(progress)
		logger.Error("extraction failed", "error", err)
		if isPathEscape(err) {
			return exitIntegrityErr
		}
		return exitIOError
	}

	runner := &scripts.Runner{WorkingDir: targetDir, Logger: logger, Progress: progress}
	if _, err := runner.RunAll(ctx, header.Scripts); err != nil {
		close(progress)
		logger.Error("post-install script sequence aborted", "error", err)
		return exitIntegrityErr
	}

	store := envmutate.NewStore()
	envmutate.Apply(header.Env, targetDir, store, logger)

	close(progress)
	logger.Info("installation complete", "target", targetDir)
	return exitSuccess
}

func drainProgress(ch <-chan container.ProgressEvent, logger hclog.Logger) {
	for ev := range ch {
		if ev.LogLine != "" {
			logger.Debug("progress", "phase", ev.Phase, "line", ev.LogLine)
		}
	}
}

func isPathEscape(err error) bool {
	return errors.Is(err, errs.ErrPathEscape)
}

// openInstallLog opens the persisted install.log this run appends to,
// echoing to stderr as well so interactive runs still see progress.
// The log is a default, not opt-in: every run persists one, mirroring
// the original runtime stub's `Path.cwd() / "install.log"` default,
// falling back to the platform's temp area if the working directory
// is not writable. Returns a no-op closer if neither location can be
// opened, in which case logging falls back to stderr alone.
func openInstallLog() (io.Writer, func()) {
	candidates := []string{filepath.Join(os.TempDir(), "install.log")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "install.log")}, candidates...)
	}
	for _, path := range candidates {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			return io.MultiWriter(os.Stderr, f), func() { f.Close() }
		}
	}
	return os.Stderr, func() {}
}

// expandPercentVars resolves Windows-style %VAR% references against
// the process environment, the convention install.default_path is
// authored in (e.g. %LOCALAPPDATA%\MyApp).
func expandPercentVars(path string) string {
	var out []byte
	for i := 0; i < len(path); {
		if path[i] == '%' {
			if end := strings.IndexByte(path[i+1:], '%'); end >= 0 {
				name := path[i+1 : i+1+end]
				out = append(out, os.Getenv(name)...)
				i += end + 2
				continue
			}
		}
		out = append(out, path[i])
		i++
	}
	return string(out)
}
