// Command inspa-build builds, inspects, and validates self-extracting
// installer containers.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/inspa-project/inspa/internal/config"
	"github.com/inspa-project/inspa/internal/container"
	"github.com/inspa-project/inspa/internal/errs"
	"github.com/inspa-project/inspa/internal/extractor"
	"github.com/inspa-project/inspa/internal/logging"
	"github.com/inspa-project/inspa/internal/resources"
)

// Exit codes per spec: 0 success, 1 user/config error, 2
// integrity/runtime error, 3 I/O error.
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

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("inspa-build %s\n", version)
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

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrBuildIO), errors.Is(err, errs.ErrExtractIO), errors.Is(err, errs.ErrCollectorIO), errors.Is(err, errs.ErrStubMissing):
		return exitIOError
	case errors.Is(err, errs.ErrIntegrityFailure), errors.Is(err, errs.ErrFooterNotFound), errors.Is(err, errs.ErrFooterInvariant), errors.Is(err, errs.ErrHeaderMalformed), errors.Is(err, errs.ErrUnsupportedSchema), errors.Is(err, errs.ErrPathEscape):
		return exitIntegrityErr
	default:
		return exitConfigError
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inspa-build",
		Short: "Build and inspect self-extracting installer containers",
	}
	root.AddCommand(buildCmd(), validateCmd(), inspectCmd(), extractCmd(), hashCmd(), guiCmd(), exampleCmd())
	return root
}

func buildCmd() *cobra.Command {
	var configPath, outputPath, stubPath, baseDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an installer per the configuration record",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if verbose {
				level = "debug"
			}
			logger := logging.New(logging.Options{Name: "inspa-build", Level: level})

			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			if baseDir == "" {
				baseDir = "."
			}
			if stubPath == "" {
				stubPath = os.Getenv("INSPA_STUB_PATH")
			}

			if err := container.Build(container.BuildOptions{
				Config:     cfg,
				BaseDir:    baseDir,
				StubPath:   stubPath,
				OutputPath: outputPath,
				Logger:     logger,
			}); err != nil {
				return err
			}

			if cfg.Resources.Icon != "" {
				if err := resources.NewPatcher().PatchIcon(outputPath, cfg.Resources, logger); err != nil {
					logger.Warn("icon patch failed", "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output installer path")
	cmd.Flags().StringVar(&stubPath, "stub", "", "path to the runtime stub executable")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "directory input paths are resolved relative to")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("output")
	return cmd
}

func validateCmd() *cobra.Command {
	var configPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			verr := cfg.Validate()
			if asJSON {
				out := struct {
					Valid bool   `json:"valid"`
					Error string `json:"error,omitempty"`
				}{Valid: verr == nil}
				if verr != nil {
					out.Error = verr.Error()
				}
				data, _ := json.MarshalIndent(out, "", "  ")
				fmt.Println(string(data))
				if verr != nil {
					return verr
				}
				return nil
			}
			if verr != nil {
				return verr
			}
			fmt.Println("configuration is valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration JSON")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable diagnostics")
	cmd.MarkFlagRequired("config")
	return cmd
}

func inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <installer>",
		Short: "Print parsed header metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Null()
			c, err := container.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer c.Close()

			if asJSON {
				data, err := json.MarshalIndent(c.Header(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			h := c.Header()
			fmt.Printf("product:  %s %s\n", h.Product.Name, h.Product.Version)
			fmt.Printf("files:    %d\n", len(h.Files))
			fmt.Printf("scripts:  %d\n", len(h.Scripts))
			fmt.Printf("algo:     %s\n", h.Compression.Algo)
			fmt.Printf("legacy:   %v\n", c.Legacy())
			fmt.Printf("built:    %s (%s)\n", h.Build.Timestamp, h.Build.BuilderVersion)
			if h.Stats != nil {
				fmt.Printf("stats:    %d files, %d -> %d bytes\n", h.Stats.FileCount, h.Stats.OriginalSize, h.Stats.CompressedSize)
			}
			if h.Runtime != nil {
				fmt.Printf("runtime:  %s\n", h.Runtime.Type)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the header as JSON")
	return cmd
}

func extractCmd() *cobra.Command {
	var targetDir string
	cmd := &cobra.Command{
		Use:   "extract <installer>",
		Short: "Extract an installer's payload without running scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Options{Name: "inspa-extract"})
			c, err := container.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Verify(); err != nil {
				return err
			}

			payload, err := c.PayloadReader()
			if err != nil {
				return err
			}
			_, size := c.PayloadRange()

			return extractor.Extract(cmd.Context(), payload, size, extractor.Options{
				Header:    c.Header(),
				TargetDir: targetDir,
				Logger:    logger,
			})
		},
	}
	cmd.Flags().StringVarP(&targetDir, "dir", "d", "", "extraction target directory")
	cmd.MarkFlagRequired("dir")
	return cmd
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <installer>",
		Short: "Print the payload SHA-256 recorded in the header's hash.archive (the footer is not read)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.Open(args[0], logging.Null())
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Println(c.Header().Hash.Archive)
			return nil
		},
	}
}

func guiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Launch the builder GUI (external collaborator, not implemented here)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("gui: not implemented in this build")
		},
	}
}

func exampleCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(config.Example(), "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(outputPath, append(data, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "inspa.json", "path to write the sample configuration")
	return cmd
}
