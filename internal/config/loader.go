package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawInputRoot mirrors InputRoot but with pointer bools so the decoder
// can tell "omitted" (default true, per the original schema) apart from
// "explicitly false".
type rawInputRoot struct {
	Path              string `json:"path" yaml:"path"`
	Recursive         *bool  `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	PreserveStructure *bool  `json:"preserve_structure,omitempty" yaml:"preserve_structure,omitempty"`
}

func (r rawInputRoot) resolve() InputRoot {
	recursive := true
	if r.Recursive != nil {
		recursive = *r.Recursive
	}
	preserve := true
	if r.PreserveStructure != nil {
		preserve = *r.PreserveStructure
	}
	return InputRoot{Path: r.Path, Recursive: recursive, PreserveStructure: preserve}
}

// rawConfig decodes the wire document before InputRoot defaults are
// resolved; every other field defaults through zero values plus
// ApplyDefaults.
type rawConfig struct {
	Config
	Inputs []rawInputRoot `json:"inputs" yaml:"inputs"`
}

func finish(raw rawConfig) *Config {
	cfg := raw.Config
	cfg.Inputs = make([]InputRoot, len(raw.Inputs))
	for i, in := range raw.Inputs {
		cfg.Inputs[i] = in.resolve()
	}
	cfg.ApplyDefaults()
	return &cfg
}

// Load decodes a JSON configuration document, applies defaults, and
// returns it unvalidated — callers must still call Validate.
func Load(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode json config: %w", err)
	}
	return finish(raw), nil
}

// LoadFile reads and decodes a JSON configuration file from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}

// LoadYAML decodes a YAML configuration document into the same typed
// Config the JSON path produces. This is the seam the external YAML
// authoring front end (out of scope for the core, per spec §1) would
// call after its own schema validation.
func LoadYAML(data []byte) (*Config, error) {
	// yaml.v3 does not inline rawConfig's embedded Config, so the record
	// and its inputs are decoded in two passes.
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw.Config); err != nil {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}
	var inputs struct {
		Inputs []rawInputRoot `yaml:"inputs"`
	}
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}
	raw.Inputs = inputs.Inputs
	return finish(raw), nil
}

// LoadYAMLFile reads and decodes a YAML configuration file from disk.
func LoadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadYAML(data)
}

// Example returns a fully populated, valid sample configuration
// suitable for writing out via the `example` CLI command as a
// starting point for a real build.
func Example() *Config {
	cfg := &Config{
		SchemaVersion: 1,
		Product: Product{
			Name:        "Sample Application",
			Version:     "1.0.0",
			Company:     "Example Corp",
			Description: "A sample application installer",
		},
		UI: UI{
			WindowTitle:     "Sample Application Setup",
			WelcomeHeading:  "Welcome to Sample Application Setup",
			WelcomeSubtitle: "This wizard will guide you through installation.",
		},
		Install: Install{
			DefaultPath:   `%LOCALAPPDATA%\SampleApplication`,
			AllowUserPath: true,
			SilentAllowed: true,
		},
		Compression: Compression{
			Algo:          CompressionZstd,
			Level:         9,
			FallbackToZip: true,
		},
		Inputs: []InputRoot{
			{Path: "./dist", Recursive: true, PreserveStructure: true},
		},
		Exclude: []string{"**/*.pdb", "**/*.log"},
		PostActions: []PostAction{
			{
				Type:       ScriptPowerShell,
				Command:    "install\\register.ps1",
				TimeoutSec: 60,
				RunIf:      RunSuccess,
				Hidden:     true,
				ShowInUI:   false,
			},
		},
		Env: Environment{
			AddPath: []string{`%INSTALL_DIR%\bin`},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Fingerprint computes the SHA-256 fingerprint of the fields that affect
// the built installer's contents, matching the config_fingerprint field
// of the header's build info (spec §3.4).
func (c *Config) Fingerprint() string {
	type fingerprintDoc struct {
		SchemaVersion int             `json:"schema_version"`
		Product       Product         `json:"product"`
		UI            UI              `json:"ui"`
		Install       Install         `json:"install"`
		Inputs        []InputRoot     `json:"inputs"`
		Exclude       []string        `json:"exclude"`
		Compression   Compression     `json:"compression"`
		PostActions   []PostAction    `json:"post_actions"`
		Env           Environment     `json:"env"`
		Resources     ResourcesConfig `json:"resources"`
	}
	doc := fingerprintDoc{
		SchemaVersion: c.SchemaVersion,
		Product:       c.Product,
		UI:            c.UI,
		Install:       c.Install,
		Inputs:        c.Inputs,
		Exclude:       c.Exclude,
		Compression:   c.Compression,
		PostActions:   c.PostActions,
		Env:           c.Env,
		Resources:     c.Resources,
	}
	data, _ := json.Marshal(doc)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
