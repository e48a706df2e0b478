// Package config loads chatpane's TOML configuration file and translates it
// into the option types the rest of the program consumes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rkowalczyk/chatpane/internal/filter"
	"github.com/rkowalczyk/chatpane/internal/surface"
)

// Duration wraps time.Duration so intervals decode from strings like "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ReplaceRule is one entry of the outgoing word-replacement table. Rules
// apply in file order.
type ReplaceRule struct {
	Old string `toml:"old"`
	New string `toml:"new"`
}

// Config is the full recognized option surface.
type Config struct {
	KeySource        string        `toml:"api_key_source"`
	Model            string        `toml:"model"`
	Timestamps       bool          `toml:"timestamps"`
	UserName         string        `toml:"user_name"`
	ModelName        string        `toml:"model_name"`
	Marker           string        `toml:"marker"`
	PromptSuffix     string        `toml:"prompt_suffix"`
	HeaderTemplate   string        `toml:"header_template"`
	LogDir           string        `toml:"log_dir"`
	Autosave         bool          `toml:"autosave"`
	AutosaveInterval Duration      `toml:"autosave_interval"`
	Replace          []ReplaceRule `toml:"replace"`
}

// Default returns the shipped defaults. LogDir is left empty; the command
// wiring falls back to a per-user location.
func Default() Config {
	return Config{
		KeySource:        "GEMINI_API_KEY",
		Model:            "gemini-2.0-flash",
		UserName:         "You",
		ModelName:        "Gemini",
		Marker:           "## ",
		PromptSuffix:     ":",
		HeaderTemplate:   "<TIMESTAMP><MARKER><ROLENAME><ROLEPROMPT>",
		AutosaveInterval: Duration{5 * time.Minute},
	}
}

// Load reads a TOML file over the defaults. The caller decides how to treat
// a missing file (os.IsNotExist on the returned error).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Format maps the role-header options onto a surface format.
func (c Config) Format() surface.Format {
	return surface.Format{
		Template:     c.HeaderTemplate,
		Marker:       c.Marker,
		UserName:     c.UserName,
		ModelName:    c.ModelName,
		PromptSuffix: c.PromptSuffix,
		Timestamps:   c.Timestamps,
	}
}

// Rules maps the replacement table onto filter rules, preserving order.
func (c Config) Rules() []filter.Rule {
	rules := make([]filter.Rule, 0, len(c.Replace))
	for _, r := range c.Replace {
		if r.Old == "" {
			continue
		}
		rules = append(rules, filter.Rule{Old: r.Old, New: r.New})
	}
	return rules
}
