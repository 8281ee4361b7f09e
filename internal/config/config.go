// Package config loads the command line tool's TOML configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/qnighy/minibuf/internal/logging"
)

// Output formats for decoded messages.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the resolved configuration.
type Config struct {
	// ProtoDirs are searched for imports.
	ProtoDirs []string
	// Files are loaded at startup; each may be a .proto file or a directory.
	Files  []string
	Format string
	Log    logging.Config
}

type fileConfig struct {
	ProtoDirs []string       `toml:"proto_dirs"`
	Files     []string       `toml:"files"`
	Format    string         `toml:"format"`
	Log       logging.Config `toml:"log"`
}

func Default() Config {
	return Config{
		ProtoDirs: []string{"."},
		Format:    FormatJSON,
		Log:       logging.DefaultConfig(),
	}
}

// Load reads path over the defaults. Keys the file leaves out keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("proto_dirs") {
		cfg.ProtoDirs = normalizeList(raw.ProtoDirs)
	}
	if meta.IsDefined("files") {
		cfg.Files = normalizeList(raw.Files)
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.ToLower(strings.TrimSpace(raw.Format))
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = raw.Log.Format
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	return cfg, nil
}

// Validate checks the values a file or flags may have set.
func (c Config) Validate() error {
	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	if len(c.ProtoDirs) == 0 {
		return fmt.Errorf("proto_dirs must not be empty")
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
