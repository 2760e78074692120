package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path       string
	Config     Config
	Warnings   []Warning
	Exists     bool
	EnvSources []string
}

// Load resolves and parses the runtime configuration, overlays credentials
// from envPath and the process environment, then validates.
func Load(explicitPath, envPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		cfg, warnings, err := decode(string(content), Default())
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	case errors.Is(err, os.ErrNotExist):
		loaded.Config = Default()
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, sources, err := ApplyEnv(loaded.Config, ResolveEnvPath(envPath))
	if err != nil {
		return Loaded{}, err
	}
	warnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("config %q: %w", resolvedPath, err)
	}
	loaded.Config = cfg
	loaded.EnvSources = sources
	loaded.Warnings = append(loaded.Warnings, warnings...)
	return loaded, nil
}
