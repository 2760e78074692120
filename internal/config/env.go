package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file credentials.
const (
	EnvURL    = "NLS_URL"
	EnvToken  = "NLS_TOKEN"
	EnvAppKey = "NLS_APPKEY"
)

// ApplyEnv overlays credentials from the dotenv file at path and then the
// process environment. A missing dotenv file is not an error. It reports
// which sources contributed.
func ApplyEnv(cfg Config, path string) (Config, []string, error) {
	values := map[string]string{}
	sources := make([]string, 0, 2)

	if strings.TrimSpace(path) != "" {
		fromFile, err := godotenv.Read(path)
		switch {
		case err == nil:
			values = fromFile
			sources = append(sources, path)
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, nil, fmt.Errorf("read env file %q: %w", path, err)
		}
	}

	fromProcess := false
	for _, key := range []string{EnvURL, EnvToken, EnvAppKey} {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			values[key] = value
			fromProcess = true
		}
	}
	if fromProcess {
		sources = append(sources, "environment")
	}

	if v := strings.TrimSpace(values[EnvURL]); v != "" {
		cfg.NLS.URL = v
	}
	if v := strings.TrimSpace(values[EnvToken]); v != "" {
		cfg.NLS.Token = v
	}
	if v := strings.TrimSpace(values[EnvAppKey]); v != "" {
		cfg.NLS.AppKey = v
	}
	return cfg, sources, nil
}
