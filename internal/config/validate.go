package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MinStopGrace is the shortest stop grace period the session accepts.
const MinStopGrace = 500 * time.Millisecond

// ErrMissingCredentials is returned by RequireCredentials.
var ErrMissingCredentials = errors.New("missing NLS credentials")

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	rawURL := strings.TrimSpace(cfg.NLS.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("nls.url must not be empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("nls.url is invalid: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("nls.url must use ws or wss scheme")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("nls.url must include a host")
	}
	if parsed.Scheme == "ws" {
		warnings = append(warnings, Warning{Message: "nls.url uses an unencrypted ws scheme; the token is sent in clear text"})
	}

	if cfg.Recognition.SampleRate != 16000 {
		return nil, fmt.Errorf("recognition.sample_rate must be 16000")
	}
	if cfg.Session.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("session.connect_timeout must be > 0")
	}
	if cfg.Session.PollInterval <= 0 {
		return nil, fmt.Errorf("session.poll_interval must be > 0")
	}
	if cfg.Session.StopGrace < MinStopGrace {
		return nil, fmt.Errorf("session.stop_grace must be >= %s", MinStopGrace)
	}
	if strings.TrimSpace(cfg.Audio.Input) == "" {
		warnings = append(warnings, Warning{Message: `audio.input is empty; using "first"`})
	}

	if strings.TrimSpace(cfg.NLS.Token) == "" {
		warnings = append(warnings, Warning{Message: "nls token is not set (NLS_TOKEN)"})
	}
	if strings.TrimSpace(cfg.NLS.AppKey) == "" {
		warnings = append(warnings, Warning{Message: "nls appkey is not set (NLS_APPKEY)"})
	}

	return warnings, nil
}

// RequireCredentials reports which credentials are missing for a live session.
func (c Config) RequireCredentials() error {
	missing := make([]string, 0, 2)
	if strings.TrimSpace(c.NLS.Token) == "" {
		missing = append(missing, EnvToken)
	}
	if strings.TrimSpace(c.NLS.AppKey) == "" {
		missing = append(missing, EnvAppKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Redact renders a secret for display: first 4 and last 4 characters, or
// "***" for values shorter than 12.
func Redact(secret string) string {
	runes := []rune(strings.TrimSpace(secret))
	if len(runes) == 0 {
		return "(unset)"
	}
	if len(runes) < 12 {
		return "***"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}
