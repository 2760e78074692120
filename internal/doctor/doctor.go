// Package doctor runs readiness diagnostics for config, credentials, audio, and the NLS gateway.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
	"github.com/rbright/nlsstream/internal/config"
)

// gatewayDialTimeout bounds the TCP reachability probe.
const gatewayDialTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

type probes struct {
	listDevices func(context.Context) ([]audio.Device, error)
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
}

// Run executes config, credential, audio and gateway checks for a loaded config.
func Run(cfg config.Loaded) Report {
	dialer := net.Dialer{Timeout: gatewayDialTimeout}
	return run(cfg, probes{listDevices: audio.ListDevices, dial: dialer.DialContext})
}

func run(cfg config.Loaded, p probes) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkToken(cfg.Config), checkAppKey(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config, p.listDevices))
	checks = append(checks, checkGateway(cfg.Config, p.dial))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	if len(cfg.EnvSources) > 0 {
		message += fmt.Sprintf("; credentials from %s", strings.Join(cfg.EnvSources, ", "))
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkToken(cfg config.Config) Check {
	if strings.TrimSpace(cfg.NLS.Token) == "" {
		return Check{Name: "nls.token", Pass: false, Message: fmt.Sprintf("not set; export %s or add it to .env", config.EnvToken)}
	}
	return Check{Name: "nls.token", Pass: true, Message: config.Redact(cfg.NLS.Token)}
}

func checkAppKey(cfg config.Config) Check {
	if strings.TrimSpace(cfg.NLS.AppKey) == "" {
		return Check{Name: "nls.appkey", Pass: false, Message: fmt.Sprintf("not set; export %s or add it to .env", config.EnvAppKey)}
	}
	return Check{Name: "nls.appkey", Pass: true, Message: cfg.NLS.AppKey}
}

// checkAudioSelection runs live device selection so doctor reports the device listen would use.
func checkAudioSelection(cfg config.Config, list func(context.Context) ([]audio.Device, error)) Check {
	devices, err := list(context.Background())
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	device, err := audio.SelectInput(devices, cfg.Audio.Input)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: fmt.Sprintf("%v (input=%q, %d devices)", err, cfg.Audio.Input, len(devices))}
	}
	return Check{
		Name:    "audio.device",
		Pass:    true,
		Message: fmt.Sprintf("selected %q (%s, %d input channels)", device.ID, device.Description, device.InputChannels),
	}
}

// checkGateway opens and closes a TCP connection to the gateway host.
func checkGateway(cfg config.Config, dial func(context.Context, string, string) (net.Conn, error)) Check {
	address, err := gatewayAddress(cfg.NLS.URL)
	if err != nil {
		return Check{Name: "nls.gateway", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayDialTimeout)
	defer cancel()

	conn, err := dial(ctx, "tcp", address)
	if err != nil {
		return Check{Name: "nls.gateway", Pass: false, Message: fmt.Sprintf("dial %s failed: %v", address, err)}
	}
	_ = conn.Close()
	return Check{Name: "nls.gateway", Pass: true, Message: fmt.Sprintf("reachable at %s", address)}
}

func gatewayAddress(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("gateway url %q has no host", raw)
	}
	port := parsed.Port()
	if port == "" {
		port = "443"
		if parsed.Scheme == "ws" {
			port = "80"
		}
	}
	return net.JoinHostPort(parsed.Hostname(), port), nil
}
