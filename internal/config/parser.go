package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	NLS struct {
		URL    *string `toml:"url"`
		Token  *string `toml:"token"`
		AppKey *string `toml:"appkey"`
	} `toml:"nls"`
	Audio struct {
		Input *string `toml:"input"`
		Cues  *bool   `toml:"cues"`
	} `toml:"audio"`
	Recognition struct {
		SampleRate               *int  `toml:"sample_rate"`
		IntermediateResult       *bool `toml:"intermediate_result"`
		PunctuationPrediction    *bool `toml:"punctuation_prediction"`
		InverseTextNormalization *bool `toml:"inverse_text_normalization"`
	} `toml:"recognition"`
	Session struct {
		ConnectTimeout *string `toml:"connect_timeout"`
		StopGrace      *string `toml:"stop_grace"`
		PollInterval   *string `toml:"poll_interval"`
	} `toml:"session"`
	Debug struct {
		AudioDump *bool `toml:"audio_dump"`
		EventDump *bool `toml:"event_dump"`
		Verbose   *bool `toml:"verbose"`
	} `toml:"debug"`
}

// Parse decodes TOML content over base, then validates the result.
// Keys absent from content keep their base value; unknown keys become warnings.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

func decode(content string, base Config) (Config, []Warning, error) {
	warnings := make([]Warning, 0)
	if strings.TrimSpace(content) == "" {
		return base, warnings, nil
	}

	var file fileConfig
	md, err := toml.Decode(content, &file)
	if err != nil {
		return Config{}, nil, err
	}

	for _, key := range md.Undecoded() {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown config key %q", key.String())})
	}

	cfg := base
	setString(&cfg.NLS.URL, file.NLS.URL)
	setString(&cfg.NLS.Token, file.NLS.Token)
	setString(&cfg.NLS.AppKey, file.NLS.AppKey)
	setString(&cfg.Audio.Input, file.Audio.Input)
	setBool(&cfg.Audio.Cues, file.Audio.Cues)

	if file.Recognition.SampleRate != nil {
		cfg.Recognition.SampleRate = *file.Recognition.SampleRate
	}
	for _, fixed := range []struct {
		key   string
		value *bool
	}{
		{"recognition.intermediate_result", file.Recognition.IntermediateResult},
		{"recognition.punctuation_prediction", file.Recognition.PunctuationPrediction},
		{"recognition.inverse_text_normalization", file.Recognition.InverseTextNormalization},
	} {
		if fixed.value != nil && !*fixed.value {
			return Config{}, nil, fmt.Errorf("%s: cannot be disabled", fixed.key)
		}
	}

	if err := setDuration(&cfg.Session.ConnectTimeout, "session.connect_timeout", file.Session.ConnectTimeout); err != nil {
		return Config{}, nil, err
	}
	if err := setDuration(&cfg.Session.StopGrace, "session.stop_grace", file.Session.StopGrace); err != nil {
		return Config{}, nil, err
	}
	if err := setDuration(&cfg.Session.PollInterval, "session.poll_interval", file.Session.PollInterval); err != nil {
		return Config{}, nil, err
	}

	setBool(&cfg.Debug.AudioDump, file.Debug.AudioDump)
	setBool(&cfg.Debug.EventDump, file.Debug.EventDump)
	setBool(&cfg.Debug.Verbose, file.Debug.Verbose)

	return cfg, warnings, nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func setDuration(dst *time.Duration, key string, value *string) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, *value)
	}
	*dst = parsed
	return nil
}
