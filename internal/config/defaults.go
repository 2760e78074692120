package config

import "time"

// DefaultURL is the Shanghai region NLS gateway.
const DefaultURL = "wss://nls-gateway-cn-shanghai.aliyuncs.com/ws/v1"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		NLS: NLSConfig{URL: DefaultURL},
		Audio: AudioConfig{
			Input: "first",
		},
		Recognition: RecognitionConfig{
			SampleRate: 16000,
		},
		Session: SessionConfig{
			ConnectTimeout: 5 * time.Second,
			StopGrace:      500 * time.Millisecond,
			PollInterval:   500 * time.Millisecond,
		},
	}
}
