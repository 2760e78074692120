// Package config resolves, parses, validates, and defaults nlsstream configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by nlsstream.
type Config struct {
	NLS         NLSConfig
	Audio       AudioConfig
	Recognition RecognitionConfig
	Session     SessionConfig
	Debug       DebugConfig
}

// NLSConfig holds the gateway endpoint and credentials.
type NLSConfig struct {
	URL    string
	Token  string
	AppKey string
}

// AudioConfig selects the capture input: "first", "default" or a
// substring of a device id or description.
type AudioConfig struct {
	Input string
	// Cues plays short tones when recognition starts and stops.
	Cues bool
}

// RecognitionConfig carries the configurable StartTranscription
// parameters. Interim results, punctuation prediction and inverse text
// normalization are always requested.
type RecognitionConfig struct {
	SampleRate int
}

// SessionConfig controls session and consumer timing.
type SessionConfig struct {
	ConnectTimeout time.Duration
	StopGrace      time.Duration
	PollInterval   time.Duration
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool
	EventDump bool
	Verbose   bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
