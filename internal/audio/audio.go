// Package audio handles input device discovery, selection, and fixed-size
// PCM frame capture.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Capture format: 16 kHz mono signed 16-bit little-endian.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
	FrameSamples   = 640
	FrameBytes     = FrameSamples * BytesPerSample
)

// FrameDuration is the wall-clock length of one frame.
const FrameDuration = time.Duration(FrameSamples) * time.Second / SampleRate

var (
	// ErrNoDevice is returned when no input-capable device matches.
	ErrNoDevice = errors.New("no audio input device")
	// ErrNoFrame is returned by Read when no frame arrived within one
	// frame duration.
	ErrNoFrame = errors.New("no audio frame ready")
	// ErrStreamClosed is returned by Read after Stop.
	ErrStreamClosed = errors.New("audio stream closed")

	errDeviceLost = errors.New("capture device stopped unexpectedly")
)

// DeviceError wraps failures of the audio backend.
type DeviceError struct {
	Op     string
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio %s %q: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Device describes one capture source.
type Device struct {
	ID            string
	Description   string
	InputChannels int
	Muted         bool
	Default       bool
}

// Frame is FrameSamples of little-endian s16 mono PCM.
type Frame struct {
	PCM []byte
}

// Samples reports the number of samples in the frame.
func (f Frame) Samples() int {
	return len(f.PCM) / BytesPerSample
}

// Stream delivers captured frames until stopped.
type Stream interface {
	// Read waits up to one frame duration for the next frame.
	Read(ctx context.Context) (Frame, error)
	// Dropped reports frames discarded because the reader fell behind.
	Dropped() int64
	// Stop halts capture.
	Stop() error
	// Close closes the capture stream.
	Close() error
	// Release frees the backend connection or context.
	Release() error
}

// SelectInput resolves an input preference against a device list.
// "first" (or empty) picks the first device with at least one input
// channel, "default" the backend default, anything else is matched as a
// case-insensitive substring of the device id or description.
func SelectInput(devices []Device, preference string) (Device, error) {
	preference = strings.TrimSpace(strings.ToLower(preference))

	var candidates []Device
	for _, dev := range devices {
		if dev.InputChannels > 0 {
			candidates = append(candidates, dev)
		}
	}
	if len(candidates) == 0 {
		return Device{}, ErrNoDevice
	}

	switch preference {
	case "", "first":
		return candidates[0], nil
	case "default":
		for _, dev := range candidates {
			if dev.Default {
				return dev, nil
			}
		}
		return Device{}, fmt.Errorf("%w: default source is not input-capable", ErrNoDevice)
	}

	for _, dev := range candidates {
		if deviceMatches(dev, preference) {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("%w: audio.input %q did not match any device", ErrNoDevice, preference)
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}
