//go:build linux

package audio

import (
	"context"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const applicationName = "nlsstream"

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, &DeviceError{Op: "connect pulse server", Err: err}
	}
	return client, nil
}

// ListDevices returns Pulse sources in server order.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultID := ""
	if source, err := client.DefaultSource(); err == nil {
		defaultID = source.ID()
	}

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, &DeviceError{Op: "list sources", Err: err}
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:            source.SourceName,
			Description:   source.Device,
			InputChannels: sourceInputChannels(source),
			Muted:         source.Mute,
			Default:       source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// sourceInputChannels treats sources whose active port reports
// unavailable as having no usable input channels.
func sourceInputChannels(source *pulseproto.GetSourceInfoReply) int {
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		if port.Available == 1 {
			return 0
		}
	}
	return int(source.Channels)
}

type pulseStream struct {
	*frameBuffer

	deviceID string
	client   *pulse.Client
	stream   *pulse.RecordStream

	mu       sync.Mutex
	closed   bool
	released bool
}

// Open starts a 16 kHz mono s16 record stream on the given source.
func Open(_ context.Context, device Device) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, &DeviceError{Op: "resolve source", Device: device.ID, Err: err}
	}

	s := &pulseStream{
		frameBuffer: newFrameBuffer(128),
		deviceID:    device.ID,
		client:      client,
	}

	writer := pulse.NewWriter(s.frameBuffer, pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName(applicationName+" transcription"),
	)
	if err != nil {
		client.Close()
		return nil, &DeviceError{Op: "create record stream", Device: device.ID, Err: err}
	}

	s.stream = stream
	s.frameBuffer.health = s.streamHealth
	stream.Start()
	return s, nil
}

// streamHealth reports a record stream the server dropped or whose writer failed.
func (s *pulseStream) streamHealth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.stream.Error(); err != nil {
		return &DeviceError{Op: "read frame", Device: s.deviceID, Err: err}
	}
	if s.stream.Closed() {
		return &DeviceError{Op: "read frame", Device: s.deviceID, Err: errDeviceLost}
	}
	return nil
}

func (s *pulseStream) Stop() error {
	s.frameBuffer.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.stream.Stop()
	}
	return nil
}

func (s *pulseStream) Close() error {
	s.frameBuffer.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stream.Close()
	return nil
}

func (s *pulseStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	s.client.Close()
	return nil
}
