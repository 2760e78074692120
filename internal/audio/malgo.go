//go:build !linux

package audio

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/gen2brain/malgo"
)

func initContext() (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &DeviceError{Op: "init audio context", Err: err}
	}
	return ctx, nil
}

func freeContext(ctx *malgo.AllocatedContext) {
	ctx.Uninit()
	ctx.Free()
}

// ListDevices returns capture devices. miniaudio enumerates capture-only
// devices here, so each one is reported with a single input channel.
func ListDevices(_ context.Context) ([]Device, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, &DeviceError{Op: "list capture devices", Err: err}
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:            hex.EncodeToString(info.ID[:]),
			Description:   info.Name(),
			InputChannels: Channels,
		})
	}
	return devices, nil
}

type malgoStream struct {
	*frameBuffer

	deviceID string
	ctx      *malgo.AllocatedContext
	device   *malgo.Device

	mu       sync.Mutex
	closed   bool
	released bool
}

// Open starts a 16 kHz mono s16 capture device.
func Open(_ context.Context, device Device) (Stream, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	if device.ID != "" {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			freeContext(ctx)
			return nil, &DeviceError{Op: "decode device id", Device: device.ID, Err: err}
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	s := &malgoStream{
		frameBuffer: newFrameBuffer(128),
		deviceID:    device.ID,
		ctx:         ctx,
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			_, _ = s.frameBuffer.Write(data)
		},
		// Fires on our own Stop too; fail is a no-op once the buffer is
		// stopped.
		Stop: func() {
			s.frameBuffer.fail(&DeviceError{Op: "read frame", Device: device.Description, Err: errDeviceLost})
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		freeContext(ctx)
		return nil, &DeviceError{Op: "init capture device", Device: device.Description, Err: err}
	}
	s.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeContext(ctx)
		return nil, &DeviceError{Op: "start capture device", Device: device.Description, Err: err}
	}
	return s, nil
}

func (s *malgoStream) Stop() error {
	s.frameBuffer.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.device.Stop()
	return nil
}

func (s *malgoStream) Close() error {
	s.frameBuffer.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.device.Uninit()
	return nil
}

func (s *malgoStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	freeContext(s.ctx)
	return nil
}
