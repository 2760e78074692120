//go:build !linux

package audio

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// PlayPCM plays 16 kHz mono samples on the default output and blocks until done.
func PlayPCM(ctx context.Context, samples []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	mctx, err := initContext()
	if err != nil {
		return err
	}
	defer freeContext(mctx)

	pcm := make([]byte, len(samples)*BytesPerSample)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(sample))
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	var (
		mu       sync.Mutex
		cursor   int
		doneOnce sync.Once
	)
	done := make(chan struct{})
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			mu.Lock()
			n := copy(out, pcm[cursor:])
			cursor += n
			finished := cursor >= len(pcm)
			mu.Unlock()
			clear(out[n:])
			if finished {
				doneOnce.Do(func() { close(done) })
			}
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return &DeviceError{Op: "init playback device", Err: err}
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return &DeviceError{Op: "start playback device", Err: err}
	}

	length := time.Duration(len(samples)) * time.Second / SampleRate
	select {
	case <-done:
		// let the last buffer reach the device
		time.Sleep(50 * time.Millisecond)
	case <-ctx.Done():
	case <-time.After(length + time.Second):
	}
	dev.Stop()
	return ctx.Err()
}
