package pipeline

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
	"github.com/rbright/nlsstream/internal/logging"
)

// OpenEventDump creates a JSONL file for raw inbound gateway messages.
func OpenEventDump() (*os.File, error) {
	return createDebugFile("events", "jsonl")
}

func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// pcmRecorder accumulates captured frames for the audio dump.
type pcmRecorder struct {
	mu  sync.Mutex
	pcm []byte
}

func (r *pcmRecorder) add(frame audio.Frame) {
	r.mu.Lock()
	r.pcm = append(r.pcm, frame.PCM...)
	r.mu.Unlock()
}

// writeFile stores the recording as a WAV debug artifact and returns its path.
func (r *pcmRecorder) writeFile() (string, error) {
	r.mu.Lock()
	pcm := append([]byte(nil), r.pcm...)
	r.mu.Unlock()
	if len(pcm) == 0 {
		return "", nil
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := writePCM16WAV(file, pcm, audio.SampleRate, audio.Channels); err != nil {
		return "", fmt.Errorf("write audio dump: %w", err)
	}
	return file.Name(), nil
}

// writePCM16WAV writes raw little-endian PCM bytes with a minimal WAV header.
func writePCM16WAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
