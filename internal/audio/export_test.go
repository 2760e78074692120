package audio

// BufferedStream is a backend-free Stream over the frame buffer, for tests
// that drive the pipeline from package audio_test.
type BufferedStream struct {
	*frameBuffer
}

func NewBufferedStream(capacity int, health func() error) *BufferedStream {
	buf := newFrameBuffer(capacity)
	buf.health = health
	return &BufferedStream{frameBuffer: buf}
}

func (s *BufferedStream) Stop() error    { s.stop(); return nil }
func (s *BufferedStream) Close() error   { s.stop(); return nil }
func (s *BufferedStream) Release() error { return nil }

// ErrDeviceLost is the backend-stopped cause.
var ErrDeviceLost = errDeviceLost
