package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrStreamEnded is returned when the device stops producing frames.
// Mid-capture, the caller must abort the evidence session.
var ErrStreamEnded = errors.New("camera: stream ended")

// Source reads frames from a local capture device via OpenCV.
type Source struct {
	cfg Config

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// Open acquires the capture device. Denied or missing devices fail here,
// cleanly, before any monitoring starts.
func Open(cfg Config) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", cfg.DeviceID, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Source{cfg: cfg, cap: cap}, nil
}

// Config returns the source's settings.
func (s *Source) Config() Config {
	return s.cfg
}

// ReadInto fills mat with the next frame.
func (s *Source) ReadInto(mat *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return ErrStreamEnded
	}
	if ok := s.cap.Read(mat); !ok || mat.Empty() {
		return ErrStreamEnded
	}
	return nil
}

// CaptureJPEG reads the next frame and encodes it as JPEG.
func (s *Source) CaptureJPEG() ([]byte, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if err := s.ReadInto(&mat); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the capture device. Safe to call twice.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}
