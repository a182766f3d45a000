package camera

import (
	"errors"
	"sync"
	"time"

	"github.com/stitchlab/mosaic/util"
)

// ErrNotInitialized is generated when a frame is requested before
// Initialize or after Finalize.
var ErrNotInitialized = errors.New("camera: not initialized")

// Sim is a simulated camera producing a deterministic diagonal
// gradient that drifts with the frame counter, so consecutive frames
// are distinguishable and any frame is reproducible from its ordinal.
type Sim struct {
	// Width and Height are the sensor resolution in pixels.
	Width  int
	Height int

	mu          sync.Mutex
	exposure    time.Duration
	frameCount  int
	initialized bool
}

// NewSim returns a simulator with the given resolution and a 10ms
// default exposure.
func NewSim(width, height int) *Sim {
	return &Sim{Width: width, Height: height, exposure: 10 * time.Millisecond}
}

// Initialize satisfies Camera.
func (s *Sim) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	s.frameCount = 0
	return nil
}

// Finalize satisfies Camera.
func (s *Sim) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	return nil
}

// GetRes returns the (H, W) of simulated frames.
func (s *Sim) GetRes() ([2]int, error) {
	return [2]int{s.Height, s.Width}, nil
}

// GetBytesPerPixel returns 2; the simulator is a 16-bit device.
func (s *Sim) GetBytesPerPixel() (int, error) {
	return 2, nil
}

// SetExposureTime sets the simulated exposure time.
func (s *Sim) SetExposureTime(d time.Duration) error {
	if d <= 0 {
		return errors.New("camera: exposure time must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exposure = d
	return nil
}

// GetExposureTime gets the simulated exposure time.
func (s *Sim) GetExposureTime() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure, nil
}

// GetFrameU16 synthesizes the next frame.  Pixel (x, y) of frame n
// has value clamp(x + y + 257*n, 0, 65535).
func (s *Sim) GetFrameU16() ([]uint16, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	n := s.frameCount
	s.frameCount++
	s.mu.Unlock()
	return SynthFrame(s.Width, s.Height, n), nil
}

// SynthFrame builds the simulator's frame n at the given resolution.
// Exposed so tests and clients can predict exact pixel content.
func SynthFrame(width, height, n int) []uint16 {
	buf := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf[y*width+x] = uint16(util.Clamp(float64(x+y+257*n), 0, 65535))
		}
	}
	return buf
}
