package camera

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/time/rate"
)

// ErrAlreadyStreaming is generated when Start is called on a running
// streamer.
var ErrAlreadyStreaming = errors.New("camera: already streaming")

// Streamer runs continuous acquisition: it reads frames from a camera
// at the exposure cadence and pushes them into a ring buffer for
// polling consumers.  One Streamer drives one camera.
type Streamer struct {
	Cam  Camera
	Ring *RingBuffer

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Running reports whether the acquisition loop is active.
func (s *Streamer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins continuous acquisition at the camera's current exposure
// interval.  It returns once the loop goroutine is launched.
func (s *Streamer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStreaming
	}
	exposure, err := s.Cam.GetExposureTime()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	limiter := rate.NewLimiter(rate.Every(exposure), 1)
	go s.loop(ctx, limiter)
	return nil
}

func (s *Streamer) loop(ctx context.Context, limiter *rate.Limiter) {
	defer close(s.done)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return // canceled
		}
		frame, err := s.Cam.GetFrameU16()
		if err != nil {
			log.Println("streamer: dropping frame:", err)
			continue
		}
		s.Ring.Push(frame)
	}
}

// Stop cancels the acquisition loop and waits for it to exit.  Calling
// Stop on a stopped streamer is a no-op.
func (s *Streamer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	cancel()
	<-done
}
