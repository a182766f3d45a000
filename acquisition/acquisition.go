/*Package acquisition binds a camera, a frame store handler and an
event bus into the snap / live / MDA operations exposed to clients.

The runner owns no GUI and no threads of its own beyond the live
streamer; RunMDA executes on the caller's goroutine and honors context
cancellation between frames.
*/
package acquisition

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/stitchlab/mosaic/camera"
	"github.com/stitchlab/mosaic/events"
	"github.com/stitchlab/mosaic/mda"
)

// ErrAcquisitionBusy is generated when an MDA is requested while one
// is already running.
var ErrAcquisitionBusy = errors.New("acquisition: an MDA is already running")

// SnapPayload accompanies events.SnapTaken.
type SnapPayload struct {
	Frame []uint16
	Res   [2]int // (H, W)
}

// FramePayload accompanies events.FrameReady.
type FramePayload struct {
	Event mda.Event
}

// SequencePayload accompanies events.SequenceStarted and
// events.SequenceFinished.
type SequencePayload struct {
	Sequence mda.Sequence
}

// Runner drives one camera.  All methods are safe for concurrent use;
// only one MDA may run at a time.
type Runner struct {
	Cam     camera.Camera
	Bus     *events.Bus
	Ring    *camera.RingBuffer
	Handler *mda.StoreHandler

	streamer *camera.Streamer

	mu       sync.Mutex
	lastSnap []uint16
	mdaBusy  bool
}

// New assembles a runner around cam with a ring buffer of the given
// capacity for live viewing.
func New(cam camera.Camera, bus *events.Bus, ringCapacity int) *Runner {
	ring := camera.NewRingBuffer(ringCapacity)
	return &Runner{
		Cam:      cam,
		Bus:      bus,
		Ring:     ring,
		Handler:  mda.NewStoreHandler(),
		streamer: &camera.Streamer{Cam: cam, Ring: ring},
	}
}

// Snap captures a single frame, retains it as the last snap, and
// publishes events.SnapTaken.
func (r *Runner) Snap() ([]uint16, error) {
	frame, err := r.Cam.GetFrameU16()
	if err != nil {
		return nil, err
	}
	res, err := r.Cam.GetRes()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.lastSnap = frame
	r.mu.Unlock()
	r.Bus.Publish(events.Event{Type: events.SnapTaken, Payload: SnapPayload{Frame: frame, Res: res}})
	return frame, nil
}

// LastFrame returns the most recent frame: the newest live frame if
// streaming has produced any, otherwise the last snap.  ok is false
// if no frame exists yet.
func (r *Runner) LastFrame() (frame []uint16, ok bool) {
	if f, ok := r.Ring.Last(); ok {
		return f, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastSnap == nil {
		return nil, false
	}
	return r.lastSnap, true
}

// Live reports whether continuous acquisition is running.
func (r *Runner) Live() bool {
	return r.streamer.Running()
}

// StartLive begins continuous acquisition and publishes
// events.LiveStarted.
func (r *Runner) StartLive() error {
	if err := r.streamer.Start(); err != nil {
		return err
	}
	r.Bus.Publish(events.Event{Type: events.LiveStarted})
	return nil
}

// StopLive halts continuous acquisition and publishes
// events.LiveStopped.  No-op when not streaming.
func (r *Runner) StopLive() {
	if !r.streamer.Running() {
		return
	}
	r.streamer.Stop()
	r.Bus.Publish(events.Event{Type: events.LiveStopped})
}

// RunMDA executes seq to completion, feeding every frame through the
// store handler.  Live acquisition is stopped first; the sequence
// events are acquired in order on the calling goroutine.  Any frame
// error aborts the run.
func (r *Runner) RunMDA(ctx context.Context, seq mda.Sequence) error {
	r.mu.Lock()
	if r.mdaBusy {
		r.mu.Unlock()
		return ErrAcquisitionBusy
	}
	r.mdaBusy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.mdaBusy = false
		r.mu.Unlock()
	}()

	r.StopLive()
	res, err := r.Cam.GetRes()
	if err != nil {
		return err
	}
	bpp, err := r.Cam.GetBytesPerPixel()
	if err != nil {
		return err
	}
	if err := r.Handler.SequenceStarted(seq, res[0], res[1], bpp); err != nil {
		return err
	}
	r.Bus.Publish(events.Event{Type: events.SequenceStarted, Payload: SequencePayload{Sequence: seq}})
	for _, ev := range seq.Events() {
		if err := ctx.Err(); err != nil {
			r.Handler.SequenceFinished()
			return err
		}
		frame, err := r.Cam.GetFrameU16()
		if err != nil {
			r.Handler.SequenceFinished()
			return err
		}
		if err := r.Handler.FrameReady(frame, ev); err != nil {
			r.Handler.SequenceFinished()
			return err
		}
		r.Bus.Publish(events.Event{Type: events.FrameReady, Payload: FramePayload{Event: ev}})
	}
	r.Handler.SequenceFinished()
	r.Bus.Publish(events.Event{Type: events.SequenceFinished, Payload: SequencePayload{Sequence: seq}})
	log.Printf("acquisition: sequence complete, %d frames", seq.NumFrames())
	return nil
}

// Close stops live acquisition and finalizes the camera.
func (r *Runner) Close() error {
	r.StopLive()
	return r.Cam.Finalize()
}
