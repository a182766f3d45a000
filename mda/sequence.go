/*Package mda models multi-dimensional acquisitions: ordered event
streams over the time, channel, z and grid-position axes, and the
store handler that persists their frames.

The sequence is declarative and immutable once the acquisition starts,
mirroring the grid plan it may carry.
*/
package mda

import (
	"github.com/stitchlab/mosaic/gridplan"
	"github.com/stitchlab/mosaic/mosaic"
	"github.com/stitchlab/mosaic/ndstore"
)

// Axis labels used by sequences, in acquisition order.  The spatial
// labels y and x are appended by the layout, never by events.
const (
	TimeAxis    = "t"
	ChannelAxis = "c"
	ZAxis       = "z"
)

// Event is one exposure of a sequence: the axis coordinates of the
// frame about to be (or just) captured, plus the channel name for
// metadata consumers.
type Event struct {
	// Index maps axis labels to coordinates.  Only axes the sequence
	// actually spans are present.
	Index mosaic.FrameIndex

	// Channel is the configuration preset name for this exposure;
	// empty for single-channel sequences.
	Channel string
}

// Sequence declares a multi-dimensional acquisition.  Zero values
// mean "axis not used": a zero sequence is a single snap.
type Sequence struct {
	// TimePoints is the number of passes over the inner axes.
	TimePoints int `json:"timePoints" koanf:"timepoints"`

	// Channels are the named channel presets to cycle through.
	Channels []string `json:"channels" koanf:"channels"`

	// ZSlices is the number of focal planes.
	ZSlices int `json:"zSlices" koanf:"zslices"`

	// Grid is the field-of-view arrangement; nil acquires a single
	// position.
	Grid gridplan.GridPlan `json:"-" koanf:"-"`
}

// extents returns the normalized axis extents (all >= 1).
func (s Sequence) extents() (nt, nc, nz, ng int) {
	nt, nc, nz, ng = s.TimePoints, len(s.Channels), s.ZSlices, 0
	if nt < 1 {
		nt = 1
	}
	if nc < 1 {
		nc = 1
	}
	if nz < 1 {
		nz = 1
	}
	if s.Grid != nil {
		ng = len(s.Grid.FieldPositions())
	}
	return nt, nc, nz, ng
}

// Axes returns the non-spatial axis labels this sequence spans, in
// acquisition order.  Axes of extent one are omitted, matching the
// index maps carried by events.
func (s Sequence) Axes() []string {
	nt, nc, nz, ng := s.extents()
	var axes []string
	if nt > 1 {
		axes = append(axes, TimeAxis)
	}
	if nc > 1 {
		axes = append(axes, ChannelAxis)
	}
	if nz > 1 {
		axes = append(axes, ZAxis)
	}
	if ng > 0 {
		axes = append(axes, mosaic.GridAxis)
	}
	return axes
}

// NumFrames returns the total number of events the sequence produces.
func (s Sequence) NumFrames() int {
	nt, nc, nz, ng := s.extents()
	if ng == 0 {
		ng = 1
	}
	return nt * nc * nz * ng
}

// Events materializes the ordered event stream.  Axis nesting is
// time > channel > z > grid, grid fastest.
func (s Sequence) Events() []Event {
	nt, nc, nz, ng := s.extents()
	axes := s.Axes()
	spans := func(label string) bool {
		for _, a := range axes {
			if a == label {
				return true
			}
		}
		return false
	}
	gridCount := ng
	if gridCount == 0 {
		gridCount = 1
	}
	out := make([]Event, 0, s.NumFrames())
	for t := 0; t < nt; t++ {
		for c := 0; c < nc; c++ {
			for z := 0; z < nz; z++ {
				for g := 0; g < gridCount; g++ {
					idx := mosaic.FrameIndex{}
					if spans(TimeAxis) {
						idx[TimeAxis] = t
					}
					if spans(ChannelAxis) {
						idx[ChannelAxis] = c
					}
					if spans(ZAxis) {
						idx[ZAxis] = z
					}
					if spans(mosaic.GridAxis) {
						idx[mosaic.GridAxis] = g
					}
					ev := Event{Index: idx}
					if len(s.Channels) > 0 {
						ev.Channel = s.Channels[c]
					}
					out = append(out, ev)
				}
			}
		}
	}
	return out
}

// BaseLayout returns the per-field store layout for the sequence: one
// extent per spanned axis, then y and x sized to a single frame.
// Non-spatial chunks are 1 so every frame is its own chunk; this is
// the layout the mosaic translator rewrites for grid sequences.
func (s Sequence) BaseLayout(frameW, frameH int, dt ndstore.DType) ndstore.Layout {
	nt, nc, nz, ng := s.extents()
	extentOf := map[string]int{
		TimeAxis:        nt,
		ChannelAxis:     nc,
		ZAxis:           nz,
		mosaic.GridAxis: ng,
	}
	axes := s.Axes()
	l := ndstore.Layout{
		Shape:  make([]int, 0, len(axes)+2),
		Chunks: make([]int, 0, len(axes)+2),
		Labels: make([]string, 0, len(axes)+2),
		DType:  dt,
	}
	for _, a := range axes {
		l.Shape = append(l.Shape, extentOf[a])
		l.Chunks = append(l.Chunks, 1)
		l.Labels = append(l.Labels, a)
	}
	l.Shape = append(l.Shape, frameH, frameW)
	l.Chunks = append(l.Chunks, frameH, frameW)
	l.Labels = append(l.Labels, mosaic.YAxis, mosaic.XAxis)
	return l
}
