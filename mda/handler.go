package mda

import (
	"errors"
	"log"

	"github.com/stitchlab/mosaic/mosaic"
	"github.com/stitchlab/mosaic/ndstore"
	"github.com/stitchlab/mosaic/util"
)

// ErrSequenceNotStarted is generated when a frame arrives before
// SequenceStarted opened the store.
var ErrSequenceNotStarted = errors.New("mda: no sequence in progress")

// StoreHandler receives the frames of one acquisition and writes them
// into an ndstore.  For grid sequences the frame indices are routed
// through the mosaic translator, so the store holds a single stitched
// canvas; for everything else frames are stored per-index as-is.
//
// The handler is explicit about its lifecycle: SequenceStarted must
// succeed before FrameReady will accept anything.  The store outlives
// SequenceFinished so viewers can keep reading it.
type StoreHandler struct {
	store  *ndstore.Store
	trans  *mosaic.Translator
	frameW int
	frameH int
	opened bool
}

// NewStoreHandler returns a handler with no open store.
func NewStoreHandler() *StoreHandler {
	return &StoreHandler{}
}

// SequenceStarted derives the store layout for seq and opens the
// backing store.  frameH and frameW are the camera resolution; bpp is
// its pixel depth.  For grid sequences the layout is rewritten to the
// stitched canvas; an unsupported grid plan fails here, before any
// store state exists.
func (h *StoreHandler) SequenceStarted(seq Sequence, frameH, frameW, bpp int) error {
	dt, err := ndstore.DTypeForBytesPerPixel(bpp)
	if err != nil {
		return err
	}
	base := seq.BaseLayout(frameW, frameH, dt)
	layout := base
	var trans *mosaic.Translator
	if seq.Grid != nil {
		layout, trans, err = mosaic.DeriveCanvasLayout(base, seq.Grid)
		if err != nil {
			return err
		}
	}
	store, err := ndstore.Open(layout)
	if err != nil {
		return err
	}
	h.store = store
	h.trans = trans
	h.frameW = frameW
	h.frameH = frameH
	h.opened = true
	log.Printf("mda: store opened, shape [%s] labels %v", util.IntSliceToCSV(layout.Shape), layout.Labels)
	return nil
}

// FrameReady writes one frame at the coordinates of ev.  The frame
// buffer must be frameH*frameW samples, row-major.
func (h *StoreHandler) FrameReady(frame []uint16, ev Event) error {
	if !h.opened {
		return ErrSequenceNotStarted
	}
	var (
		reg mosaic.StoreRegion
		err error
	)
	if h.trans != nil {
		reg, err = h.trans.Translate(ev.Index)
		if err != nil {
			return err
		}
	} else {
		coords := make(map[string]int, len(ev.Index))
		for k, v := range ev.Index {
			coords[k] = v
		}
		reg = mosaic.StoreRegion{
			Coords: coords,
			X:      ndstore.Span{Start: 0, Stop: h.frameW},
			Y:      ndstore.Span{Start: 0, Stop: h.frameH},
		}
	}
	return h.store.WriteRegion(reg, frame)
}

// SequenceFinished closes the handler to further frames.  The store
// stays readable.
func (h *StoreHandler) SequenceFinished() {
	h.opened = false
}

// Store returns the backing store and whether one has been opened.
// The boolean replaces "has a data wrapper been set yet" attribute
// probing: callers check it by value.
func (h *StoreHandler) Store() (*ndstore.Store, bool) {
	return h.store, h.store != nil
}

// Translator returns the mosaic translator for the current sequence,
// or nil for non-grid sequences.
func (h *StoreHandler) Translator() *mosaic.Translator {
	return h.trans
}
