/*Package mosaic translates between per-field acquisition indices and
flat canvas coordinates.

A grid acquisition produces frames tagged with a grid-position axis;
the backing store holds one stitched canvas with no notion of a grid.
This package rewrites the store layout so the spatial axes span the
whole canvas (DeriveCanvasLayout) and, per incoming frame, rewrites the
frame's index into the pixel sub-rectangle the frame belongs in
(TranslateFrameIndex).  Both directions are pure coordinate
arithmetic; the store never learns what a field of view is.

The derived position sequence and canvas extent are computed once, at
acquisition start, and are immutable afterwards; a Translator may be
shared across goroutines without further synchronization.
*/
package mosaic

import (
	"fmt"
	"math"

	"github.com/stitchlab/mosaic/gridplan"
	"github.com/stitchlab/mosaic/ndstore"
)

// Axis labels with meaning to the translator.  All other axes pass
// through untouched.
const (
	// GridAxis tags the per-field position of a frame.
	GridAxis = "g"

	// XAxis and YAxis are the spatial axes of the canvas.
	XAxis = "x"
	YAxis = "y"
)

// FrameIndex maps acquisition axis labels to integer coordinates for
// one frame, e.g. {"t": 3, "c": 0, "g": 2}.
type FrameIndex map[string]int

// StoreRegion is the translated form of a FrameIndex: the grid axis is
// gone and the spatial axes are bound to pixel sub-ranges.  It
// addresses the store directly.
type StoreRegion = ndstore.Region

// UnsupportedGridPlanError is generated when canvas derivation is
// attempted on a grid-plan variant that is not a uniform rows x
// columns grid.
type UnsupportedGridPlanError struct {
	// Plan describes the offending variant
	Plan string
}

// Error satisfies the error interface
func (e UnsupportedGridPlanError) Error() string {
	return fmt.Sprintf("mosaic: grid plan %s does not describe a uniform rows x columns grid, cannot derive a canvas", e.Plan)
}

// IndexOutOfRangeError is generated when a frame index carries a grid
// coordinate outside the known field position sequence, or no grid
// coordinate at all.  It indicates a producer/consumer mismatch.
type IndexOutOfRangeError struct {
	// Grid is the offending coordinate; -1 when the axis was absent
	Grid int

	// NumFields is the length of the field position sequence
	NumFields int
}

// Error satisfies the error interface
func (e IndexOutOfRangeError) Error() string {
	if e.Grid < 0 {
		return fmt.Sprintf("mosaic: frame index has no %q axis", GridAxis)
	}
	return fmt.Sprintf("mosaic: grid index %d outside [0, %d)", e.Grid, e.NumFields)
}

// RegionOutOfBoundsError is generated when a translated region falls
// outside the declared canvas extent.  This means the field position
// sequence is inconsistent with the extent it was derived with; it is
// a configuration error, fatal to the acquisition.
type RegionOutOfBoundsError struct {
	Grid   int
	X0, Y0 int
	Extent gridplan.CanvasExtent
}

// Error satisfies the error interface
func (e RegionOutOfBoundsError) Error() string {
	return fmt.Sprintf("mosaic: field %d at offset (%d, %d) escapes the %dx%d canvas",
		e.Grid, e.X0, e.Y0, e.Extent.Width, e.Extent.Height)
}

// Translator holds the immutable per-acquisition derivation: the
// canvas extent, the field position sequence, and the per-field frame
// size.  Build one with DeriveCanvasLayout.
type Translator struct {
	ext       gridplan.CanvasExtent
	positions []gridplan.FieldPosition
	fovW      int
	fovH      int
}

// Extent returns the canvas extent the translator was derived with.
func (t *Translator) Extent() gridplan.CanvasExtent {
	return t.ext
}

// NumFields returns the length of the field position sequence.
func (t *Translator) NumFields() int {
	return len(t.positions)
}

// Translate rewrites one frame's index into a store region.  See
// TranslateFrameIndex.
func (t *Translator) Translate(idx FrameIndex) (StoreRegion, error) {
	return TranslateFrameIndex(idx, t.ext, t.positions, t.fovW, t.fovH)
}

// DeriveCanvasLayout rewrites a base per-field store layout into the
// layout of a single stitched canvas, and returns the Translator used
// to place each frame on it.
//
// The base layout is what an acquisition would use for one field: a
// grid axis plus spatial y, x axes sized to a single frame (and any
// other acquisition axes).  The result drops the grid axis from shape,
// chunking and labels, and widens the spatial extents to the full
// canvas.  Spatial chunk sizes are kept per-field, so each frame lands
// in a whole number of chunks.
//
// Only gridplan.RowsColumns plans are supported; any other variant
// yields an UnsupportedGridPlanError.
func DeriveCanvasLayout(base ndstore.Layout, plan gridplan.GridPlan) (ndstore.Layout, *Translator, error) {
	rc, ok := plan.(gridplan.RowsColumns)
	if !ok {
		return ndstore.Layout{}, nil, UnsupportedGridPlanError{Plan: fmt.Sprintf("%T", plan)}
	}
	ext, err := rc.Extent()
	if err != nil {
		return ndstore.Layout{}, nil, err
	}
	if err := base.Validate(); err != nil {
		return ndstore.Layout{}, nil, err
	}
	gi := base.AxisIndex(GridAxis)
	xi := base.AxisIndex(XAxis)
	yi := base.AxisIndex(YAxis)
	if gi < 0 || xi < 0 || yi < 0 {
		return ndstore.Layout{}, nil, fmt.Errorf("mosaic: base layout %v lacks a %q, %q or %q axis",
			base.Labels, GridAxis, XAxis, YAxis)
	}
	fovW := base.Shape[xi]
	fovH := base.Shape[yi]

	out := base.WithoutAxis(GridAxis)
	out.Shape[out.AxisIndex(XAxis)] = ext.Width
	out.Shape[out.AxisIndex(YAxis)] = ext.Height

	tr := &Translator{
		ext:       ext,
		positions: rc.FieldPositions(),
		fovW:      fovW,
		fovH:      fovH,
	}
	return out, tr, nil
}

// TranslateFrameIndex maps one frame's acquisition index to the canvas
// sub-rectangle it must be written to.
//
// idx must carry the grid axis with a coordinate g in
// [0, len(positions)); every other axis passes through unchanged.  The
// input index is never modified.  The translation is a pure function
// of its inputs: calling it twice yields identical regions.
func TranslateFrameIndex(idx FrameIndex, ext gridplan.CanvasExtent, positions []gridplan.FieldPosition, fovW, fovH int) (StoreRegion, error) {
	g, ok := idx[GridAxis]
	if !ok {
		return StoreRegion{}, IndexOutOfRangeError{Grid: -1, NumFields: len(positions)}
	}
	if g < 0 || g >= len(positions) {
		return StoreRegion{}, IndexOutOfRangeError{Grid: g, NumFields: len(positions)}
	}
	pos := positions[g]
	x0 := int(math.Floor(pos.X - ext.MinX))
	y0 := int(math.Floor(pos.Y - ext.MinY))
	if x0 < 0 || y0 < 0 || x0+fovW > ext.Width || y0+fovH > ext.Height {
		return StoreRegion{}, RegionOutOfBoundsError{Grid: g, X0: x0, Y0: y0, Extent: ext}
	}
	coords := make(map[string]int, len(idx)-1)
	for k, v := range idx {
		if k == GridAxis {
			continue
		}
		coords[k] = v
	}
	return StoreRegion{
		Coords: coords,
		X:      ndstore.Span{Start: x0, Stop: x0 + fovW},
		Y:      ndstore.Span{Start: y0, Stop: y0 + fovH},
	}, nil
}
