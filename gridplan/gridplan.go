/*Package gridplan describes regular grids of imaging fields of view.

A grid plan is declarative: it is built once from the acquisition
definition, before any frame is produced, and is immutable afterwards.
The derived field position sequence and canvas extent are computed once
and cached by the consumer for the lifetime of the acquisition.
*/
package gridplan

import (
	"fmt"
	"math"
)

// Order is the traversal order of the grid.
type Order int

const (
	// RowMajor visits each row left to right.
	RowMajor Order = iota

	// Snake visits rows alternately left-to-right and right-to-left,
	// which minimizes stage travel between adjacent fields.
	Snake
)

// Sizing selects how field overlap is treated when computing the
// stitched canvas size and field spacing.
type Sizing int

const (
	// IgnoreOverlap spaces fields by the full FOV size, as if overlap
	// were zero.  This reproduces the historical behavior of the
	// acquisition GUI this package descends from; overlapping pixel
	// rows/columns are written twice, last write wins.
	IgnoreOverlap Sizing = iota

	// ShrinkByOverlap spaces fields by fov*(1-overlap), so the canvas
	// is exactly large enough for the de-duplicated mosaic.
	ShrinkByOverlap
)

// FieldPosition is the physical top-left coordinate of one field of
// view, in the same length units as the FOV size (pixels, for a
// camera-space plan).
type FieldPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CanvasExtent describes the stitched canvas that holds every field of
// a plan: its total size, and the offset that maps the smallest field
// coordinate to canvas origin zero.
type CanvasExtent struct {
	// Width and Height are the total canvas size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// MinX and MinY are the minimum field coordinates over the full
	// position sequence.  Subtracting them from a field position
	// yields that field's canvas offset.
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
}

// GridPlan is a declarative arrangement of fields of view.  Concrete
// variants are RowsColumns and ExplicitPositions.  Only RowsColumns
// supports stitched-canvas derivation; see package mosaic.
type GridPlan interface {
	// FieldPositions returns the ordered sequence of field positions,
	// one per grid cell, in acquisition order.
	FieldPositions() []FieldPosition

	// FOV returns the per-field width and height.
	FOV() (w, h float64)
}

// RowsColumns is a uniform rows x columns grid of fields.
type RowsColumns struct {
	// Rows and Columns are the grid dimensions, both >= 1.
	Rows    int `json:"rows" koanf:"rows"`
	Columns int `json:"columns" koanf:"columns"`

	// FOVWidth and FOVHeight are the per-field size in pixels, > 0.
	FOVWidth  float64 `json:"fovWidth" koanf:"fovwidth"`
	FOVHeight float64 `json:"fovHeight" koanf:"fovheight"`

	// OverlapX and OverlapY are overlap fractions in [0, 1) between
	// horizontally and vertically adjacent fields.
	OverlapX float64 `json:"overlapX" koanf:"overlapx"`
	OverlapY float64 `json:"overlapY" koanf:"overlapy"`

	// Order is the traversal order of the grid cells.
	Order Order `json:"order" koanf:"order"`

	// Sizing is the overlap policy used for spacing and canvas size.
	Sizing Sizing `json:"sizing" koanf:"sizing"`
}

// Validate checks the plan parameters and returns a descriptive error
// for the first violated constraint.
func (p RowsColumns) Validate() error {
	if p.Rows < 1 || p.Columns < 1 {
		return fmt.Errorf("gridplan: rows and columns must be >= 1, got %dx%d", p.Rows, p.Columns)
	}
	if p.FOVWidth <= 0 || p.FOVHeight <= 0 {
		return fmt.Errorf("gridplan: FOV size must be positive, got %gx%g", p.FOVWidth, p.FOVHeight)
	}
	if p.OverlapX < 0 || p.OverlapX >= 1 || p.OverlapY < 0 || p.OverlapY >= 1 {
		return fmt.Errorf("gridplan: overlap fractions must be in [0,1), got %g, %g", p.OverlapX, p.OverlapY)
	}
	return nil
}

// spacing returns the center-to-center distance between adjacent
// fields on each axis under the plan's sizing policy.
func (p RowsColumns) spacing() (dx, dy float64) {
	switch p.Sizing {
	case ShrinkByOverlap:
		return p.FOVWidth * (1 - p.OverlapX), p.FOVHeight * (1 - p.OverlapY)
	default:
		return p.FOVWidth, p.FOVHeight
	}
}

// FieldPositions returns the ordered position sequence for the grid.
// Exactly Rows*Columns entries are produced.  Positions are top-left
// coordinates with the first field at (0, 0).
func (p RowsColumns) FieldPositions() []FieldPosition {
	dx, dy := p.spacing()
	out := make([]FieldPosition, 0, p.Rows*p.Columns)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Columns; c++ {
			col := c
			if p.Order == Snake && r%2 == 1 {
				col = p.Columns - 1 - c
			}
			out = append(out, FieldPosition{X: float64(col) * dx, Y: float64(r) * dy})
		}
	}
	return out
}

// FOV returns the per-field size.
func (p RowsColumns) FOV() (float64, float64) {
	return p.FOVWidth, p.FOVHeight
}

// Extent derives the canvas extent for the grid.  Every field's
// translated rectangle [x-MinX, x-MinX+fovW) x [y-MinY, y-MinY+fovH)
// is contained in [0, Width) x [0, Height).
func (p RowsColumns) Extent() (CanvasExtent, error) {
	if err := p.Validate(); err != nil {
		return CanvasExtent{}, err
	}
	positions := p.FieldPositions()
	minX, minY := positions[0].X, positions[0].Y
	for _, pos := range positions[1:] {
		minX = math.Min(minX, pos.X)
		minY = math.Min(minY, pos.Y)
	}
	dx, dy := p.spacing()
	w := int(math.Ceil(float64(p.Columns-1)*dx + p.FOVWidth))
	h := int(math.Ceil(float64(p.Rows-1)*dy + p.FOVHeight))
	return CanvasExtent{Width: w, Height: h, MinX: minX, MinY: minY}, nil
}

// ExplicitPositions is an arbitrary, caller-supplied list of field
// positions.  It supports position-ordered acquisition but not
// stitched-canvas derivation, since the fields need not tile a
// rectangle.
type ExplicitPositions struct {
	Positions []FieldPosition `json:"positions"`

	FOVWidth  float64 `json:"fovWidth"`
	FOVHeight float64 `json:"fovHeight"`
}

// FieldPositions returns the caller-supplied sequence.
func (p ExplicitPositions) FieldPositions() []FieldPosition {
	return p.Positions
}

// FOV returns the per-field size.
func (p ExplicitPositions) FOV() (float64, float64) {
	return p.FOVWidth, p.FOVHeight
}
