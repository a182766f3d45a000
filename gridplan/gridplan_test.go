package gridplan

import (
	"fmt"
	"testing"
)

func ExampleRowsColumns_FieldPositions() {
	p := RowsColumns{Rows: 2, Columns: 2, FOVWidth: 10, FOVHeight: 10}
	fmt.Println(p.FieldPositions())
	// Output: [{0 0} {10 0} {0 10} {10 10}]
}

func TestFieldPositionsCount(t *testing.T) {
	cases := []struct {
		rows, cols int
	}{
		{1, 1},
		{1, 5},
		{4, 1},
		{3, 7},
	}
	for _, tc := range cases {
		p := RowsColumns{Rows: tc.rows, Columns: tc.cols, FOVWidth: 8, FOVHeight: 8}
		got := len(p.FieldPositions())
		if got != tc.rows*tc.cols {
			t.Errorf("%dx%d grid: expected %d positions, got %d", tc.rows, tc.cols, tc.rows*tc.cols, got)
		}
	}
}

func TestSnakeOrderReversesOddRows(t *testing.T) {
	p := RowsColumns{Rows: 2, Columns: 3, FOVWidth: 10, FOVHeight: 10, Order: Snake}
	pos := p.FieldPositions()
	// second row should run right to left
	expectedX := []float64{0, 10, 20, 20, 10, 0}
	for i, x := range expectedX {
		if pos[i].X != x {
			t.Errorf("position %d: expected x=%g, got %g", i, x, pos[i].X)
		}
	}
}

func TestExtentSingleField(t *testing.T) {
	p := RowsColumns{Rows: 1, Columns: 1, FOVWidth: 32, FOVHeight: 16}
	ext, err := p.Extent()
	if err != nil {
		t.Fatal(err)
	}
	if ext.MinX != 0 || ext.MinY != 0 {
		t.Errorf("single field min should equal that field's position, got (%g, %g)", ext.MinX, ext.MinY)
	}
	if ext.Width != 32 || ext.Height != 16 {
		t.Errorf("expected 32x16 canvas, got %dx%d", ext.Width, ext.Height)
	}
}

func TestExtentMinIsExactMinimum(t *testing.T) {
	p := RowsColumns{Rows: 3, Columns: 4, FOVWidth: 10, FOVHeight: 10, Order: Snake}
	ext, err := p.Extent()
	if err != nil {
		t.Fatal(err)
	}
	minX, minY := ext.MinX, ext.MinY
	for _, pos := range p.FieldPositions() {
		if pos.X < minX || pos.Y < minY {
			t.Fatalf("extent min (%g, %g) is not the minimum, found (%g, %g)", minX, minY, pos.X, pos.Y)
		}
	}
	if minX != 0 || minY != 0 {
		t.Errorf("expected min (0, 0), got (%g, %g)", minX, minY)
	}
}

func TestExtentContainsEveryField(t *testing.T) {
	plans := []RowsColumns{
		{Rows: 2, Columns: 2, FOVWidth: 10, FOVHeight: 10},
		{Rows: 3, Columns: 5, FOVWidth: 64, FOVHeight: 48, Order: Snake},
		{Rows: 4, Columns: 4, FOVWidth: 100, FOVHeight: 100, OverlapX: 0.1, OverlapY: 0.1, Sizing: ShrinkByOverlap},
	}
	for _, p := range plans {
		ext, err := p.Extent()
		if err != nil {
			t.Fatal(err)
		}
		for i, pos := range p.FieldPositions() {
			x0 := pos.X - ext.MinX
			y0 := pos.Y - ext.MinY
			if x0 < 0 || y0 < 0 || x0+p.FOVWidth > float64(ext.Width) || y0+p.FOVHeight > float64(ext.Height) {
				t.Errorf("plan %+v: field %d at (%g, %g) escapes the %dx%d canvas", p, i, x0, y0, ext.Width, ext.Height)
			}
		}
	}
}

func TestShrinkByOverlapSpacing(t *testing.T) {
	p := RowsColumns{Rows: 1, Columns: 2, FOVWidth: 100, FOVHeight: 100, OverlapX: 0.25, Sizing: ShrinkByOverlap}
	pos := p.FieldPositions()
	if pos[1].X != 75 {
		t.Errorf("expected second field at x=75 with 25%% overlap, got %g", pos[1].X)
	}
	ext, err := p.Extent()
	if err != nil {
		t.Fatal(err)
	}
	if ext.Width != 175 {
		t.Errorf("expected 175px wide canvas, got %d", ext.Width)
	}
}

func TestIgnoreOverlapSizesByFullFOV(t *testing.T) {
	p := RowsColumns{Rows: 2, Columns: 2, FOVWidth: 100, FOVHeight: 100, OverlapX: 0.25, OverlapY: 0.25}
	ext, err := p.Extent()
	if err != nil {
		t.Fatal(err)
	}
	if ext.Width != 200 || ext.Height != 200 {
		t.Errorf("IgnoreOverlap should size by full FOV, got %dx%d", ext.Width, ext.Height)
	}
}

func TestValidateRejectsBadPlans(t *testing.T) {
	bad := []RowsColumns{
		{Rows: 0, Columns: 1, FOVWidth: 10, FOVHeight: 10},
		{Rows: 1, Columns: 0, FOVWidth: 10, FOVHeight: 10},
		{Rows: 1, Columns: 1, FOVWidth: 0, FOVHeight: 10},
		{Rows: 1, Columns: 1, FOVWidth: 10, FOVHeight: 10, OverlapX: 1},
		{Rows: 1, Columns: 1, FOVWidth: 10, FOVHeight: 10, OverlapY: -0.1},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("expected validation error for %+v", p)
		}
	}
}
