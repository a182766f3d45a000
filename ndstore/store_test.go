package ndstore

import "testing"

func canvasLayout() Layout {
	return Layout{
		Shape:  []int{2, 20, 20},
		Chunks: []int{1, 10, 10},
		Labels: []string{"t", "y", "x"},
		DType:  Uint16,
	}
}

func TestDTypeForBytesPerPixel(t *testing.T) {
	cases := []struct {
		bpp int
		dt  DType
	}{
		{1, Uint8},
		{2, Uint16},
		{4, Uint32},
	}
	for _, tc := range cases {
		dt, err := DTypeForBytesPerPixel(tc.bpp)
		if err != nil {
			t.Fatal(err)
		}
		if dt != tc.dt {
			t.Errorf("%d bytes per pixel: expected %s, got %s", tc.bpp, tc.dt, dt)
		}
	}
}

func TestDTypeUnsupported(t *testing.T) {
	_, err := DTypeForBytesPerPixel(3)
	if err == nil {
		t.Fatal("expected error for 3 bytes per pixel")
	}
	if _, ok := err.(UnsupportedPixelTypeError); !ok {
		t.Errorf("expected UnsupportedPixelTypeError, got %T", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := Open(canvasLayout())
	if err != nil {
		t.Fatal(err)
	}
	reg := Region{Coords: map[string]int{"t": 1}, X: Span{10, 20}, Y: Span{0, 10}}
	data := make([]uint16, 100)
	for i := range data {
		data[i] = uint16(i)
	}
	if err := s.WriteRegion(reg, data); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadRegion(reg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, data[i], got[i])
		}
	}
}

func TestWriteLandsAtOffset(t *testing.T) {
	s, err := Open(canvasLayout())
	if err != nil {
		t.Fatal(err)
	}
	reg := Region{Coords: map[string]int{"t": 0}, X: Span{10, 20}, Y: Span{10, 20}}
	data := make([]uint16, 100)
	for i := range data {
		data[i] = 7
	}
	if err := s.WriteRegion(reg, data); err != nil {
		t.Fatal(err)
	}
	// the untouched quadrant reads back as zero
	blank, err := s.ReadRegion(Region{Coords: map[string]int{"t": 0}, X: Span{0, 10}, Y: Span{0, 10}})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range blank {
		if v != 0 {
			t.Fatalf("unwritten sample %d should read 0, got %d", i, v)
		}
	}
}

func TestWriteRejectsOutOfBounds(t *testing.T) {
	s, err := Open(canvasLayout())
	if err != nil {
		t.Fatal(err)
	}
	data := make([]uint16, 100)
	bad := []Region{
		{Coords: map[string]int{"t": 0}, X: Span{15, 25}, Y: Span{0, 10}},
		{Coords: map[string]int{"t": 0}, X: Span{-5, 5}, Y: Span{0, 10}},
		{Coords: map[string]int{"t": 2}, X: Span{0, 10}, Y: Span{0, 10}},
		{Coords: map[string]int{}, X: Span{0, 10}, Y: Span{0, 10}},
		{Coords: map[string]int{"t": 0, "q": 0}, X: Span{0, 10}, Y: Span{0, 10}},
	}
	for _, reg := range bad {
		if err := s.WriteRegion(reg, data); err == nil {
			t.Errorf("expected error writing region %+v", reg)
		}
	}
}

func TestWriteRejectsWrongLength(t *testing.T) {
	s, err := Open(canvasLayout())
	if err != nil {
		t.Fatal(err)
	}
	reg := Region{Coords: map[string]int{"t": 0}, X: Span{0, 10}, Y: Span{0, 10}}
	if err := s.WriteRegion(reg, make([]uint16, 99)); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestVerifyRegion(t *testing.T) {
	s, err := Open(canvasLayout())
	if err != nil {
		t.Fatal(err)
	}
	reg := Region{Coords: map[string]int{"t": 0}, X: Span{0, 10}, Y: Span{0, 10}}
	ok, err := s.VerifyRegion(reg)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unwritten region should not verify")
	}
	data := make([]uint16, 100)
	for i := range data {
		data[i] = uint16(i * 3)
	}
	if err := s.WriteRegion(reg, data); err != nil {
		t.Fatal(err)
	}
	ok, err = s.VerifyRegion(reg)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("freshly written region should verify")
	}
	// clobber part of the region via an overlapping write
	overlap := Region{Coords: map[string]int{"t": 0}, X: Span{5, 15}, Y: Span{0, 10}}
	if err := s.WriteRegion(overlap, make([]uint16, 100)); err != nil {
		t.Fatal(err)
	}
	ok, err = s.VerifyRegion(reg)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("clobbered region should fail verification")
	}
}

func TestLayoutWithoutAxis(t *testing.T) {
	l := Layout{
		Shape:  []int{3, 4, 10, 20},
		Chunks: []int{1, 1, 10, 20},
		Labels: []string{"t", "g", "y", "x"},
		DType:  Uint16,
	}
	out := l.WithoutAxis("g")
	if len(out.Shape) != 3 || out.Labels[0] != "t" || out.Labels[1] != "y" || out.Labels[2] != "x" {
		t.Errorf("unexpected layout after axis removal: %+v", out)
	}
	if out.Shape[0] != 3 || out.Shape[1] != 10 || out.Shape[2] != 20 {
		t.Errorf("unexpected shape after axis removal: %v", out.Shape)
	}
	// the receiver is untouched
	if len(l.Shape) != 4 {
		t.Error("WithoutAxis mutated its receiver")
	}
}
