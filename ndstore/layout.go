package ndstore

import "fmt"

// Layout is the (shape, chunking, labels) triple describing an
// N-dimensional store.  The last two axes are always spatial (y, x);
// any leading axes are acquisition axes such as time or channel.
//
// Shape, Chunks and Labels are parallel slices.  The JSON form follows
// zarr v2 .zarray conventions, with the non-standard labels field
// carried alongside as dimension names.
type Layout struct {
	Shape  []int    `json:"shape"`
	Chunks []int    `json:"chunks"`
	Labels []string `json:"labels"`
	DType  DType    `json:"dtype"`
}

// Validate checks internal consistency of the layout.
func (l Layout) Validate() error {
	if len(l.Shape) != len(l.Chunks) || len(l.Shape) != len(l.Labels) {
		return fmt.Errorf("ndstore: shape/chunks/labels must be parallel, got %d/%d/%d",
			len(l.Shape), len(l.Chunks), len(l.Labels))
	}
	if len(l.Shape) < 2 {
		return fmt.Errorf("ndstore: layout needs at least the two spatial axes, got %d axes", len(l.Shape))
	}
	for i, s := range l.Shape {
		if s < 1 || l.Chunks[i] < 1 {
			return fmt.Errorf("ndstore: axis %q has non-positive extent or chunk (%d, %d)",
				l.Labels[i], s, l.Chunks[i])
		}
	}
	return nil
}

// AxisIndex returns the position of the named axis, or -1 if absent.
func (l Layout) AxisIndex(label string) int {
	for i, s := range l.Labels {
		if s == label {
			return i
		}
	}
	return -1
}

// WithoutAxis returns a copy of the layout with the named axis removed
// from shape, chunks and labels.  The receiver is not modified.
func (l Layout) WithoutAxis(label string) Layout {
	i := l.AxisIndex(label)
	if i < 0 {
		return l.clone()
	}
	out := Layout{
		Shape:  make([]int, 0, len(l.Shape)-1),
		Chunks: make([]int, 0, len(l.Chunks)-1),
		Labels: make([]string, 0, len(l.Labels)-1),
		DType:  l.DType,
	}
	for j := range l.Shape {
		if j == i {
			continue
		}
		out.Shape = append(out.Shape, l.Shape[j])
		out.Chunks = append(out.Chunks, l.Chunks[j])
		out.Labels = append(out.Labels, l.Labels[j])
	}
	return out
}

func (l Layout) clone() Layout {
	return Layout{
		Shape:  append([]int(nil), l.Shape...),
		Chunks: append([]int(nil), l.Chunks...),
		Labels: append([]string(nil), l.Labels...),
		DType:  l.DType,
	}
}
