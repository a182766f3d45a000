/*Package ndstore provides an in-memory N-dimensional frame store with
zarr-flavored layout metadata.

The store is the "dumb" side of the acquisition pipeline: it knows
nothing about grids or fields of view, only about an N-dimensional
shape and rectangular sub-regions of its two spatial axes.  Frames are
held as uint16, the native currency of the camera interfaces in this
codebase; Layout.DType records the logical element type for metadata
consumers.

Each write is checksummed (CRC-16/CCITT) and the sum is retained per
region, so a reader can verify that a frame survived the trip through
the acquisition pipeline intact.
*/
package ndstore

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/snksoft/crc"
)

// Span is a half-open [Start, Stop) interval on a spatial axis.
type Span struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// Len returns the number of samples covered by the span.
func (s Span) Len() int {
	return s.Stop - s.Start
}

// Region addresses a rectangular sub-block of the store: one integer
// coordinate per non-spatial axis, and a span per spatial axis.
type Region struct {
	// Coords maps non-spatial axis labels to integer coordinates.
	Coords map[string]int `json:"coords"`

	// X and Y are the spatial sub-ranges, half-open.
	X Span `json:"x"`
	Y Span `json:"y"`
}

// Store is an in-memory chunked N-D array.  It is safe for one writer
// and concurrent readers.
type Store struct {
	layout Layout

	// width and height are the extents of the trailing x and y axes
	width  int
	height int

	mu     sync.RWMutex
	planes map[string][]uint16
	sums   map[string]uint64
}

// Open creates a store with the given layout.  The layout must carry
// trailing "y" and "x" axes.
func Open(l Layout) (*Store, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	n := len(l.Labels)
	if l.Labels[n-2] != "y" || l.Labels[n-1] != "x" {
		return nil, fmt.Errorf("ndstore: layout must end in y, x axes, got %v", l.Labels)
	}
	return &Store{
		layout: l.clone(),
		width:  l.Shape[n-1],
		height: l.Shape[n-2],
		planes: map[string][]uint16{},
		sums:   map[string]uint64{},
	}, nil
}

// Layout returns a copy of the store's layout.
func (s *Store) Layout() Layout {
	return s.layout.clone()
}

// planeKey builds a deterministic key for the non-spatial coordinates.
func planeKey(coords map[string]int) string {
	keys := make([]string, 0, len(coords))
	for k := range coords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, coords[k])
	}
	return strings.Join(parts, ";")
}

// checkRegion validates a region against the layout.
func (s *Store) checkRegion(reg Region) error {
	n := len(s.layout.Labels)
	for _, label := range s.layout.Labels[:n-2] {
		v, ok := reg.Coords[label]
		if !ok {
			return fmt.Errorf("ndstore: region missing coordinate for axis %q", label)
		}
		if max := s.layout.Shape[s.layout.AxisIndex(label)]; v < 0 || v >= max {
			return fmt.Errorf("ndstore: axis %q coordinate %d outside [0, %d)", label, v, max)
		}
	}
	for label := range reg.Coords {
		if idx := s.layout.AxisIndex(label); idx < 0 {
			return fmt.Errorf("ndstore: region names unknown axis %q", label)
		}
	}
	if reg.X.Start < 0 || reg.X.Stop > s.width || reg.X.Len() <= 0 {
		return fmt.Errorf("ndstore: x span [%d, %d) outside [0, %d)", reg.X.Start, reg.X.Stop, s.width)
	}
	if reg.Y.Start < 0 || reg.Y.Stop > s.height || reg.Y.Len() <= 0 {
		return fmt.Errorf("ndstore: y span [%d, %d) outside [0, %d)", reg.Y.Start, reg.Y.Stop, s.height)
	}
	return nil
}

// WriteRegion blits data, a row-major buffer of Y.Len() rows by
// X.Len() columns, into the addressed sub-rectangle.  The write is
// checksummed and the sum retained for VerifyRegion.
func (s *Store) WriteRegion(reg Region, data []uint16) error {
	if err := s.checkRegion(reg); err != nil {
		return err
	}
	if want := reg.X.Len() * reg.Y.Len(); len(data) != want {
		return fmt.Errorf("ndstore: data length %d does not match region size %d", len(data), want)
	}
	key := planeKey(reg.Coords)
	s.mu.Lock()
	defer s.mu.Unlock()
	plane, ok := s.planes[key]
	if !ok {
		plane = make([]uint16, s.width*s.height)
		s.planes[key] = plane
	}
	for row := 0; row < reg.Y.Len(); row++ {
		dst := (reg.Y.Start+row)*s.width + reg.X.Start
		src := row * reg.X.Len()
		copy(plane[dst:dst+reg.X.Len()], data[src:src+reg.X.Len()])
	}
	s.sums[regionKey(reg)] = checksum(data)
	return nil
}

// ReadRegion returns a copy of the addressed sub-rectangle, row-major.
// Unwritten samples read as zero.
func (s *Store) ReadRegion(reg Region) ([]uint16, error) {
	if err := s.checkRegion(reg); err != nil {
		return nil, err
	}
	key := planeKey(reg.Coords)
	out := make([]uint16, reg.X.Len()*reg.Y.Len())
	s.mu.RLock()
	defer s.mu.RUnlock()
	plane, ok := s.planes[key]
	if !ok {
		return out, nil
	}
	for row := 0; row < reg.Y.Len(); row++ {
		src := (reg.Y.Start+row)*s.width + reg.X.Start
		copy(out[row*reg.X.Len():(row+1)*reg.X.Len()], plane[src:src+reg.X.Len()])
	}
	return out, nil
}

// VerifyRegion re-reads the addressed region and compares its checksum
// to the one recorded at write time.  ok is false if the region was
// never written or the data no longer matches.
func (s *Store) VerifyRegion(reg Region) (ok bool, err error) {
	s.mu.RLock()
	want, written := s.sums[regionKey(reg)]
	s.mu.RUnlock()
	if !written {
		return false, nil
	}
	data, err := s.ReadRegion(reg)
	if err != nil {
		return false, err
	}
	return checksum(data) == want, nil
}

func regionKey(reg Region) string {
	return fmt.Sprintf("%s|x%d:%d|y%d:%d", planeKey(reg.Coords), reg.X.Start, reg.X.Stop, reg.Y.Start, reg.Y.Stop)
}

func checksum(data []uint16) uint64 {
	buf := make([]byte, 2*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return crc.CalculateCRC(crc.CCITT, buf)
}
