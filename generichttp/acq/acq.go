/*Package acq exposes an acquisition runner over HTTP.

The wrapper follows the route-table convention of the rest of the
codebase: build one with NewHTTPAcquisition, then Bind its RT() to a
router.  While an MDA runs, the wrapper's locker rejects mutating
requests with 423; the read-only store routes stay open so a running
sequence can be watched.
*/
package acq

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stitchlab/mosaic/acquisition"
	"github.com/stitchlab/mosaic/events"
	"github.com/stitchlab/mosaic/generichttp"
	"github.com/stitchlab/mosaic/gridplan"
	"github.com/stitchlab/mosaic/mda"
	"github.com/stitchlab/mosaic/mosaic"
	"github.com/stitchlab/mosaic/ndstore"
	"github.com/stitchlab/mosaic/server"
	"github.com/stitchlab/mosaic/server/middleware/locker"
	"github.com/stitchlab/mosaic/util"
)

// SequenceSpec is the JSON form of an acquisition request.
type SequenceSpec struct {
	TimePoints int                   `json:"timePoints"`
	Channels   []string              `json:"channels"`
	ZSlices    int                   `json:"zSlices"`
	Grid       *gridplan.RowsColumns `json:"grid"`
}

// Sequence converts the request to an mda.Sequence.
func (s SequenceSpec) Sequence() mda.Sequence {
	seq := mda.Sequence{
		TimePoints: s.TimePoints,
		Channels:   s.Channels,
		ZSlices:    s.ZSlices,
	}
	if s.Grid != nil {
		seq.Grid = *s.Grid
	}
	return seq
}

// HTTPAcquisition is an HTTP adapter to an acquisition.Runner.
type HTTPAcquisition struct {
	// Runner is the wrapped acquisition driver.
	Runner *acquisition.Runner

	// Lock guards the mutating routes during a sequence.
	Lock *locker.Locker

	rt server.RouteTable
}

// NewHTTPAcquisition builds the adapter and subscribes the lock to the
// runner's sequence events.
func NewHTTPAcquisition(r *acquisition.Runner) *HTTPAcquisition {
	h := &HTTPAcquisition{Runner: r, Lock: locker.New(), rt: server.RouteTable{}}
	r.Bus.Subscribe(events.SequenceStarted, func(events.Event) { h.Lock.Lock() })
	r.Bus.Subscribe(events.SequenceFinished, func(events.Event) { h.Lock.Unlock() })

	rt := h.rt
	rt[server.MethodPath{Method: http.MethodGet, Path: "/exposure-time"}] = h.GetExposureTime
	rt[server.MethodPath{Method: http.MethodPost, Path: "/exposure-time"}] = h.SetExposureTime
	rt[server.MethodPath{Method: http.MethodGet, Path: "/resolution"}] = h.GetResolution
	rt[server.MethodPath{Method: http.MethodGet, Path: "/bytes-per-pixel"}] = generichttp.GetInt(r.Cam.GetBytesPerPixel)
	rt[server.MethodPath{Method: http.MethodPost, Path: "/snap"}] = h.Snap
	rt[server.MethodPath{Method: http.MethodGet, Path: "/frame.fits"}] = h.LastFrameFits
	rt[server.MethodPath{Method: http.MethodGet, Path: "/live"}] = generichttp.GetBool(func() (bool, error) { return r.Live(), nil })
	rt[server.MethodPath{Method: http.MethodPost, Path: "/live/start"}] = h.StartLive
	rt[server.MethodPath{Method: http.MethodPost, Path: "/live/stop"}] = h.StopLive
	rt[server.MethodPath{Method: http.MethodGet, Path: "/live/remaining"}] = generichttp.GetInt(func() (int, error) { return r.Ring.Remaining(), nil })
	rt[server.MethodPath{Method: http.MethodPost, Path: "/mda/run"}] = h.RunMDA
	rt[server.MethodPath{Method: http.MethodGet, Path: "/mda/layout"}] = h.Layout
	rt[server.MethodPath{Method: http.MethodGet, Path: "/mda/plane.fits"}] = h.PlaneFits
	rt[server.MethodPath{Method: http.MethodGet, Path: "/mda/stats"}] = h.Stats
	locker.Inject(h, h.Lock)
	return h
}

// RT satisfies server.HTTPer.
func (h *HTTPAcquisition) RT() server.RouteTable {
	return h.rt
}

// GetExposureTime returns the exposure time as a duration string.
func (h *HTTPAcquisition) GetExposureTime(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) {
		d, err := h.Runner.Cam.GetExposureTime()
		return d.String(), err
	})(w, r)
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime,
// formatted in a way that is parseable by golang/time.ParseDuration,
// or a json payload with key f64, holding the exposure time in
// seconds.
func (h *HTTPAcquisition) SetExposureTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	var d time.Duration
	var err error
	if texp == "" {
		f := server.FloatT{}
		err = json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		d = util.SecsToDuration(f.F64)
	} else {
		d, err = time.ParseDuration(texp)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Runner.Cam.SetExposureTime(d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetResolution returns the camera resolution as {"h": ..., "w": ...}.
func (h *HTTPAcquisition) GetResolution(w http.ResponseWriter, r *http.Request) {
	res, err := h.Runner.Cam.GetRes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(map[string]int{"h": res[0], "w": res[1]})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Snap captures a single frame.
func (h *HTTPAcquisition) Snap(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Runner.Snap(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// cards builds the FITS header cards shared by the image routes.
func (h *HTTPAcquisition) cards() []fitsio.Card {
	out := []fitsio.Card{{Name: "DATE-OBS", Value: time.Now().UTC().Format(time.RFC3339)}}
	if d, err := h.Runner.Cam.GetExposureTime(); err == nil {
		out = append(out, fitsio.Card{Name: "EXPTIME", Value: d.Seconds(), Comment: "exposure time, seconds"})
	}
	return out
}

// LastFrameFits returns the most recent frame (live or snap) as FITS.
func (h *HTTPAcquisition) LastFrameFits(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.Runner.LastFrame()
	if !ok {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	res, err := h.Runner.Cam.GetRes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/fits")
	err = WriteFits(w, h.cards(), [][]uint16{frame}, res[1], res[0])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StartLive begins continuous acquisition.
func (h *HTTPAcquisition) StartLive(w http.ResponseWriter, r *http.Request) {
	if err := h.Runner.StartLive(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StopLive halts continuous acquisition.
func (h *HTTPAcquisition) StopLive(w http.ResponseWriter, r *http.Request) {
	h.Runner.StopLive()
	w.WriteHeader(http.StatusOK)
}

// RunMDA decodes a SequenceSpec and executes it to completion.
func (h *HTTPAcquisition) RunMDA(w http.ResponseWriter, r *http.Request) {
	spec := SequenceSpec{}
	err := json.NewDecoder(r.Body).Decode(&spec)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Runner.RunMDA(r.Context(), spec.Sequence())
	switch err.(type) {
	case nil:
		w.WriteHeader(http.StatusOK)
		return
	case mosaic.UnsupportedGridPlanError:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err == acquisition.ErrAcquisitionBusy {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// store fetches the MDA store, writing a 404 if none exists.
func (h *HTTPAcquisition) store(w http.ResponseWriter) (*ndstore.Store, bool) {
	store, ok := h.Runner.Handler.Store()
	if !ok {
		http.Error(w, "no MDA store open; run a sequence first", http.StatusNotFound)
		return nil, false
	}
	return store, true
}

// Layout returns the store layout as zarr-style JSON.
func (h *HTTPAcquisition) Layout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(store.Layout()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// planeRegion builds the full-plane region addressed by the request's
// query parameters, one per non-spatial axis (missing axes read as 0).
func planeRegion(layout ndstore.Layout, q map[string][]string) (ndstore.Region, error) {
	n := len(layout.Labels)
	coords := map[string]int{}
	for _, label := range layout.Labels[:n-2] {
		coords[label] = 0
		if vals, ok := q[label]; ok && len(vals) > 0 {
			v, err := strconv.Atoi(vals[0])
			if err != nil {
				return ndstore.Region{}, fmt.Errorf("axis %q: %w", label, err)
			}
			coords[label] = v
		}
	}
	return ndstore.Region{
		Coords: coords,
		X:      ndstore.Span{Start: 0, Stop: layout.Shape[n-1]},
		Y:      ndstore.Span{Start: 0, Stop: layout.Shape[n-2]},
	}, nil
}

// PlaneFits returns one full canvas plane of the MDA store as FITS.
// Non-spatial coordinates are selected by query parameters named after
// the axes, e.g. /mda/plane.fits?t=1&c=0.
func (h *HTTPAcquisition) PlaneFits(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	layout := store.Layout()
	reg, err := planeRegion(layout, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := store.ReadRegion(reg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "image/fits")
	err = WriteFits(w, h.cards(), [][]uint16{data}, reg.X.Len(), reg.Y.Len())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PlaneStats are the display-scaling statistics of one canvas plane.
type PlaneStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Stats returns min/max/mean/stddev of one canvas plane, the inputs a
// viewer needs to autoscale its display.  Coordinates select the plane
// as in PlaneFits.
func (h *HTTPAcquisition) Stats(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	layout := store.Layout()
	reg, err := planeRegion(layout, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := store.ReadRegion(reg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f64 := make([]float64, len(data))
	for i, v := range data {
		f64[i] = float64(v)
	}
	ps := PlaneStats{
		Min:    floats.Min(f64),
		Max:    floats.Max(f64),
		Mean:   stat.Mean(f64, nil),
		StdDev: stat.StdDev(f64, nil),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ps); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
