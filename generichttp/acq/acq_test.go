package acq_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/stitchlab/mosaic/acquisition"
	"github.com/stitchlab/mosaic/camera"
	"github.com/stitchlab/mosaic/events"
	"github.com/stitchlab/mosaic/generichttp/acq"
	"github.com/stitchlab/mosaic/ndstore"
	"github.com/stitchlab/mosaic/server"
)

func setup(t *testing.T) (*acq.HTTPAcquisition, chi.Router) {
	t.Helper()
	cam := camera.NewSim(8, 8)
	if err := cam.Initialize(); err != nil {
		t.Fatal(err)
	}
	runner := acquisition.New(cam, &events.Bus{}, 16)
	h := acq.NewHTTPAcquisition(runner)
	r := chi.NewRouter()
	r.Use(h.Lock.Check)
	h.RT().Bind(r)
	return h, r
}

func do(t *testing.T, r chi.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExposureTimeQueryParamRoundTrip(t *testing.T) {
	_, r := setup(t)
	w := do(t, r, http.MethodPost, "/exposure-time?exposureTime=25ms", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("set returned %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/exposure-time", nil)
	s := server.StrT{}
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "25ms" {
		t.Errorf("got exposure time %q, expected 25ms", s.Str)
	}
}

func TestExposureTimeJSONSeconds(t *testing.T) {
	_, r := setup(t)
	w := do(t, r, http.MethodPost, "/exposure-time", []byte(`{"f64": 0.05}`))
	if w.Code != http.StatusOK {
		t.Fatalf("set returned %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/exposure-time", nil)
	s := server.StrT{}
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "50ms" {
		t.Errorf("got exposure time %q, expected 50ms", s.Str)
	}
}

func TestResolution(t *testing.T) {
	_, r := setup(t)
	w := do(t, r, http.MethodGet, "/resolution", nil)
	res := map[string]int{}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res["h"] != 8 || res["w"] != 8 {
		t.Errorf("got resolution %v, expected 8x8", res)
	}
}

func TestFrameFitsRequiresASnap(t *testing.T) {
	_, r := setup(t)
	w := do(t, r, http.MethodGet, "/frame.fits", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("frame.fits before any snap returned %d, expected 404", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/snap", nil); w.Code != http.StatusOK {
		t.Fatalf("snap returned %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/frame.fits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("frame.fits returned %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/fits" {
		t.Errorf("got content type %q, expected image/fits", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("SIMPLE")) {
		t.Error("response does not begin with a FITS header")
	}
}

func TestLiveStartStop(t *testing.T) {
	h, r := setup(t)
	if w := do(t, r, http.MethodPost, "/live/start", nil); w.Code != http.StatusOK {
		t.Fatalf("live/start returned %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/live/start", nil); w.Code != http.StatusConflict {
		t.Errorf("second live/start returned %d, expected 409", w.Code)
	}
	if !h.Runner.Live() {
		t.Error("runner not live after live/start")
	}
	if w := do(t, r, http.MethodPost, "/live/stop", nil); w.Code != http.StatusOK {
		t.Fatalf("live/stop returned %d: %s", w.Code, w.Body.String())
	}
	if h.Runner.Live() {
		t.Error("runner still live after live/stop")
	}
}

const gridSpec = `{"timePoints": 1, "zSlices": 1,
"grid": {"rows": 2, "columns": 2, "fovWidth": 8, "fovHeight": 8}}`

func TestRunMDAThenLayoutPlaneStats(t *testing.T) {
	_, r := setup(t)
	if w := do(t, r, http.MethodGet, "/mda/layout", nil); w.Code != http.StatusNotFound {
		t.Errorf("mda/layout before a run returned %d, expected 404", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/mda/run", []byte(gridSpec)); w.Code != http.StatusOK {
		t.Fatalf("mda/run returned %d: %s", w.Code, w.Body.String())
	}

	w := do(t, r, http.MethodGet, "/mda/layout", nil)
	layout := ndstore.Layout{}
	if err := json.NewDecoder(w.Body).Decode(&layout); err != nil {
		t.Fatal(err)
	}
	if len(layout.Shape) != 2 || layout.Shape[0] != 16 || layout.Shape[1] != 16 {
		t.Errorf("got canvas shape %v, expected [16 16]", layout.Shape)
	}

	w = do(t, r, http.MethodGet, "/mda/plane.fits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("mda/plane.fits returned %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/fits" {
		t.Errorf("got content type %q, expected image/fits", ct)
	}

	w = do(t, r, http.MethodGet, "/mda/stats", nil)
	ps := acq.PlaneStats{}
	if err := json.NewDecoder(w.Body).Decode(&ps); err != nil {
		t.Fatal(err)
	}
	// field 0 retains pixel (0,0)=0; field 3 holds pixel (7,7) of
	// frame 3, 7+7+257*3
	if ps.Min != 0 {
		t.Errorf("got plane min %g, expected 0", ps.Min)
	}
	if ps.Max != 785 {
		t.Errorf("got plane max %g, expected 785", ps.Max)
	}
	if ps.Mean <= ps.Min || ps.Mean >= ps.Max {
		t.Errorf("mean %g not between min and max", ps.Mean)
	}
}

func TestRunMDABadJSON(t *testing.T) {
	_, r := setup(t)
	w := do(t, r, http.MethodPost, "/mda/run", []byte(`{"timePoints": `))
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body returned %d, expected 400", w.Code)
	}
}

func TestLockRejectsMutationsButNotReads(t *testing.T) {
	h, r := setup(t)
	if w := do(t, r, http.MethodPost, "/mda/run", []byte(gridSpec)); w.Code != http.StatusOK {
		t.Fatalf("mda/run returned %d: %s", w.Code, w.Body.String())
	}
	h.Lock.Lock()
	defer h.Lock.Unlock()
	if w := do(t, r, http.MethodPost, "/snap", nil); w.Code != http.StatusLocked {
		t.Errorf("snap while locked returned %d, expected 423", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/mda/layout", nil); w.Code != http.StatusOK {
		t.Errorf("mda/layout while locked returned %d, expected 200", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/mda/stats", nil); w.Code != http.StatusOK {
		t.Errorf("mda/stats while locked returned %d, expected 200", w.Code)
	}
}

func TestLockFollowsSequenceEvents(t *testing.T) {
	h, _ := setup(t)
	h.Runner.Bus.Publish(events.Event{Type: events.SequenceStarted})
	if !h.Lock.Locked() {
		t.Error("lock not engaged on sequence start")
	}
	h.Runner.Bus.Publish(events.Event{Type: events.SequenceFinished})
	if h.Lock.Locked() {
		t.Error("lock not released on sequence finish")
	}
}

func TestLockHTTPRoundTrip(t *testing.T) {
	h, r := setup(t)
	if w := do(t, r, http.MethodPost, "/lock", []byte(`{"bool": true}`)); w.Code != http.StatusOK {
		t.Fatalf("lock set returned %d: %s", w.Code, w.Body.String())
	}
	if !h.Lock.Locked() {
		t.Error("lock not engaged via HTTP")
	}
	w := do(t, r, http.MethodGet, "/lock", nil)
	b := server.BoolT{}
	if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if !b.Bool {
		t.Error("lock read false over HTTP while engaged")
	}
}

func TestEndpointsIncludeLockAndMDA(t *testing.T) {
	h, _ := setup(t)
	eps := strings.Join(h.RT().Endpoints(), "\n")
	for _, want := range []string{"GET /lock", "POST /mda/run", "GET /mda/stats"} {
		if !strings.Contains(eps, want) {
			t.Errorf("route table missing %q", want)
		}
	}
}
