// Package imgrec contains an image recorder used to automatically save
// snapped frames to disk.
package imgrec

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/stitchlab/mosaic/server"
)

// Recorder records image sequences with incrementing filenames in
// yyyy-mm-dd subfolders.  Writes are retried with exponential backoff,
// which rides out transient NFS hiccups on shared acquisition storage.
// Safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Enabled is a flag unused by this struct that allows consumers to
	// disable its use in their code
	Enabled bool
}

// timeFldr returns the yyyy-mm-dd subfolder name for the current day.
func (r *Recorder) timeFldr() string {
	now := time.Now()
	return fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day())
}

// mkDir makes the dated folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := path.Join(r.Root, r.timeFldr())
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Write implements io.Writer and writes the contents of a fits file to
// disk under the current counter, then advances the counter.
func (r *Recorder) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.mkDir()
	if err != nil {
		return 0, err
	}
	fn := path.Join(fldr, fmt.Sprintf("%s%06d.fits", r.Prefix, r.counter))
	op := func() error {
		return os.WriteFile(fn, p, 0666)
	}
	err = backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return 0, err
	}
	r.counter++
	return len(p), nil
}

// Incr synchronizes the filename counter with the folder contents; it
// scans the dated folder and resumes after the highest existing index.
// If there is an error the counter is left alone.
func (r *Recorder) Incr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	dn, _ := r.mkDir()
	entries, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := -1
	for _, entry := range entries {
		// skip directories, non-fits, and wrong prefix
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimPrefix(fn, r.Prefix)
		bit = bit[:len(bit)-5] // pop .fits
		n, err := strconv.Atoi(bit)
		if err != nil {
			return
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// HTTPWrapper is an HTTP wrapper around an image recorder that allows
// the folder and prefix to be changed on the fly.
//
// it does not implement server.HTTPer, offering an Inject method
// allowing it to be injected into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// SetRoot updates the root folder of the recorder
func (h HTTPWrapper) SetRoot(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := h.Recorder
	rec.mu.Lock()
	rec.Root = str.Str
	rec.mu.Unlock()
	if _, err = rec.mkDir(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetRoot gets the recorder's root folder and sends it back as JSON
func (h HTTPWrapper) GetRoot(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: h.Recorder.Root}
	hp.EncodeAndRespond(w, r)
}

// SetPrefix updates the filename prefix of the recorder and rewinds
// the counter
func (h HTTPWrapper) SetPrefix(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := h.Recorder
	rec.mu.Lock()
	rec.Prefix = str.Str
	rec.counter = 0
	rec.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

// GetPrefix gets the recorder's prefix and sends it back as JSON
func (h HTTPWrapper) GetPrefix(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: h.Recorder.Prefix}
	hp.EncodeAndRespond(w, r)
}

// GetEnabled returns the Recorder's Enabled field
func (h HTTPWrapper) GetEnabled(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Bool, Bool: h.Recorder.Enabled}
	hp.EncodeAndRespond(w, r)
}

// SetEnabled sets the recorder's Enabled field
func (h HTTPWrapper) SetEnabled(w http.ResponseWriter, r *http.Request) {
	bT := server.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&bT)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Recorder.Enabled = bT.Bool
	w.WriteHeader(http.StatusOK)
}

// Inject adds GET and POST routes for /autowrite/{root,prefix,enabled}
// to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other server.HTTPer) {
	rt := other.RT()
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = h.SetRoot
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = h.GetRoot
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = h.SetPrefix
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = h.GetPrefix
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = h.SetEnabled
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = h.GetEnabled
}
