package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/stitchlab/mosaic/acquisition"
	"github.com/stitchlab/mosaic/camera"
	"github.com/stitchlab/mosaic/events"
	"github.com/stitchlab/mosaic/generichttp"
	"github.com/stitchlab/mosaic/generichttp/acq"
	"github.com/stitchlab/mosaic/imgrec"
)

// CameraSetup holds the initialization parameters for the simulated
// camera.
type CameraSetup struct {
	// Width and Height are the sensor resolution in pixels
	Width  int `koanf:"width"`
	Height int `koanf:"height"`

	// ExposureTime is the initial exposure, parseable by
	// time.ParseDuration, e.g. 10ms
	ExposureTime string `koanf:"exposuretime"`
}

// RecorderSetup holds the initialization parameters for the snap
// auto-writer.
type RecorderSetup struct {
	// Root is the folder dated subfolders are created under
	Root string `koanf:"root"`

	// Prefix is the filename prefix of written fits files
	Prefix string `koanf:"prefix"`

	// Enabled turns automatic writing of snapped frames on or off
	Enabled bool `koanf:"enabled"`
}

// Config holds the initialization parameters for the server.  It is to
// be populated by koanf from defaults and the yaml config file.
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"addr"`

	// Endpoint is the stem the acquisition routes are served under,
	// e.g. "scope" => /scope/snap
	Endpoint string `koanf:"endpoint"`

	// RingDepth is the capacity of the live-view frame buffer
	RingDepth int `koanf:"ringdepth"`

	Camera   CameraSetup   `koanf:"camera"`
	Recorder RecorderSetup `koanf:"recorder"`
}

// BuildMux assembles the camera, acquisition runner and recorder
// described by c into a chi mux.  The mux serves a special route,
// /endpoints, which returns a map of mount points to their routes as
// JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	cam := camera.NewSim(c.Camera.Width, c.Camera.Height)
	if err := cam.Initialize(); err != nil {
		log.Fatal(err)
	}
	if c.Camera.ExposureTime != "" {
		d, err := time.ParseDuration(c.Camera.ExposureTime)
		if err != nil {
			log.Fatal("camera.exposuretime: ", err)
		}
		if err := cam.SetExposureTime(d); err != nil {
			log.Fatal(err)
		}
	}

	bus := &events.Bus{}
	runner := acquisition.New(cam, bus, c.RingDepth)
	httper := acq.NewHTTPAcquisition(runner)

	rec := &imgrec.Recorder{
		Root:    c.Recorder.Root,
		Prefix:  c.Recorder.Prefix,
		Enabled: c.Recorder.Enabled,
	}
	rec.Incr()
	imgrec.NewHTTPWrapper(rec).Inject(httper)
	bus.Subscribe(events.SnapTaken, func(e events.Event) {
		if !rec.Enabled {
			return
		}
		p, ok := e.Payload.(acquisition.SnapPayload)
		if !ok {
			return
		}
		cards := []fitsio.Card{{Name: "DATE-OBS", Value: time.Now().UTC().Format(time.RFC3339)}}
		err := acq.WriteFits(rec, cards, [][]uint16{p.Frame}, p.Res[1], p.Res[0])
		if err != nil {
			log.Println("recorder write failed:", err)
		}
	})

	hndlS := generichttp.SubMuxSanitize(c.Endpoint)
	supergraph[hndlS] = httper.RT().Endpoints()

	r := chi.NewRouter()
	r.Use(httper.Lock.Check)
	httper.RT().Bind(r)
	root.Mount(hndlS, r)

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
