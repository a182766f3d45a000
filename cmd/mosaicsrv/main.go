package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "mosaicsrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:      ":8000",
		Endpoint:  "scope",
		RingDepth: 64,
		Camera:    CameraSetup{Width: 512, Height: 512, ExposureTime: "10ms"},
		Recorder:  RecorderSetup{Root: "data", Prefix: "snap"}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `mosaicsrv runs a camera acquisition service and exposes an HTTP interface to it
This enables a server-client architecture, and the clients can leverage the
excellent HTTP libraries for any programming language.

Usage:
	mosaicsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `mosaicsrv is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Without a configuration, the server runs a 512x512 simulated camera and
serves it under /scope.

Routes of note, relative to the endpoint stem:
- POST snap, GET frame.fits         single frames
- POST live/start, POST live/stop   continuous acquisition into a ring buffer
- POST mda/run                      multi-dimensional acquisition; a JSON body
                                    with timePoints, channels, zSlices and an
                                    optional grid (rows, columns, fovWidth,
                                    fovHeight, overlapX, overlapY) describing a
                                    mosaic of fields to stitch into one canvas
- GET mda/layout                    canvas layout as zarr-style JSON
- GET mda/plane.fits, GET mda/stats one stitched plane, or its display stats

While a sequence runs the mutating routes answer 423 (locked); the
mda read routes stay open so the run can be watched.

Snapped frames are written to dated subfolders under recorder.root when
recorder.enabled is true.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("mosaicsrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(c)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
