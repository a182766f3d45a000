// mosaicctl is a command line client for mosaicsrv.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/theckman/yacspin"
	"go.uber.org/multierr"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	addr = flag.String("addr", "http://localhost:8000", "base URL of the server")
	stem = flag.String("stem", "scope", "mount point of the acquisition routes")
)

func usage() {
	str := `mosaicctl talks to a running mosaicsrv.

Usage:
	mosaicctl [-addr URL] [-stem scope] <command> [args]

Commands:
	wait                 block until the server answers
	snap                 take a single frame
	frame <out.fits>     download the most recent frame
	mda <spec.json>      run a sequence described by a JSON file
	plane <out.fits>     download one stitched canvas plane
	stats                print the display statistics of one plane
	version
	help`
	fmt.Println(str)
}

// route joins the base URL, stem and a relative path.
func route(parts ...string) string {
	segs := append([]string{strings.TrimSuffix(*addr, "/"), *stem}, parts...)
	return strings.Join(segs, "/")
}

// check fails the program on a transport error or non-2xx response.
func check(resp *http.Response, err error) *http.Response {
	if err != nil {
		log.Fatal(err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Fatalf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp
}

// fetch downloads url to the file at dest.
func fetch(url, dest string) (err error) {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, resp.Body.Close())
	}()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	_, err = io.Copy(f, resp.Body)
	return err
}

// wait blocks until the server answers /endpoints, retrying with
// exponential backoff for up to 30 seconds.
func wait() {
	op := func() error {
		resp, err := http.Get(strings.TrimSuffix(*addr, "/") + "/endpoints")
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      30 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		log.Fatal("server did not come up: ", err)
	}
	fmt.Println("server is up")
}

// spinner builds the progress spinner used for long-running commands.
func spinner(msg string) *yacspin.Spinner {
	s, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[11],
		Suffix:          " " + msg,
		SuffixAutoColon: true,
		StopCharacter:   "done",
	})
	if err != nil {
		log.Fatal(err)
	}
	return s
}

func snap() {
	resp := check(http.Post(route("snap"), "application/json", nil))
	resp.Body.Close()
	fmt.Println("snapped")
}

func mda(specPath string) {
	spec, err := os.ReadFile(specPath)
	if err != nil {
		log.Fatal(err)
	}
	s := spinner("running sequence")
	s.Start()
	resp, err := http.Post(route("mda/run"), "application/json", bytes.NewReader(spec))
	s.Stop()
	resp = check(resp, err)
	resp.Body.Close()
	fmt.Println("sequence complete")
}

func stats() {
	resp := check(http.Get(route("mda/stats")))
	defer resp.Body.Close()
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		log.Fatal(err)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return
	}
	switch strings.ToLower(args[0]) {
	case "help":
		usage()
	case "version":
		fmt.Printf("mosaicctl version %v\n", Version)
	case "wait":
		wait()
	case "snap":
		snap()
	case "frame":
		if len(args) < 2 {
			log.Fatal("frame requires an output filename")
		}
		if err := fetch(route("frame.fits"), args[1]); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", args[1])
	case "mda":
		if len(args) < 2 {
			log.Fatal("mda requires a JSON sequence file")
		}
		mda(args[1])
	case "plane":
		if len(args) < 2 {
			log.Fatal("plane requires an output filename")
		}
		if err := fetch(route("mda/plane.fits"), args[1]); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", args[1])
	case "stats":
		stats()
	default:
		log.Fatal("unknown command ", args[0])
	}
}
