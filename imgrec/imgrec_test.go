package imgrec_test

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stitchlab/mosaic/imgrec"
)

func datedFolder(root string) string {
	now := time.Now()
	return path.Join(root, fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day()))
}

func TestWriteCreatesDatedNumberedFiles(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "snap"}
	for i := 0; i < 3; i++ {
		if _, err := r.Write([]byte("payload")); err != nil {
			t.Fatal(err)
		}
	}
	fldr := datedFolder(root)
	for i := 0; i < 3; i++ {
		fn := path.Join(fldr, fmt.Sprintf("snap%06d.fits", i))
		if _, err := os.Stat(fn); err != nil {
			t.Errorf("expected %s to exist: %v", fn, err)
		}
	}
}

func TestIncrResumesAfterExistingFiles(t *testing.T) {
	root := t.TempDir()
	fldr := datedFolder(root)
	if err := os.MkdirAll(fldr, 0777); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"snap000000.fits", "snap000004.fits", "other000009.fits", "notes.txt"} {
		if err := os.WriteFile(path.Join(fldr, fn), []byte("x"), 0666); err != nil {
			t.Fatal(err)
		}
	}
	r := &imgrec.Recorder{Root: root, Prefix: "snap"}
	r.Incr()
	if _, err := r.Write([]byte("payload")); err != nil {
		t.Fatal(err)
	}
	want := path.Join(fldr, "snap000005.fits")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected %s to exist: %v", want, err)
	}
}

func TestWriteContents(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "img"}
	payload := []byte("SIMPLE  =")
	n, err := r.Write(payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Errorf("short write, %d of %d bytes", n, len(payload))
	}
	matches, err := filepath.Glob(path.Join(datedFolder(root), "img*.fits"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one written file, got %v (%v)", matches, err)
	}
	got, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("got file contents %q, expected %q", got, payload)
	}
}
