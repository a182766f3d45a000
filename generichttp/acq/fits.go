package acq

import (
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams a fits file to w holding the given frames.  Each
// frame is width*height uint16 samples, row-major; more than one frame
// produces a 3D image.  The unsigned data is stored per the FITS
// convention as int16 with BZERO 32768.
func WriteFits(w io.Writer, metadata []fitsio.Card, frames [][]uint16, width, height int) error {
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, width*height*len(frames))
	offset := 0
	for _, frame := range frames {
		for _, v := range frame {
			ints[offset] = int16(int32(v) - 32768)
			offset++
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
