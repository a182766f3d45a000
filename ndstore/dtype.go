package ndstore

import "fmt"

// DType is a zarr v2 style element type for stored frames.
type DType string

// DTypes supported by the acquisition path.
const (
	Uint8  DType = "uint8"
	Uint16 DType = "uint16"
	Uint32 DType = "uint32"
)

// UnsupportedPixelTypeError is generated when the camera reports a
// bytes-per-pixel value with no corresponding store dtype.
type UnsupportedPixelTypeError struct {
	// BytesPerPixel is the offending pixel depth
	BytesPerPixel int
}

// Error satisfies the error interface
func (e UnsupportedPixelTypeError) Error() string {
	return fmt.Sprintf("unsupported pixel type: %d bytes per pixel", e.BytesPerPixel)
}

// DTypeForBytesPerPixel maps a camera pixel depth to the store dtype.
// 1 => uint8, 2 => uint16, 4 => uint32; anything else is an
// UnsupportedPixelTypeError.
func DTypeForBytesPerPixel(bpp int) (DType, error) {
	switch bpp {
	case 1:
		return Uint8, nil
	case 2:
		return Uint16, nil
	case 4:
		return Uint32, nil
	default:
		return "", UnsupportedPixelTypeError{BytesPerPixel: bpp}
	}
}

// ZarrCode returns the numpy-style dtype encoding used in zarr v2
// .zarray metadata, e.g. "<u2" for Uint16.
func (d DType) ZarrCode() string {
	switch d {
	case Uint8:
		return "|u1"
	case Uint16:
		return "<u2"
	case Uint32:
		return "<u4"
	default:
		return ""
	}
}
