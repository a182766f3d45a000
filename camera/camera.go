/*Package camera describes a standard interface for control of cameras
and provides a deterministic simulator for driving the acquisition
pipeline without hardware.

The interface is injected into every consumer that needs device state;
there is no process-wide camera instance.
*/
package camera

import "time"

// Camera describes the camera capabilities the acquisition layer
// needs.  Implementations are expected to be safe for use from a
// single acquisition goroutine; none of the methods block on anything
// other than the device itself.
type Camera interface {
	// Initialize initializes the camera.  This may have myriad side
	// effects: driver setup, buffer allocation, hardware parameter
	// programming, and so on.
	Initialize() error

	// Finalize finalizes the camera, releasing any driver resources.
	Finalize() error

	// GetRes gets the (H, W) associated with the data returned by
	// GetFrameU16.
	GetRes() ([2]int, error)

	// GetBytesPerPixel returns the pixel depth of the sensor readout.
	GetBytesPerPixel() (int, error)

	// GetFrameU16 triggers capture of a frame and returns the strided
	// image data as 16-bit integers.  The slice is owned by the caller.
	GetFrameU16() ([]uint16, error)

	// SetExposureTime sets the exposure time.
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time.
	GetExposureTime() (time.Duration, error)
}
