// Package entropy produces scored liveness samples on demand.
//
// Two interchangeable strategies exist: CameraSource analyzes motion in a
// live video feed, DemoSource draws from a secure pseudorandom generator.
// A camera failure of any kind degrades to a demo sample; it never surfaces
// as a request failure.
package entropy

import (
	"context"

	"fishkms/internal/models"
)

// Frame is a single grayscale frame, row-major, one byte per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// FrameGrabber captures grayscale frames from a video device.
type FrameGrabber interface {
	// Grab blocks until the next frame is available or ctx is done.
	Grab(ctx context.Context) (Frame, error)
	// Close releases the device.
	Close() error
}

// GrabberFactory opens a FrameGrabber. The camera source opens the device
// per capture so a wedged device never pins the process.
type GrabberFactory func() (FrameGrabber, error)

// Source produces liveness samples on demand.
type Source interface {
	// Sample takes one measurement. An error indicates a hard sampling
	// failure; degraded captures come back as demo samples instead.
	Sample(ctx context.Context) (models.Sample, error)
	// Mode reports the configured sampling strategy.
	Mode() models.EntropyMode
}
