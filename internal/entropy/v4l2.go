package entropy

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackjack/webcam"
)

const (
	captureWidth  = 640
	captureHeight = 480
)

// v4l2Grabber reads YUYV frames from a V4L2 device and extracts the luma
// plane as the grayscale intensity channel.
type v4l2Grabber struct {
	cam    *webcam.Webcam
	width  int
	height int
}

// V4L2Factory returns a GrabberFactory for /dev/video<index>.
func V4L2Factory(index int) GrabberFactory {
	return func() (FrameGrabber, error) {
		return openV4L2(index)
	}
}

func openV4L2(index int) (FrameGrabber, error) {
	dev := fmt.Sprintf("/dev/video%d", index)
	cam, err := webcam.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dev, err)
	}

	var format webcam.PixelFormat
	for f, desc := range cam.GetSupportedFormats() {
		if strings.Contains(desc, "YUYV") || strings.Contains(desc, "YUV 4:2:2") {
			format = f
			break
		}
	}
	if format == 0 {
		_ = cam.Close()
		return nil, fmt.Errorf("%s: no YUYV format available", dev)
	}

	_, w, h, err := cam.SetImageFormat(format, captureWidth, captureHeight)
	if err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("set image format: %w", err)
	}
	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("start streaming: %w", err)
	}
	return &v4l2Grabber{cam: cam, width: int(w), height: int(h)}, nil
}

// Grab blocks until the device delivers a frame or ctx is done.
func (g *v4l2Grabber) Grab(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		err := g.cam.WaitForFrame(1)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return Frame{}, fmt.Errorf("wait for frame: %w", err)
		}
		buf, err := g.cam.ReadFrame()
		if err != nil {
			return Frame{}, fmt.Errorf("read frame: %w", err)
		}
		if len(buf) < 2*g.width*g.height {
			// Some devices deliver an empty or short first buffer.
			continue
		}
		return yuyvToGray(buf, g.width, g.height), nil
	}
}

// Close stops streaming and releases the device.
func (g *v4l2Grabber) Close() error {
	err := g.cam.StopStreaming()
	if cerr := g.cam.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close camera: %w", err)
	}
	return nil
}

// yuyvToGray extracts the Y (luminance) bytes from a YUYV 4:2:2 buffer.
func yuyvToGray(buf []byte, w, h int) Frame {
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = buf[2*i]
	}
	return Frame{Width: w, Height: h, Pix: pix}
}
