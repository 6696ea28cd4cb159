package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishkms/internal/config"
	"fishkms/internal/models"
)

func uniformFrame(w, h int, value byte) Frame {
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = value
	}
	return Frame{Width: w, Height: h, Pix: pix}
}

// frameWithSquare paints a bright square onto a uniform background.
func frameWithSquare(w, h int, background, bright byte, x0, y0, size int) Frame {
	f := uniformFrame(w, h, background)
	for y := y0; y < y0+size && y < h; y++ {
		for x := x0; x < x0+size && x < w; x++ {
			f.Pix[y*w+x] = bright
		}
	}
	return f
}

func TestAnalyzeMotion_StaticScene(t *testing.T) {
	tun := config.DefaultTunables()
	frames := make([]Frame, 5)
	for i := range frames {
		frames[i] = uniformFrame(64, 48, 100)
	}

	res, err := analyzeMotion(frames, tun)
	require.NoError(t, err)

	assert.Equal(t, models.StatusNone, res.Status)
	assert.Zero(t, res.Score)
	assert.Zero(t, res.Regions)
}

func TestAnalyzeMotion_MovingObject(t *testing.T) {
	tun := config.DefaultTunables()
	frames := make([]Frame, 6)
	for i := range frames {
		// A bright 10x10 square sweeping across a dark scene.
		frames[i] = frameWithSquare(64, 48, 20, 220, 4+i*6, 16, 10)
	}

	res, err := analyzeMotion(frames, tun)
	require.NoError(t, err)

	assert.Equal(t, models.StatusLive, res.Status)
	assert.Greater(t, res.Score, tun.LiveThreshold)
	assert.GreaterOrEqual(t, res.Regions, 1)
	assert.Greater(t, res.Peak, 0.0)
}

func TestAnalyzeMotion_HashDiffersPerCapture(t *testing.T) {
	tun := config.DefaultTunables()
	frames := make([]Frame, 3)
	for i := range frames {
		frames[i] = uniformFrame(32, 32, 50)
	}

	first, err := analyzeMotion(frames, tun)
	require.NoError(t, err)
	second, err := analyzeMotion(frames, tun)
	require.NoError(t, err)

	require.Len(t, first.Bytes, 32)
	// Identical scenes must still hash differently across captures.
	assert.NotEqual(t, first.Bytes, second.Bytes)
}

func TestAnalyzeMotion_Errors(t *testing.T) {
	tun := config.DefaultTunables()

	_, err := analyzeMotion(nil, tun)
	assert.Error(t, err)

	_, err = analyzeMotion([]Frame{
		uniformFrame(32, 32, 0),
		uniformFrame(16, 16, 0),
	}, tun)
	assert.Error(t, err)
}

func TestAnalyzeMotion_SingleFrameUsesNoise(t *testing.T) {
	tun := config.DefaultTunables()

	flat, err := analyzeMotion([]Frame{uniformFrame(32, 32, 128)}, tun)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNone, flat.Status)

	noisy := uniformFrame(32, 32, 0)
	for i := range noisy.Pix {
		if i%2 == 0 {
			noisy.Pix[i] = 255
		}
	}
	res, err := analyzeMotion([]Frame{noisy}, tun)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, res.Status)
	assert.Len(t, res.Bytes, 32)
}

func TestClassifyBoundaries(t *testing.T) {
	tun := config.DefaultTunables()

	assert.Equal(t, models.StatusLive, classify(1.5, tun))
	assert.Equal(t, models.StatusLow, classify(1.0, tun))
	assert.Equal(t, models.StatusLow, classify(0.5, tun))
	assert.Equal(t, models.StatusNone, classify(0.1, tun))
	assert.Equal(t, models.StatusNone, classify(0, tun))
}

func TestCountRegions(t *testing.T) {
	w, h := 20, 10
	mask := make([]bool, w*h)
	set := func(x0, y0, size int) {
		for y := y0; y < y0+size; y++ {
			for x := x0; x < x0+size; x++ {
				mask[y*w+x] = true
			}
		}
	}
	set(0, 0, 3) // area 9, below cutoff
	set(8, 2, 4) // area 16, counts

	assert.Equal(t, 1, countRegions(mask, w, h, 10))
	assert.Equal(t, 2, countRegions(mask, w, h, 5))
	assert.Equal(t, 0, countRegions(mask, w, h, 100))
}

func TestBlur3SmoothsNoise(t *testing.T) {
	f := uniformFrame(9, 9, 0)
	f.Pix[4*9+4] = 255 // lone hot pixel

	out := blur3(f)
	// The hot pixel spreads over its 3x3 neighborhood.
	assert.Equal(t, byte(255/9), out.Pix[4*9+4])
	assert.Equal(t, byte(255/9), out.Pix[3*9+3])
	assert.Zero(t, out.Pix[0])
}
