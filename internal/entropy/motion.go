package entropy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"fishkms/internal/config"
	"fishkms/internal/models"
)

// analysis is the outcome of running the motion pipeline over one capture.
type analysis struct {
	Score   float64
	Status  models.EntropyStatus
	Bytes   []byte
	Mean    float64
	Peak    float64
	Std     float64
	Regions int
}

// analyzeMotion runs the motion pipeline over a captured frame sequence:
// blur, pairwise amplified differences, background-thresholded motion mask,
// connected-region extraction, and score aggregation. The returned entropy
// bytes are a hash of the difference data; raw pixels never leave this
// package.
func analyzeMotion(frames []Frame, tun config.Tunables) (analysis, error) {
	if len(frames) == 0 {
		return analysis{}, errors.New("no frames captured")
	}
	if len(frames) == 1 {
		return analyzeSingle(frames[0], tun)
	}

	w, h := frames[0].Width, frames[0].Height
	n := w * h
	for _, f := range frames {
		if f.Width != w || f.Height != h || len(f.Pix) < n {
			return analysis{}, errors.New("inconsistent frame geometry")
		}
	}

	blurred := make([]Frame, len(frames))
	for i, f := range frames {
		blurred[i] = blur3(f)
	}

	// Running background estimate, seeded from the first frame and updated
	// by slow exponential smoothing so gradual lighting drift is absorbed
	// while genuine motion still clears the threshold.
	background := make([]float64, n)
	for p := 0; p < n; p++ {
		background[p] = float64(blurred[0].Pix[p])
	}

	sum := make([]float64, n)
	mask := make([]bool, n)
	peak := 0.0
	for i := 1; i < len(blurred); i++ {
		prev, cur := blurred[i-1].Pix, blurred[i].Pix
		for p := 0; p < n; p++ {
			d := float64(cur[p]) - float64(prev[p])
			if d < 0 {
				d = -d
			}
			d *= tun.Gain
			if d > 255 {
				d = 255
			}
			sum[p] += d
			if d > peak {
				peak = d
			}

			bg := float64(cur[p]) - background[p]
			if bg < 0 {
				bg = -bg
			}
			if bg*tun.Gain > tun.DiffThreshold {
				mask[p] = true
			}
			background[p] += tun.BackgroundAlpha * (float64(cur[p]) - background[p])
		}
	}

	pairs := float64(len(blurred) - 1)
	mean := 0.0
	for p := 0; p < n; p++ {
		sum[p] /= pairs
		mean += sum[p]
	}
	mean /= float64(n)

	variance := 0.0
	for p := 0; p < n; p++ {
		dev := sum[p] - mean
		variance += dev * dev
	}
	std := math.Sqrt(variance / float64(n))

	regions := countRegions(mask, w, h, tun.MinRegionArea)

	// Weighted so both sustained motion (mean, std) and brief motion
	// (peak, regions) move the score.
	score := tun.MeanWeight*mean + tun.StdWeight*std + tun.PeakWeight*peak + tun.RegionWeight*float64(regions)

	avg := make([]byte, n)
	for p := 0; p < n; p++ {
		avg[p] = byte(math.Min(sum[p], 255))
	}

	return analysis{
		Score:   score,
		Status:  classify(score, tun),
		Bytes:   hashCapture(avg),
		Mean:    mean,
		Peak:    peak,
		Std:     std,
		Regions: regions,
	}, nil
}

// analyzeSingle handles a capture that yielded only one frame: sensor noise
// becomes the score and the frame itself the hash input.
func analyzeSingle(f Frame, tun config.Tunables) (analysis, error) {
	n := f.Width * f.Height
	if len(f.Pix) < n || n == 0 {
		return analysis{}, errors.New("empty frame")
	}
	mean := 0.0
	for p := 0; p < n; p++ {
		mean += float64(f.Pix[p])
	}
	mean /= float64(n)
	variance := 0.0
	for p := 0; p < n; p++ {
		dev := float64(f.Pix[p]) - mean
		variance += dev * dev
	}
	score := math.Sqrt(variance / float64(n))
	return analysis{
		Score:  score,
		Status: classify(score, tun),
		Bytes:  hashCapture(f.Pix[:n]),
	}, nil
}

// classify maps a motion score onto the coarse liveness status.
func classify(score float64, tun config.Tunables) models.EntropyStatus {
	switch {
	case score > tun.LiveThreshold:
		return models.StatusLive
	case score > tun.LowThreshold:
		return models.StatusLow
	default:
		return models.StatusNone
	}
}

// blur3 applies a 3x3 box blur, suppressing sensor noise while preserving
// subtle motion. Border pixels average only their in-bounds neighbors.
func blur3(f Frame) Frame {
	w, h := f.Width, f.Height
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, cnt := 0, 0
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					sum += int(f.Pix[ny*w+nx])
					cnt++
				}
			}
			out[y*w+x] = byte(sum / cnt)
		}
	}
	return Frame{Width: w, Height: h, Pix: out}
}

// countRegions counts 4-connected components of the motion mask with an
// area of at least minArea pixels.
func countRegions(mask []bool, w, h, minArea int) int {
	visited := make([]bool, len(mask))
	queue := make([]int, 0, 64)
	regions := 0
	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		area := 0
		visited[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			area++
			x := p % w
			neighbors := [4]int{-1, -1, p - w, p + w}
			if x > 0 {
				neighbors[0] = p - 1
			}
			if x < w-1 {
				neighbors[1] = p + 1
			}
			for _, np := range neighbors {
				if np < 0 || np >= len(mask) || !mask[np] || visited[np] {
					continue
				}
				visited[np] = true
				queue = append(queue, np)
			}
		}
		if area >= minArea {
			regions++
		}
	}
	return regions
}

// hashCapture derives entropy bytes from difference data. A timestamp and a
// short random nonce are mixed in so two captures of an identical scene
// still hash differently.
func hashCapture(data []byte) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))
	var nonce [4]byte
	_, _ = rand.Read(nonce[:])

	h := sha256.New()
	h.Write(data)
	h.Write(ts[:])
	h.Write(nonce[:])
	return h.Sum(nil)
}
