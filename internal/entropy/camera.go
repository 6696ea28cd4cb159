package entropy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fishkms/internal/config"
	"fishkms/internal/models"
)

// CameraSource derives samples from motion in a live video feed. The camera
// is a singular hardware resource, so captures are mutually exclusive; a
// capture failure or timeout degrades to a demo sample.
type CameraSource struct {
	open     GrabberFactory
	tunables config.Tunables
	timeout  time.Duration
	fallback DemoSource
	log      *zap.Logger

	// captureMu serializes device access; only one capture is in flight.
	captureMu sync.Mutex

	mu   sync.Mutex
	last models.Sample
}

// NewCameraSource creates a camera-backed source. open is invoked per
// capture; timeout bounds a whole capture before falling back to demo
// sampling.
func NewCameraSource(open GrabberFactory, tun config.Tunables, timeout time.Duration, log *zap.Logger) *CameraSource {
	return &CameraSource{
		open:     open,
		tunables: tun,
		timeout:  timeout,
		log:      log,
	}
}

// Mode reports the camera strategy.
func (s *CameraSource) Mode() models.EntropyMode { return models.ModeCamera }

// Last returns the most recent sample's status and score. Before any
// capture it reports NONE with a zero score.
func (s *CameraSource) Last() (models.EntropyStatus, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Status == "" {
		return models.StatusNone, 0
	}
	return s.last.Status, s.last.Score
}

// Sample captures and analyzes one frame sequence. Any camera error or a
// capture exceeding the configured timeout produces a demo fallback sample
// instead of an error, so a broken device never fails an unlock request.
func (s *CameraSource) Sample(ctx context.Context) (models.Sample, error) {
	captureID := uuid.NewString()

	result := make(chan models.Sample, 1)
	go func() {
		s.captureMu.Lock()
		defer s.captureMu.Unlock()

		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		sample, err := s.capture(cctx)
		if err != nil {
			s.log.Warn("camera capture failed, falling back to demo",
				zap.String("capture", captureID), zap.Error(err))
			sample, err = s.fallback.Sample(ctx)
			if err != nil {
				// OS random source failure; nothing left to degrade to.
				return
			}
		}
		result <- sample
	}()

	// The extra grace period covers captures queued behind one in flight.
	deadline := time.NewTimer(2*s.timeout + time.Second)
	defer deadline.Stop()

	select {
	case sample := <-result:
		s.record(sample)
		return sample, nil
	case <-deadline.C:
	case <-ctx.Done():
	}

	s.log.Warn("camera capture timed out, falling back to demo",
		zap.String("capture", captureID))
	sample, err := s.fallback.Sample(ctx)
	if err != nil {
		return models.Sample{}, err
	}
	s.record(sample)
	return sample, nil
}

// capture grabs the configured number of frames, enforcing the inter-frame
// delay, and runs the motion pipeline over them.
func (s *CameraSource) capture(ctx context.Context) (models.Sample, error) {
	grabber, err := s.open()
	if err != nil {
		return models.Sample{}, err
	}
	defer func() { _ = grabber.Close() }()

	delay := time.Duration(s.tunables.FrameDelayMS) * time.Millisecond
	frames := make([]Frame, 0, s.tunables.FrameCount)
	for i := 0; i < s.tunables.FrameCount; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return models.Sample{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		frame, err := grabber.Grab(ctx)
		if err != nil {
			return models.Sample{}, err
		}
		frames = append(frames, frame)
	}

	res, err := analyzeMotion(frames, s.tunables)
	if err != nil {
		return models.Sample{}, err
	}
	s.log.Debug("capture analyzed",
		zap.Float64("score", res.Score),
		zap.String("status", string(res.Status)),
		zap.Float64("mean", res.Mean),
		zap.Float64("peak", res.Peak),
		zap.Int("regions", res.Regions),
	)
	return models.Sample{Bytes: res.Bytes, Status: res.Status, Score: res.Score}, nil
}

func (s *CameraSource) record(sample models.Sample) {
	s.mu.Lock()
	s.last = sample
	s.mu.Unlock()
}
