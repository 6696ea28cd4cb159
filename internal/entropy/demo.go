package entropy

import (
	"context"
	"crypto/rand"
	"fmt"

	"fishkms/internal/models"
)

// DemoSource produces samples from a cryptographically secure random
// generator. Its samples always carry status DEMO and a zero motion score.
type DemoSource struct{}

// Sample returns 32 random bytes. It fails only if the OS random source does.
func (DemoSource) Sample(_ context.Context) (models.Sample, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return models.Sample{}, fmt.Errorf("read random: %w", err)
	}
	return models.Sample{Bytes: b, Status: models.StatusDemo}, nil
}

// Mode reports the demo strategy.
func (DemoSource) Mode() models.EntropyMode { return models.ModeDemo }
