// Package models defines the core data structures shared between the
// entropy, vault, and gateway layers.
package models

// EntropyMode selects the sampling strategy used by the entropy source.
type EntropyMode string

const (
	// ModeCamera derives entropy from motion in a live video feed.
	ModeCamera EntropyMode = "camera"
	// ModeDemo derives entropy from a secure pseudorandom generator.
	ModeDemo EntropyMode = "demo"
)

// EntropyStatus classifies the liveness signal carried by a Sample.
type EntropyStatus string

const (
	// StatusLive indicates clear motion above the live threshold.
	StatusLive EntropyStatus = "LIVE"
	// StatusLow indicates weak but non-zero motion.
	StatusLow EntropyStatus = "LOW"
	// StatusNone indicates no measurable motion.
	StatusNone EntropyStatus = "NONE"
	// StatusDemo indicates the pseudorandom fallback produced the sample.
	StatusDemo EntropyStatus = "DEMO"
)

// Sample is one liveness measurement taken from the entropy source.
// Bytes are used only as hash input for entropy mixing; they are never
// persisted and never influence master-key material.
type Sample struct {
	// Bytes holds 32 bytes of hashed sensor (or pseudorandom) data.
	Bytes []byte
	// Status is the coarse liveness classification of the capture.
	Status EntropyStatus
	// Score is the weighted aggregate of the capture's motion statistics
	// (mean, spread, peak and region count); zero in demo mode.
	Score float64
}
