// Package metrics exposes Prometheus instrumentation for the KMS.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	unlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishkms", Subsystem: "gate", Name: "unlocks_total", Help: "Unlock attempts by outcome"},
		[]string{"outcome"},
	)
	cryptoOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishkms", Subsystem: "cipher", Name: "operations_total", Help: "Encrypt/decrypt operations by result"},
		[]string{"op", "result"},
	)
	entropyFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "fishkms", Subsystem: "entropy", Name: "fallbacks_total", Help: "Camera captures degraded to demo sampling"},
	)
	motionScore = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "fishkms", Subsystem: "entropy", Name: "motion_score", Help: "Motion score of the latest sample"},
	)
)

func init() {
	// Ignore AlreadyRegistered so parallel test binaries don't panic.
	_ = prometheus.Register(unlocks)
	_ = prometheus.Register(cryptoOps)
	_ = prometheus.Register(entropyFallbacks)
	_ = prometheus.Register(motionScore)
}

// IncUnlock records an unlock attempt: "granted", "rejected" or "failed".
func IncUnlock(outcome string) { unlocks.WithLabelValues(outcome).Inc() }

// IncCryptoOp records an encrypt or decrypt operation and its result.
func IncCryptoOp(op, result string) { cryptoOps.WithLabelValues(op, result).Inc() }

// IncEntropyFallback records a camera capture degraded to demo sampling.
func IncEntropyFallback() { entropyFallbacks.Inc() }

// SetMotionScore publishes the motion score of the latest sample.
func SetMotionScore(score float64) { motionScore.Set(score) }
