// Package service implements the KMS orchestration logic: the liveness gate,
// the unlock ledger, and the encrypt/decrypt operations over the cipher
// engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fishkms/internal/ledger"
	"fishkms/internal/metrics"
	"fishkms/internal/models"
)

var (
	// ErrLocked indicates a decrypt was attempted while the owner has no
	// valid unlock window, or the liveness gate rejected an unlock.
	ErrLocked = errors.New("vault is locked")
	// ErrEntropy indicates a hard sampling failure during unlock.
	ErrEntropy = errors.New("entropy sampling failed")
)

// Source produces liveness samples; see the entropy package.
type Source interface {
	Sample(ctx context.Context) (models.Sample, error)
	Mode() models.EntropyMode
}

// Cipher performs authenticated encryption for an owner.
type Cipher interface {
	Encrypt(ctx context.Context, ownerID, plaintext string) (string, string, error)
	Decrypt(ctx context.Context, ownerID, ciphertextB64, nonceB64 string) (string, error)
}

// KeyCounter reports how many owners hold a master key.
type KeyCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthInfo describes the entropy subsystem for the health endpoint.
type HealthInfo struct {
	Mode   models.EntropyMode
	Status models.EntropyStatus
	Score  float64
}

// StatusInfo carries aggregate counts for observability.
type StatusInfo struct {
	UnlockedCount int
	TotalOwners   int64
}

// Deps bundles the collaborators of the KMS service.
type Deps struct {
	Source Source
	Cipher Cipher
	Keys   KeyCounter
	Ledger *ledger.Ledger
	// Window is the duration of a granted unlock window.
	Window time.Duration
	// RequireLive tightens the gate so only LIVE (or DEMO) samples grant.
	RequireLive bool
	Log         *zap.Logger
}

// KMS composes the entropy source, cipher engine, key vault and unlock
// ledger into the operations the gateway exposes.
type KMS struct {
	source      Source
	cipher      Cipher
	keys        KeyCounter
	ledger      *ledger.Ledger
	window      time.Duration
	requireLive bool
	log         *zap.Logger
}

// New constructs the KMS service.
func New(d Deps) *KMS {
	return &KMS{
		source:      d.Source,
		cipher:      d.Cipher,
		keys:        d.Keys,
		ledger:      d.Ledger,
		window:      d.Window,
		requireLive: d.RequireLive,
		log:         d.Log,
	}
}

// Unlock takes one entropy sample and, if the liveness gate passes, grants
// the owner an unlock window. The default gate is permissive: any sample
// short of a hard sampling failure grants, trading physical-presence
// assurance for availability.
func (k *KMS) Unlock(ctx context.Context, ownerID string) (time.Time, error) {
	sample, err := k.source.Sample(ctx)
	if err != nil {
		metrics.IncUnlock("failed")
		return time.Time{}, fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	k.observe(sample)

	if !k.granted(sample) {
		metrics.IncUnlock("rejected")
		k.log.Info("unlock rejected by liveness gate",
			zap.String("owner", ownerID),
			zap.String("status", string(sample.Status)),
			zap.Float64("score", sample.Score),
		)
		return time.Time{}, ErrLocked
	}

	until := k.ledger.Unlock(ownerID, k.window)
	metrics.IncUnlock("granted")
	k.log.Info("owner unlocked",
		zap.String("owner", ownerID),
		zap.String("status", string(sample.Status)),
		zap.Float64("score", sample.Score),
		zap.Time("until", until),
	)
	return until, nil
}

// granted applies the liveness gate policy to a sample.
func (k *KMS) granted(sample models.Sample) bool {
	if sample.Status == models.StatusDemo {
		// Demo samples carry no motion signal; they always pass.
		return true
	}
	if k.requireLive {
		return sample.Status == models.StatusLive
	}
	return true
}

// Lock immediately revokes the owner's unlock window.
func (k *KMS) Lock(_ context.Context, ownerID string) {
	k.ledger.Lock(ownerID)
	k.log.Info("owner locked", zap.String("owner", ownerID))
}

// Encrypt encrypts plaintext for the owner. Encryption is never gated.
func (k *KMS) Encrypt(ctx context.Context, ownerID, plaintext string) (string, string, error) {
	ciphertext, nonce, err := k.cipher.Encrypt(ctx, ownerID, plaintext)
	if err != nil {
		metrics.IncCryptoOp("encrypt", "error")
		return "", "", err
	}
	metrics.IncCryptoOp("encrypt", "ok")
	k.log.Info("encrypted", zap.String("owner", ownerID), zap.Int("plaintextBytes", len(plaintext)))
	return ciphertext, nonce, nil
}

// Decrypt decrypts a ciphertext/nonce pair for the owner. The owner must be
// within a valid unlock window; expiry is evaluated here, at call time.
func (k *KMS) Decrypt(ctx context.Context, ownerID, ciphertextB64, nonceB64 string) (string, error) {
	if !k.ledger.IsUnlocked(ownerID) {
		metrics.IncCryptoOp("decrypt", "locked")
		return "", ErrLocked
	}
	plaintext, err := k.cipher.Decrypt(ctx, ownerID, ciphertextB64, nonceB64)
	if err != nil {
		metrics.IncCryptoOp("decrypt", "error")
		return "", err
	}
	metrics.IncCryptoOp("decrypt", "ok")
	k.log.Info("decrypted", zap.String("owner", ownerID), zap.Int("plaintextBytes", len(plaintext)))
	return plaintext, nil
}

// Health takes a fresh sample and reports the entropy subsystem state.
func (k *KMS) Health(ctx context.Context) (HealthInfo, error) {
	info := HealthInfo{Mode: k.source.Mode()}
	sample, err := k.source.Sample(ctx)
	if err != nil {
		info.Status = models.StatusNone
		return info, nil
	}
	k.observe(sample)
	info.Status = sample.Status
	info.Score = sample.Score
	return info, nil
}

// Status reports aggregate counts for observability.
func (k *KMS) Status(ctx context.Context) (StatusInfo, error) {
	total, err := k.keys.Count(ctx)
	if err != nil {
		return StatusInfo{}, fmt.Errorf("count owners: %w", err)
	}
	return StatusInfo{
		UnlockedCount: k.ledger.UnlockedCount(),
		TotalOwners:   total,
	}, nil
}

// observe publishes sample telemetry.
func (k *KMS) observe(sample models.Sample) {
	metrics.SetMotionScore(sample.Score)
	if k.source.Mode() == models.ModeCamera && sample.Status == models.StatusDemo {
		metrics.IncEntropyFallback()
	}
}
