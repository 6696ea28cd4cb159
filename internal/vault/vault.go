// Package vault owns the durable mapping from owner identifier to a stable
// 32-byte master key, creating keys lazily on first use.
package vault

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// KeySize is the master-key length in bytes (AES-256).
const KeySize = 32

// KeyRepository defines the persistence operations required by the vault.
type KeyRepository interface {
	// Get returns the stored key for the owner, or nil if none exists.
	Get(ctx context.Context, ownerID string) ([]byte, error)
	// Create persists a key for the owner if and only if none exists yet.
	// It reports whether this call inserted the key.
	Create(ctx context.Context, ownerID string, key []byte) (bool, error)
	// Count returns the number of owners with a key.
	Count(ctx context.Context) (int64, error)
}

// Vault serves master keys from an in-memory cache backed by a durable
// repository. A key, once created for an owner, never changes: changing it
// would orphan every ciphertext ever produced under it.
type Vault struct {
	repo KeyRepository
	log  *zap.Logger

	mu   sync.Mutex
	keys map[string][]byte
}

// New constructs a Vault over the given repository.
func New(repo KeyRepository, log *zap.Logger) *Vault {
	return &Vault{
		repo: repo,
		log:  log,
		keys: make(map[string][]byte),
	}
}

// GetOrCreate returns the owner's master key, generating and persisting one
// on first access. Concurrent first-access races are resolved by the
// repository's atomic insert-if-absent: the losing caller re-reads the
// winner's key, so no caller ever observes two different keys for the same
// owner. Key bytes are never logged.
func (v *Vault) GetOrCreate(ctx context.Context, ownerID string) ([]byte, error) {
	if ownerID == "" {
		return nil, errors.New("empty owner id")
	}

	v.mu.Lock()
	if key, ok := v.keys[ownerID]; ok {
		v.mu.Unlock()
		return key, nil
	}
	v.mu.Unlock()

	key, err := v.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}

	if key == nil {
		fresh := make([]byte, KeySize)
		if _, err := rand.Read(fresh); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		inserted, err := v.repo.Create(ctx, ownerID, fresh)
		if err != nil {
			return nil, fmt.Errorf("persist key: %w", err)
		}
		if inserted {
			key = fresh
			v.log.Info("generated master key", zap.String("owner", ownerID))
		} else {
			// Another caller won the creation race; adopt its key.
			key, err = v.repo.Get(ctx, ownerID)
			if err != nil {
				return nil, fmt.Errorf("reload key: %w", err)
			}
			if key == nil {
				return nil, errors.New("key missing after create conflict")
			}
		}
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("stored key has %d bytes, want %d", len(key), KeySize)
	}

	v.mu.Lock()
	v.keys[ownerID] = key
	v.mu.Unlock()
	return key, nil
}

// Count returns the number of owners that have a master key.
func (v *Vault) Count(ctx context.Context) (int64, error) {
	return v.repo.Count(ctx)
}
