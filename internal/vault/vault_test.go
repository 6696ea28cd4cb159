package vault

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRepo is an in-memory KeyRepository with an atomic insert-if-absent,
// mirroring the ON CONFLICT DO NOTHING semantics of the Postgres store.
type memRepo struct {
	mu      sync.Mutex
	keys    map[string][]byte
	inserts int

	getErr    error
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{keys: make(map[string][]byte)}
}

func (r *memRepo) Get(_ context.Context, ownerID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.keys[ownerID], nil
}

func (r *memRepo) Create(_ context.Context, ownerID string, key []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if _, ok := r.keys[ownerID]; ok {
		return false, nil
	}
	r.keys[ownerID] = key
	r.inserts++
	return true, nil
}

func (r *memRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.keys)), nil
}

func TestVault_GetOrCreateIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	v := New(repo, zap.NewNop())
	ctx := context.Background()

	first, err := v.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, KeySize)

	second, err := v.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.inserts)
}

func TestVault_DistinctOwnersGetDistinctKeys(t *testing.T) {
	v := New(newMemRepo(), zap.NewNop())
	ctx := context.Background()

	k1, err := v.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	k2, err := v.GetOrCreate(ctx, "u2")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestVault_ConcurrentFirstAccessCreatesExactlyOnce(t *testing.T) {
	repo := newMemRepo()
	v := New(repo, zap.NewNop())
	ctx := context.Background()

	const callers = 32
	results := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := v.GetOrCreate(ctx, "shared")
			assert.NoError(t, err)
			results[i] = key
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.inserts, "exactly one key must ever be persisted")
	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0], results[i], "caller %d observed a different key", i)
	}
}

func TestVault_SurvivesPersistenceFailure(t *testing.T) {
	repo := newMemRepo()
	v := New(repo, zap.NewNop())
	ctx := context.Background()

	repo.mu.Lock()
	repo.createErr = errors.New("disk full")
	repo.mu.Unlock()

	_, err := v.GetOrCreate(ctx, "u1")
	require.Error(t, err)

	// The failure must not poison in-memory state: once the store
	// recovers, the owner gets a key as usual.
	repo.mu.Lock()
	repo.createErr = nil
	repo.mu.Unlock()

	key, err := v.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
}

func TestVault_GetErrorPropagates(t *testing.T) {
	repo := newMemRepo()
	repo.getErr = errors.New("connection refused")
	v := New(repo, zap.NewNop())

	_, err := v.GetOrCreate(context.Background(), "u1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestVault_RejectsMalformedStoredKey(t *testing.T) {
	repo := newMemRepo()
	repo.keys["u1"] = []byte("short")
	v := New(repo, zap.NewNop())

	_, err := v.GetOrCreate(context.Background(), "u1")
	assert.ErrorContains(t, err, "5 bytes")
}

func TestVault_EmptyOwnerRejected(t *testing.T) {
	v := New(newMemRepo(), zap.NewNop())
	_, err := v.GetOrCreate(context.Background(), "")
	assert.Error(t, err)
}

func TestVault_Count(t *testing.T) {
	repo := newMemRepo()
	v := New(repo, zap.NewNop())
	ctx := context.Background()

	for _, owner := range []string{"a", "b", "c"} {
		_, err := v.GetOrCreate(ctx, owner)
		require.NoError(t, err)
	}

	count, err := v.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
