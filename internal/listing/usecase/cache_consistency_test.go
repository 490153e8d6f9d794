package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memCache mirrors the generation rules of the Redis cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]*domain.ListingDetails
	gens    map[string]int64
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*domain.ListingDetails{}, gens: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, id string) (*domain.ListingDetails, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id], c.gens[id], nil
}

func (c *memCache) Set(_ context.Context, details *domain.ListingDetails, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[details.ID] == generation {
		c.entries[details.ID] = details
	}
	return nil
}

func (c *memCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[id]++
	delete(c.entries, id)
	return nil
}

// slowReadRepo holds FindDetailsByID after it has read the record until released.
type slowReadRepo struct {
	*memRepo
	pause    bool
	loaded   chan struct{}
	released chan struct{}
}

func (r *slowReadRepo) FindDetailsByID(ctx context.Context, id string) (*domain.ListingDetails, error) {
	details, err := r.memRepo.FindDetailsByID(ctx, id)
	if r.pause {
		r.pause = false
		close(r.loaded)
		<-r.released
	}
	return details, err
}

func newCachedScenario(t *testing.T) (*ListingUsecase, *slowReadRepo) {
	t.Helper()
	repo := &slowReadRepo{memRepo: newMemRepo()}
	geo := new(MockGeocoder)
	geo.On("ForwardGeocode", mock.Anything, "Paris", 1).Return(paris, nil)
	return NewListingUsecase(repo, geo, nil, newMemCache(), nil, logger.NewNop()), repo
}

// readDuring starts a GetListing that pauses after loading, runs write, then lets the read finish.
func readDuring(t *testing.T, uc *ListingUsecase, repo *slowReadRepo, id string, write func()) {
	t.Helper()
	repo.pause = true
	repo.loaded = make(chan struct{})
	repo.released = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := uc.GetListing(context.Background(), id)
		done <- err
	}()

	<-repo.loaded
	write()
	close(repo.released)
	require.NoError(t, <-done)
}

func TestGetListing_ReadRacingDeleteDoesNotResurrect(t *testing.T) {
	uc, repo := newCachedScenario(t)
	ctx := context.Background()

	created, err := uc.CreateListing(ctx, "user-1", parisFields(), testImage())
	require.NoError(t, err)

	readDuring(t, uc, repo, created.ID, func() {
		require.NoError(t, uc.DeleteListing(ctx, "user-1", created.ID))
	})

	got, err := uc.GetListing(ctx, created.ID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetListing_ReadRacingUpdateServesNewValue(t *testing.T) {
	uc, repo := newCachedScenario(t)
	ctx := context.Background()

	created, err := uc.CreateListing(ctx, "user-1", parisFields(), testImage())
	require.NoError(t, err)

	readDuring(t, uc, repo, created.ID, func() {
		_, err := uc.UpdateListing(ctx, "user-1", created.ID, domain.ListingPatch{Title: strPtr("Renovated loft")})
		require.NoError(t, err)
	})

	got, err := uc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renovated loft", got.Title)
	assert.Equal(t, int64(1), got.Revision)

	// The second read filled the cache; a third is served from it.
	again, err := uc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	assert.Same(t, got, again)
}
