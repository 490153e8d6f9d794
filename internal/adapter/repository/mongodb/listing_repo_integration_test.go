package mongodb

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testDB *mongo.Database

// TestMain starts a throwaway MongoDB when Docker is reachable. Without Docker,
// or with -short, the integration tests skip and the unit tests still run.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		log.Printf("Docker unavailable, skipping MongoDB integration tests")
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=root",
			"MONGO_INITDB_ROOT_PASSWORD=password",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	_ = resource.Expire(120)

	uri := fmt.Sprintf("mongodb://root:password@%s/?authSource=admin", resource.GetHostPort("27017/tcp"))
	var client *mongo.Client
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	testDB = client.Database("wanderlust_test")

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newTestRepo(t *testing.T) *ListingRepository {
	t.Helper()
	if testDB == nil {
		t.Skip("MongoDB integration environment not available")
	}
	ctx := context.Background()
	require.NoError(t, testDB.Collection(listingCollectionName).Drop(ctx))
	require.NoError(t, testDB.Collection(userCollectionName).Drop(ctx))
	require.NoError(t, testDB.Collection(reviewCollectionName).Drop(ctx))

	repo, err := NewListingRepository(testDB, logger.NewNop())
	require.NoError(t, err)
	return repo
}

func seedListing(t *testing.T, repo *ListingRepository, ownerID string) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		Title:    "Loft",
		Price:    1500,
		Location: "Paris",
		Country:  "France",
		Image:    domain.ImageRef{URL: "http://img/x.jpg", Filename: "x.jpg"},
		OwnerID:  ownerID,
		Geometry: domain.NewPoint(2.3522, 48.8566),
	}
	require.NoError(t, repo.Create(context.Background(), l))
	return l
}

func TestListingRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := seedListing(t, repo, primitive.NewObjectID().Hex())
	require.NotEmpty(t, created.ID)

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Geometry, got.Geometry)
	assert.Equal(t, created.OwnerID, got.OwnerID)

	_, err = repo.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingRepository_FindDetailsByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ownerID, authorID := primitive.NewObjectID(), primitive.NewObjectID()
	_, err := testDB.Collection(userCollectionName).InsertMany(ctx, []interface{}{
		bson.M{"_id": ownerID, "username": "alice", "email": "alice@example.com"},
		bson.M{"_id": authorID, "username": "bob", "email": "bob@example.com"},
	})
	require.NoError(t, err)

	listing := seedListing(t, repo, ownerID.Hex())
	r1, r2 := primitive.NewObjectID(), primitive.NewObjectID()
	_, err = testDB.Collection(reviewCollectionName).InsertMany(ctx, []interface{}{
		bson.M{"_id": r1, "comment": "Lovely", "rating": 5, "user_id": authorID.Hex(), "created_at": time.Now()},
		bson.M{"_id": r2, "comment": "Fine", "rating": 3, "user_id": authorID.Hex(), "created_at": time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, repo.AddReview(ctx, listing.ID, r2.Hex()))
	require.NoError(t, repo.AddReview(ctx, listing.ID, r1.Hex()))
	require.NoError(t, repo.AddReview(ctx, listing.ID, primitive.NewObjectID().Hex()))

	details, err := repo.FindDetailsByID(ctx, listing.ID)
	require.NoError(t, err)

	require.NotNil(t, details.Owner)
	assert.Equal(t, "alice", details.Owner.Username)
	require.Len(t, details.Reviews, 2)
	assert.Equal(t, r2.Hex(), details.Reviews[0].ID)
	assert.Equal(t, r1.Hex(), details.Reviews[1].ID)
	assert.Equal(t, "bob", details.Reviews[0].Author.Username)
}

func TestListingRepository_UpdateFieldsRevision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	listing := seedListing(t, repo, "owner-1")

	title := "Sunny loft"
	updated, err := repo.UpdateFields(ctx, listing.ID, domain.ListingPatch{Title: &title}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Sunny loft", updated.Title)
	assert.Equal(t, int64(1), updated.Revision)
	assert.Equal(t, listing.Geometry, updated.Geometry)
	assert.Equal(t, "owner-1", updated.OwnerID)

	_, err = repo.UpdateFields(ctx, listing.ID, domain.ListingPatch{Title: &title}, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.UpdateFields(ctx, primitive.NewObjectID().Hex(), domain.ListingPatch{Title: &title}, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingRepository_DeleteAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := seedListing(t, repo, "owner-1")
	seedListing(t, repo, "owner-2")

	listings, total, err := repo.List(ctx, domain.ListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, listings, 2)

	deleted, err := repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, total, err = repo.List(ctx, domain.ListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListingRepository_Backfill(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	legacyID := primitive.NewObjectID()
	_, err := testDB.Collection(listingCollectionName).InsertOne(ctx, bson.M{
		"_id": legacyID, "title": "Old", "location": "Lyon", "owner_id": "owner-1", "review_ids": bson.A{},
	})
	require.NoError(t, err)
	seedListing(t, repo, "owner-1")

	missing, err := repo.FindMissingGeometry(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, legacyID.Hex(), missing[0].ID)

	_, err = repo.FindByID(ctx, legacyID.Hex())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.SetGeometry(ctx, legacyID.Hex(), domain.NewPoint(4.8357, 45.764)))

	got, err := repo.FindByID(ctx, legacyID.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.NewPoint(4.8357, 45.764), got.Geometry)
}
