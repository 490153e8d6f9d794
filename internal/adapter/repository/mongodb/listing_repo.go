package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	listingCollectionName = "listings"
	userCollectionName    = "users"
	reviewCollectionName  = "reviews"
)

// hasGeometry restricts queries to listings that carry a point. Legacy records
// without one stay invisible until the backfill gives them geometry.
var hasGeometry = bson.M{"$exists": true, "$ne": nil}

// ListingRepository implements domain.ListingRepository on MongoDB.
type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

// NewListingRepository creates the repository and ensures its indexes.
func NewListingRepository(db *mongo.Database, log *logger.Logger) (*ListingRepository, error) {
	collection := db.Collection(listingCollectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Error("Failed to create indexes for listings collection", zap.Error(err))
	} else {
		log.Info("Successfully ensured indexes for listings collection")
	}

	return &ListingRepository{
		collection: collection,
		logger:     log.Named("ListingRepository"),
	}, nil
}

// Create inserts the listing and fills in its id, timestamps and revision.
func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	r.logger.Info("Creating listing in DB", zap.String("owner_id", listing.OwnerID), zap.String("title", listing.Title))

	doc, err := fromDomainListing(listing)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Revision = 0

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert listing into DB", zap.Error(err))
		return fmt.Errorf("db insert failed: %w", err)
	}

	listing.ID = doc.ID.Hex()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing.Revision = 0
	if listing.ReviewIDs == nil {
		listing.ReviewIDs = []string{}
	}
	r.logger.Info("Listing created successfully in DB", zap.String("listing_id", listing.ID))
	return nil
}

// FindByID returns the stored listing without expansion.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var doc listingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid, "geometry": hasGeometry}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get listing by ID from DB", zap.Error(err), zap.String("listing_id", id))
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomain(), nil
}

// FindDetailsByID loads the listing with its owner and each review's author in one aggregation.
func (r *ListingRepository) FindDetailsByID(ctx context.Context, id string) (*domain.ListingDetails, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	cursor, err := r.collection.Aggregate(ctx, detailsPipeline(oid))
	if err != nil {
		r.logger.Error("Failed to aggregate listing details", zap.Error(err), zap.String("listing_id", id))
		return nil, fmt.Errorf("db aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []detailsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode listing details", zap.Error(err), zap.String("listing_id", id))
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0].toDomain(), nil
}

// UpdateFields sets the patched fields if the stored revision still equals expectedRevision.
func (r *ListingRepository) UpdateFields(ctx context.Context, id string, patch domain.ListingPatch, expectedRevision int64) (*domain.Listing, error) {
	update := bson.M{
		"$set": patchSet(patch, time.Now().UTC()),
		"$inc": bson.M{"revision": 1},
	}
	return r.conditionalUpdate(ctx, id, expectedRevision, update)
}

// SetLocation replaces location and geometry together.
func (r *ListingRepository) SetLocation(ctx context.Context, id, location string, geometry domain.GeoPoint, expectedRevision int64) (*domain.Listing, error) {
	update := bson.M{
		"$set": bson.M{
			"location":   location,
			"geometry":   fromDomainGeometry(geometry),
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"revision": 1},
	}
	return r.conditionalUpdate(ctx, id, expectedRevision, update)
}

func (r *ListingRepository) conditionalUpdate(ctx context.Context, id string, expectedRevision int64, update bson.M) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	filter := bson.M{"_id": oid, "geometry": hasGeometry, "revision": expectedRevision}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc listingDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		r.logger.Info("Listing updated successfully in DB", zap.String("listing_id", id), zap.Int64("revision", doc.Revision))
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		r.logger.Error("Failed to update listing in DB", zap.Error(err), zap.String("listing_id", id))
		return nil, fmt.Errorf("db update failed: %w", err)
	}

	// Nothing matched: either the record is gone or someone else got there first.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid, "geometry": hasGeometry})
	if err != nil {
		return nil, fmt.Errorf("db count failed: %w", err)
	}
	if count == 0 {
		return nil, domain.ErrNotFound
	}
	r.logger.Warn("Revision mismatch on listing update", zap.String("listing_id", id), zap.Int64("expected_revision", expectedRevision))
	return nil, domain.ErrConflict
}

// DeleteByID removes the listing and reports whether anything was removed.
func (r *ListingRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Failed to delete listing from DB", zap.Error(err), zap.String("listing_id", id))
		return false, fmt.Errorf("db delete failed: %w", err)
	}
	r.logger.Info("Listing delete executed", zap.String("listing_id", id), zap.Int64("deleted", result.DeletedCount))
	return result.DeletedCount > 0, nil
}

// List returns a page of listings, newest first, with the total match count.
func (r *ListingRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Listing, int64, error) {
	query := bson.M{"geometry": hasGeometry}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(filter.Limit)
		if filter.Page > 0 {
			findOptions.SetSkip((filter.Page - 1) * filter.Limit)
		}
	}

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		r.logger.Error("Failed to list listings from DB", zap.Error(err))
		return nil, 0, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("db cursor all failed: %w", err)
	}

	listings := make([]*domain.Listing, len(docs))
	for i, doc := range docs {
		listings[i] = doc.toDomain()
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return listings, total, nil
}

// FindMissingGeometry returns listings stored before geometry was recorded.
func (r *ListingRepository) FindMissingGeometry(ctx context.Context) ([]*domain.Listing, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"geometry": nil})
	if err != nil {
		r.logger.Error("Failed to find listings without geometry", zap.Error(err))
		return nil, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	listings := make([]*domain.Listing, len(docs))
	for i, doc := range docs {
		listings[i] = doc.toDomain()
	}
	return listings, nil
}

// SetGeometry stores a point on a listing. The revision is bumped so pending
// writers holding the old revision are rejected.
func (r *ListingRepository) SetGeometry(ctx context.Context, id string, geometry domain.GeoPoint) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"geometry": fromDomainGeometry(geometry), "updated_at": time.Now().UTC()},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		r.logger.Error("Failed to set listing geometry", zap.Error(err), zap.String("listing_id", id))
		return fmt.Errorf("db update failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddReview appends a review reference once.
func (r *ListingRepository) AddReview(ctx context.Context, listingID, reviewID string) error {
	return r.updateReviews(ctx, listingID, bson.M{"$addToSet": bson.M{"review_ids": reviewID}})
}

// RemoveReview drops a review reference.
func (r *ListingRepository) RemoveReview(ctx context.Context, listingID, reviewID string) error {
	return r.updateReviews(ctx, listingID, bson.M{"$pull": bson.M{"review_ids": reviewID}})
}

func (r *ListingRepository) updateReviews(ctx context.Context, listingID string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		r.logger.Error("Failed to update listing reviews", zap.Error(err), zap.String("listing_id", listingID))
		return fmt.Errorf("db update failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// toObjectID converts a string expression to an ObjectId, yielding null when it is not valid hex.
func toObjectID(expr interface{}) bson.M {
	return bson.M{"$convert": bson.M{"input": expr, "to": "objectId", "onError": nil, "onNull": nil}}
}

// detailsPipeline matches one listing and joins its owner and reviews, each
// review with its author.
func detailsPipeline(id primitive.ObjectID) mongo.Pipeline {
	userProjection := bson.M{"$project": bson.M{"username": 1, "email": 1}}

	authorLookup := bson.M{"$lookup": bson.M{
		"from": userCollectionName,
		"let":  bson.M{"authorId": toObjectID("$user_id")},
		"pipeline": bson.A{
			bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$authorId"}}}},
			userProjection,
		},
		"as": "author",
	}}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id, "geometry": hasGeometry}}},
		{{Key: "$lookup", Value: bson.M{
			"from": userCollectionName,
			"let":  bson.M{"ownerId": toObjectID("$owner_id")},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$ownerId"}}}},
				userProjection,
			},
			"as": "owner",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": reviewCollectionName,
			"let": bson.M{"reviewIds": bson.M{"$map": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$review_ids", bson.A{}}},
				"as":    "rid",
				"in":    toObjectID("$$rid"),
			}}},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$in": bson.A{"$_id", "$$reviewIds"}}}},
				authorLookup,
			},
			"as": "reviews",
		}}},
	}
}
