package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Event subjects published on the listing lifecycle.
const (
	SubjectListingCreated   = "listing.created"
	SubjectListingUpdated   = "listing.updated"
	SubjectListingRelocated = "listing.relocated"
	SubjectListingDeleted   = "listing.deleted"
)

const (
	defaultPageSize int64 = 20
	maxPageSize     int64 = 100
)

var tracer = otel.Tracer("listing-service/usecase")

// ListingUsecase orchestrates the listing lifecycle: geocode-then-persist
// creation, owner-gated mutation and deletion, and expanded reads.
type ListingUsecase struct {
	repo     domain.ListingRepository
	geocoder domain.Geocoder
	events   domain.EventPublisher
	cache    domain.ListingCache
	notifier domain.OwnerNotifier
	validate *validator.Validate
	logger   *logger.Logger
}

// NewListingUsecase wires the usecase. events, cache and notifier are optional.
func NewListingUsecase(
	repo domain.ListingRepository,
	geocoder domain.Geocoder,
	events domain.EventPublisher,
	cache domain.ListingCache,
	notifier domain.OwnerNotifier,
	log *logger.Logger,
) *ListingUsecase {
	if events == nil {
		events = noopPublisher{}
	}
	if cache == nil {
		cache = noopCache{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ListingUsecase{
		repo:     repo,
		geocoder: geocoder,
		events:   events,
		cache:    cache,
		notifier: notifier,
		validate: newValidator(),
		logger:   log.Named("ListingUsecase"),
	}
}

// CreateListing geocodes fields.Location and persists a listing owned by requesterID.
// Nothing is written when geocoding fails.
func (uc *ListingUsecase) CreateListing(ctx context.Context, requesterID string, fields domain.ListingFields, image *domain.ImageRef) (listing *domain.Listing, err error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.CreateListing", trace.WithAttributes(attribute.String("requester_id", requesterID)))
	defer func() { endSpan(span, err) }()

	fields.Title = strings.TrimSpace(fields.Title)
	fields.Location = strings.TrimSpace(fields.Location)
	uc.logger.Info("Creating listing",
		zap.String("requester_id", requesterID),
		zap.String("title", fields.Title),
		zap.String("location", fields.Location))

	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester is required", domain.ErrValidation)
	}
	if image == nil {
		return nil, fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	if err := uc.validateStruct(fields); err != nil {
		return nil, err
	}
	if err := uc.validateStruct(*image); err != nil {
		return nil, err
	}

	point, err := uc.geocode(ctx, fields.Location)
	if err != nil {
		return nil, err
	}

	listing = &domain.Listing{
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		Location:    fields.Location,
		Country:     fields.Country,
		Image:       *image,
		OwnerID:     requesterID,
		ReviewIDs:   []string{},
		Geometry:    point,
	}
	if err := uc.repo.Create(ctx, listing); err != nil {
		uc.logger.Error("Failed to persist listing", zap.Error(err), zap.String("requester_id", requesterID))
		return nil, repoError(err)
	}
	span.SetAttributes(attribute.String("listing_id", listing.ID))

	uc.publish(ctx, SubjectListingCreated, map[string]interface{}{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"title":      listing.Title,
		"location":   listing.Location,
		"longitude":  listing.Geometry.Longitude(),
		"latitude":   listing.Geometry.Latitude(),
		"created_at": listing.CreatedAt.Format(time.RFC3339Nano),
	})
	if err := uc.notifier.NotifyListingCreated(ctx, listing); err != nil {
		uc.logger.Warn("Failed to notify owner about new listing", zap.Error(err), zap.String("listing_id", listing.ID))
	}

	uc.logger.Info("Listing created",
		zap.String("listing_id", listing.ID),
		zap.Stringer("geometry", listing.Geometry))
	return listing, nil
}

// GetListing returns the listing with owner and review authors resolved.
func (uc *ListingUsecase) GetListing(ctx context.Context, id string) (details *domain.ListingDetails, err error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.GetListing", trace.WithAttributes(attribute.String("listing_id", id)))
	defer func() { endSpan(span, err) }()

	cached, generation, cacheErr := uc.cache.Get(ctx, id)
	if cacheErr != nil {
		uc.logger.Warn("Listing cache read failed", zap.Error(cacheErr), zap.String("listing_id", id))
	} else if cached != nil {
		uc.logger.Debug("Listing served from cache", zap.String("listing_id", id))
		return cached, nil
	}

	details, err = uc.repo.FindDetailsByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("Listing not found", zap.String("listing_id", id))
			return nil, err
		}
		uc.logger.Error("Failed to load listing", zap.Error(err), zap.String("listing_id", id))
		return nil, repoError(err)
	}

	// Without a generation there is no way to tell whether a write raced this read.
	if cacheErr == nil {
		if err := uc.cache.Set(ctx, details, generation); err != nil {
			uc.logger.Warn("Listing cache write failed", zap.Error(err), zap.String("listing_id", id))
		}
	}
	return details, nil
}

// ListListings returns a page of listings, newest first.
func (uc *ListingUsecase) ListListings(ctx context.Context, page, limit int64) ([]*domain.Listing, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	uc.logger.Debug("Listing listings", zap.Int64("page", page), zap.Int64("limit", limit))

	listings, total, err := uc.repo.List(ctx, domain.ListFilter{Page: page, Limit: limit})
	if err != nil {
		uc.logger.Error("Failed to list listings", zap.Error(err))
		return nil, 0, repoError(err)
	}
	return listings, total, nil
}

// UpdateListing applies the whitelisted patch on behalf of the owner.
// Geometry is never changed here, even when location is.
func (uc *ListingUsecase) UpdateListing(ctx context.Context, requesterID, id string, patch domain.ListingPatch) (updated *domain.Listing, err error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.UpdateListing", trace.WithAttributes(
		attribute.String("listing_id", id),
		attribute.String("requester_id", requesterID)))
	defer func() { endSpan(span, err) }()

	uc.logger.Info("Updating listing",
		zap.String("listing_id", id),
		zap.String("requester_id", requesterID),
		zap.Strings("fields", patch.Changed()))

	current, err := uc.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.ExpectedRevision != nil && *patch.ExpectedRevision != current.Revision {
		uc.logger.Info("Stale revision on update",
			zap.String("listing_id", id),
			zap.Int64("expected", *patch.ExpectedRevision),
			zap.Int64("stored", current.Revision))
		return nil, fmt.Errorf("%w: expected revision %d, stored %d", domain.ErrConflict, *patch.ExpectedRevision, current.Revision)
	}

	updated, err = uc.repo.UpdateFields(ctx, id, patch, current.Revision)
	if err != nil {
		uc.logger.Warn("Failed to update listing", zap.Error(err), zap.String("listing_id", id))
		return nil, repoError(err)
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, SubjectListingUpdated, map[string]interface{}{
		"listing_id": id,
		"owner_id":   updated.OwnerID,
		"fields":     patch.Changed(),
		"revision":   updated.Revision,
		"updated_at": updated.UpdatedAt.Format(time.RFC3339Nano),
	})
	uc.logger.Info("Listing updated", zap.String("listing_id", id), zap.Int64("revision", updated.Revision))
	return updated, nil
}

// RelocateListing moves a listing: the new location is geocoded first and then
// stored together with its geometry. A geocoding failure leaves the record untouched.
func (uc *ListingUsecase) RelocateListing(ctx context.Context, requesterID, id, location string) (updated *domain.Listing, err error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.RelocateListing", trace.WithAttributes(
		attribute.String("listing_id", id),
		attribute.String("requester_id", requesterID)))
	defer func() { endSpan(span, err) }()

	location = strings.TrimSpace(location)
	uc.logger.Info("Relocating listing",
		zap.String("listing_id", id),
		zap.String("requester_id", requesterID),
		zap.String("location", location))

	current, err := uc.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location cannot be empty", domain.ErrValidation)
	}

	point, err := uc.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	updated, err = uc.repo.SetLocation(ctx, id, location, point, current.Revision)
	if err != nil {
		uc.logger.Warn("Failed to relocate listing", zap.Error(err), zap.String("listing_id", id))
		return nil, repoError(err)
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, SubjectListingRelocated, map[string]interface{}{
		"listing_id": id,
		"location":   updated.Location,
		"longitude":  point.Longitude(),
		"latitude":   point.Latitude(),
		"revision":   updated.Revision,
	})
	uc.logger.Info("Listing relocated", zap.String("listing_id", id), zap.Stringer("geometry", point))
	return updated, nil
}

// DeleteListing removes the listing on behalf of its owner. Reviews are not
// deleted; their ids travel with the listing.deleted event.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, requesterID, id string) (err error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.DeleteListing", trace.WithAttributes(
		attribute.String("listing_id", id),
		attribute.String("requester_id", requesterID)))
	defer func() { endSpan(span, err) }()

	uc.logger.Info("Deleting listing", zap.String("listing_id", id), zap.String("requester_id", requesterID))

	current, err := uc.loadOwned(ctx, requesterID, id)
	if err != nil {
		return err
	}

	deleted, err := uc.repo.DeleteByID(ctx, id)
	if err != nil {
		uc.logger.Error("Failed to delete listing", zap.Error(err), zap.String("listing_id", id))
		return repoError(err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, SubjectListingDeleted, map[string]interface{}{
		"listing_id": id,
		"owner_id":   current.OwnerID,
		"review_ids": current.ReviewIDs,
		"deleted_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	uc.logger.Info("Listing deleted", zap.String("listing_id", id))
	return nil
}

// AttachReview records a review back-reference on a listing. Called by the review subsystem.
func (uc *ListingUsecase) AttachReview(ctx context.Context, listingID, reviewID string) error {
	if listingID == "" || reviewID == "" {
		return fmt.Errorf("%w: listing and review ids are required", domain.ErrValidation)
	}
	if err := uc.repo.AddReview(ctx, listingID, reviewID); err != nil {
		uc.logger.Warn("Failed to attach review", zap.Error(err), zap.String("listing_id", listingID), zap.String("review_id", reviewID))
		return repoError(err)
	}
	uc.invalidate(ctx, listingID)
	uc.logger.Info("Review attached", zap.String("listing_id", listingID), zap.String("review_id", reviewID))
	return nil
}

// DetachReview drops a review back-reference from a listing.
func (uc *ListingUsecase) DetachReview(ctx context.Context, listingID, reviewID string) error {
	if listingID == "" || reviewID == "" {
		return fmt.Errorf("%w: listing and review ids are required", domain.ErrValidation)
	}
	if err := uc.repo.RemoveReview(ctx, listingID, reviewID); err != nil {
		uc.logger.Warn("Failed to detach review", zap.Error(err), zap.String("listing_id", listingID), zap.String("review_id", reviewID))
		return repoError(err)
	}
	uc.invalidate(ctx, listingID)
	uc.logger.Info("Review detached", zap.String("listing_id", listingID), zap.String("review_id", reviewID))
	return nil
}

// BackfillGeometry geocodes stored listings that predate geometry. Per-record
// failures are counted in the report; only a failed scan or a cancelled
// context stops the run.
func (uc *ListingUsecase) BackfillGeometry(ctx context.Context) (domain.BackfillReport, error) {
	var report domain.BackfillReport

	listings, err := uc.repo.FindMissingGeometry(ctx)
	if err != nil {
		uc.logger.Error("Failed to scan listings without geometry", zap.Error(err))
		return report, repoError(err)
	}
	uc.logger.Info("Backfilling geometry", zap.Int("candidates", len(listings)))

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if strings.TrimSpace(l.Location) == "" {
			uc.logger.Info("Skipping listing without location", zap.String("listing_id", l.ID), zap.String("title", l.Title))
			report.Skipped++
			continue
		}
		point, err := uc.geocode(ctx, l.Location)
		if err != nil {
			report.Failed++
			continue
		}
		if err := uc.repo.SetGeometry(ctx, l.ID, point); err != nil {
			uc.logger.Warn("Failed to store backfilled geometry", zap.Error(err), zap.String("listing_id", l.ID))
			report.Failed++
			continue
		}
		uc.invalidate(ctx, l.ID)
		report.Updated++
		uc.logger.Info("Geometry backfilled", zap.String("listing_id", l.ID), zap.Stringer("geometry", point))
	}

	uc.logger.Info("Geometry backfill finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// loadOwned fetches the stored record and checks the requester against its owner.
func (uc *ListingUsecase) loadOwned(ctx context.Context, requesterID, id string) (*domain.Listing, error) {
	current, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("Listing not found", zap.String("listing_id", id))
			return nil, err
		}
		uc.logger.Error("Failed to load listing", zap.Error(err), zap.String("listing_id", id))
		return nil, repoError(err)
	}
	if !domain.CanMutate(requesterID, current.OwnerID) {
		uc.logger.Warn("Requester does not own listing",
			zap.String("listing_id", id),
			zap.String("owner_id", current.OwnerID),
			zap.String("requester_id", requesterID))
		return nil, domain.ErrForbidden
	}
	return current, nil
}

// geocode makes the single geocoding attempt and folds every failure into ErrGeocodingFailed.
func (uc *ListingUsecase) geocode(ctx context.Context, location string) (domain.GeoPoint, error) {
	point, err := uc.geocoder.ForwardGeocode(ctx, location, 1)
	if err != nil {
		uc.logger.Warn("Geocoding failed", zap.Error(err), zap.String("location", location))
		if errors.Is(err, domain.ErrGeocodingFailed) {
			return domain.GeoPoint{}, err
		}
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", domain.ErrGeocodingFailed, err)
	}
	if !point.Valid() {
		uc.logger.Warn("Geocoder returned an unusable point", zap.String("location", location), zap.Stringer("point", point))
		return domain.GeoPoint{}, fmt.Errorf("%w: unusable point for %q", domain.ErrGeocodingFailed, location)
	}
	return point, nil
}

func (uc *ListingUsecase) validateStruct(s interface{}) error {
	err := uc.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, ", "))
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return domain.ValidPrice(fl.Field().Float())
	})
	return v
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, data map[string]interface{}) {
	if err := uc.events.Publish(ctx, subject, data); err != nil {
		uc.logger.Warn("Failed to publish listing event", zap.Error(err), zap.String("subject", subject))
	}
}

func (uc *ListingUsecase) invalidate(ctx context.Context, id string) {
	if err := uc.cache.Delete(ctx, id); err != nil {
		uc.logger.Warn("Failed to invalidate cached listing", zap.Error(err), zap.String("listing_id", id))
	}
}

func repoError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrRepository),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrRepository, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.ListingDetails, int64, error) {
	return nil, 0, nil
}
func (noopCache) Set(context.Context, *domain.ListingDetails, int64) error { return nil }
func (noopCache) Delete(context.Context, string) error                     { return nil }

type noopNotifier struct{}

func (noopNotifier) NotifyListingCreated(context.Context, *domain.Listing) error { return nil }
