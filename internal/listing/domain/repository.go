package domain

import "context"

// ListingRepository is the persistent store of listings.
// Absent records, including malformed ids, are reported as ErrNotFound.
// Each call is atomic for the single record it touches.
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	// FindDetailsByID resolves the owner and each review's author at read time.
	FindDetailsByID(ctx context.Context, id string) (*ListingDetails, error)
	// UpdateFields applies patch if the stored revision equals expectedRevision,
	// returning ErrConflict otherwise.
	UpdateFields(ctx context.Context, id string, patch ListingPatch, expectedRevision int64) (*Listing, error)
	// SetLocation replaces location and geometry together under the revision check.
	SetLocation(ctx context.Context, id, location string, geometry GeoPoint, expectedRevision int64) (*Listing, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*Listing, int64, error)

	FindMissingGeometry(ctx context.Context) ([]*Listing, error)
	SetGeometry(ctx context.Context, id string, geometry GeoPoint) error

	AddReview(ctx context.Context, listingID, reviewID string) error
	RemoveReview(ctx context.Context, listingID, reviewID string) error
}

// Geocoder resolves free text to a point. Every failure is reported as ErrGeocodingFailed.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, query string, limit int) (GeoPoint, error)
}

// EventPublisher announces listing lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ListingCache caches expanded listings. Get returns a nil listing on a miss,
// along with the entry's generation. Delete bumps the generation; Set stores
// only while the generation it is given is still current, so a fill read
// before a concurrent write is dropped.
type ListingCache interface {
	Get(ctx context.Context, id string) (*ListingDetails, int64, error)
	Set(ctx context.Context, details *ListingDetails, generation int64) error
	Delete(ctx context.Context, id string) error
}

// OwnerNotifier tells an owner their listing was published.
type OwnerNotifier interface {
	NotifyListingCreated(ctx context.Context, listing *Listing) error
}

// ImageStorage stores uploaded listing images.
type ImageStorage interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (ImageRef, error)
	Delete(ctx context.Context, filename string) error
}
