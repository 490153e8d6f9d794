package domain

import (
	"fmt"
	"math"
	"time"
)

// PointType is the only geometry discriminant a listing carries.
const PointType = "Point"

// GeoPoint is a GeoJSON point. Coordinates are ordered longitude, latitude.
type GeoPoint struct {
	Type        string
	Coordinates [2]float64
}

// NewPoint builds a GeoPoint from longitude and latitude.
func NewPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: PointType, Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

// IsZero reports whether the point was never set.
func (p GeoPoint) IsZero() bool { return p.Type == "" }

// Valid reports whether p is a Point with coordinates inside WGS84 bounds.
func (p GeoPoint) Valid() bool {
	lng, lat := p.Longitude(), p.Latitude()
	if p.Type != PointType || math.IsNaN(lng) || math.IsNaN(lat) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%s(%g %g)", p.Type, p.Longitude(), p.Latitude())
}

// ImageRef points to an image held by the storage collaborator.
type ImageRef struct {
	URL      string `validate:"required"`
	Filename string `validate:"required"`
}

// Listing is a property listing as stored.
type Listing struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Location    string
	Country     string
	Image       ImageRef
	OwnerID     string
	ReviewIDs   []string
	Geometry    GeoPoint
	Revision    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidPrice reports whether p is a finite, non-negative amount.
func ValidPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}

// ListingFields are the descriptive attributes supplied at creation.
// The price tag is registered by the usecase and checks ValidPrice.
type ListingFields struct {
	Title       string  `validate:"required,max=200"`
	Description string  `validate:"max=5000"`
	Price       float64 `validate:"price"`
	Location    string  `validate:"required,max=300"`
	Country     string  `validate:"max=100"`
}

// User is the owner or review author as resolved at read time.
type User struct {
	ID       string
	Username string
	Email    string
}

// Review is a review resolved from a listing's back-reference.
type Review struct {
	ID        string
	Comment   string
	Rating    int
	CreatedAt time.Time
	Author    *User
}

// ListingDetails is a listing with its owner and reviews expanded.
// Reviews keep the listing's insertion order; references whose review no
// longer exists are dropped.
type ListingDetails struct {
	Listing
	Owner   *User
	Reviews []Review
}

// ListFilter selects a page of listings.
type ListFilter struct {
	Page    int64
	Limit   int64
	OwnerID string
}

// BackfillReport summarises a geometry backfill run.
type BackfillReport struct {
	Scanned int
	Updated int
	Skipped int
	Failed  int
}
