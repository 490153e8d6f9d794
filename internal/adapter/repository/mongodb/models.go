package mongodb

import (
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type imageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

type geometryDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// listingDocument is the stored shape of a listing. Geometry is a pointer so
// legacy records without it decode cleanly and can be found by the backfill.
type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Location    string             `bson:"location"`
	Country     string             `bson:"country"`
	Image       imageDocument      `bson:"image"`
	OwnerID     string             `bson:"owner_id"`
	ReviewIDs   []string           `bson:"review_ids"`
	Geometry    *geometryDocument  `bson:"geometry,omitempty"`
	Revision    int64              `bson:"revision"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Email    string             `bson:"email"`
}

// reviewDocument is a review as produced by the $lookup into the reviews collection.
type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Comment   string             `bson:"comment"`
	Rating    int                `bson:"rating"`
	UserID    string             `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
	Author    []userDocument     `bson:"author"`
}

// detailsDocument is the aggregation result for one expanded listing.
type detailsDocument struct {
	listingDocument `bson:",inline"`
	Owner           []userDocument   `bson:"owner"`
	Reviews         []reviewDocument `bson:"reviews"`
}

func fromDomainGeometry(p domain.GeoPoint) *geometryDocument {
	if p.IsZero() {
		return nil
	}
	return &geometryDocument{Type: p.Type, Coordinates: []float64{p.Longitude(), p.Latitude()}}
}

func (g *geometryDocument) toDomain() domain.GeoPoint {
	if g == nil || len(g.Coordinates) != 2 {
		return domain.GeoPoint{}
	}
	return domain.GeoPoint{Type: g.Type, Coordinates: [2]float64{g.Coordinates[0], g.Coordinates[1]}}
}

func fromDomainListing(l *domain.Listing) (*listingDocument, error) {
	var id primitive.ObjectID
	if l.ID != "" {
		var err error
		id, err = primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing id %q: %w", l.ID, err)
		}
	}
	reviewIDs := l.ReviewIDs
	if reviewIDs == nil {
		reviewIDs = []string{}
	}
	return &listingDocument{
		ID:          id,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Image:       imageDocument{URL: l.Image.URL, Filename: l.Image.Filename},
		OwnerID:     l.OwnerID,
		ReviewIDs:   reviewIDs,
		Geometry:    fromDomainGeometry(l.Geometry),
		Revision:    l.Revision,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}, nil
}

func (d *listingDocument) toDomain() *domain.Listing {
	reviewIDs := d.ReviewIDs
	if reviewIDs == nil {
		reviewIDs = []string{}
	}
	return &domain.Listing{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		Image:       domain.ImageRef{URL: d.Image.URL, Filename: d.Image.Filename},
		OwnerID:     d.OwnerID,
		ReviewIDs:   reviewIDs,
		Geometry:    d.Geometry.toDomain(),
		Revision:    d.Revision,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (u userDocument) toDomain() *domain.User {
	return &domain.User{ID: u.ID.Hex(), Username: u.Username, Email: u.Email}
}

// toDomain expands the aggregation result. Reviews follow the order of the
// listing's review_ids; references whose review is gone are dropped.
func (d *detailsDocument) toDomain() *domain.ListingDetails {
	details := &domain.ListingDetails{
		Listing: *d.listingDocument.toDomain(),
		Reviews: []domain.Review{},
	}
	if len(d.Owner) > 0 {
		details.Owner = d.Owner[0].toDomain()
	}

	byID := make(map[string]reviewDocument, len(d.Reviews))
	for _, r := range d.Reviews {
		byID[r.ID.Hex()] = r
	}
	for _, id := range d.ReviewIDs {
		r, ok := byID[id]
		if !ok {
			continue
		}
		review := domain.Review{
			ID:        id,
			Comment:   r.Comment,
			Rating:    r.Rating,
			CreatedAt: r.CreatedAt,
		}
		if len(r.Author) > 0 {
			review.Author = r.Author[0].toDomain()
		} else if r.UserID != "" {
			review.Author = &domain.User{ID: r.UserID}
		}
		details.Reviews = append(details.Reviews, review)
	}
	return details
}

// patchSet builds the $set document for the fields a patch changes.
func patchSet(p domain.ListingPatch, now time.Time) map[string]interface{} {
	set := map[string]interface{}{"updated_at": now}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.Country != nil {
		set["country"] = *p.Country
	}
	if p.Image != nil {
		set["image"] = imageDocument{URL: p.Image.URL, Filename: p.Image.Filename}
	}
	return set
}
