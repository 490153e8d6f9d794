package http

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
)

type imageDTO struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type geometryDTO struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type reviewDTO struct {
	ID        string    `json:"id"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	Author    *userDTO  `json:"author,omitempty"`
}

type listingResponse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Location    string      `json:"location"`
	Country     string      `json:"country"`
	Image       imageDTO    `json:"image"`
	Owner       string      `json:"owner"`
	Reviews     []string    `json:"reviews"`
	Geometry    geometryDTO `json:"geometry"`
	Revision    int64       `json:"revision"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type listingDetailsResponse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Location    string      `json:"location"`
	Country     string      `json:"country"`
	Image       imageDTO    `json:"image"`
	Owner       *userDTO    `json:"owner"`
	Reviews     []reviewDTO `json:"reviews"`
	Geometry    geometryDTO `json:"geometry"`
	Revision    int64       `json:"revision"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type listPageResponse struct {
	Listings []listingResponse `json:"listings"`
	Total    int64             `json:"total"`
}

type createListingRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Location    string    `json:"location"`
	Country     string    `json:"country"`
	Image       *imageDTO `json:"image"`
}

type relocateRequest struct {
	Location string `json:"location"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toUserDTO(u *domain.User) *userDTO {
	if u == nil {
		return nil
	}
	return &userDTO{ID: u.ID, Username: u.Username}
}

func toListingResponse(l *domain.Listing) listingResponse {
	reviews := l.ReviewIDs
	if reviews == nil {
		reviews = []string{}
	}
	return listingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Image:       imageDTO{URL: l.Image.URL, Filename: l.Image.Filename},
		Owner:       l.OwnerID,
		Reviews:     reviews,
		Geometry:    geometryDTO{Type: l.Geometry.Type, Coordinates: l.Geometry.Coordinates},
		Revision:    l.Revision,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func toDetailsResponse(d *domain.ListingDetails) listingDetailsResponse {
	owner := toUserDTO(d.Owner)
	if owner == nil {
		owner = &userDTO{ID: d.OwnerID}
	}
	reviews := make([]reviewDTO, 0, len(d.Reviews))
	for _, r := range d.Reviews {
		reviews = append(reviews, reviewDTO{
			ID:        r.ID,
			Comment:   r.Comment,
			Rating:    r.Rating,
			CreatedAt: r.CreatedAt,
			Author:    toUserDTO(r.Author),
		})
	}
	return listingDetailsResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		Image:       imageDTO{URL: d.Image.URL, Filename: d.Image.Filename},
		Owner:       owner,
		Reviews:     reviews,
		Geometry:    geometryDTO{Type: d.Geometry.Type, Coordinates: d.Geometry.Coordinates},
		Revision:    d.Revision,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
