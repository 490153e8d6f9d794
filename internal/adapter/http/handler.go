package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 12 << 20
	multipartMemory  = 8 << 20
)

// ListingService is the listing usecase as seen by the transport.
type ListingService interface {
	CreateListing(ctx context.Context, requesterID string, fields domain.ListingFields, image *domain.ImageRef) (*domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.ListingDetails, error)
	ListListings(ctx context.Context, page, limit int64) ([]*domain.Listing, int64, error)
	UpdateListing(ctx context.Context, requesterID, id string, patch domain.ListingPatch) (*domain.Listing, error)
	RelocateListing(ctx context.Context, requesterID, id, location string) (*domain.Listing, error)
	DeleteListing(ctx context.Context, requesterID, id string) error
}

// ImageUploader stores the image sent with a new listing.
type ImageUploader interface {
	UploadImage(ctx context.Context, fileName string, data []byte) (domain.ImageRef, error)
	DiscardImage(ctx context.Context, ref domain.ImageRef) error
}

// ListingHandler serves the listing HTTP API.
type ListingHandler struct {
	listings ListingService
	images   ImageUploader
	metrics  *metrics.MetricsManager
	logger   *logger.Logger
}

// NewListingHandler builds the handler. m may be nil.
func NewListingHandler(listings ListingService, images ImageUploader, m *metrics.MetricsManager, log *logger.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, images: images, metrics: m, logger: log.Named("ListingHandler")}
}

// HandleListListings serves GET /api/listings.
func (h *ListingHandler) HandleListListings(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listings, total, err := h.listings.ListListings(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := listPageResponse{Listings: make([]listingResponse, 0, len(listings)), Total: total}
	for _, l := range listings {
		resp.Listings = append(resp.Listings, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetListing serves GET /api/listings/{id}.
func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	details, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	setETag(w, details.Revision)
	writeJSON(w, http.StatusOK, toDetailsResponse(details))
}

// HandleCreateListing serves POST /api/listings. It accepts multipart/form-data
// with an image file, or JSON carrying an already stored image reference.
func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserIDFromContext(r.Context())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		fields   domain.ListingFields
		image    *domain.ImageRef
		uploaded bool
		err      error
	)
	if mediaType == "multipart/form-data" {
		fields, image, err = h.readMultipartCreate(w, r)
		uploaded = image != nil
	} else {
		fields, image, err = readJSONCreate(w, r)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.listings.CreateListing(r.Context(), requesterID, fields, image)
	if err != nil {
		if uploaded {
			_ = h.images.DiscardImage(context.WithoutCancel(r.Context()), *image)
		}
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ListingsCreatedTotal.Inc()
	}
	w.Header().Set("Location", "/api/listings/"+listing.ID)
	setETag(w, listing.Revision)
	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) readMultipartCreate(w http.ResponseWriter, r *http.Request) (domain.ListingFields, *domain.ImageRef, error) {
	var fields domain.ListingFields
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return fields, nil, fmt.Errorf("%w: invalid multipart body: %v", domain.ErrValidation, err)
	}

	fields.Title = formValue(r, "title")
	fields.Description = formValue(r, "description")
	fields.Location = formValue(r, "location")
	fields.Country = formValue(r, "country")
	if raw := formValue(r, "price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(price, 0) || math.IsNaN(price) {
			return fields, nil, fmt.Errorf("%w: price must be a finite number", domain.ErrValidation)
		}
		fields.Price = price
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return fields, nil, fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fields, nil, fmt.Errorf("%w: unreadable image: %v", domain.ErrValidation, err)
	}
	ref, err := h.images.UploadImage(r.Context(), header.Filename, data)
	if err != nil {
		return fields, nil, err
	}
	return fields, &ref, nil
}

func readJSONCreate(w http.ResponseWriter, r *http.Request) (domain.ListingFields, *domain.ImageRef, error) {
	var req createListingRequest
	if err := decodeStrict(w, r, &req); err != nil {
		return domain.ListingFields{}, nil, err
	}
	fields := domain.ListingFields{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Country:     req.Country,
	}
	if req.Image == nil {
		return fields, nil, nil
	}
	return fields, &domain.ImageRef{URL: req.Image.URL, Filename: req.Image.Filename}, nil
}

// HandleUpdateListing serves PUT /api/listings/{id}. Only whitelisted keys are accepted.
func (h *ListingHandler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	patch, err := readPatch(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if raw := r.Header.Get("If-Match"); raw != "" {
		rev, err := parseRevision(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		patch.ExpectedRevision = &rev
	}

	updated, err := h.listings.UpdateListing(r.Context(), requesterID, id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ListingUpdatesTotal.Inc()
	}
	setETag(w, updated.Revision)
	writeJSON(w, http.StatusOK, toListingResponse(updated))
}

// HandleRelocateListing serves POST /api/listings/{id}/relocate.
func (h *ListingHandler) HandleRelocateListing(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserIDFromContext(r.Context())

	var req relocateRequest
	if err := decodeStrict(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.listings.RelocateListing(r.Context(), requesterID, chi.URLParam(r, "id"), req.Location)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ListingUpdatesTotal.Inc()
	}
	setETag(w, updated.Revision)
	writeJSON(w, http.StatusOK, toListingResponse(updated))
}

// HandleDeleteListing serves DELETE /api/listings/{id}.
func (h *ListingHandler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.listings.DeleteListing(r.Context(), requesterID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ListingDeletesTotal.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, outcome := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err), zap.String("path", r.URL.Path), zap.String("request_id", middleware.RequestIDFromContext(r.Context())))
		message = http.StatusText(status)
	}
	if h.metrics != nil {
		h.metrics.APIErrorsTotal.WithLabelValues(routePattern(r), outcome).Inc()
	}
	writeJSON(w, status, errorResponse{Error: outcome, Message: message})
}

// readPatch decodes a JSON object into a ListingPatch, rejecting keys outside
// domain.MutableFields and explicit nulls.
func readPatch(w http.ResponseWriter, r *http.Request) (domain.ListingPatch, error) {
	var patch domain.ListingPatch
	var raw map[string]json.RawMessage
	if err := decodeStrict(w, r, &raw); err != nil {
		return patch, err
	}
	if raw == nil {
		return patch, fmt.Errorf("%w: body must be a JSON object", domain.ErrValidation)
	}

	for key, value := range raw {
		if !domain.IsMutableField(key) {
			return patch, fmt.Errorf("%w: field %q cannot be changed", domain.ErrValidation, key)
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return patch, fmt.Errorf("%w: field %q cannot be null", domain.ErrValidation, key)
		}

		var err error
		switch key {
		case "title":
			patch.Title = new(string)
			err = json.Unmarshal(value, patch.Title)
		case "description":
			patch.Description = new(string)
			err = json.Unmarshal(value, patch.Description)
		case "price":
			patch.Price = new(float64)
			err = json.Unmarshal(value, patch.Price)
		case "location":
			patch.Location = new(string)
			err = json.Unmarshal(value, patch.Location)
		case "country":
			patch.Country = new(string)
			err = json.Unmarshal(value, patch.Country)
		case "image":
			var img imageDTO
			err = strictUnmarshal(value, &img)
			patch.Image = &domain.ImageRef{URL: img.URL, Filename: img.Filename}
		}
		if err != nil {
			return patch, fmt.Errorf("%w: field %q has the wrong type", domain.ErrValidation, key)
		}
	}
	return patch, nil
}

func decodeStrict(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrValidation)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON value", domain.ErrValidation)
	}
	return nil
}

func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// formValue reads a form field, also accepting the listing[field] naming used by HTML forms.
func formValue(r *http.Request, name string) string {
	if v := r.FormValue(name); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(r.FormValue("listing[" + name + "]"))
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, name)
	}
	return v, nil
}

// parseRevision accepts 3, "3" and W/"3".
func parseRevision(raw string) (int64, error) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "W/")
	v = strings.Trim(v, `"`)
	rev, err := strconv.ParseInt(v, 10, 64)
	if err != nil || rev < 0 {
		return 0, fmt.Errorf("%w: If-Match must carry a listing revision", domain.ErrValidation)
	}
	return rev, nil
}

func setETag(w http.ResponseWriter, revision int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(revision, 10)))
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
