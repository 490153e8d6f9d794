package usecase

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/stretchr/testify/mock"
)

type MockListingRepository struct{ mock.Mock }

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) FindDetailsByID(ctx context.Context, id string) (*domain.ListingDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ListingDetails), args.Error(1)
}
func (m *MockListingRepository) UpdateFields(ctx context.Context, id string, patch domain.ListingPatch, expectedRevision int64) (*domain.Listing, error) {
	args := m.Called(ctx, id, patch, expectedRevision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) SetLocation(ctx context.Context, id, location string, geometry domain.GeoPoint, expectedRevision int64) (*domain.Listing, error) {
	args := m.Called(ctx, id, location, geometry, expectedRevision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockListingRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Listing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Listing), args.Get(1).(int64), args.Error(2)
}
func (m *MockListingRepository) FindMissingGeometry(ctx context.Context) ([]*domain.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) SetGeometry(ctx context.Context, id string, geometry domain.GeoPoint) error {
	args := m.Called(ctx, id, geometry)
	return args.Error(0)
}
func (m *MockListingRepository) AddReview(ctx context.Context, listingID, reviewID string) error {
	args := m.Called(ctx, listingID, reviewID)
	return args.Error(0)
}
func (m *MockListingRepository) RemoveReview(ctx context.Context, listingID, reviewID string) error {
	args := m.Called(ctx, listingID, reviewID)
	return args.Error(0)
}

type MockGeocoder struct{ mock.Mock }

func (m *MockGeocoder) ForwardGeocode(ctx context.Context, query string, limit int) (domain.GeoPoint, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).(domain.GeoPoint), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) Get(ctx context.Context, id string) (*domain.ListingDetails, int64, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*domain.ListingDetails), args.Get(1).(int64), args.Error(2)
}
func (m *MockListingCache) Set(ctx context.Context, details *domain.ListingDetails, generation int64) error {
	args := m.Called(ctx, details, generation)
	return args.Error(0)
}
func (m *MockListingCache) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockOwnerNotifier struct{ mock.Mock }

func (m *MockOwnerNotifier) NotifyListingCreated(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

type MockImageStorage struct{ mock.Mock }

func (m *MockImageStorage) Upload(ctx context.Context, filename, contentType string, data []byte) (domain.ImageRef, error) {
	args := m.Called(ctx, filename, contentType, data)
	return args.Get(0).(domain.ImageRef), args.Error(1)
}
func (m *MockImageStorage) Delete(ctx context.Context, filename string) error {
	args := m.Called(ctx, filename)
	return args.Error(0)
}
