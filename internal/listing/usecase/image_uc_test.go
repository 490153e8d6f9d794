package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImageUsecase_UploadImage(t *testing.T) {
	t.Run("StoresPNG", func(t *testing.T) {
		storage := new(MockImageStorage)
		uc := NewImageUsecase(storage, logger.NewNop())
		want := domain.ImageRef{URL: "http://minio/listing-images/abc.png", Filename: "abc.png"}

		storage.On("Upload", mock.Anything, "beach.png", "image/png", pngHeader).Return(want, nil).Once()

		got, err := uc.UploadImage(context.Background(), "photos/beach.jpeg", pngHeader)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		storage.AssertExpectations(t)
	})

	t.Run("RejectsNonImage", func(t *testing.T) {
		storage := new(MockImageStorage)
		uc := NewImageUsecase(storage, logger.NewNop())

		_, err := uc.UploadImage(context.Background(), "notes.txt", []byte("just some text"))

		assert.ErrorIs(t, err, domain.ErrValidation)
		storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RejectsEmptyAndOversized", func(t *testing.T) {
		uc := NewImageUsecase(new(MockImageStorage), logger.NewNop())

		_, err := uc.UploadImage(context.Background(), "a.png", nil)
		assert.ErrorIs(t, err, domain.ErrValidation)

		big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...)
		_, err = uc.UploadImage(context.Background(), "a.png", big)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("StorageError", func(t *testing.T) {
		storage := new(MockImageStorage)
		uc := NewImageUsecase(storage, logger.NewNop())

		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(domain.ImageRef{}, errors.New("bucket gone")).Once()

		_, err := uc.UploadImage(context.Background(), "a.png", pngHeader)
		assert.Error(t, err)
	})
}

func TestImageUsecase_DiscardImage(t *testing.T) {
	storage := new(MockImageStorage)
	uc := NewImageUsecase(storage, logger.NewNop())
	storage.On("Delete", mock.Anything, "listings/abc.png").Return(nil).Once()

	require.NoError(t, uc.DiscardImage(context.Background(), domain.ImageRef{URL: "u", Filename: "listings/abc.png"}))
	require.NoError(t, uc.DiscardImage(context.Background(), domain.ImageRef{}))
	storage.AssertExpectations(t)
}
