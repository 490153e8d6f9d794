package usecase

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.uber.org/zap"
)

// MaxImageSize caps a single listing image upload.
const MaxImageSize = 10 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageUsecase stores listing images and hands back the reference a listing keeps.
type ImageUsecase struct {
	storage domain.ImageStorage
	logger  *logger.Logger
}

func NewImageUsecase(storage domain.ImageStorage, log *logger.Logger) *ImageUsecase {
	return &ImageUsecase{storage: storage, logger: log.Named("ImageUsecase")}
}

// UploadImage sniffs the content type of data, rejects anything that is not an
// image or exceeds MaxImageSize, and uploads the rest.
func (uc *ImageUsecase) UploadImage(ctx context.Context, fileName string, data []byte) (domain.ImageRef, error) {
	if len(data) == 0 {
		return domain.ImageRef{}, fmt.Errorf("%w: image is empty", domain.ErrValidation)
	}
	if len(data) > MaxImageSize {
		return domain.ImageRef{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, MaxImageSize)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		uc.logger.Info("Rejected image upload", zap.String("file_name", fileName), zap.String("content_type", contentType))
		return domain.ImageRef{}, fmt.Errorf("%w: unsupported image type %s", domain.ErrValidation, contentType)
	}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}

	ref, err := uc.storage.Upload(ctx, base+ext, contentType, data)
	if err != nil {
		uc.logger.Error("Failed to upload image", zap.Error(err), zap.String("file_name", fileName))
		return domain.ImageRef{}, err
	}
	uc.logger.Info("Image uploaded", zap.String("url", ref.URL), zap.String("filename", ref.Filename))
	return ref, nil
}

// DiscardImage removes an uploaded image whose listing was never created.
func (uc *ImageUsecase) DiscardImage(ctx context.Context, ref domain.ImageRef) error {
	if ref.Filename == "" {
		return nil
	}
	if err := uc.storage.Delete(ctx, ref.Filename); err != nil {
		uc.logger.Warn("Failed to discard image", zap.Error(err), zap.String("filename", ref.Filename))
		return err
	}
	uc.logger.Info("Image discarded", zap.String("filename", ref.Filename))
	return nil
}
