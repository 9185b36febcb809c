package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"deskhub/internal/domain"
	"deskhub/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ImageService struct {
	store  domain.Store
	files  domain.FileStore
	logger *zerolog.Logger
}

func NewImageService(store domain.Store, files domain.FileStore, logger *zerolog.Logger) *ImageService {
	return &ImageService{store: store, files: files, logger: logger}
}

// UploadImage stores an uploaded file for the owner's office and records it.
// The size is checked against the upload limit before anything touches disk.
func (s *ImageService) UploadImage(ctx context.Context, userID, officeID int64, filename string, size int64, r io.Reader) (*models.Image, error) {
	if size > models.MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	office, err := s.store.GetOffice(ctx, officeID)
	if err != nil {
		return nil, err
	}
	if office.UserID != userID {
		return nil, ErrOfficeNotOwned
	}

	name := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(filename))
	path, err := s.files.Save(name, io.LimitReader(r, models.MaxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	image := &models.Image{OfficeID: officeID, Path: path}
	if err := s.store.CreateImage(ctx, image); err != nil {
		if removeErr := s.files.Remove(path); removeErr != nil {
			s.logger.Warn().Err(removeErr).Str("path", path).Msg("remove orphan image file error")
		}
		return nil, err
	}
	return image, nil
}

// OpenImage returns the stored file for an office image.
func (s *ImageService) OpenImage(ctx context.Context, officeID, imageID int64) (*models.Image, io.ReadCloser, error) {
	image, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, nil, err
	}
	if image.OfficeID != officeID {
		return nil, nil, ErrImageNotAttached
	}

	file, err := s.files.Open(image.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	return image, file, nil
}

// DeleteImage removes an image from the owner's office. The featured image
// cannot be deleted until another one takes its place.
func (s *ImageService) DeleteImage(ctx context.Context, userID, officeID, imageID int64) error {
	office, err := s.store.GetOffice(ctx, officeID)
	if err != nil {
		return err
	}
	if office.UserID != userID {
		return ErrOfficeNotOwned
	}

	image, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if image.OfficeID != officeID {
		return ErrImageNotAttached
	}

	if err := s.store.DeleteImage(ctx, imageID); err != nil {
		return err
	}

	if err := s.files.Remove(image.Path); err != nil {
		s.logger.Warn().Err(err).Str("path", image.Path).Msg("remove image file error")
	}
	return nil
}
