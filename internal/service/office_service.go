package service

import (
	"context"
	"errors"

	"deskhub/internal/database"
	"deskhub/internal/domain"
	"deskhub/internal/events"
	"deskhub/internal/models"

	"github.com/rs/zerolog"
)

type OfficeService struct {
	store    domain.Store
	files    domain.FileStore
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewOfficeService(store domain.Store, files domain.FileStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *OfficeService {
	return &OfficeService{
		store:    store,
		files:    files,
		eventBus: eventBus,
		logger:   logger,
	}
}

// OfficeUpdate carries a partial office change. Nil fields are left as is.
type OfficeUpdate struct {
	Title           *string
	Description     *string
	Lat             *float64
	Lng             *float64
	AddressLine1    *string
	AddressLine2    *string
	Hidden          *bool
	PricePerDay     *int64
	MonthlyDiscount *int64
	FeaturedImageID *int64
	TagIDs          []int64 // non-nil replaces the tag set
}

// CreateOffice registers a host's new listing. It starts out pending
// approval and admins are notified for review.
func (s *OfficeService) CreateOffice(ctx context.Context, office *models.Office, tagIDs []int64) (*models.Office, error) {
	if len(tagIDs) > 0 {
		if err := s.store.TagsExist(ctx, tagIDs); err != nil {
			if errors.Is(err, database.ErrTagNotFound) {
				return nil, ErrUnknownTags
			}
			return nil, err
		}
	}

	office.ApprovalStatus = models.ApprovalPending
	office.FeaturedImageID = 0
	if err := s.store.CreateOffice(ctx, office, tagIDs); err != nil {
		return nil, err
	}

	if err := s.store.LoadOfficeRelations(ctx, office); err != nil {
		return nil, err
	}

	s.publishPendingApproval(office, "created")
	return office, nil
}

// GetOffice loads one office with its relations. Unapproved or hidden
// offices are only visible to their owner.
func (s *OfficeService) GetOffice(ctx context.Context, requesterID, id int64) (*models.Office, error) {
	office, err := s.store.GetOffice(ctx, id)
	if err != nil {
		return nil, err
	}

	if !office.Bookable() && office.UserID != requesterID {
		return nil, database.ErrOfficeNotFound
	}

	if err := s.store.LoadOfficeRelations(ctx, office); err != nil {
		return nil, err
	}
	return office, nil
}

// ListOffices returns a page of offices with relations loaded.
func (s *OfficeService) ListOffices(ctx context.Context, filter database.OfficeFilter) ([]*models.Office, error) {
	offices, err := s.store.ListOffices(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, office := range offices {
		if err := s.store.LoadOfficeRelations(ctx, office); err != nil {
			return nil, err
		}
	}
	return offices, nil
}

// UpdateOffice applies a partial change to the owner's office. Changing the
// location or the daily price sends the office back to pending approval.
func (s *OfficeService) UpdateOffice(ctx context.Context, userID, id int64, update OfficeUpdate) (*models.Office, error) {
	office, err := s.store.GetOffice(ctx, id)
	if err != nil {
		return nil, err
	}
	if office.UserID != userID {
		return nil, ErrOfficeNotOwned
	}

	if len(update.TagIDs) > 0 {
		if err := s.store.TagsExist(ctx, update.TagIDs); err != nil {
			if errors.Is(err, database.ErrTagNotFound) {
				return nil, ErrUnknownTags
			}
			return nil, err
		}
	}

	if update.FeaturedImageID != nil && *update.FeaturedImageID != 0 {
		image, err := s.store.GetImage(ctx, *update.FeaturedImageID)
		if err != nil {
			return nil, err
		}
		if image.OfficeID != id {
			return nil, ErrImageNotAttached
		}
	}

	requiresReview := false
	if update.Lat != nil && *update.Lat != office.Lat {
		office.Lat = *update.Lat
		requiresReview = true
	}
	if update.Lng != nil && *update.Lng != office.Lng {
		office.Lng = *update.Lng
		requiresReview = true
	}
	if update.PricePerDay != nil && *update.PricePerDay != office.PricePerDay {
		office.PricePerDay = *update.PricePerDay
		requiresReview = true
	}
	if update.Title != nil {
		office.Title = *update.Title
	}
	if update.Description != nil {
		office.Description = *update.Description
	}
	if update.AddressLine1 != nil {
		office.AddressLine1 = *update.AddressLine1
	}
	if update.AddressLine2 != nil {
		office.AddressLine2 = *update.AddressLine2
	}
	if update.Hidden != nil {
		office.Hidden = *update.Hidden
	}
	if update.MonthlyDiscount != nil {
		office.MonthlyDiscount = *update.MonthlyDiscount
	}
	if update.FeaturedImageID != nil {
		office.FeaturedImageID = *update.FeaturedImageID
	}
	if requiresReview {
		office.ApprovalStatus = models.ApprovalPending
	}

	if err := s.store.UpdateOffice(ctx, office, update.TagIDs, update.TagIDs != nil); err != nil {
		return nil, err
	}

	if err := s.store.LoadOfficeRelations(ctx, office); err != nil {
		return nil, err
	}

	if requiresReview {
		s.publishPendingApproval(office, "updated")
	}
	return office, nil
}

// DeleteOffice soft-deletes the owner's office and removes its image files.
// It fails while the office still has active reservations.
func (s *OfficeService) DeleteOffice(ctx context.Context, userID, id int64) error {
	office, err := s.store.GetOffice(ctx, id)
	if err != nil {
		return err
	}
	if office.UserID != userID {
		return ErrOfficeNotOwned
	}

	images, err := s.store.ListOfficeImages(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteOffice(ctx, id); err != nil {
		return err
	}

	for _, image := range images {
		if err := s.files.Remove(image.Path); err != nil {
			s.logger.Warn().Err(err).Str("path", image.Path).Msg("remove image file error")
		}
	}
	return nil
}

// ListTags returns every tag available for office listings.
func (s *OfficeService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.ListTags(ctx)
}

func (s *OfficeService) publishPendingApproval(office *models.Office, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.OfficeEventPayload{
		OfficeID: office.ID,
		HostID:   office.UserID,
		Title:    office.Title,
		Reason:   reason,
	}
	if err := s.eventBus.PublishJSON(events.EventOfficePendingApproval, payload); err != nil {
		s.logger.Error().Err(err).Int64("office_id", office.ID).Msg("publish event error")
	}
}
