package domain

import (
	"context"
	"io"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/models"
)

// Store is the persistence surface the services depend on. *database.DB
// satisfies it; tests substitute mocks.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetAdmins(ctx context.Context) ([]*models.User, error)

	CreateOffice(ctx context.Context, office *models.Office, tagIDs []int64) error
	GetOffice(ctx context.Context, id int64) (*models.Office, error)
	UpdateOffice(ctx context.Context, office *models.Office, tagIDs []int64, replaceTags bool) error
	DeleteOffice(ctx context.Context, id int64) error
	ListOffices(ctx context.Context, filter database.OfficeFilter) ([]*models.Office, error)
	LoadOfficeRelations(ctx context.Context, office *models.Office) error

	CreateReservation(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	HasActiveOverlapping(ctx context.Context, officeID int64, start, end time.Time) (bool, error)
	UpdateReservationStatus(ctx context.Context, id int64, status string) error
	ListReservations(ctx context.Context, filter database.ReservationFilter) ([]*models.Reservation, error)
	ListReservationsStartingOn(ctx context.Context, day time.Time) ([]*models.Reservation, error)

	CreateImage(ctx context.Context, image *models.Image) error
	GetImage(ctx context.Context, id int64) (*models.Image, error)
	DeleteImage(ctx context.Context, id int64) error
	ListOfficeImages(ctx context.Context, officeID int64) ([]models.Image, error)

	ListTags(ctx context.Context) ([]models.Tag, error)
	UpsertTag(ctx context.Context, tag *models.Tag) error
	TagsExist(ctx context.Context, ids []int64) error
	ListOfficeTags(ctx context.Context, officeID int64) ([]models.Tag, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier delivers a plain-text notification to a user, best effort.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, text string) error
	Name() string
}

// FileStore keeps uploaded image files.
type FileStore interface {
	Save(name string, r io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// LedgerWriter mirrors reservations into an external ledger.
type LedgerWriter interface {
	AppendReservation(ctx context.Context, res *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error
}

// LedgerWorker queues ledger writes for asynchronous delivery.
type LedgerWorker interface {
	EnqueueAppend(ctx context.Context, res *models.Reservation) error
	EnqueueStatus(ctx context.Context, reservationID int64, status string) error
}
