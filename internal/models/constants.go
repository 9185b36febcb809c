package models

const (
	ReservationActive    = "active"
	ReservationCancelled = "cancelled"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// DateFormat is the calendar-date layout used on the wire and in storage.
// Reservations carry no time-of-day component.
const DateFormat = "2006-01-02"

const (
	// MonthlyDiscountMinDays is the inclusive span from which the monthly
	// discount applies.
	MonthlyDiscountMinDays = 28

	// MinPricePerDay is the smallest accepted daily price (smallest currency unit).
	MinPricePerDay = 100

	// DefaultPageSize is the page size for office and reservation listings.
	DefaultPageSize = 20

	// MaxImageBytes caps office image uploads.
	MaxImageBytes = 5 << 20
)

const (
	ScopeOfficesCreate      = "offices.create"
	ScopeOfficesUpdate      = "offices.update"
	ScopeOfficesDelete      = "offices.delete"
	ScopeReservationsMake   = "reservations.make"
	ScopeReservationsCancel = "reservations.cancel"
)
