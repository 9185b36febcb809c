package models

import "time"

type Reservation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	OfficeID     int64     `json:"-"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       string    `json:"status"` // active, cancelled
	Price        int64     `json:"price"`
	WifiPassword string    `json:"wifi_password,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`

	Office *Office `json:"office,omitempty"`
	User   *User   `json:"user,omitempty"`
}

// Day truncates t to its calendar date, dropping any time-of-day component.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInclusive returns the number of calendar days covered by [start, end],
// counting both endpoints.
func DaysInclusive(start, end time.Time) int64 {
	return int64(Day(end).Sub(Day(start))/(24*time.Hour)) + 1
}

// IntervalsOverlap reports whether an existing reservation [aStart, aEnd]
// conflicts with a requested range [bStart, bEnd] under inclusive bounds.
// The predicate is intentionally applied per existing row and not
// symmetrized: either endpoint of the existing interval falls inside the
// requested range, or the existing interval strictly contains it. A
// requested range that fully contains the existing one is caught by the
// first two clauses.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = Day(aStart), Day(aEnd)
	bStart, bEnd = Day(bStart), Day(bEnd)

	if within(aStart, bStart, bEnd) || within(aEnd, bStart, bEnd) {
		return true
	}
	return aStart.Before(bStart) && aEnd.After(bEnd)
}

func within(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// ReservationPrice computes the total price for an inclusive day count.
// Spans of MonthlyDiscountMinDays or more get the office's monthly discount,
// with the discount amount truncated toward zero (integer division).
func ReservationPrice(days int64, pricePerDay, monthlyDiscount int64) int64 {
	price := days * pricePerDay
	if days >= MonthlyDiscountMinDays && monthlyDiscount > 0 {
		price -= price * monthlyDiscount / 100
	}
	return price
}
