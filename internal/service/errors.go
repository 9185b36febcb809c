package service

import "errors"

// Reservation admission rejections, checked in order by CreateReservation.
var (
	ErrInvalidOffice     = errors.New("invalid office_id")
	ErrSelfReservation   = errors.New("cannot make a reservation on your own office")
	ErrOfficeNotBookable = errors.New("cannot make a reservation on a hidden or unapproved office")
	ErrDateRangeConflict = errors.New("cannot make a reservation during this time")
	ErrStartDateTooSoon  = errors.New("start_date must be a date after today")
	ErrEndDateNotAfter   = errors.New("end_date must be a date after start_date")
)

// Other business-rule rejections.
var (
	ErrCancelForbidden  = errors.New("reservation cannot be cancelled")
	ErrImageTooLarge    = errors.New("image exceeds the maximum allowed size")
	ErrUnknownTags      = errors.New("one or more tags do not exist")
	ErrOfficeNotOwned   = errors.New("office does not belong to this user")
	ErrImageNotAttached = errors.New("image does not belong to this office")
)
