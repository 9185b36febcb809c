package database

import "errors"

var (
	ErrOfficeNotFound      = errors.New("office not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrImageNotFound       = errors.New("image not found")
	ErrTagNotFound         = errors.New("tag not found")
	ErrActiveReservations  = errors.New("office has active reservations")
	ErrFeaturedImage       = errors.New("image is the office featured image")
)
