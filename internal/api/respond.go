package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"deskhub/internal/database"
	"deskhub/internal/repository"
	"deskhub/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// writeValidationError renders a field-scoped validation failure.
func writeValidationError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": message,
		"errors":  map[string][]string{field: {message}},
	})
}

// validationField maps a business rejection to the request field it
// belongs to.
var validationField = map[error]string{
	service.ErrInvalidOffice:     "office_id",
	service.ErrSelfReservation:   "office_id",
	service.ErrOfficeNotBookable: "office_id",
	service.ErrDateRangeConflict: "start_date",
	service.ErrStartDateTooSoon:  "start_date",
	service.ErrEndDateNotAfter:   "end_date",
	service.ErrCancelForbidden:   "reservation",
	service.ErrUnknownTags:       "tags",
	service.ErrImageTooLarge:     "image",
	service.ErrImageNotAttached:  "image",
}

// respondServiceError translates service and store errors into HTTP
// responses. Anything unmapped is an infrastructure fault.
func respondServiceError(w http.ResponseWriter, err error) {
	for target, field := range validationField {
		if errors.Is(err, target) {
			writeValidationError(w, field, target.Error())
			return
		}
	}

	switch {
	case errors.Is(err, repository.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, "could not process the reservation, please retry")
	case errors.Is(err, database.ErrActiveReservations):
		writeValidationError(w, "office", "cannot delete an office with active reservations")
	case errors.Is(err, database.ErrFeaturedImage):
		writeValidationError(w, "image", "cannot delete the featured image")
	case errors.Is(err, service.ErrOfficeNotOwned):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, database.ErrOfficeNotFound),
		errors.Is(err, database.ErrReservationNotFound),
		errors.Is(err, database.ErrImageNotFound),
		errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
