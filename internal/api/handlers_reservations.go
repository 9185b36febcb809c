package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/models"
)

type reservationRequest struct {
	OfficeID  int64  `json:"office_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r, false)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, models.ScopeReservationsMake) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OfficeID == 0 {
		writeValidationError(w, "office_id", "office_id is required")
		return
	}
	start, err := time.Parse(models.DateFormat, req.StartDate)
	if err != nil {
		writeValidationError(w, "start_date", "start_date must be a date in YYYY-MM-DD format")
		return
	}
	end, err := time.Parse(models.DateFormat, req.EndDate)
	if err != nil {
		writeValidationError(w, "end_date", "end_date must be a date in YYYY-MM-DD format")
		return
	}

	res, err := s.reservations.CreateReservation(r.Context(), userID, req.OfficeID, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": res})
}

// listReservations serves both the guest view and the host view.
func (s *Server) listReservations(w http.ResponseWriter, r *http.Request, asHost bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, errField := reservationFilterFromQuery(r)
	if errField != "" {
		writeValidationError(w, errField, errField+" is invalid")
		return
	}
	if asHost {
		filter.HostID = userID
	} else {
		filter.UserID = userID
	}

	list, err := s.reservations.ListReservations(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func reservationFilterFromQuery(r *http.Request) (database.ReservationFilter, string) {
	query := r.URL.Query()
	filter := database.ReservationFilter{
		Status:  query.Get("status"),
		Page:    intQuery(query.Get("page")),
		PerPage: intQuery(query.Get("per_page")),
	}

	if raw := query.Get("office_id"); raw != "" {
		officeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, "office_id"
		}
		filter.OfficeID = officeID
	}
	if raw := query.Get("from_date"); raw != "" {
		from, err := time.Parse(models.DateFormat, raw)
		if err != nil {
			return filter, "from_date"
		}
		filter.From = &from
	}
	if raw := query.Get("to_date"); raw != "" {
		to, err := time.Parse(models.DateFormat, raw)
		if err != nil {
			return filter, "to_date"
		}
		filter.To = &to
	}
	return filter, ""
}

// handleReservationSubtree routes /api/v1/reservations/{id}. DELETE
// cancels the reservation rather than erasing it.
func (s *Server) handleReservationSubtree(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/v1/reservations/")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		res, err := s.reservations.GetReservation(r.Context(), userID, id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": res})

	case http.MethodDelete:
		if !requireScope(w, r, models.ScopeReservationsCancel) {
			return
		}
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		res, err := s.reservations.CancelReservation(r.Context(), userID, id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": res})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHostReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.listReservations(w, r, true)
}

func (s *Server) handleHostReservationsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, errField := reservationFilterFromQuery(r)
	if errField != "" {
		writeValidationError(w, errField, errField+" is invalid")
		return
	}
	filter.HostID = userID
	filter.PerPage = 10000 // exports are not paginated

	list, err := s.reservations.ListReservations(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	path, err := s.exporter.HostReservations(userID, list)
	if err != nil {
		s.logger.Error().Err(err).Int64("host_id", userID).Msg("export error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}
