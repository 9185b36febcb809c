package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"deskhub/internal/database"
	"deskhub/internal/models"
	"deskhub/internal/service"
)

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tags, err := s.offices.ListTags(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tags})
}

type officeRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	AddressLine1    *string  `json:"address_line1"`
	AddressLine2    *string  `json:"address_line2"`
	Hidden          *bool    `json:"hidden"`
	PricePerDay     *int64   `json:"price_per_day"`
	MonthlyDiscount *int64   `json:"monthly_discount"`
	FeaturedImageID *int64   `json:"featured_image_id"`
	Tags            []int64  `json:"tags"`
}

func (s *Server) handleOffices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listOffices(w, r)
	case http.MethodPost:
		s.createOffice(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listOffices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := database.OfficeFilter{
		PublicOnly: true,
		Page:       intQuery(query.Get("page")),
		PerPage:    intQuery(query.Get("per_page")),
	}

	if raw := query.Get("host_id"); raw != "" {
		hostID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeValidationError(w, "host_id", "host_id must be an integer")
			return
		}
		filter.UserID = hostID
		// Hosts browsing their own listings see drafts too.
		if identity := identityFrom(r); identity != nil && identity.UserID == hostID {
			filter.PublicOnly = false
		}
	}
	if raw := query.Get("visitor_id"); raw != "" {
		visitorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeValidationError(w, "visitor_id", "visitor_id must be an integer")
			return
		}
		filter.VisitorID = visitorID
	}
	if latRaw, lngRaw := query.Get("lat"), query.Get("lng"); latRaw != "" && lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil {
			writeValidationError(w, "lat", "lat and lng must be numbers")
			return
		}
		filter.Lat, filter.Lng = &lat, &lng
	}

	offices, err := s.offices.ListOffices(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if offices == nil {
		offices = []*models.Office{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": offices})
}

func (s *Server) createOffice(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, models.ScopeOfficesCreate) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req officeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if field, message := validateOfficeRequest(&req, true); field != "" {
		writeValidationError(w, field, message)
		return
	}

	office := &models.Office{
		UserID:       userID,
		Title:        *req.Title,
		Description:  stringOrEmpty(req.Description),
		Lat:          *req.Lat,
		Lng:          *req.Lng,
		AddressLine1: *req.AddressLine1,
		AddressLine2: stringOrEmpty(req.AddressLine2),
		PricePerDay:  *req.PricePerDay,
	}
	if req.Hidden != nil {
		office.Hidden = *req.Hidden
	}
	if req.MonthlyDiscount != nil {
		office.MonthlyDiscount = *req.MonthlyDiscount
	}

	created, err := s.offices.CreateOffice(r.Context(), office, req.Tags)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": created})
}

// handleOfficeSubtree routes /api/v1/offices/{id}[/images[/{imageID}]].
func (s *Server) handleOfficeSubtree(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/v1/offices/")
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	officeID, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case len(segments) == 1:
		s.handleOffice(w, r, officeID)
	case len(segments) == 2 && segments[1] == "images":
		s.uploadImage(w, r, officeID)
	case len(segments) == 3 && segments[1] == "images":
		imageID, err := strconv.ParseInt(segments[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Method == http.MethodGet {
			s.serveImage(w, r, officeID, imageID)
			return
		}
		s.deleteImage(w, r, officeID, imageID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleOffice(w http.ResponseWriter, r *http.Request, officeID int64) {
	switch r.Method {
	case http.MethodGet:
		var requesterID int64
		if identity := identityFrom(r); identity != nil {
			requesterID = identity.UserID
		}
		office, err := s.offices.GetOffice(r.Context(), requesterID, officeID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": office})

	case http.MethodPut:
		s.updateOffice(w, r, officeID)

	case http.MethodDelete:
		if !requireScope(w, r, models.ScopeOfficesDelete) {
			return
		}
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		if err := s.offices.DeleteOffice(r.Context(), userID, officeID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateOffice(w http.ResponseWriter, r *http.Request, officeID int64) {
	if !requireScope(w, r, models.ScopeOfficesUpdate) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req officeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if field, message := validateOfficeRequest(&req, false); field != "" {
		writeValidationError(w, field, message)
		return
	}

	update := service.OfficeUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Lat:             req.Lat,
		Lng:             req.Lng,
		AddressLine1:    req.AddressLine1,
		AddressLine2:    req.AddressLine2,
		Hidden:          req.Hidden,
		PricePerDay:     req.PricePerDay,
		MonthlyDiscount: req.MonthlyDiscount,
		FeaturedImageID: req.FeaturedImageID,
		TagIDs:          req.Tags,
	}
	office, err := s.offices.UpdateOffice(r.Context(), userID, officeID, update)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": office})
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request, officeID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireScope(w, r, models.ScopeOfficesUpdate) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(models.MaxImageBytes); err != nil {
		writeValidationError(w, "image", "image upload is malformed or too large")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeValidationError(w, "image", "image file is required")
		return
	}
	defer file.Close()

	image, err := s.images.UploadImage(r.Context(), userID, officeID, header.Filename, header.Size, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": image})
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, officeID, imageID int64) {
	image, file, err := s.images.OpenImage(r.Context(), officeID, imageID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(image.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, file); err != nil {
		s.logger.Warn().Err(err).Int64("image_id", imageID).Msg("stream image error")
	}
}

func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request, officeID, imageID int64) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireScope(w, r, models.ScopeOfficesUpdate) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := s.images.DeleteImage(r.Context(), userID, officeID, imageID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateOfficeRequest checks field shapes; required fields are only
// enforced on create.
func validateOfficeRequest(req *officeRequest, creating bool) (field, message string) {
	if creating {
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			return "title", "title is required"
		}
		if req.AddressLine1 == nil || strings.TrimSpace(*req.AddressLine1) == "" {
			return "address_line1", "address_line1 is required"
		}
		if req.Lat == nil || req.Lng == nil {
			return "lat", "lat and lng are required"
		}
		if req.PricePerDay == nil {
			return "price_per_day", "price_per_day is required"
		}
	}
	if req.PricePerDay != nil && *req.PricePerDay < models.MinPricePerDay {
		return "price_per_day", "price_per_day is below the minimum"
	}
	if req.MonthlyDiscount != nil && (*req.MonthlyDiscount < 0 || *req.MonthlyDiscount > 100) {
		return "monthly_discount", "monthly_discount must be between 0 and 100"
	}
	if req.Lat != nil && (*req.Lat < -90 || *req.Lat > 90) {
		return "lat", "lat must be between -90 and 90"
	}
	if req.Lng != nil && (*req.Lng < -180 || *req.Lng > 180) {
		return "lng", "lng must be between -180 and 180"
	}
	return "", ""
}

func pathSegments(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func intQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
