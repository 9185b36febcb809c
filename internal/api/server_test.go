package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"deskhub/internal/config"
	"deskhub/internal/database"
	"deskhub/internal/events"
	"deskhub/internal/export"
	"deskhub/internal/models"
	"deskhub/internal/repository"
	"deskhub/internal/service"
	"deskhub/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guestKey = "guest-key"
	hostKey  = "host-key"
	sharedX  = "extra-secret"
)

type testAPI struct {
	db      *database.DB
	server  *Server
	ts      *httptest.Server
	guest   *models.User
	host    *models.User
	guestID int64
	hostID  int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zerolog.New(zerolog.NewConsoleWriter())
	db, err := database.NewDB(filepath.Join(t.TempDir(), "deskhub.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	guest := &models.User{Name: "Guest", Email: "guest@example.com"}
	require.NoError(t, db.CreateUser(context.Background(), guest))
	host := &models.User{Name: "Host", Email: "host@example.com"}
	require.NoError(t, db.CreateUser(context.Background(), host))

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Port: 0},
		Auth: config.AuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: guestKey, Extra: sharedX, Name: "guest", UserID: guest.ID},
				{Key: hostKey, Extra: sharedX, Name: "host", UserID: host.ID},
			},
		},
	}

	files, err := storage.NewFileStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	bus := events.NewEventBus()
	locker := repository.NewMemoryLocker(repository.DefaultWaitBound)
	reservations := service.NewReservationService(db, locker, bus, nil, repository.DefaultHoldTimeout, &logger)
	offices := service.NewOfficeService(db, files, bus, &logger)
	images := service.NewImageService(db, files, &logger)
	exporter := export.NewExporter(filepath.Join(t.TempDir(), "exports"), &logger)

	server := NewServer(cfg, offices, reservations, images, exporter, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{
		db:      db,
		server:  server,
		ts:      ts,
		guest:   guest,
		host:    host,
		guestID: guest.ID,
		hostID:  host.ID,
	}
}

func (a *testAPI) request(t *testing.T, method, path, apiKey string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.ts.URL+path, reader)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("x-api-extra", sharedX)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func (a *testAPI) createOffice(t *testing.T, approve bool) *models.Office {
	t.Helper()
	office := &models.Office{
		UserID:         a.hostID,
		Title:          "Loft on Main",
		Description:    "Quiet loft",
		Lat:            52.52,
		Lng:            13.4,
		AddressLine1:   "Main St 1",
		ApprovalStatus: models.ApprovalPending,
		PricePerDay:    1000,
	}
	if approve {
		office.ApprovalStatus = models.ApprovalApproved
	}
	require.NoError(t, a.db.CreateOffice(context.Background(), office, nil))
	return office
}

func day(offset int) string {
	return models.Day(time.Now()).AddDate(0, 0, offset).Format(models.DateFormat)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	resp := a.request(t, http.MethodGet, "/api/v1/offices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/v1/offices", "bogus-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/v1/offices", guestKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScopeEnforcement(t *testing.T) {
	a := newTestAPI(t)
	// Re-key the guest with a read-only token.
	a.server.auth.clients[guestKey] = config.APIClientKey{
		Key: guestKey, Extra: sharedX, UserID: a.guestID, Scopes: []string{"offices.read"},
	}

	office := a.createOffice(t, true)
	resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
		OfficeID: office.ID, StartDate: day(1), EndDate: day(5),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateAndGetOffice(t *testing.T) {
	a := newTestAPI(t)

	title, desc, addr := "Corner Studio", "Bright studio", "Broadway 7"
	lat, lng := 40.71, -74.0
	price := int64(2000)
	resp := a.request(t, http.MethodPost, "/api/v1/offices", hostKey, officeRequest{
		Title: &title, Description: &desc, AddressLine1: &addr,
		Lat: &lat, Lng: &lng, PricePerDay: &price,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeBody(t, resp)
	data := payload["data"].(map[string]any)
	assert.Equal(t, models.ApprovalPending, data["approval_status"])
	officeID := int64(data["id"].(float64))

	// Pending offices are invisible to strangers but visible to the owner.
	resp = a.request(t, http.MethodGet, fmt.Sprintf("/api/v1/offices/%d", officeID), guestKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.request(t, http.MethodGet, fmt.Sprintf("/api/v1/offices/%d", officeID), hostKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateOfficeValidation(t *testing.T) {
	a := newTestAPI(t)

	title, addr := "X", "Y"
	lat, lng := 1.0, 2.0
	price := int64(10) // below minimum
	resp := a.request(t, http.MethodPost, "/api/v1/offices", hostKey, officeRequest{
		Title: &title, AddressLine1: &addr, Lat: &lat, Lng: &lng, PricePerDay: &price,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	payload := decodeBody(t, resp)
	errors := payload["errors"].(map[string]any)
	assert.Contains(t, errors, "price_per_day")
}

func TestReservationLifecycle(t *testing.T) {
	a := newTestAPI(t)
	office := a.createOffice(t, true)

	resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
		OfficeID: office.ID, StartDate: day(1), EndDate: day(10),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeBody(t, resp)
	data := payload["data"].(map[string]any)
	assert.Equal(t, float64(10*1000), data["price"])
	assert.NotEmpty(t, data["wifi_password"])
	resID := int64(data["id"].(float64))

	// Guest listing includes it, host listing hides the wifi password.
	resp = a.request(t, http.MethodGet, "/api/v1/reservations", guestKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody(t, resp)["data"].([]any)
	require.Len(t, list, 1)

	resp = a.request(t, http.MethodGet, "/api/v1/host/reservations", hostKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hostList := decodeBody(t, resp)["data"].([]any)
	require.Len(t, hostList, 1)
	hostRow := hostList[0].(map[string]any)
	_, hasWifi := hostRow["wifi_password"]
	assert.False(t, hasWifi)

	// Cancel.
	resp = a.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", resID), guestKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, models.ReservationCancelled, cancelled["status"])
}

func TestReservationValidationErrors(t *testing.T) {
	a := newTestAPI(t)
	office := a.createOffice(t, true)

	t.Run("unknown office", func(t *testing.T) {
		resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
			OfficeID: 9999, StartDate: day(1), EndDate: day(5),
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		payload := decodeBody(t, resp)
		assert.Contains(t, payload["errors"].(map[string]any), "office_id")
	})

	t.Run("own office", func(t *testing.T) {
		resp := a.request(t, http.MethodPost, "/api/v1/reservations", hostKey, reservationRequest{
			OfficeID: office.ID, StartDate: day(1), EndDate: day(5),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("bad date format", func(t *testing.T) {
		resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
			OfficeID: office.ID, StartDate: "01.09.2026", EndDate: day(5),
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		payload := decodeBody(t, resp)
		assert.Contains(t, payload["errors"].(map[string]any), "start_date")
	})

	t.Run("conflicting range", func(t *testing.T) {
		resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
			OfficeID: office.ID, StartDate: day(2), EndDate: day(15),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
			OfficeID: office.ID, StartDate: day(1), EndDate: day(15),
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		payload := decodeBody(t, resp)
		assert.Contains(t, payload["errors"].(map[string]any), "start_date")
	})
}

func TestImageUploadAndDelete(t *testing.T) {
	a := newTestAPI(t)
	office := a.createOffice(t, true)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "front.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/api/v1/offices/%d/images", a.ts.URL, office.ID), &buf)
	require.NoError(t, err)
	req.Header.Set("x-api-key", hostKey)
	req.Header.Set("x-api-extra", sharedX)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]any)
	imageID := int64(data["id"].(float64))

	get := a.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/offices/%d/images/%d", office.ID, imageID), guestKey, nil)
	require.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, "image/jpeg", get.Header.Get("Content-Type"))
	served, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(served))

	del := a.request(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/offices/%d/images/%d", office.ID, imageID), hostKey, nil)
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	gone := a.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/offices/%d/images/%d", office.ID, imageID), guestKey, nil)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestHostReservationsExport(t *testing.T) {
	a := newTestAPI(t)
	office := a.createOffice(t, true)

	resp := a.request(t, http.MethodPost, "/api/v1/reservations", guestKey, reservationRequest{
		OfficeID: office.ID, StartDate: day(1), EndDate: day(5),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/v1/host/reservations/export", hostKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestTags(t *testing.T) {
	a := newTestAPI(t)
	require.NoError(t, a.db.UpsertTag(context.Background(), &models.Tag{Name: "wifi"}))

	resp := a.request(t, http.MethodGet, "/api/v1/tags", guestKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].([]any)
	assert.Len(t, data, 1)
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t)
	a.server.auth.rateLimit = config.RateLimitConfig{RPS: 1, Burst: 2}

	hits := 0
	for i := 0; i < 5; i++ {
		resp := a.request(t, http.MethodGet, "/healthz", guestKey, nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			hits++
		}
	}
	assert.Greater(t, hits, 0)
}
