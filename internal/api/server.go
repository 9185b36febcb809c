package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"deskhub/internal/config"
	"deskhub/internal/models"
	"deskhub/internal/service"

	"github.com/rs/zerolog"
)

// Server is the public HTTP API.
type Server struct {
	cfg          *config.Config
	offices      *service.OfficeService
	reservations *service.ReservationService
	images       *service.ImageService
	exporter     Exporter
	auth         *Auth
	server       *http.Server
	logger       *zerolog.Logger
}

// Exporter writes host reservation reports to a file and returns its path.
type Exporter interface {
	HostReservations(hostID int64, reservations []*models.Reservation) (string, error)
}

func NewServer(
	cfg *config.Config,
	offices *service.OfficeService,
	reservations *service.ReservationService,
	images *service.ImageService,
	exporter Exporter,
	logger *zerolog.Logger,
) *Server {
	srv := &Server{
		cfg:          cfg,
		offices:      offices,
		reservations: reservations,
		images:       images,
		exporter:     exporter,
		auth:         NewAuth(cfg.Auth, cfg.RateLimit),
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tags", srv.handleTags)
	mux.HandleFunc("/api/v1/offices", srv.handleOffices)
	mux.HandleFunc("/api/v1/offices/", srv.handleOfficeSubtree)
	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationSubtree)
	mux.HandleFunc("/api/v1/host/reservations", srv.handleHostReservations)
	mux.HandleFunc("/api/v1/host/reservations/export", srv.handleHostReservationsExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := loggingMiddleware(logger, srv.auth.Wrap(mux))
	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser resolves the authenticated platform user, failing the
// request when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	identity := identityFrom(r)
	if identity == nil || identity.UserID == 0 {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return 0, false
	}
	return identity.UserID, true
}
