// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/matchengine/internal/adapters/mq/worker"
	service "github.com/okian/matchengine/internal/app"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	ScheduleDependencies
	MatchDependencies
	CronDependencies
}

// ScheduleDependencies serves the schedule and availability routes.
type ScheduleDependencies interface {
	ListSchedules(ctx context.Context, studentID string) ([]model.ScheduleEntry, error)
	CreateSchedule(ctx context.Context, entry model.ScheduleEntry) (model.ScheduleEntry, error)
	Availability(ctx context.Context, studentID string, start, end time.Time) (service.AvailabilityReport, error)
}

// MatchDependencies serves the match routes.
type MatchDependencies interface {
	ComputeMatch(ctx context.Context, studentID, listingID string, opts service.MatchOptions) (model.MatchScore, error)
	RequestRecompute(ctx context.Context, studentID, listingID string, priority int, reason string) (model.QueueItem, error)
	PairPriority() int
}

// CronDependencies serves the secret-protected routes.
type CronDependencies interface {
	RunBatch(ctx context.Context) (worker.Result, error)
	InvalidateStudentScores(ctx context.Context, studentID, reason string) (model.QueueItem, error)
	InvalidateListingScores(ctx context.Context, listingID, reason string) ([]model.QueueItem, error)
}

// Server wires HTTP routes for the match engine API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	scheduleHandler     *ScheduleHandler
	availabilityHandler *AvailabilityHandler
	matchHandler        *MatchHandler
	cronHandler         *CronHandler

	cronSecret string
	jwtSecret  string
	ready      ReadinessCheck
	logger     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler(s.ready, s.logger)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.scheduleHandler = NewScheduleHandler(deps, s.logger)
	s.availabilityHandler = NewAvailabilityHandler(deps, s.logger)
	s.matchHandler = NewMatchHandler(deps, s.logger)
	s.cronHandler = NewCronHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Group(func(r chi.Router) {
		r.Use(CronAuth(s.cronSecret, s.logger))
		r.Post("/cron/recompute-matches", MetricsMiddleware(s.cronHandler.HandleRecompute, "cron_recompute"))
		r.Post("/internal/invalidations", MetricsMiddleware(s.cronHandler.HandleInvalidate, "invalidations"))
	})

	r.Route("/match-engine", func(r chi.Router) {
		r.Use(StudentAuth(s.jwtSecret, s.logger))
		r.Get("/schedules", MetricsMiddleware(s.scheduleHandler.HandleList, "schedules_list"))
		r.Post("/schedules", MetricsMiddleware(s.scheduleHandler.HandleCreate, "schedules_create"))
		r.Get("/availability", MetricsMiddleware(s.availabilityHandler.HandleGet, "availability"))
		r.Get("/matches/{listingID}", MetricsMiddleware(s.matchHandler.HandleGet, "match_get"))
		r.Post("/matches/{listingID}/recompute", MetricsMiddleware(s.matchHandler.HandleRecompute, "match_recompute"))
	})
}

// Routes returns a router with every route registered.
func (s *Server) Routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err's kind to a status code and writes the error body.
// Server errors are logged and their cause is not exposed.
func writeError(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Code: apperr.Code(err), Message: err.Error()}

	switch {
	case errors.Is(err, ErrBadRequest):
		resp.Code = "bad_request"
	case status >= http.StatusInternalServerError:
		l.Error(ctx, "request failed", logger.Error(err))
		resp.Message = http.StatusText(status)
	}

	var v *apperr.ValidationError
	if errors.As(err, &v) {
		resp.Fields = v.Fields
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	switch apperr.KindOf(err) {
	case apperr.ErrValidation:
		return http.StatusUnprocessableEntity
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v. Malformed bodies are ErrBadRequest.
func decodeJSON(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
