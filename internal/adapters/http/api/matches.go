package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/matchengine/internal/app"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
)

const reasonStudentRequested = "student_requested"

// MatchHandler handles the match routes.
type MatchHandler struct {
	deps   MatchDependencies
	logger logger.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies, l logger.Logger) *MatchHandler {
	return &MatchHandler{deps: deps, logger: l}
}

type matchResponse struct {
	StudentID  string          `json:"studentId"`
	ListingID  string          `json:"listingId"`
	Score      float64         `json:"score"`
	Breakdown  model.Breakdown `json:"breakdown"`
	ComputedAt time.Time       `json:"computedAt"`
	IsStale    bool            `json:"isStale"`
}

type queuedResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
}

func toQueuedResponse(item model.QueueItem) queuedResponse {
	return queuedResponse{ID: item.ID, Status: string(item.Status), Target: item.Target.String(), Priority: item.Priority}
}

// HandleGet handles GET /match-engine/matches/{listingID}?refresh=true.
func (h *MatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(r.Context(), h.logger, w, apperr.WrapKind(op, apperr.ErrValidation, apperr.Invalid("refresh", "must be a boolean")))
			return
		}
		refresh = b
	}

	score, err := h.deps.ComputeMatch(r.Context(), id.StudentID, chi.URLParam(r, "listingID"), service.MatchOptions{
		ForceRecompute: refresh,
		TenantID:       id.TenantID,
	})
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{
		StudentID:  score.StudentID,
		ListingID:  score.ListingID,
		Score:      score.Score,
		Breakdown:  score.Breakdown,
		ComputedAt: score.ComputedAt,
		IsStale:    score.IsStale,
	})
}

// HandleRecompute handles POST /match-engine/matches/{listingID}/recompute.
func (h *MatchHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	item, err := h.deps.RequestRecompute(r.Context(), id.StudentID, chi.URLParam(r, "listingID"), h.deps.PairPriority(), reasonStudentRequested)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toQueuedResponse(item))
}
