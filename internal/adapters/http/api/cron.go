package api

import (
	"net/http"

	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
)

// CronHandler handles the secret-protected batch and invalidation routes.
type CronHandler struct {
	deps   CronDependencies
	logger logger.Logger
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(deps CronDependencies, l logger.Logger) *CronHandler {
	return &CronHandler{deps: deps, logger: l}
}

// HandleRecompute handles POST /cron/recompute-matches.
func (h *CronHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.RunBatch(r.Context())
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// invalidationRequest names exactly one side of the pair.
type invalidationRequest struct {
	StudentID string `json:"studentId" validate:"required_without=ListingID,excluded_with=ListingID"`
	ListingID string `json:"listingId" validate:"required_without=StudentID"`
	Reason    string `json:"reason" validate:"required,max=120"`
}

type invalidationResponse struct {
	Queued []queuedResponse `json:"queued"`
}

// HandleInvalidate handles POST /internal/invalidations.
func (h *CronHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.invalidate"

	var req invalidationRequest
	if err := decodeJSON(op, r, &req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	var items []model.QueueItem
	if req.StudentID != "" {
		item, err := h.deps.InvalidateStudentScores(r.Context(), req.StudentID, req.Reason)
		if err != nil {
			writeError(r.Context(), h.logger, w, err)
			return
		}
		items = append(items, item)
	} else {
		var err error
		items, err = h.deps.InvalidateListingScores(r.Context(), req.ListingID, req.Reason)
		if err != nil {
			writeError(r.Context(), h.logger, w, err)
			return
		}
	}

	resp := invalidationResponse{Queued: make([]queuedResponse, 0, len(items))}
	for _, it := range items {
		resp.Queued = append(resp.Queued, toQueuedResponse(it))
	}
	writeJSON(w, http.StatusAccepted, resp)
}
