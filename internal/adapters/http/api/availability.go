package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
)

// AvailabilityHandler handles GET /match-engine/availability.
type AvailabilityHandler struct {
	deps   ScheduleDependencies
	logger logger.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(deps ScheduleDependencies, l logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{deps: deps, logger: l}
}

type windowResponse struct {
	WeekStart         types.Date `json:"weekStart"`
	WeekEnd           types.Date `json:"weekEnd"`
	AvailableHours    float64    `json:"availableHours"`
	Constraints       []string   `json:"constraints"`
	TravelConstraints int        `json:"travelConstraints"`
	TravelDays        int        `json:"travelDays"`
	Bucket            string     `json:"bucket"`
}

type availabilityResponse struct {
	Windows   []windowResponse `json:"windows"`
	StartDate types.Date       `json:"startDate"`
	EndDate   types.Date       `json:"endDate"`
}

func toWindowResponse(w model.AvailabilityWindow) windowResponse {
	resp := windowResponse{
		WeekStart:      types.NewDate(w.WeekStart),
		WeekEnd:        types.NewDate(w.WeekEnd),
		AvailableHours: w.AvailableHours,
		Constraints:    w.Constraints,
		TravelDays:     w.TravelDays,
		Bucket:         string(w.Bucket),
	}
	if resp.Constraints == nil {
		resp.Constraints = []string{}
	}
	for _, c := range w.Constraints {
		if strings.HasPrefix(c, model.TravelPrefix) {
			resp.TravelConstraints++
		}
	}
	return resp
}

// HandleGet handles GET /match-engine/availability?startDate&endDate.
func (h *AvailabilityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.availability"
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	v := &apperr.ValidationError{}
	start := queryDate(r, "startDate", v)
	end := queryDate(r, "endDate", v)
	if err := v.OrNil(); err != nil {
		writeError(r.Context(), h.logger, w, apperr.WrapKind(op, apperr.ErrValidation, err))
		return
	}

	report, err := h.deps.Availability(r.Context(), id.StudentID, start, end)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	resp := availabilityResponse{
		Windows:   make([]windowResponse, 0, len(report.Windows)),
		StartDate: types.NewDate(report.StartDate),
		EndDate:   types.NewDate(report.EndDate),
	}
	for _, win := range report.Windows {
		resp.Windows = append(resp.Windows, toWindowResponse(win))
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryDate(r *http.Request, name string, v *apperr.ValidationError) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := types.ParseDate(raw)
	if err != nil {
		v.Add(name, "must be a YYYY-MM-DD date")
		return time.Time{}
	}
	return t
}
