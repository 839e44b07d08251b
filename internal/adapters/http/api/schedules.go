package api

import (
	"net/http"
	"time"

	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
)

// ScheduleHandler handles the schedule routes.
type ScheduleHandler struct {
	deps   ScheduleDependencies
	logger logger.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(deps ScheduleDependencies, l logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{deps: deps, logger: l}
}

// scheduleRequest mirrors the OpenAPI schema for POST /match-engine/schedules.
type scheduleRequest struct {
	Kind                  string       `json:"kind" validate:"required,oneof=sport academic custom work"`
	SportSeasonID         string       `json:"sportSeasonId" validate:"required_if=Kind sport"`
	AcademicCalendarID    string       `json:"academicCalendarId" validate:"required_if=Kind academic"`
	Blocks                []blockBody  `json:"blocks" validate:"max=50,dive"`
	TravelConflicts       []travelBody `json:"travelConflicts" validate:"max=50,dive"`
	AvailableHoursPerWeek *float64     `json:"availableHoursPerWeek" validate:"omitempty,gte=0,lte=168"`
	EffectiveFrom         types.Date   `json:"effectiveFrom"`
	EffectiveTo           types.Date   `json:"effectiveTo"`
	Active                *bool        `json:"active"`
}

type blockBody struct {
	Day   int    `json:"day" validate:"gte=0,lte=6"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Label string `json:"label" validate:"max=120"`
}

type travelBody struct {
	Start  types.Date `json:"start"`
	End    types.Date `json:"end"`
	Reason string     `json:"reason" validate:"max=200"`
}

func (req scheduleRequest) entry(id Identity) model.ScheduleEntry {
	e := model.ScheduleEntry{
		StudentID:             id.StudentID,
		TenantID:              id.TenantID,
		Kind:                  model.ScheduleKind(req.Kind),
		SportSeasonID:         req.SportSeasonID,
		AcademicCalendarID:    req.AcademicCalendarID,
		AvailableHoursPerWeek: req.AvailableHoursPerWeek,
		EffectiveFrom:         req.EffectiveFrom.Time,
		EffectiveTo:           req.EffectiveTo.Time,
		Active:                req.Active == nil || *req.Active,
	}
	for _, b := range req.Blocks {
		e.Blocks = append(e.Blocks, model.TimeBlock{Day: time.Weekday(b.Day), Start: b.Start, End: b.End, Label: b.Label})
	}
	for _, t := range req.TravelConflicts {
		e.Travel = append(e.Travel, model.TravelConflict{Start: t.Start.Time, End: t.End.Time, Reason: t.Reason})
	}
	return e
}

type scheduleResponse struct {
	ID                    string        `json:"id"`
	StudentID             string        `json:"studentId"`
	Kind                  string        `json:"kind"`
	SportSeason           *seasonBody   `json:"sportSeason,omitempty"`
	AcademicCalendar      *calendarBody `json:"academicCalendar,omitempty"`
	Blocks                []blockBody   `json:"blocks"`
	TravelConflicts       []travelBody  `json:"travelConflicts"`
	AvailableHoursPerWeek *float64      `json:"availableHoursPerWeek,omitempty"`
	EffectiveFrom         types.Date    `json:"effectiveFrom"`
	EffectiveTo           types.Date    `json:"effectiveTo"`
	Active                bool          `json:"active"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

type seasonBody struct {
	ID                      string  `json:"id"`
	Sport                   string  `json:"sport"`
	SeasonType              string  `json:"seasonType"`
	StartMonth              int     `json:"startMonth"`
	EndMonth                int     `json:"endMonth"`
	PracticeHoursPerWeek    float64 `json:"practiceHoursPerWeek"`
	CompetitionHoursPerWeek float64 `json:"competitionHoursPerWeek"`
	TravelDaysPerMonth      float64 `json:"travelDaysPerMonth"`
	Intensity               int     `json:"intensity"`
}

type calendarBody struct {
	ID        string     `json:"id"`
	TermName  string     `json:"termName"`
	TermType  string     `json:"termType"`
	StartDate types.Date `json:"startDate"`
	EndDate   types.Date `json:"endDate"`
}

func toScheduleResponse(e model.ScheduleEntry) scheduleResponse {
	resp := scheduleResponse{
		ID:                    e.ID,
		StudentID:             e.StudentID,
		Kind:                  string(e.Kind),
		Blocks:                make([]blockBody, 0, len(e.Blocks)),
		TravelConflicts:       make([]travelBody, 0, len(e.Travel)),
		AvailableHoursPerWeek: e.AvailableHoursPerWeek,
		EffectiveFrom:         types.NewDate(e.EffectiveFrom),
		EffectiveTo:           types.NewDate(e.EffectiveTo),
		Active:                e.Active,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
	for _, b := range e.Blocks {
		resp.Blocks = append(resp.Blocks, blockBody{Day: int(b.Day), Start: b.Start, End: b.End, Label: b.Label})
	}
	for _, t := range e.Travel {
		resp.TravelConflicts = append(resp.TravelConflicts, travelBody{Start: types.NewDate(t.Start), End: types.NewDate(t.End), Reason: t.Reason})
	}
	if s := e.Season; s != nil {
		resp.SportSeason = &seasonBody{
			ID:                      s.ID,
			Sport:                   s.Sport,
			SeasonType:              string(s.SeasonType),
			StartMonth:              int(s.StartMonth),
			EndMonth:                int(s.EndMonth),
			PracticeHoursPerWeek:    s.PracticeHoursPerWeek,
			CompetitionHoursPerWeek: s.CompetitionHoursPerWeek,
			TravelDaysPerMonth:      s.TravelDaysPerMonth,
			Intensity:               s.Intensity,
		}
	}
	if c := e.Calendar; c != nil {
		resp.AcademicCalendar = &calendarBody{
			ID:        c.ID,
			TermName:  c.TermName,
			TermType:  c.TermType,
			StartDate: types.NewDate(c.StartDate),
			EndDate:   types.NewDate(c.EndDate),
		}
	}
	return resp
}

// HandleList handles GET /match-engine/schedules.
func (h *ScheduleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	entries, err := h.deps.ListSchedules(r.Context(), id.StudentID)
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	out := make([]scheduleResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toScheduleResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": out})
}

// HandleCreate handles POST /match-engine/schedules.
func (h *ScheduleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_schedule"
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := decodeJSON(op, r, &req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	created, err := h.deps.CreateSchedule(r.Context(), req.entry(id))
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleResponse(created))
}
