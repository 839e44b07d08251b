package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
)

const maxWeeklyHours = 168

// AvailabilityReport is the availability of a student over a date range.
type AvailabilityReport struct {
	Windows   []model.AvailabilityWindow
	StartDate time.Time
	EndDate   time.Time
}

// ListSchedules returns the student's schedule entries with reference data joined.
func (s *Service) ListSchedules(ctx context.Context, studentID string) ([]model.ScheduleEntry, error) {
	const op = "service.ListSchedules"

	if studentID == "" {
		return nil, apperr.WrapKind(op, apperr.ErrValidation, apperr.Invalid("studentId", "is required"))
	}
	entries, err := s.store.ListSchedules(ctx, studentID)
	if err != nil {
		return nil, apperr.WrapKind(op, apperr.ErrInternal, err)
	}
	return entries, nil
}

// CreateSchedule validates and stores entry, then invalidates the student's scores.
// With a Transactor the entry, the stale marks and the sweep commit together.
func (s *Service) CreateSchedule(ctx context.Context, entry model.ScheduleEntry) (model.ScheduleEntry, error) {
	const op = "service.CreateSchedule"

	if entry.EffectiveFrom.IsZero() {
		entry.EffectiveFrom = types.StartOfDay(s.clock.Now())
	}
	if err := s.validateSchedule(ctx, entry); err != nil {
		return model.ScheduleEntry{}, apperr.WrapKind(op, apperr.ErrValidation, err)
	}

	var (
		created model.ScheduleEntry
		item    model.QueueItem
		marked  int
	)
	err := s.atomically(ctx, func(u unit) error {
		var err error
		if created, err = u.schedules.CreateSchedule(ctx, entry); err != nil {
			return lookupFailed(op, err)
		}
		item, marked, err = s.invalidateStudent(ctx, u, created.StudentID, ReasonScheduleCreated)
		if err != nil {
			if s.tx == nil {
				s.logger.Error(ctx, "schedule entry stored but score invalidation failed",
					logger.StudentID(created.StudentID),
					logger.String("scheduleId", created.ID),
					logger.Error(err),
				)
			}
			return apperr.WrapKind(op, apperr.ErrInternal, fmt.Errorf("invalidate scores: %w", err))
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.WrapKind(op, apperr.ErrInternal, err)
		}
		return model.ScheduleEntry{}, err
	}
	s.studentInvalidated(ctx, created.StudentID, ReasonScheduleCreated, marked, item)

	s.logger.Info(ctx, "schedule entry created",
		logger.StudentID(created.StudentID),
		logger.String("scheduleId", created.ID),
		logger.String("kind", string(created.Kind)),
	)
	return created, nil
}

func (s *Service) validateSchedule(ctx context.Context, e model.ScheduleEntry) error {
	v := &apperr.ValidationError{}

	if e.StudentID == "" {
		v.Add("studentId", "is required")
	}
	if !e.Kind.Valid() {
		v.Add("kind", "must be one of sport, academic, custom, work")
	}

	switch e.Kind {
	case model.KindSport:
		if e.SportSeasonID == "" {
			v.Add("sportSeasonId", "is required for sport entries")
		}
	case model.KindAcademic:
		if e.AcademicCalendarID == "" {
			v.Add("academicCalendarId", "is required for academic entries")
		}
	}
	if e.SportSeasonID != "" {
		if err := s.reference(ctx, func(ctx context.Context) error {
			_, err := s.store.GetSportSeason(ctx, e.SportSeasonID)
			return err
		}); err != nil {
			v.Add("sportSeasonId", "%v", err)
		}
	}
	if e.AcademicCalendarID != "" {
		if err := s.reference(ctx, func(ctx context.Context) error {
			_, err := s.store.GetAcademicCalendar(ctx, e.AcademicCalendarID)
			return err
		}); err != nil {
			v.Add("academicCalendarId", "%v", err)
		}
	}

	for i, b := range e.Blocks {
		field := fmt.Sprintf("blocks[%d]", i)
		if b.Day < time.Sunday || b.Day > time.Saturday {
			v.Add(field+".day", "must be a weekday 0-6")
		}
		start, errStart := model.ParseClock(b.Start)
		if errStart != nil {
			v.Add(field+".start", "%v", errStart)
		}
		end, errEnd := model.ParseClock(b.End)
		if errEnd != nil {
			v.Add(field+".end", "%v", errEnd)
		}
		if errStart == nil && errEnd == nil && end <= start {
			v.Add(field+".end", "must be after start")
		}
	}

	for i, t := range e.Travel {
		field := fmt.Sprintf("travelConflicts[%d]", i)
		if t.Start.IsZero() {
			v.Add(field+".start", "is required")
		}
		if t.End.Before(t.Start) {
			v.Add(field+".end", "must not be before start")
		}
	}

	if h := e.AvailableHoursPerWeek; h != nil && (*h < 0 || *h > maxWeeklyHours) {
		v.Add("availableHoursPerWeek", "must be between 0 and %d", maxWeeklyHours)
	}
	if !e.EffectiveTo.IsZero() && e.EffectiveTo.Before(e.EffectiveFrom) {
		v.Add("effectiveTo", "must not be before effectiveFrom")
	}

	return v.OrNil()
}

// reference runs a reference-data lookup and turns a miss into a message.
func (s *Service) reference(ctx context.Context, lookup func(context.Context) error) error {
	err := lookup(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return errors.New("does not exist")
	}
	return err
}

// Availability computes the student's weekly windows over [start, end].
// Zero dates default to today and the default horizon.
func (s *Service) Availability(ctx context.Context, studentID string, start, end time.Time) (AvailabilityReport, error) {
	const op = "service.Availability"

	if studentID == "" {
		return AvailabilityReport{}, apperr.WrapKind(op, apperr.ErrValidation, apperr.Invalid("studentId", "is required"))
	}

	if start.IsZero() {
		start = s.clock.Now()
	}
	start = types.StartOfDay(start)
	if end.IsZero() {
		end = start.AddDate(0, 0, s.defaultWindow*7-1)
	}
	end = types.StartOfDay(end)

	switch {
	case end.Before(start):
		return AvailabilityReport{}, apperr.WrapKind(op, apperr.ErrValidation,
			apperr.Invalid("endDate", "must not be before startDate"))
	case end.After(start.AddDate(0, 0, s.maxWindow*7)):
		return AvailabilityReport{}, apperr.WrapKind(op, apperr.ErrValidation,
			apperr.Invalid("endDate", "range must not exceed %d weeks", s.maxWindow))
	}

	entries, err := s.store.ListSchedules(ctx, studentID)
	if err != nil {
		return AvailabilityReport{}, apperr.WrapKind(op, apperr.ErrInternal, err)
	}

	return AvailabilityReport{
		Windows:   s.calculator.Compute(entries, start, end),
		StartDate: start,
		EndDate:   end,
	}, nil
}
