package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/availability"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/scoring"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
	"github.com/okian/matchengine/pkg/metrics"
)

// MatchOptions tunes a ComputeMatch call.
type MatchOptions struct {
	// ForceRecompute skips the cache lookup.
	ForceRecompute bool
	// TenantID, when set, must match both the student and the listing.
	TenantID string
}

// ComputeMatch returns the score for a pair. A fresh cached score is returned
// unchanged; otherwise the score is computed and written back.
func (s *Service) ComputeMatch(ctx context.Context, studentID, listingID string, opts MatchOptions) (model.MatchScore, error) {
	const op = "service.ComputeMatch"

	if studentID == "" || listingID == "" {
		v := &apperr.ValidationError{}
		if studentID == "" {
			v.Add("studentId", "is required")
		}
		if listingID == "" {
			v.Add("listingId", "is required")
		}
		return model.MatchScore{}, apperr.WrapKind(op, apperr.ErrValidation, v)
	}

	key := model.PairKey{StudentID: studentID, ListingID: listingID}
	if !opts.ForceRecompute {
		cached, err := s.scores.GetScore(ctx, key)
		switch {
		case err == nil && !cached.IsStale:
			if opts.TenantID != "" && cached.TenantID != "" && cached.TenantID != opts.TenantID {
				return model.MatchScore{}, apperr.NewKind(op, apperr.ErrForbidden)
			}
			metrics.RecordScoreCacheHit()
			return cached, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return model.MatchScore{}, s.scoringFailed(op, err)
		}
	}
	metrics.RecordScoreCacheMiss()

	started := time.Now()
	score, err := s.compute(ctx, op, key, opts.TenantID)
	if err != nil {
		return model.MatchScore{}, s.scoringFailed(op, err)
	}

	if err := s.scores.UpsertScore(ctx, score); err != nil {
		return model.MatchScore{}, s.scoringFailed(op, err)
	}
	metrics.RecordScoreComputed(float64(time.Since(started).Microseconds()) / 1000)

	s.logger.Debug(ctx, "match score computed",
		logger.StudentID(studentID),
		logger.ListingID(listingID),
		logger.Float64("score", score.Score),
	)
	return score, nil
}

// Recompute forces a fresh score for key. It is the batch worker's recompute hook.
// When the student or listing no longer exists the cached row is dropped and the
// NotFound error is returned.
func (s *Service) Recompute(ctx context.Context, key model.PairKey) error {
	_, err := s.ComputeMatch(ctx, key.StudentID, key.ListingID, MatchOptions{ForceRecompute: true})
	if err == nil || !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if delErr := s.scores.DeleteScore(ctx, key); delErr != nil {
		s.logger.Warn(ctx, "failed to drop score of missing pair",
			logger.StudentID(key.StudentID),
			logger.ListingID(key.ListingID),
			logger.Error(delErr),
		)
	}
	return err
}

func (s *Service) compute(ctx context.Context, op string, key model.PairKey, tenantID string) (model.MatchScore, error) {
	student, err := s.store.GetStudent(ctx, key.StudentID)
	if err != nil {
		return model.MatchScore{}, lookupFailed(op, err)
	}
	listing, err := s.store.GetListing(ctx, key.ListingID)
	if err != nil {
		return model.MatchScore{}, lookupFailed(op, err)
	}
	if tenantID != "" && (student.TenantID != tenantID || listing.TenantID != tenantID) {
		return model.MatchScore{}, apperr.Errorf(op, apperr.ErrForbidden, "pair %s is outside tenant %s", key, tenantID)
	}

	entries, err := s.store.ListSchedules(ctx, key.StudentID)
	if err != nil {
		return model.MatchScore{}, apperr.WrapKind(op, apperr.ErrInternal, err)
	}

	start, end := s.listingWindow(listing)
	windows := s.calculator.Compute(entries, start, end)
	result := s.scorer.Score(scoring.Input{
		Student:      student,
		Listing:      listing,
		Availability: availability.Summarize(windows),
	})

	tenant := listing.TenantID
	if tenant == "" {
		tenant = student.TenantID
	}
	return model.MatchScore{
		StudentID:  key.StudentID,
		ListingID:  key.ListingID,
		TenantID:   tenant,
		Score:      result.Score,
		Breakdown:  result.Breakdown,
		ComputedAt: s.clock.Now(),
		IsStale:    false,
	}, nil
}

// listingWindow is the date range a listing occupies, capped at the maximum horizon.
// Listings without dates use the default horizon from today.
func (s *Service) listingWindow(l model.Listing) (time.Time, time.Time) {
	start := types.StartOfDay(s.clock.Now())
	if !l.StartDate.IsZero() {
		start = types.StartOfDay(l.StartDate)
	}

	var end time.Time
	switch {
	case !l.EndDate.IsZero():
		end = types.StartOfDay(l.EndDate)
	case !l.StartDate.IsZero() && l.DurationWeeks > 0:
		end = start.AddDate(0, 0, l.DurationWeeks*7-1)
	default:
		end = start.AddDate(0, 0, s.defaultWindow*7-1)
	}

	if limit := start.AddDate(0, 0, s.maxWindow*7-1); end.After(limit) {
		end = limit
	}
	return start, end
}

func lookupFailed(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.WrapKind(op, apperr.ErrNotFound, err)
	}
	return apperr.WrapKind(op, apperr.ErrInternal, err)
}

func (s *Service) scoringFailed(op string, err error) error {
	metrics.RecordScoringError(apperr.Code(err))
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.WrapKind(op, apperr.ErrInternal, err)
}
