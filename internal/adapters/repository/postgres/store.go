package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	conn  Querier
	clock types.Clock
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a Store over conn, which may be the pool or an open transaction.
func NewStore(conn Querier, clock types.Clock) *Store {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Store{conn: conn, clock: clock}
}

// ─────────────────────────────────────────────────────────────────────────────
// Directories
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	var st model.Student
	err := s.conn.QueryRow(ctx, `
		SELECT id, tenant_id, skills, preferred_categories, min_hourly_rate,
		       max_duration_weeks, reputation, review_count
		FROM students WHERE id = $1`, id).Scan(
		&st.ID, &st.TenantID, &st.Skills, &st.PreferredCategories, &st.MinHourlyRate,
		&st.MaxDurationWeeks, &st.Reputation, &st.ReviewCount,
	)
	if err != nil {
		return model.Student{}, notFound(err, "get student")
	}
	return st, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (model.Listing, error) {
	var (
		l          model.Listing
		start, end *time.Time
		comp       string
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, tenant_id, partner_id, title, category, required_skills, hours_per_week,
		       duration_weeks, start_date, end_date, compensation, hourly_rate,
		       partner_reputation, partner_review_count
		FROM listings WHERE id = $1`, id).Scan(
		&l.ID, &l.TenantID, &l.PartnerID, &l.Title, &l.Category, &l.RequiredSkills, &l.HoursPerWeek,
		&l.DurationWeeks, &start, &end, &comp, &l.HourlyRate,
		&l.PartnerReputation, &l.PartnerReviewCount,
	)
	if err != nil {
		return model.Listing{}, notFound(err, "get listing")
	}
	l.StartDate = deref(start)
	l.EndDate = deref(end)
	l.Compensation = model.Compensation(comp)
	return l, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference data and schedules
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) GetSportSeason(ctx context.Context, id string) (model.SportSeason, error) {
	var (
		ss         model.SportSeason
		seasonType string
		from, to   int
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, sport, season_type, start_month, end_month, practice_hours_per_week,
		       competition_hours_per_week, travel_days_per_month, intensity
		FROM sport_seasons WHERE id = $1`, id).Scan(
		&ss.ID, &ss.Sport, &seasonType, &from, &to, &ss.PracticeHoursPerWeek,
		&ss.CompetitionHoursPerWeek, &ss.TravelDaysPerMonth, &ss.Intensity,
	)
	if err != nil {
		return model.SportSeason{}, notFound(err, "get sport season")
	}
	ss.SeasonType = model.SeasonType(seasonType)
	ss.StartMonth = time.Month(from)
	ss.EndMonth = time.Month(to)
	return ss, nil
}

func (s *Store) GetAcademicCalendar(ctx context.Context, id string) (model.AcademicCalendar, error) {
	var c model.AcademicCalendar
	err := s.conn.QueryRow(ctx, `
		SELECT id, term_name, term_type, start_date, end_date
		FROM academic_calendars WHERE id = $1`, id).Scan(
		&c.ID, &c.TermName, &c.TermType, &c.StartDate, &c.EndDate,
	)
	if err != nil {
		return model.AcademicCalendar{}, notFound(err, "get academic calendar")
	}
	return c, nil
}

const scheduleColumns = `
	e.id, e.student_id, e.tenant_id, e.kind,
	COALESCE(e.sport_season_id, ''), COALESCE(e.academic_calendar_id, ''),
	e.blocks, e.travel, e.available_hours_per_week, e.effective_from, e.effective_to,
	e.active, e.created_at, e.updated_at`

func (s *Store) ListSchedules(ctx context.Context, studentID string) ([]model.ScheduleEntry, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+scheduleColumns+`
		FROM schedule_entries e
		WHERE e.student_id = $1
		ORDER BY e.created_at, e.id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		e, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	return s.joinReferences(ctx, entries)
}

// joinReferences loads each distinct season and calendar once.
func (s *Store) joinReferences(ctx context.Context, entries []model.ScheduleEntry) ([]model.ScheduleEntry, error) {
	seasons := make(map[string]*model.SportSeason)
	calendars := make(map[string]*model.AcademicCalendar)
	for i := range entries {
		if id := entries[i].SportSeasonID; id != "" {
			if _, ok := seasons[id]; !ok {
				ss, err := s.GetSportSeason(ctx, id)
				if err != nil {
					return nil, err
				}
				seasons[id] = &ss
			}
			entries[i].Season = seasons[id]
		}
		if id := entries[i].AcademicCalendarID; id != "" {
			if _, ok := calendars[id]; !ok {
				c, err := s.GetAcademicCalendar(ctx, id)
				if err != nil {
					return nil, err
				}
				calendars[id] = &c
			}
			entries[i].Calendar = calendars[id]
		}
	}
	return entries, nil
}

func (s *Store) CreateSchedule(ctx context.Context, entry model.ScheduleEntry) (model.ScheduleEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := s.clock.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	blocks, err := json.Marshal(toBlockRows(entry.Blocks))
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to marshal blocks: %w", err)
	}
	travel, err := json.Marshal(toTravelRows(entry.Travel))
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to marshal travel: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO schedule_entries (
			id, student_id, tenant_id, kind, sport_season_id, academic_calendar_id,
			blocks, travel, available_hours_per_week, effective_from, effective_to,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID, entry.StudentID, entry.TenantID, string(entry.Kind),
		nullString(entry.SportSeasonID), nullString(entry.AcademicCalendarID),
		blocks, travel, entry.AvailableHoursPerWeek,
		nullDate(entry.EffectiveFrom), nullDate(entry.EffectiveTo),
		entry.Active, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return model.ScheduleEntry{}, fmt.Errorf("create schedule: %w", repository.ErrNotFound)
		}
		return model.ScheduleEntry{}, fmt.Errorf("create schedule: %w", err)
	}

	joined, err := s.joinReferences(ctx, []model.ScheduleEntry{entry})
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	return joined[0], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Score cache
// ─────────────────────────────────────────────────────────────────────────────

const scoreColumns = `student_id, listing_id, tenant_id, score, breakdown, computed_at, is_stale`

func (s *Store) GetScore(ctx context.Context, key model.PairKey) (model.MatchScore, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+scoreColumns+`
		FROM match_scores WHERE student_id = $1 AND listing_id = $2`, key.StudentID, key.ListingID)
	sc, err := scanScore(row)
	if err != nil {
		return model.MatchScore{}, notFound(err, "get score")
	}
	return sc, nil
}

func (s *Store) UpsertScore(ctx context.Context, score model.MatchScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO match_scores (student_id, listing_id, tenant_id, score, breakdown, computed_at, is_stale)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, listing_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			score = EXCLUDED.score,
			breakdown = EXCLUDED.breakdown,
			computed_at = EXCLUDED.computed_at,
			is_stale = EXCLUDED.is_stale`,
		score.StudentID, score.ListingID, score.TenantID, score.Score, breakdown, score.ComputedAt, score.IsStale,
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *Store) DeleteScore(ctx context.Context, key model.PairKey) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM match_scores WHERE student_id = $1 AND listing_id = $2`,
		key.StudentID, key.ListingID); err != nil {
		return fmt.Errorf("delete score: %w", err)
	}
	return nil
}

func (s *Store) MarkStudentStale(ctx context.Context, studentID string) (int, error) {
	tag, err := s.conn.Exec(ctx, `UPDATE match_scores SET is_stale = TRUE WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("mark student stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MarkListingStale(ctx context.Context, listingID string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		UPDATE match_scores SET is_stale = TRUE
		WHERE listing_id = $1
		RETURNING student_id`, listingID)
	if err != nil {
		return nil, fmt.Errorf("mark listing stale: %w", err)
	}
	students, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("mark listing stale: %w", err)
	}
	return sortedUnique(students), nil
}

func (s *Store) StaleForStudent(ctx context.Context, studentID string, limit int) ([]model.MatchScore, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.conn.Query(ctx, `SELECT `+scoreColumns+`
		FROM match_scores
		WHERE student_id = $1 AND is_stale
		ORDER BY computed_at ASC, listing_id ASC
		LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("stale for student: %w", err)
	}
	defer rows.Close()

	var out []model.MatchScore
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("stale for student: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
