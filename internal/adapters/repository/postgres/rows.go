package postgres

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
)

// blockRow is the JSONB shape of a time block.
type blockRow struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// travelRow is the JSONB shape of a travel conflict.
type travelRow struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

func toBlockRows(blocks []model.TimeBlock) []blockRow {
	out := make([]blockRow, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockRow{Day: int(b.Day), Start: b.Start, End: b.End, Label: b.Label})
	}
	return out
}

func fromBlockRows(rows []blockRow) []model.TimeBlock {
	out := make([]model.TimeBlock, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.TimeBlock{Day: time.Weekday(r.Day), Start: r.Start, End: r.End, Label: r.Label})
	}
	return out
}

func toTravelRows(travel []model.TravelConflict) []travelRow {
	out := make([]travelRow, 0, len(travel))
	for _, t := range travel {
		out = append(out, travelRow{Start: types.FormatDate(t.Start), End: types.FormatDate(t.End), Reason: t.Reason})
	}
	return out
}

func fromTravelRows(rows []travelRow) ([]model.TravelConflict, error) {
	out := make([]model.TravelConflict, 0, len(rows))
	for _, r := range rows {
		start, err := types.ParseDate(r.Start)
		if err != nil {
			return nil, err
		}
		end, err := types.ParseDate(r.End)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TravelConflict{Start: start, End: end, Reason: r.Reason})
	}
	return out, nil
}

func scanSchedule(row pgx.Row) (model.ScheduleEntry, error) {
	var (
		e            model.ScheduleEntry
		kind         string
		blocksJSON   []byte
		travelJSON   []byte
		from, to     *time.Time
		blockRows    []blockRow
		travelValues []travelRow
	)
	err := row.Scan(
		&e.ID, &e.StudentID, &e.TenantID, &kind, &e.SportSeasonID, &e.AcademicCalendarID,
		&blocksJSON, &travelJSON, &e.AvailableHoursPerWeek, &from, &to,
		&e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to scan schedule: %w", err)
	}
	if err := json.Unmarshal(blocksJSON, &blockRows); err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}
	if err := json.Unmarshal(travelJSON, &travelValues); err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to unmarshal travel: %w", err)
	}
	travel, err := fromTravelRows(travelValues)
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("failed to parse travel: %w", err)
	}

	e.Kind = model.ScheduleKind(kind)
	e.Blocks = fromBlockRows(blockRows)
	e.Travel = travel
	e.EffectiveFrom = deref(from)
	e.EffectiveTo = deref(to)
	return e, nil
}

func scanScore(row pgx.Row) (model.MatchScore, error) {
	var (
		sc        model.MatchScore
		breakdown []byte
	)
	if err := row.Scan(&sc.StudentID, &sc.ListingID, &sc.TenantID, &sc.Score, &breakdown, &sc.ComputedAt, &sc.IsStale); err != nil {
		return model.MatchScore{}, err
	}
	if err := json.Unmarshal(breakdown, &sc.Breakdown); err != nil {
		return model.MatchScore{}, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	sc.ComputedAt = sc.ComputedAt.UTC()
	return sc, nil
}

// notFound maps pgx.ErrNoRows to repository.ErrNotFound.
func notFound(err error, op string) error {
	if IsNoRows(err) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return types.StartOfDay(t)
}

func sortedUnique(in []string) []string {
	slices.Sort(in)
	return slices.Compact(in)
}
