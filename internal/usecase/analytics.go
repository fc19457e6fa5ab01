package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// ErrInvalidDateRange is returned when the end of an analytics window is before its start.
var ErrInvalidDateRange = errors.New("end of range is before its start")

type analyticsRepository interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error)
	ListByOwner(ctx context.Context, owner string) ([]entity.URLMapping, error)
}

type clickEventLog interface {
	QueryByMapping(ctx context.Context, mappingID int64, start, end time.Time) ([]entity.ClickEvent, error)
	QueryByMappings(ctx context.Context, mappingIDs []int64, start, end time.Time) ([]entity.ClickEvent, error)
}

// AnalyticsUseCase aggregates click events into per-day counts.
// Days are calendar days in the configured location.
type AnalyticsUseCase struct {
	repo   analyticsRepository
	clicks clickEventLog
	loc    *time.Location
}

// NewAnalyticsUseCase creates an AnalyticsUseCase grouping clicks by the
// calendar days of loc. A nil loc means UTC.
func NewAnalyticsUseCase(repo analyticsRepository, clicks clickEventLog, loc *time.Location) *AnalyticsUseCase {
	if loc == nil {
		loc = time.UTC
	}

	return &AnalyticsUseCase{
		repo:   repo,
		clicks: clicks,
		loc:    loc,
	}
}

// Location returns the location that defines calendar days.
func (uc *AnalyticsUseCase) Location() *time.Location {
	return uc.loc
}

// ClicksByDateForCode counts the clicks of the mapping owned by owner with the
// given short code in [start, end], per day. Days without clicks are omitted
// and the result is sorted by date. A code owned by somebody else is reported
// as entity.ErrURLNotFound.
func (uc *AnalyticsUseCase) ClicksByDateForCode(ctx context.Context, owner, shortCode string, start, end time.Time) ([]entity.DailyClicks, error) {
	const op = "usecase.AnalyticsUseCase.ClicksByDateForCode"

	if end.Before(start) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidDateRange)
	}

	m, err := uc.repo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to retrieve url: %w", op, err)
	}

	if m.Owner != owner {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	events, err := uc.clicks.QueryByMapping(ctx, m.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query click events: %w", op, err)
	}

	counts := uc.countByDate(events)

	daily := make([]entity.DailyClicks, 0, len(counts))
	for date, count := range counts {
		daily = append(daily, entity.DailyClicks{Date: date, Count: count})
	}

	sort.Slice(daily, func(i, j int) bool {
		return daily[i].Date.Before(daily[j].Date)
	})

	return daily, nil
}

// ClicksByDateForOwner counts the clicks of every mapping of owner per day
// between startDate and endDate, both inclusive. Days without clicks are
// omitted; an owner without mappings gets an empty map.
func (uc *AnalyticsUseCase) ClicksByDateForOwner(ctx context.Context, owner string, startDate, endDate entity.Date) (map[entity.Date]int64, error) {
	const op = "usecase.AnalyticsUseCase.ClicksByDateForOwner"

	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidDateRange)
	}

	mappings, err := uc.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	if len(mappings) == 0 {
		return map[entity.Date]int64{}, nil
	}

	ids := make([]int64, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)
	}

	start := startDate.StartOfDay(uc.loc)
	// The window ends right before the day after endDate starts.
	end := endDate.AddDays(1).StartOfDay(uc.loc).Add(-time.Nanosecond)

	events, err := uc.clicks.QueryByMappings(ctx, ids, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query click events: %w", op, err)
	}

	return uc.countByDate(events), nil
}

func (uc *AnalyticsUseCase) countByDate(events []entity.ClickEvent) map[entity.Date]int64 {
	counts := make(map[entity.Date]int64)
	for _, e := range events {
		counts[entity.DateOf(e.ClickedAt, uc.loc)]++
	}

	return counts
}
