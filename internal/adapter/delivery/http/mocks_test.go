package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type mockURLUseCase struct {
	mock.Mock
}

func (m *mockURLUseCase) ShortenURL(ctx context.Context, originalURL, owner string) (*entity.URLMapping, error) {
	args := m.Called(ctx, originalURL, owner)
	mapping, _ := args.Get(0).(*entity.URLMapping)
	return mapping, args.Error(1)
}

func (m *mockURLUseCase) ListURLs(ctx context.Context, owner string) ([]entity.URLMapping, error) {
	args := m.Called(ctx, owner)
	mappings, _ := args.Get(0).([]entity.URLMapping)
	return mappings, args.Error(1)
}

type mockRedirectUseCase struct {
	mock.Mock
}

func (m *mockRedirectUseCase) Resolve(ctx context.Context, shortCode string) (string, error) {
	args := m.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

type mockAnalyticsUseCase struct {
	mock.Mock
	loc *time.Location
}

func (m *mockAnalyticsUseCase) Location() *time.Location {
	return m.loc
}

func (m *mockAnalyticsUseCase) ClicksByDateForCode(ctx context.Context, owner, shortCode string, start, end time.Time) ([]entity.DailyClicks, error) {
	args := m.Called(ctx, owner, shortCode, start, end)
	daily, _ := args.Get(0).([]entity.DailyClicks)
	return daily, args.Error(1)
}

func (m *mockAnalyticsUseCase) ClicksByDateForOwner(ctx context.Context, owner string, startDate, endDate entity.Date) (map[entity.Date]int64, error) {
	args := m.Called(ctx, owner, startDate, endDate)
	counts, _ := args.Get(0).(map[entity.Date]int64)
	return counts, args.Error(1)
}
