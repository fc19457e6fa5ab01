package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type mockCodeGenerator struct {
	mock.Mock
}

func (m *mockCodeGenerator) Generate() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type mockURLMappingRepository struct {
	mock.Mock
}

func (m *mockURLMappingRepository) Save(ctx context.Context, shortCode, originalURL, owner string) (*entity.URLMapping, error) {
	args := m.Called(ctx, shortCode, originalURL, owner)
	mapping, _ := args.Get(0).(*entity.URLMapping)
	return mapping, args.Error(1)
}

func (m *mockURLMappingRepository) ListByOwner(ctx context.Context, owner string) ([]entity.URLMapping, error) {
	args := m.Called(ctx, owner)
	mappings, _ := args.Get(0).([]entity.URLMapping)
	return mappings, args.Error(1)
}

func (m *mockURLMappingRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	args := m.Called(ctx, shortCode)
	mapping, _ := args.Get(0).(*entity.URLMapping)
	return mapping, args.Error(1)
}

func (m *mockURLMappingRepository) IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	args := m.Called(ctx, shortCode)
	mapping, _ := args.Get(0).(*entity.URLMapping)
	return mapping, args.Error(1)
}

type mockClickRecorder struct {
	mock.Mock
}

func (m *mockClickRecorder) RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error {
	args := m.Called(ctx, key, mappingID, at)
	return args.Error(0)
}

type mockClickEventLog struct {
	mock.Mock
}

func (m *mockClickEventLog) QueryByMapping(ctx context.Context, mappingID int64, start, end time.Time) ([]entity.ClickEvent, error) {
	args := m.Called(ctx, mappingID, start, end)
	events, _ := args.Get(0).([]entity.ClickEvent)
	return events, args.Error(1)
}

func (m *mockClickEventLog) QueryByMappings(ctx context.Context, mappingIDs []int64, start, end time.Time) ([]entity.ClickEvent, error) {
	args := m.Called(ctx, mappingIDs, start, end)
	events, _ := args.Get(0).([]entity.ClickEvent)
	return events, args.Error(1)
}
