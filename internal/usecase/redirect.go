package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

type codeValidator interface {
	Valid(code string) bool
}

type redirectRepository interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error)
	IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error)
}

type clickRecorder interface {
	RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error
}

// RedirectUseCase resolves short codes and records a click for every
// resolved code.
type RedirectUseCase struct {
	validator codeValidator
	repo      redirectRepository
	clicks    clickRecorder
	now       func() time.Time
	newKey    func() string
}

func NewRedirectUseCase(validator codeValidator, repo redirectRepository, clicks clickRecorder) *RedirectUseCase {
	return &RedirectUseCase{
		validator: validator,
		repo:      repo,
		clicks:    clicks,
		now:       time.Now,
		newKey:    uuid.NewString,
	}
}

// Resolve returns the original url of shortCode.
//
// The click counter of the mapping is incremented first and the click event is
// recorded afterwards. The two writes are independent: when recording the event
// fails the counter stays ahead of the click log and the error is returned.
// The increment is repeated only when it never reached the storage. The event
// carries a key generated once per call, so repeating it stores one event.
// Unknown codes return entity.ErrURLNotFound and write nothing.
func (uc *RedirectUseCase) Resolve(ctx context.Context, shortCode string) (string, error) {
	const op = "usecase.RedirectUseCase.Resolve"

	originalURL, err := uc.resolve(ctx, shortCode)
	switch {
	case err == nil:
		metrics.Redirects.WithLabelValues(metrics.ResultFound).Inc()
		return originalURL, nil
	case errors.Is(err, entity.ErrURLNotFound):
		metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
	default:
		metrics.Redirects.WithLabelValues(metrics.ResultError).Inc()
	}

	return "", fmt.Errorf("%s: %w", op, err)
}

func (uc *RedirectUseCase) resolve(ctx context.Context, shortCode string) (string, error) {
	if !uc.validator.Valid(shortCode) {
		return "", entity.ErrURLNotFound
	}

	m, err := uc.repo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve url: %w", err)
	}

	if err := retryOnce(ctx, func() error {
		_, err := uc.repo.IncrementClicks(ctx, shortCode)
		return err
	}, notApplied); err != nil {
		return "", fmt.Errorf("failed to increment clicks: %w", err)
	}

	key, clickedAt := uc.newKey(), uc.now()

	if err := retryOnce(ctx, func() error {
		return uc.clicks.RecordClick(ctx, key, m.ID, clickedAt)
	}, anyError); err != nil {
		metrics.ClickRecordFailures.Inc()
		return "", fmt.Errorf("failed to record click: %w", err)
	}

	return m.OriginalURL, nil
}
