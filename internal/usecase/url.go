// Package usecase implements the business operations of the service: creating
// short links, resolving them on redirect, and aggregating click analytics.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

const defaultMaxAttempts = 5

var (
	// ErrCodeSpaceExhausted is returned when every generated short code of a shorten attempt was already taken.
	ErrCodeSpaceExhausted = errors.New("no free short code found")
	// ErrEmptyURL is returned when the original url is empty.
	ErrEmptyURL = errors.New("original url is empty")
)

type codeGenerator interface {
	Generate() (string, error)
}

type urlMappingRepository interface {
	Save(ctx context.Context, shortCode, originalURL, owner string) (*entity.URLMapping, error)
	ListByOwner(ctx context.Context, owner string) ([]entity.URLMapping, error)
}

// URLUseCase creates short links and lists them for their owners.
type URLUseCase struct {
	generator   codeGenerator
	repo        urlMappingRepository
	maxAttempts int
}

// NewURLUseCase creates a URLUseCase that tries at most maxAttempts codes per
// shortened url. Non-positive maxAttempts fall back to 5.
func NewURLUseCase(generator codeGenerator, repo urlMappingRepository, maxAttempts int) *URLUseCase {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &URLUseCase{
		generator:   generator,
		repo:        repo,
		maxAttempts: maxAttempts,
	}
}

// ShortenURL stores originalURL under a newly generated short code owned by owner.
// A code that is already taken is replaced by a fresh one until maxAttempts
// codes were tried, after which ErrCodeSpaceExhausted is returned.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL, owner string) (*entity.URLMapping, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if originalURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyURL)
	}

	for i := 0; i < uc.maxAttempts; i++ {
		shortCode, err := uc.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		m, err := uc.repo.Save(ctx, shortCode, originalURL, owner)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				metrics.CodeCollisions.Inc()
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		metrics.URLsShortened.Inc()

		return m, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrCodeSpaceExhausted)
}

// ListURLs returns the mappings created by owner.
func (uc *URLUseCase) ListURLs(ctx context.Context, owner string) ([]entity.URLMapping, error) {
	const op = "usecase.URLUseCase.ListURLs"

	mappings, err := uc.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return mappings, nil
}
