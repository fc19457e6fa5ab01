package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type urlMappingDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	Owner       string    `db:"owner"`
	CreatedAt   timestamp `db:"created_at"`
}

func (m *urlMappingDB) toEntity() *entity.URLMapping {
	return &entity.URLMapping{
		ID:          m.ID,
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		ClickCount:  m.ClickCount,
		Owner:       m.Owner,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

const urlMappingColumns = `id, short_code, original_url, click_count, owner, created_at`

// URLMappingRepository stores url mappings keyed by their short code.
type URLMappingRepository struct {
	db *sqlx.DB
}

func NewURLMappingRepository(db *sqlx.DB) *URLMappingRepository {
	return &URLMappingRepository{db: db}
}

// Save inserts a new mapping. It returns entity.ErrShortCodeExists when the
// short code is already taken.
func (r *URLMappingRepository) Save(ctx context.Context, shortCode, originalURL, owner string) (*entity.URLMapping, error) {
	const op = "adapter.repository.sqldb.URLMappingRepository.Save"
	query := r.db.Rebind(`INSERT INTO url_mappings(short_code, original_url, owner) VALUES (?, ?, ?) RETURNING ` + urlMappingColumns)

	var m urlMappingDB

	if err := r.db.GetContext(ctx, &m, query, shortCode, originalURL, owner); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into url_mappings table: %w", op, err)
	}

	return m.toEntity(), nil
}

func (r *URLMappingRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	const op = "adapter.repository.sqldb.URLMappingRepository.RetrieveByShortCode"
	query := r.db.Rebind(`SELECT ` + urlMappingColumns + ` FROM url_mappings WHERE short_code = ?`)

	var m urlMappingDB

	if err := r.db.GetContext(ctx, &m, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_mappings table: %w", op, err)
	}

	return m.toEntity(), nil
}

// ListByOwner returns the mappings created by owner ordered by id.
func (r *URLMappingRepository) ListByOwner(ctx context.Context, owner string) ([]entity.URLMapping, error) {
	const op = "adapter.repository.sqldb.URLMappingRepository.ListByOwner"
	query := r.db.Rebind(`SELECT ` + urlMappingColumns + ` FROM url_mappings WHERE owner = ? ORDER BY id`)

	var rows []urlMappingDB

	if err := r.db.SelectContext(ctx, &rows, query, owner); err != nil {
		return nil, fmt.Errorf("%s: failed to select rows from url_mappings table: %w", op, err)
	}

	mappings := make([]entity.URLMapping, 0, len(rows))
	for i := range rows {
		mappings = append(mappings, *rows[i].toEntity())
	}

	return mappings, nil
}

// IncrementClicks atomically increases the click count of the mapping by one
// and returns the updated mapping. Errors raised before the statement reached
// the database wrap entity.ErrNotApplied.
func (r *URLMappingRepository) IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	const op = "adapter.repository.sqldb.URLMappingRepository.IncrementClicks"
	query := r.db.Rebind(`UPDATE url_mappings SET click_count = click_count + 1 WHERE short_code = ? RETURNING ` + urlMappingColumns)

	var m urlMappingDB

	if err := r.db.GetContext(ctx, &m, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		if isNotAppliedError(err) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrNotApplied, err)
		}

		return nil, fmt.Errorf("%s: failed to update url_mappings table row: %w", op, err)
	}

	return m.toEntity(), nil
}
