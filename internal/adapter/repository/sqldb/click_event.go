package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type clickEventDB struct {
	ID        int64     `db:"id"`
	Key       string    `db:"event_key"`
	MappingID int64     `db:"url_mapping_id"`
	ClickedAt timestamp `db:"clicked_at"`
}

func (e *clickEventDB) toEntity() entity.ClickEvent {
	return entity.ClickEvent{
		ID:        e.ID,
		Key:       e.Key,
		MappingID: e.MappingID,
		ClickedAt: e.ClickedAt.UTC(),
	}
}

func toClickEvents(rows []clickEventDB) []entity.ClickEvent {
	events := make([]entity.ClickEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toEntity())
	}

	return events
}

const clickEventColumns = `id, event_key, url_mapping_id, clicked_at`

// ClickEventRepository is the append-only log of served redirects.
type ClickEventRepository struct {
	db *sqlx.DB
}

func NewClickEventRepository(db *sqlx.DB) *ClickEventRepository {
	return &ClickEventRepository{db: db}
}

// Append records a click of the mapping at the given time under key. Appending
// an existing key stores nothing and returns the event stored first. It returns
// entity.ErrURLNotFound when the mapping does not exist.
func (r *ClickEventRepository) Append(ctx context.Context, key string, mappingID int64, at time.Time) (*entity.ClickEvent, error) {
	const op = "adapter.repository.sqldb.ClickEventRepository.Append"
	query := r.db.Rebind(`INSERT INTO click_events(event_key, url_mapping_id, clicked_at) VALUES (?, ?, ?)
		ON CONFLICT (event_key) DO NOTHING
		RETURNING ` + clickEventColumns)

	var e clickEventDB

	if err := r.db.GetContext(ctx, &e, query, key, mappingID, at.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.retrieveByKey(ctx, key)
		}

		if isForeignKeyViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to insert into click_events table: %w", op, err)
	}

	event := e.toEntity()

	return &event, nil
}

func (r *ClickEventRepository) retrieveByKey(ctx context.Context, key string) (*entity.ClickEvent, error) {
	const op = "adapter.repository.sqldb.ClickEventRepository.retrieveByKey"
	query := r.db.Rebind(`SELECT ` + clickEventColumns + ` FROM click_events WHERE event_key = ?`)

	var e clickEventDB

	if err := r.db.GetContext(ctx, &e, query, key); err != nil {
		return nil, fmt.Errorf("%s: failed to select row from click_events table: %w", op, err)
	}

	event := e.toEntity()

	return &event, nil
}

// RecordClick appends a click and discards the stored event.
func (r *ClickEventRepository) RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error {
	_, err := r.Append(ctx, key, mappingID, at)
	return err
}

// QueryByMapping returns the clicks of the mapping in [start, end] ordered by time.
func (r *ClickEventRepository) QueryByMapping(ctx context.Context, mappingID int64, start, end time.Time) ([]entity.ClickEvent, error) {
	const op = "adapter.repository.sqldb.ClickEventRepository.QueryByMapping"
	query := r.db.Rebind(`SELECT ` + clickEventColumns + ` FROM click_events
		WHERE url_mapping_id = ? AND clicked_at BETWEEN ? AND ?
		ORDER BY clicked_at, id`)

	var rows []clickEventDB

	if err := r.db.SelectContext(ctx, &rows, query, mappingID, start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("%s: failed to select rows from click_events table: %w", op, err)
	}

	return toClickEvents(rows), nil
}

// QueryByMappings returns the clicks of any of the mappings in [start, end]
// ordered by time.
func (r *ClickEventRepository) QueryByMappings(ctx context.Context, mappingIDs []int64, start, end time.Time) ([]entity.ClickEvent, error) {
	const op = "adapter.repository.sqldb.ClickEventRepository.QueryByMappings"

	if len(mappingIDs) == 0 {
		return []entity.ClickEvent{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+clickEventColumns+` FROM click_events
		WHERE url_mapping_id IN (?) AND clicked_at BETWEEN ? AND ?
		ORDER BY clicked_at, id`, mappingIDs, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rows []clickEventDB

	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select rows from click_events table: %w", op, err)
	}

	return toClickEvents(rows), nil
}
