// Package entity defines the entities and errors used in the application.
// It includes the URLMapping struct, which represents a shortened URL owned by a
// user, the ClickEvent struct recorded for every served redirect, and the
// civil Date type used to aggregate click analytics.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a mapping with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a mapping with the specified short code or id cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrNotApplied is returned when a write failed before it reached the storage,
	// so repeating it cannot apply it twice.
	ErrNotApplied = errors.New("write not applied")
)

// URLMapping represents a shortened URL.
type URLMapping struct {
	ID          int64     // ID is the unique identifier of the mapping in the database.
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	ClickCount  int64     // ClickCount is the number of redirects served for the short code.
	Owner       string    // Owner is the username of the identity that created the mapping.
	CreatedAt   time.Time // CreatedAt is the timestamp when the mapping was created.
}

// ClickEvent is a single served redirect of a mapping. Key is generated once
// per redirect and identifies the event across repeated writes.
type ClickEvent struct {
	ID        int64
	Key       string
	MappingID int64
	ClickedAt time.Time
}

// DailyClicks is the number of click events that happened on Date.
type DailyClicks struct {
	Date  Date
	Count int64
}
