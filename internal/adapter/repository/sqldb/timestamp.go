package sqldb

import (
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// timestamp scans time columns. SQLite reports no declared type for RETURNING
// columns, so the driver hands those back as text instead of time.Time.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("sqldb: cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("sqldb: cannot parse %q as timestamp", s)
}
