package database

import "time"

// TimeLayout is the column format for every timestamp.  Values are always
// written in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Name string
	// ForUpdate is appended to row-locking selects.  SQLite has no row
	// locks; its single connection already serializes transactions.
	ForUpdate string
}

var (
	MySQL  = Dialect{Name: "mysql", ForUpdate: " FOR UPDATE"}
	SQLite = Dialect{Name: "sqlite"}
)

// FormatTime renders t for a timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
