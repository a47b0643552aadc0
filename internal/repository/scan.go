package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// dbTime scans a timestamp column.  MySQL (parseTime=true) yields
// time.Time while SQLite yields the stored text.
type dbTime struct{ t *time.Time }

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
		return nil
	case time.Time:
		*d.t = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (d dbTime) parse(s string) error {
	for _, layout := range []string{database.TimeLayout, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid time value %q", s)
}

// dbNullTime scans a nullable timestamp column.
type dbNullTime struct{ t **time.Time }

func (d dbNullTime) Scan(src any) error {
	if src == nil {
		*d.t = nil
		return nil
	}
	var t time.Time
	if err := (dbTime{&t}).Scan(src); err != nil {
		return err
	}
	*d.t = &t
	return nil
}

// availabilityColumn scans the JSON encoded availability column.
type availabilityColumn struct{ a *model.Availability }

func (c availabilityColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c.a = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported availability value %T", src)
	}
	if len(raw) == 0 {
		*c.a = nil
		return nil
	}
	var a model.Availability
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("decode availability: %w", err)
	}
	*c.a = a
	return nil
}

func encodeAvailability(a model.Availability) (string, error) {
	if a == nil {
		a = model.Availability{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullUint32(p *uint32) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
