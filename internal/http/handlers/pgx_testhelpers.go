package handlers

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SimpleRow lets test doubles answer QueryRow with a canned scan function.
// A nil scanner behaves like an empty result set.
type SimpleRow struct {
	scan func(dest ...any) error
}

func NewSimpleRow(scanner func(dest ...any) error) SimpleRow {
	return SimpleRow{scan: scanner}
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// StaticRows is an in-memory pgx.Rows over fixed tuples, for handlers that
// iterate multi-row results.
type StaticRows struct {
	Tuples [][]any
	Scan1  func(dest []any, tuple []any) error

	idx    int
	closed bool
	err    error
}

func NewStaticRows(tuples [][]any) *StaticRows {
	return &StaticRows{Tuples: tuples, idx: -1}
}

func (r *StaticRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.Tuples)
}

func (r *StaticRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.Tuples) {
		return fmt.Errorf("scan called without next")
	}
	tuple := r.Tuples[r.idx]
	if r.Scan1 != nil {
		return r.Scan1(dest, tuple)
	}
	if len(dest) != len(tuple) {
		return fmt.Errorf("scan expects %d destinations, got %d", len(tuple), len(dest))
	}
	for i, v := range tuple {
		if err := assignValue(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (r *StaticRows) Close()     { r.closed = true }
func (r *StaticRows) Err() error { return r.err }

func (r *StaticRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *StaticRows) Conn() *pgx.Conn               { return nil }

func (r *StaticRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *StaticRows) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.Tuples) {
		return nil, fmt.Errorf("values called without next")
	}
	return r.Tuples[r.idx], nil
}

func (r *StaticRows) RawValues() [][]byte { return nil }

func assignValue(dest, val any) error {
	switch d := dest.(type) {
	case *string:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into *string", val)
		}
		*d = s
	case *int:
		n, ok := val.(int)
		if !ok {
			return fmt.Errorf("cannot scan %T into *int", val)
		}
		*d = n
	case *int64:
		switch v := val.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		default:
			return fmt.Errorf("cannot scan %T into *int64", val)
		}
	case *bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("cannot scan %T into *bool", val)
		}
		*d = b
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}

var _ pgx.Rows = (*StaticRows)(nil)
