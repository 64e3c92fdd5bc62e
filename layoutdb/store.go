// Package layoutdb keeps named sheet layouts so scans can be scored against
// a layout by name instead of a file path.
package layoutdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brianolson/omrsheet/grid"
)

var (
	// ErrNotFound indicates no layout is stored under the name
	ErrNotFound = errors.New("layout not found")

	// ErrUnknownDSN indicates a DSN no store understands
	ErrUnknownDSN = errors.New("unknown layout db")
)

// Store is a table of layouts keyed by Layout.Name.
type Store interface {
	// Put inserts or replaces the layout under its Name.
	Put(ctx context.Context, l *grid.Layout) error

	// Get returns the named layout or ErrNotFound.
	Get(ctx context.Context, name string) (*grid.Layout, error)

	// List returns stored names in ascending order.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// Open picks a store by DSN:
//
//	postgres://...        postgres
//	sqlite3:path          sqlite3
//	anything else         bbolt file path
func Open(dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, ErrUnknownDSN
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenSQL("postgres", dsn)
	case strings.HasPrefix(dsn, "sqlite3:"):
		return OpenSQL("sqlite3", strings.TrimPrefix(dsn, "sqlite3:"))
	default:
		return OpenBolt(dsn)
	}
}

// Resolve looks name up in the store first, then falls back to the
// presets and layout files grid.Resolve knows.
func Resolve(ctx context.Context, st Store, name string) (*grid.Layout, error) {
	if st != nil {
		l, err := st.Get(ctx, name)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return grid.Resolve(name)
}

func checkPut(l *grid.Layout) error {
	if l == nil {
		return &grid.LayoutError{Field: "layout", Reason: "is nil"}
	}
	if l.Name == "" {
		return &grid.LayoutError{Field: "name", Reason: "is empty"}
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%s: %w", l.Name, err)
	}
	return nil
}
