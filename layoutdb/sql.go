package layoutdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/internal/logger"
)

// SQLStore keeps layouts as YAML text in one table. sqlite3 and postgres
// differ only in placeholder syntax.
type SQLStore struct {
	db     *sql.DB
	driver string
}

const createLayoutsTable = `CREATE TABLE IF NOT EXISTS layouts (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated BIGINT NOT NULL
)`

func OpenSQL(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("%w: driver %q", ErrUnknownDSN, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createLayoutsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: create table, %w", driver, err)
	}
	logger.WithField("driver", driver).Debug("opened sql layout db")
	return &SQLStore{db: db, driver: driver}, nil
}

// q rewrites ? placeholders for postgres.
func (ss *SQLStore) q(query string) string {
	if ss.driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
		} else {
			out = append(out, query[i])
		}
	}
	return string(out)
}

func (ss *SQLStore) Put(ctx context.Context, l *grid.Layout) error {
	if err := checkPut(l); err != nil {
		return err
	}
	body, err := l.Marshal()
	if err != nil {
		return err
	}
	_, err = ss.db.ExecContext(ctx,
		ss.q(`INSERT INTO layouts (name, body, updated) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated = excluded.updated`),
		l.Name, string(body), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%s: %w", l.Name, err)
	}
	return nil
}

func (ss *SQLStore) Get(ctx context.Context, name string) (*grid.Layout, error) {
	var body string
	err := ss.db.QueryRowContext(ctx, ss.q(`SELECT body FROM layouts WHERE name = ?`), name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	l, err := grid.ParseLayout([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	l.Name = name
	return l, nil
}

func (ss *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT name FROM layouts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (ss *SQLStore) Close() error {
	return ss.db.Close()
}
