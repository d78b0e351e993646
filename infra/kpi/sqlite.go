package kpi

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists demand records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS order_demand (
        zone TEXT NOT NULL,
        day INTEGER NOT NULL,
        orders INTEGER NOT NULL,
        PRIMARY KEY(zone, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Set inserts or replaces the records in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, recs ...DemandRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO order_demand (zone, day, orders)
        VALUES (?, ?, ?)
        ON CONFLICT(zone, day) DO UPDATE SET orders = excluded.orders`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Zone, Day(r.Day).Unix(), r.Orders); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query returns records of zone in the range [start,end].
func (s *SQLiteStore) Query(ctx context.Context, zone string, start, end time.Time) ([]DemandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, orders
        FROM order_demand WHERE zone = ? AND day >= ? AND day <= ? ORDER BY day`,
		zone, Day(start).Unix(), Day(end).Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []DemandRecord
	for rows.Next() {
		var ts int64
		var n int
		if err := rows.Scan(&ts, &n); err != nil {
			return nil, err
		}
		res = append(res, DemandRecord{Zone: zone, Day: time.Unix(ts, 0).UTC(), Orders: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
