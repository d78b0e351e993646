package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const decisionSchema = `CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS decisions_ts ON decisions (ts);
CREATE TABLE IF NOT EXISTS decision_subjects (
	decision_id TEXT NOT NULL REFERENCES decisions (id),
	subject TEXT NOT NULL,
	PRIMARY KEY (subject, decision_id)
);`

// SQLiteStore keeps decision records in a SQLite database. Every driver,
// order and vehicle id of a record is indexed so subject queries stay in SQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(decisionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("decision log schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores rec and its subject index in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec DecisionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO decisions (id, ts, kind, record) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), string(rec.Kind), string(b)); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, ids := range [][]string{rec.DriverIDs, rec.OrderIDs, rec.VehicleIDs} {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO decision_subjects (decision_id, subject) VALUES (?, ?)`, rec.ID, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Query returns the records matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q LogQuery) ([]DecisionRecord, error) {
	var args []any
	query := `SELECT d.record FROM decisions d`
	if q.SubjectID != "" {
		query += ` JOIN decision_subjects s ON s.decision_id = d.id AND s.subject = ?`
		args = append(args, q.SubjectID)
	}
	query += ` WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND d.ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND d.ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Kind != "" {
		query += ` AND d.kind = ?`
		args = append(args, string(q.Kind))
	}
	if q.Limit > 0 {
		query = `SELECT record FROM (` + query + ` ORDER BY d.ts DESC LIMIT ?)`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []DecisionRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r DecisionRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record %q: %w", data, err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.finish(res), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
