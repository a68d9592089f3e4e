// Package forecastcache provides the SQLite-backed cache store used when
// forecasts must survive process restarts.
package forecastcache

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	core "github.com/crowdsense/crowdcast/core/forecastcache"
	"github.com/crowdsense/crowdcast/core/model"
)

// SQLiteStore persists cache entries in a SQLite database. The primary key on
// (zone_id, predicted_time) makes the insert-or-ignore contract a database
// constraint, so concurrent overlapping-window writers need no in-process
// locking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS forecast_cache (
        id TEXT NOT NULL,
        zone_id TEXT NOT NULL,
        predicted_time INTEGER NOT NULL,
        predicted_value INTEGER NOT NULL,
        confidence REAL NOT NULL,
        source TEXT NOT NULL,
        generated_at INTEGER NOT NULL,
        expires_at INTEGER NOT NULL,
        PRIMARY KEY(zone_id, predicted_time)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// FindMany returns non-expired entries in [from, to) ordered by time.
func (s *SQLiteStore) FindMany(ctx context.Context, zoneID string, from, to, asOf time.Time) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, zone_id, predicted_time, predicted_value, confidence, source, generated_at, expires_at
        FROM forecast_cache
        WHERE zone_id = ? AND predicted_time >= ? AND predicted_time < ? AND expires_at > ?
        ORDER BY predicted_time`,
		zoneID, from.UnixNano(), to.UnixNano(), asOf.UnixNano())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []core.Entry
	for rows.Next() {
		var e core.Entry
		var predicted, generated, expires int64
		var source string
		if err := rows.Scan(&e.ID, &e.ZoneID, &predicted, &e.PredictedValue, &e.Confidence, &source, &generated, &expires); err != nil {
			return nil, err
		}
		e.PredictedTime = time.Unix(0, predicted)
		e.GeneratedAt = time.Unix(0, generated)
		e.ExpiresAt = time.Unix(0, expires)
		e.Source = model.DataSource(source)
		res = append(res, e)
	}
	return res, rows.Err()
}

// CreateMany inserts entries, leaving existing (zone, time) rows untouched.
func (s *SQLiteStore) CreateMany(ctx context.Context, entries []core.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `INSERT INTO forecast_cache
            (id, zone_id, predicted_time, predicted_value, confidence, source, generated_at, expires_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(zone_id, predicted_time) DO NOTHING`,
			e.ID, e.ZoneID, e.PredictedTime.UnixNano(), e.PredictedValue, e.Confidence,
			string(e.Source), e.GeneratedAt.UnixNano(), e.ExpiresAt.UnixNano())
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// DeleteExpired removes entries past their expiry.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forecast_cache WHERE expires_at <= ?`, asOf.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteZone removes all entries for the zone.
func (s *SQLiteStore) DeleteZone(ctx context.Context, zoneID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forecast_cache WHERE zone_id = ?`, zoneID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ core.Store = (*SQLiteStore)(nil)
