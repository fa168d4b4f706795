package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zsprackett/ai-battery/internal/usage"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS usage_snapshots (
			id              INTEGER PRIMARY KEY,
			ts_ms           INTEGER NOT NULL,
			cycle_id        TEXT NOT NULL DEFAULT '',
			source          TEXT NOT NULL DEFAULT '',
			session_used    INTEGER NOT NULL DEFAULT 0,
			session_reset   TEXT NOT NULL DEFAULT '',
			weekly_used     INTEGER NOT NULL DEFAULT 0,
			weekly_reset    TEXT NOT NULL DEFAULT '',
			sonnet_used     INTEGER NOT NULL DEFAULT 0,
			sonnet_reset    TEXT NOT NULL DEFAULT '',
			last_updated_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create usage_snapshots: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_ts ON usage_snapshots(ts_ms DESC)`); err != nil {
		return fmt.Errorf("index usage_snapshots: %w", err)
	}
	return nil
}

const usageColumns = `id, ts_ms, cycle_id, source, session_used, session_reset,
	weekly_used, weekly_reset, sonnet_used, sonnet_reset, last_updated_ms`

func (d *DB) InsertUsageSnapshot(s UsageSnapshot) (int64, error) {
	res, err := d.sql.Exec(
		`INSERT INTO usage_snapshots (ts_ms, cycle_id, source, session_used, session_reset,
			weekly_used, weekly_reset, sonnet_used, sonnet_reset, last_updated_ms)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.TsMs, s.CycleID, s.Source, s.SessionUsed, s.SessionReset,
		s.WeeklyUsed, s.WeeklyReset, s.SonnetUsed, s.SonnetReset, s.LastUpdatedMs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert usage snapshot: %w", err)
	}
	return res.LastInsertId()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsage(row rowScanner) (UsageSnapshot, error) {
	var s UsageSnapshot
	err := row.Scan(&s.ID, &s.TsMs, &s.CycleID, &s.Source, &s.SessionUsed, &s.SessionReset,
		&s.WeeklyUsed, &s.WeeklyReset, &s.SonnetUsed, &s.SonnetReset, &s.LastUpdatedMs)
	return s, err
}

// GetLatestUsageSnapshot returns nil, nil when nothing has been recorded.
func (d *DB) GetLatestUsageSnapshot() (*UsageSnapshot, error) {
	row := d.sql.QueryRow(`SELECT ` + usageColumns + ` FROM usage_snapshots ORDER BY ts_ms DESC, id DESC LIMIT 1`)
	s, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetUsageSnapshots returns up to limit rows, newest first.
func (d *DB) GetUsageSnapshots(limit int) ([]UsageSnapshot, error) {
	rows, err := d.sql.Query(
		`SELECT `+usageColumns+` FROM usage_snapshots ORDER BY ts_ms DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageSnapshot
	for rows.Next() {
		s, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneUsageSnapshots deletes rows recorded before cutoff and reports how
// many went.
func (d *DB) PruneUsageSnapshots(cutoff time.Time) (int64, error) {
	res, err := d.sql.Exec(`DELETE FROM usage_snapshots WHERE ts_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune usage snapshots: %w", err)
	}
	return res.RowsAffected()
}

// RecordUsage appends one history row for snap and drops rows older than
// keepDays. A keepDays of zero keeps everything.
func (d *DB) RecordUsage(snap usage.Snapshot, at time.Time, cycleID, source string, keepDays int) error {
	if _, err := d.InsertUsageSnapshot(FromUsage(snap, at, cycleID, source)); err != nil {
		return err
	}
	if keepDays > 0 {
		if _, err := d.PruneUsageSnapshots(at.AddDate(0, 0, -keepDays)); err != nil {
			return err
		}
	}
	return d.Touch()
}

func (d *DB) SetMeta(key, value string) error {
	_, err := d.sql.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?,?)", key, value)
	return err
}

func (d *DB) GetMeta(key string) (string, error) {
	var value string
	err := d.sql.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (d *DB) Touch() error {
	return d.SetMeta("last_modified", fmt.Sprintf("%d", time.Now().UnixMilli()))
}

func (d *DB) LastModified() int64 {
	v, _ := d.GetMeta("last_modified")
	if v == "" {
		return 0
	}
	var ts int64
	fmt.Sscanf(v, "%d", &ts)
	return ts
}
