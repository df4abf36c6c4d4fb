package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/site-feasibility/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS poi_cache (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poi_cache_fetched_at ON poi_cache(fetched_at);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	business_type TEXT NOT NULL,
	city          TEXT NOT NULL DEFAULT '',
	report        TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_business_type ON analyses(business_type);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, payload, fetched_at FROM poi_cache WHERE key = ?`,
		key,
	).Scan(&e.Key, &payload, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cache entry %s", key)
	}
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cache payload")
	}
	return &e, nil
}

func (s *SQLiteStore) PutCacheEntry(ctx context.Context, entry model.CacheEntry) error {
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cache payload")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poi_cache (key, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		entry.Key, string(payload), entry.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: put cache entry %s", entry.Key)
}

func (s *SQLiteStore) PurgeCacheEntries(ctx context.Context, fetchedBefore time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM poi_cache WHERE fetched_at < ?`, fetchedBefore.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge cache entries")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

const sqliteSaveAnalysis = `INSERT INTO analyses (id, business_type, city, report, created_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET report = excluded.report`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveAnalysis(ctx context.Context, ex execer, report *model.AnalysisReport) error {
	if report == nil || report.ID == "" {
		return eris.New("sqlite: save analysis: report id is required")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = ex.ExecContext(ctx, sqliteSaveAnalysis,
		report.ID, string(report.Request.BusinessType), report.Request.City, string(reportJSON), report.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save analysis %s", report.ID)
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, report *model.AnalysisReport) error {
	return saveAnalysis(ctx, s.db, report)
}

// SaveAnalyses writes all reports in one transaction.
func (s *SQLiteStore) SaveAnalyses(ctx context.Context, reports []model.AnalysisReport) (int64, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range reports {
		if err := saveAnalysis(ctx, tx, &reports[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return int64(len(reports)), nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisReport, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM analyses WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	var r model.AnalysisReport
	if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &r, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter model.AnalysisFilter) ([]model.AnalysisReport, error) {
	query := `SELECT report FROM analyses WHERE 1=1`
	var args []any

	if filter.BusinessType != "" {
		query += ` AND business_type = ?`
		args = append(args, string(filter.BusinessType))
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query += ` AND lower(city) = lower(?)`
		args = append(args, city)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	reports := []model.AnalysisReport{}
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var r model.AnalysisReport
		if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}
