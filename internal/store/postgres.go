package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-feasibility/internal/db"
	"github.com/sells-group/site-feasibility/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_cache_entry": `SELECT key, payload, fetched_at FROM poi_cache WHERE key = $1`,
	"put_cache_entry": `INSERT INTO poi_cache (key, payload, fetched_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
	"save_analysis": `INSERT INTO analyses (id, business_type, city, report, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET report = EXCLUDED.report`,
	"get_analysis": `SELECT report FROM analyses WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = min(minConns, maxConns)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS poi_cache (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_poi_cache_fetched_at ON poi_cache(fetched_at);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	business_type TEXT NOT NULL,
	city          TEXT NOT NULL DEFAULT '',
	report        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_business_type ON analyses(business_type);
CREATE INDEX IF NOT EXISTS idx_analyses_city ON analyses(lower(city));
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetCacheEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT key, payload, fetched_at FROM poi_cache WHERE key = $1`,
		key,
	).Scan(&e.Key, &payload, &e.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cache entry %s", key)
	}
	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cache payload")
	}
	return &e, nil
}

func (s *PostgresStore) PutCacheEntry(ctx context.Context, entry model.CacheEntry) error {
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cache payload")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO poi_cache (key, payload, fetched_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
		entry.Key, payload, entry.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: put cache entry %s", entry.Key)
}

func (s *PostgresStore) PurgeCacheEntries(ctx context.Context, fetchedBefore time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM poi_cache WHERE fetched_at < $1`, fetchedBefore.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge cache entries")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, report *model.AnalysisReport) error {
	if report == nil || report.ID == "" {
		return eris.New("postgres: save analysis: report id is required")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, business_type, city, report, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET report = EXCLUDED.report`,
		report.ID, string(report.Request.BusinessType), report.Request.City, reportJSON, report.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save analysis %s", report.ID)
}

var analysisColumns = []string{"id", "business_type", "city", "report", "created_at"}

// SaveAnalyses bulk-inserts reports with COPY. Ids must be new.
func (s *PostgresStore) SaveAnalyses(ctx context.Context, reports []model.AnalysisReport) (int64, error) {
	rows := make([][]any, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		reportJSON, err := json.Marshal(r)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal report %s", r.ID)
		}
		rows = append(rows, []any{r.ID, string(r.Request.BusinessType), r.Request.City, reportJSON, r.CreatedAt.UTC()})
	}
	n, err := db.CopyFrom(ctx, s.pool, "analyses", analysisColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save analyses")
	}
	return n, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisReport, error) {
	var reportJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM analyses WHERE id = $1`, id).Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	var r model.AnalysisReport
	if err := json.Unmarshal(reportJSON, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &r, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter model.AnalysisFilter) ([]model.AnalysisReport, error) {
	query := `SELECT report FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.BusinessType != "" {
		query += fmt.Sprintf(` AND business_type = $%d`, argIdx)
		args = append(args, string(filter.BusinessType))
		argIdx++
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query += fmt.Sprintf(` AND lower(city) = lower($%d)`, argIdx)
		args = append(args, city)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	reports := []model.AnalysisReport{}
	for rows.Next() {
		var reportJSON []byte
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var r model.AnalysisReport
		if err := json.Unmarshal(reportJSON, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

// marshalPayload encodes a competitor list, writing an empty list as [].
func marshalPayload(records []model.CompetitorRecord) ([]byte, error) {
	if records == nil {
		records = []model.CompetitorRecord{}
	}
	return json.Marshal(records)
}
