package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-feasibility/internal/config"
	"github.com/sells-group/site-feasibility/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))
	return st
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Ping(ctx))
}

func TestSQLite_CacheEntry_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)

	want := testEntry("abc", testNow)
	require.NoError(t, st.PutCacheEntry(ctx, want))

	got, err := st.GetCacheEntry(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Key, got.Key)
	assert.Equal(t, want.Payload, got.Payload)
	assert.True(t, want.FetchedAt.Equal(got.FetchedAt))
}

func TestSQLite_CacheEntry_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCacheEntry(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_CacheEntry_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)

	require.NoError(t, st.PutCacheEntry(ctx, testEntry("abc", testNow)))
	later := testNow.Add(time.Hour)
	require.NoError(t, st.PutCacheEntry(ctx, model.CacheEntry{Key: "abc", FetchedAt: later}))

	got, err := st.GetCacheEntry(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Payload)
	assert.True(t, later.Equal(got.FetchedAt))
}

func TestSQLite_PurgeCacheEntries(t *testing.T) {
	st := newTestSQLiteStore(t)

	require.NoError(t, st.PutCacheEntry(ctx, testEntry("old-1", testNow.Add(-3*time.Hour))))
	require.NoError(t, st.PutCacheEntry(ctx, testEntry("old-2", testNow.Add(-2*time.Hour))))
	require.NoError(t, st.PutCacheEntry(ctx, testEntry("new", testNow)))

	n, err := st.PurgeCacheEntries(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := st.GetCacheEntry(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, got)

	gone, err := st.GetCacheEntry(ctx, "old-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLite_Analysis_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)

	want := testReport("r-1", model.BusinessCafe, "Vellore", testNow)
	require.NoError(t, st.SaveAnalysis(ctx, &want))

	got, err := st.GetAnalysis(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, want.Scores, got.Scores)
	assert.Equal(t, want.Request, got.Request)
	assert.Equal(t, want.Pros, got.Pros)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLite_Analysis_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Analysis_SaveIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	r := testReport("r-1", model.BusinessCafe, "Vellore", testNow)
	require.NoError(t, st.SaveAnalysis(ctx, &r))
	r.Summary = "updated"
	require.NoError(t, st.SaveAnalysis(ctx, &r))

	got, err := st.GetAnalysis(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Summary)

	all, err := st.ListAnalyses(ctx, model.AnalysisFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_SaveAnalyses_AndList(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.SaveAnalyses(ctx, []model.AnalysisReport{
		testReport("a", model.BusinessCafe, "Vellore", testNow.Add(-2*time.Minute)),
		testReport("b", model.BusinessGym, "vellore", testNow.Add(-time.Minute)),
		testReport("c", model.BusinessCafe, "Salem", testNow),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := st.ListAnalyses(ctx, model.AnalysisFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	cafes, err := st.ListAnalyses(ctx, model.AnalysisFilter{BusinessType: model.BusinessCafe})
	require.NoError(t, err)
	assert.Len(t, cafes, 2)

	vellore, err := st.ListAnalyses(ctx, model.AnalysisFilter{City: "VELLORE"})
	require.NoError(t, err)
	assert.Len(t, vellore, 2)

	page, err := st.ListAnalyses(ctx, model.AnalysisFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestSQLite_SaveAnalyses_RollsBackOnError(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SaveAnalyses(ctx, []model.AnalysisReport{
		testReport("a", model.BusinessCafe, "", testNow),
		testReport("", model.BusinessCafe, "", testNow),
	})
	require.Error(t, err)

	all, err := st.ListAnalyses(ctx, model.AnalysisFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNew_Drivers(t *testing.T) {
	s, err := New(ctx, config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())

	_, err = New(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestNewPostgres_BadConnString(t *testing.T) {
	_, err := NewPostgres(ctx, "://not a url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: parse config")
}
