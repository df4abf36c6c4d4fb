//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-feasibility/internal/analysis"
	"github.com/sells-group/site-feasibility/internal/fetcher"
	"github.com/sells-group/site-feasibility/internal/model"
)

const sitesCSV = `id,business_type,city,lat,lon,radius_m,budget_lakh,capacity,consider_competition
katpadi-1,cafe,Vellore,12.9692,79.1559,800,12,30,false
bad-lat,gym,Vellore,north,79.13,,20,0,false
,pharmacy,Chennai,13.0827,80.2707,,6,0,false
`

func writeSites(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestScoreSites_EndToEnd(t *testing.T) {
	sites, err := fetcher.ReadSites(context.Background(), writeSites(t, sitesCSV))
	require.NoError(t, err)
	require.Len(t, sites, 3)

	svc := analysis.New(analysis.Deps{})
	rows := scoreSites(context.Background(), svc, sites, 2)
	require.Len(t, rows, 3)

	assert.NoError(t, rows[0].Err)
	require.NotNil(t, rows[0].Report)
	assert.Equal(t, "katpadi-1", rows[0].Site.ID)

	assert.Error(t, rows[1].Err)
	assert.Nil(t, rows[1].Report)

	assert.NoError(t, rows[2].Err)
	assert.Equal(t, "4", rows[2].Site.ID)

	var buf bytes.Buffer
	require.NoError(t, writeBatchCSV(&buf, rows))

	out := readCSV(t, buf.Bytes())
	require.Len(t, out, 4)
	assert.Equal(t, batchHeader, out[0])

	first := out[1]
	assert.Equal(t, "2", first[0])
	assert.Equal(t, "katpadi-1", first[1])
	assert.Equal(t, "cafe", first[2])
	assert.Equal(t, "Vellore", first[3])
	assert.Equal(t, "12.969200", first[4])
	assert.Equal(t, "800", first[6])
	assert.Equal(t, "skipped", first[13])
	assert.Empty(t, first[16])
	assert.NotEmpty(t, first[10])

	bad := out[2]
	assert.Equal(t, "bad-lat", bad[1])
	assert.Empty(t, bad[7])
	assert.Contains(t, bad[16], "lat")
}

type stubBatch struct {
	got      []model.AnalysisRequest
	outcomes []analysis.Outcome
}

func (s *stubBatch) AnalyzeMany(_ context.Context, reqs []model.AnalysisRequest, _ int) []analysis.Outcome {
	s.got = reqs
	return s.outcomes
}

func TestScoreSites_OnlyValidSitesAnalyzed(t *testing.T) {
	sites := []fetcher.Site{
		{Row: 2, ID: "a", Request: model.AnalysisRequest{BusinessType: model.BusinessGym}},
		{Row: 3, ID: "b", Err: errors.New("fetcher: budget_lakh is required")},
		{Row: 4, ID: "c", Request: model.AnalysisRequest{BusinessType: model.BusinessRetail}},
	}
	stub := &stubBatch{outcomes: []analysis.Outcome{
		{Report: &model.AnalysisReport{ID: "r1"}},
		{Err: &model.ValidationError{Field: "radius_m", Reason: "must be between 50 and 5000"}},
	}}

	rows := scoreSites(context.Background(), stub, sites, 4)

	require.Len(t, stub.got, 2)
	assert.Equal(t, model.BusinessGym, stub.got[0].BusinessType)
	assert.Equal(t, model.BusinessRetail, stub.got[1].BusinessType)

	assert.Equal(t, "r1", rows[0].Report.ID)
	assert.EqualError(t, rows[1].Err, "fetcher: budget_lakh is required")
	assert.Contains(t, rows[2].Err.Error(), "radius_m")
}

func TestBatchRecord_Scored(t *testing.T) {
	row := batchRow{
		Site: fetcher.Site{Row: 7, ID: "x", Request: model.AnalysisRequest{
			BusinessType: model.BusinessCafe,
			Location:     model.Location{Lat: 12.5, Lon: 79.25},
			RadiusM:      1000,
		}},
		Report: &model.AnalysisReport{
			Request:         model.AnalysisRequest{City: "Katpadi"},
			Summary:         "ok",
			Scores:          model.Scores{Demand: 68, Risk: 70, Competition: 95},
			Feasibility:     model.FeasibilityResult{Score: 38, Feasible: false, Cutoff: 60},
			Recommendations: []model.BusinessRecommendation{{Name: "Cloud Kitchen", Probability: 55}},
			Debug:           model.AnalysisDebug{CompetitorStatus: model.CompetitorsCached, POICount: 5},
		},
	}

	assert.Equal(t, []string{
		"7", "x", "cafe", "Katpadi", "12.500000", "79.250000", "1000",
		"68", "70", "95", "38", "false", "Cloud Kitchen", "cached", "5", "ok", "",
	}, batchRecord(row))
}

func TestBatchRecord_WidthMatchesHeader(t *testing.T) {
	failed := batchRecord(batchRow{Err: errors.New("boom")})
	assert.Len(t, failed, len(batchHeader))
	assert.Equal(t, "boom", failed[len(failed)-1])

	scored := batchRecord(batchRow{Report: &model.AnalysisReport{}})
	assert.Len(t, scored, len(batchHeader))
}
