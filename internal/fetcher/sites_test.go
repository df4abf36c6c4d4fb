package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-feasibility/internal/model"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		src     string
		want    Format
		wantErr bool
	}{
		{"sites.csv", FormatCSV, false},
		{"SITES.XLSX", FormatXLSX, false},
		{"export.txt", FormatCSV, false},
		{"https://example.com/a/sites.xlsx?sig=abc", FormatXLSX, false},
		{"sites.json", "", true},
		{"sites", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := DetectFormat(tt.src)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSites(t *testing.T) {
	rows := [][]string{
		{"Site ID", "Project Type", "Latitude", "Longitude", "Budget", "Radius", "Capacity", "City", "Open Hours", "Consider Competition"},
		{"v-1", "Cafe", "12.9165", "79.1325", "15", "1000", "30", "Vellore", "08:00-22:00", ""},
		{"", "hostel mess", "13.0", "80.2", "20", "", "", "", "", "no"},
		{"bad", "gym", "north", "80.2", "x", "500", "", "", "", ""},
	}

	sites, err := ParseSites(rows)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	first := sites[0]
	require.NoError(t, first.Err)
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "v-1", first.ID)
	assert.Equal(t, model.AnalysisRequest{
		BusinessType:         model.BusinessCafe,
		City:                 "Vellore",
		Location:             model.Location{Lat: 12.9165, Lon: 79.1325},
		RadiusM:              1000,
		BudgetLakh:           15,
		Capacity:             30,
		OpenHours:            "08:00-22:00",
		UsePopulationDensity: true,
		ConsiderCompetition:  true,
	}, first.Request)

	second := sites[1]
	require.NoError(t, second.Err)
	assert.Equal(t, "3", second.ID)
	assert.Equal(t, model.BusinessHostelMess, second.Request.BusinessType)
	assert.Equal(t, DefaultRadiusM, second.Request.RadiusM)
	assert.False(t, second.Request.ConsiderCompetition)

	third := sites[2]
	require.Error(t, third.Err)
	assert.Contains(t, third.Err.Error(), `lat "north" is not a number`)
	assert.Contains(t, third.Err.Error(), `budget_lakh "x" is not a number`)
}

func TestParseSites_MissingColumns(t *testing.T) {
	_, err := ParseSites([][]string{{"business_type", "lat"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns: lon, budget_lakh")

	_, err = ParseSites(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestReadSites_CSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sites.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("\ufeffbusiness_type,lat,lon,budget_lakh\n# skipped\nretail,12.9,79.1,10\n\n"), 0o644))

	sites, err := ReadSites(context.Background(), csvPath)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, model.BusinessRetail, sites[0].Request.BusinessType)

	xlsxPath := createTestXLSX(t, []string{"Sites"}, map[string][][]string{
		"Sites": {
			{"business_type", "lat", "lon", "budget_lakh"},
			{"pharmacy", "12.9", "79.1", "25"},
			{"gym", "13.0", "80.0", "60"},
		},
	})
	sites, err = ReadSites(context.Background(), xlsxPath)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, model.BusinessGym, sites[1].Request.BusinessType)
	assert.InDelta(t, 60, sites[1].Request.BudgetLakh, 0.001)
}
