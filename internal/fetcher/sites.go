package fetcher

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-feasibility/internal/model"
)

// DefaultRadiusM is used for rows that leave radius empty.
const DefaultRadiusM = 1000

// Site is one parsed row of a site list. Err is set when the row could not be
// turned into a request; such rows are reported, not dropped.
type Site struct {
	Row     int
	ID      string
	Request model.AnalysisRequest
	Err     error
}

// columnAliases maps accepted header spellings onto canonical column names.
var columnAliases = map[string]string{
	"id":                     "id",
	"site_id":                "id",
	"site":                   "id",
	"name":                   "id",
	"business_type":          "business_type",
	"project_type":           "business_type",
	"type":                   "business_type",
	"city":                   "city",
	"address":                "address",
	"notes":                  "notes",
	"lat":                    "lat",
	"latitude":               "lat",
	"lon":                    "lon",
	"lng":                    "lon",
	"longitude":              "lon",
	"radius_m":               "radius_m",
	"radius":                 "radius_m",
	"budget_lakh":            "budget_lakh",
	"budget":                 "budget_lakh",
	"capacity":               "capacity",
	"open_hours":             "open_hours",
	"hours":                  "open_hours",
	"use_population_density": "use_population_density",
	"consider_competition":   "consider_competition",
}

var requiredColumns = []string{"business_type", "lat", "lon", "budget_lakh"}

// ReadSites reads a CSV or XLSX site list. The first non-blank row is the
// header.
func ReadSites(ctx context.Context, path string) ([]Site, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open site list")
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(ctx, f, CSVOptions{Comment: '#'})
	}
	if err != nil {
		return nil, err
	}
	return ParseSites(rows)
}

// ParseSites maps a header row and data rows onto requests. Row numbers are
// 1-based and count the header.
func ParseSites(rows [][]string) ([]Site, error) {
	if len(rows) == 0 {
		return nil, eris.New("fetcher: site list is empty")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if canon, ok := columnAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("fetcher: site list missing columns: %s", strings.Join(missing, ", "))
	}

	sites := make([]Site, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		site := Site{Row: i + 2, ID: get("id")}
		if site.ID == "" {
			site.ID = strconv.Itoa(site.Row)
		}
		site.Request, site.Err = parseRequest(get)
		sites = append(sites, site)
	}
	return sites, nil
}

func parseRequest(get func(string) string) (model.AnalysisRequest, error) {
	req := model.AnalysisRequest{
		BusinessType: model.ParseBusinessType(get("business_type")),
		City:         get("city"),
		Address:      get("address"),
		Notes:        get("notes"),
		OpenHours:    get("open_hours"),
		RadiusM:      DefaultRadiusM,
	}

	var errs []string
	parseFloat := func(col string, dst *float64) {
		v, err := strconv.ParseFloat(get(col), 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a number", col, get(col)))
			return
		}
		*dst = v
	}
	parseInt := func(col string, dst *int) {
		s := get(col)
		if s == "" {
			return
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a number", col, s))
			return
		}
		*dst = int(v)
	}
	parseBool := func(col string) bool {
		switch strings.ToLower(get(col)) {
		case "", "1", "true", "yes", "y":
			return true
		default:
			return false
		}
	}

	parseFloat("lat", &req.Location.Lat)
	parseFloat("lon", &req.Location.Lon)
	parseFloat("budget_lakh", &req.BudgetLakh)
	parseInt("radius_m", &req.RadiusM)
	parseInt("capacity", &req.Capacity)
	req.UsePopulationDensity = parseBool("use_population_density")
	req.ConsiderCompetition = parseBool("consider_competition")

	if len(errs) > 0 {
		return req, eris.Errorf("fetcher: %s", strings.Join(errs, "; "))
	}
	return req, nil
}
