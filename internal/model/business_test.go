package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBusinessType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want BusinessType
	}{
		{"cafe", BusinessCafe},
		{"  Cafe ", BusinessCafe},
		{"Hostel Mess", BusinessHostelMess},
		{"hostel_mess", BusinessHostelMess},
		{"hostel--mess", BusinessHostelMess},
		{"Beauty Salon", BusinessBeautySalon},
		{"salon", BusinessBeautySalon},
		{"Coffee Shop", BusinessCafe},
		{"GYM", BusinessGym},
		{"Retail Store", BusinessRetail},
		{"bookshop", BusinessOther},
		{"", BusinessOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseBusinessType(tt.in))
		})
	}
}

func TestBusinessTypeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Gym / Fitness", BusinessGym.Label())
	assert.Equal(t, "Hostel Mess", BusinessHostelMess.Label())
	assert.Equal(t, "Business", BusinessType("kiosk").Label())
}

func TestAllBusinessTypesValid(t *testing.T) {
	t.Parallel()

	types := AllBusinessTypes()
	assert.Len(t, types, len(businessLabels))
	for _, bt := range types {
		assert.True(t, bt.Valid(), bt)
	}
	assert.False(t, BusinessType("kiosk").Valid())
}

func TestBusinessType_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body string
		want BusinessType
	}{
		{`{"business_type":"Hostel Mess"}`, BusinessHostelMess},
		{`{"business_type":"beauty_salon"}`, BusinessBeautySalon},
		{`{"business_type":"chemist"}`, BusinessPharmacy},
		{`{"business_type":"bookshop"}`, BusinessOther},
		{`{"business_type":"  "}`, ""},
		{`{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()
			var req AnalysisRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.BusinessType)
		})
	}
}
