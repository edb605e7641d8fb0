package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskBaselineWithUnknownFactors(t *testing.T) {
	e := New()

	assert.Equal(t, 65.0, e.Risk(TrialRecord{}))
	assert.Equal(t, 65.0, e.Risk(nil))
	assert.Equal(t, 65.0, e.Risk(TrialRecord{FieldStatus: "Unknown", FieldOrganizationType: "Cooperative"}))
}

func TestRiskFullRecord(t *testing.T) {
	record := TrialRecord{
		FieldStatus:           "Completed",
		FieldOrganizationType: "Start-up",
		FieldCDRMethod:        "Direct Ocean Capture",
		FieldDuration:         "Months",
		FieldMRVProvider:      "Carbon Plan",
		FieldMRVStrategy:      "Direct measurement",
		FieldSequestration:    500.0,
		FieldPartners:         "University of California, NREL",
	}

	// 50 - 20 + 10 + 10 - 5 - 15 - 5 - 5
	assert.Equal(t, 20.0, New().Risk(record))
}

func TestRiskClampsAtZero(t *testing.T) {
	record := TrialRecord{
		FieldStatus:           "Completed",
		FieldOrganizationType: "Established Company",
		FieldCDRMethod:        "Afforestation",
		FieldDuration:         "3 Years",
		FieldMRVProvider:      "Isometric",
		FieldMRVStrategy:      "Soil sampling",
		FieldSequestration:    20000.0,
		FieldPartners:         "a, b, c, d",
	}

	assert.Equal(t, 0.0, New().Risk(record))
}

func TestRiskHighestPossible(t *testing.T) {
	record := TrialRecord{
		FieldStatus:           "Proposed",
		FieldOrganizationType: "Start-up",
		FieldCDRMethod:        "Ocean Alkalinity Enhancement",
	}

	assert.Equal(t, 90.0, New().Risk(record))
}

func TestRiskFactors(t *testing.T) {
	// Baseline 65 already includes +5 for an unknown organization type,
	// +5 for an unknown CDR method and +5 for missing sequestration.
	tests := []struct {
		name   string
		record TrialRecord
		expect float64
	}{
		{name: "status operating", record: TrialRecord{FieldStatus: "Operating"}, expect: 50},
		{name: "status in progress", record: TrialRecord{FieldStatus: "In Progress"}, expect: 55},
		{name: "status planned", record: TrialRecord{FieldStatus: "Planned"}, expect: 75},
		{name: "status is exact match", record: TrialRecord{FieldStatus: "completed"}, expect: 65},
		{name: "status non-string", record: TrialRecord{FieldStatus: 5}, expect: 65},

		{name: "academic is zero not default", record: TrialRecord{FieldOrganizationType: "Academic"}, expect: 60},
		{name: "government", record: TrialRecord{FieldOrganizationType: "Government"}, expect: 55},
		{name: "non-profit", record: TrialRecord{FieldOrganizationType: "Non-profit"}, expect: 65},

		{name: "direct air capture", record: TrialRecord{FieldCDRMethod: "Direct Air Capture"}, expect: 60},
		{name: "enhanced weathering", record: TrialRecord{FieldCDRMethod: "Enhanced Weathering"}, expect: 65},
		{name: "biomass", record: TrialRecord{FieldCDRMethod: "Biomass Carbon Removal and Storage"}, expect: 60},

		{name: "duration years", record: TrialRecord{FieldDuration: "2 Years"}, expect: 55},
		{name: "duration months", record: TrialRecord{FieldDuration: "18 Months"}, expect: 60},
		{name: "duration years wins over months", record: TrialRecord{FieldDuration: "1 Years 6 Months"}, expect: 55},
		{name: "duration is case-sensitive", record: TrialRecord{FieldDuration: "2 years"}, expect: 65},

		{name: "mrv both present", record: TrialRecord{FieldMRVProvider: "Puro", FieldMRVStrategy: "Sampling"}, expect: 50},
		{name: "mrv provider only", record: TrialRecord{FieldMRVProvider: "Puro"}, expect: 65},
		{name: "mrv empty strategy", record: TrialRecord{FieldMRVProvider: "Puro", FieldMRVStrategy: ""}, expect: 65},
		{name: "mrv nil strategy", record: TrialRecord{FieldMRVProvider: "Puro", FieldMRVStrategy: nil}, expect: 65},

		{name: "sequestration above 10000", record: TrialRecord{FieldSequestration: 10001.0}, expect: 45},
		{name: "sequestration exactly 10000", record: TrialRecord{FieldSequestration: 10000.0}, expect: 50},
		{name: "sequestration numeric string", record: TrialRecord{FieldSequestration: " 1500 "}, expect: 50},
		{name: "sequestration above 100", record: TrialRecord{FieldSequestration: 100.5}, expect: 55},
		{name: "sequestration exactly 100", record: TrialRecord{FieldSequestration: 100}, expect: 65},
		{name: "sequestration unparseable", record: TrialRecord{FieldSequestration: "lots"}, expect: 65},
		{name: "sequestration null", record: TrialRecord{FieldSequestration: nil}, expect: 65},

		{name: "one partner", record: TrialRecord{FieldPartners: "NREL"}, expect: 65},
		{name: "two partners", record: TrialRecord{FieldPartners: "NREL, MIT"}, expect: 60},
		{name: "three partners", record: TrialRecord{FieldPartners: "a,b,c"}, expect: 60},
		{name: "four partners", record: TrialRecord{FieldPartners: "a,b,c,d"}, expect: 55},
		{name: "empty partners", record: TrialRecord{FieldPartners: ""}, expect: 65},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, e.Risk(tt.record))
		})
	}
}

func TestRiskRecordsEvents(t *testing.T) {
	var events []Event
	e := New(WithSink(SinkFunc(func(ev Event) { events = append(events, ev) })))

	e.Risk(TrialRecord{FieldSequestration: "n/a"})

	// seven factors plus the result
	assert.Len(t, events, 8)

	last := events[len(events)-1]
	assert.Equal(t, FactorResult, last.Factor)
	assert.Equal(t, 65.0, last.Value)

	var fallbacks int
	for _, ev := range events {
		if ev.Fallback {
			fallbacks++
			assert.Equal(t, "sequestration", ev.Factor)
		}
	}
	assert.Equal(t, 1, fallbacks)
}
