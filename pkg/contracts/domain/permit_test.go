package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func TestPermitRecordFieldPresence(t *testing.T) {
	applied := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		record          PermitRecord
		hasCoordinates  bool
		hasAppliedDate  bool
		hasCost         bool
	}{
		{
			name: "fully parsed record",
			record: PermitRecord{
				AppliedDate:      timePtr(applied),
				EstProjectCost:   floatPtr(125000.50),
				Latitude:         floatPtr(35.4676),
				Longitude:        floatPtr(-97.5164),
				PermitTypeMapped: "RESIDENTIAL",
				OriginalAddress1: "123 MAIN ST",
			},
			hasCoordinates: true,
			hasAppliedDate: true,
			hasCost:        true,
		},
		{
			name:           "fully degraded record",
			record:         PermitRecord{PermitTypeMapped: "COMMERCIAL"},
			hasCoordinates: false,
			hasAppliedDate: false,
			hasCost:        false,
		},
		{
			name: "latitude without longitude",
			record: PermitRecord{
				Latitude: floatPtr(35.4676),
			},
			hasCoordinates: false,
		},
		{
			name: "longitude without latitude",
			record: PermitRecord{
				Longitude: floatPtr(-97.5164),
			},
			hasCoordinates: false,
		},
		{
			name: "zero cost still counts as present",
			record: PermitRecord{
				EstProjectCost: floatPtr(0),
			},
			hasCost: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hasCoordinates, tt.record.HasCoordinates())
			assert.Equal(t, tt.hasAppliedDate, tt.record.HasAppliedDate())
			assert.Equal(t, tt.hasCost, tt.record.HasCost())
		})
	}
}

func TestCleanPermitCost(t *testing.T) {
	tests := []struct {
		name     string
		cost     *float64
		hasCost  bool
		expected float64
	}{
		{
			name:     "present cost",
			cost:     floatPtr(125000.50),
			hasCost:  true,
			expected: 125000.50,
		},
		{
			name:     "missing cost reads as zero",
			cost:     nil,
			hasCost:  false,
			expected: 0,
		},
		{
			name:     "explicit zero cost is present",
			cost:     floatPtr(0),
			hasCost:  true,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CleanPermit{
				AppliedDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				EstProjectCost:   tt.cost,
				Latitude:         35.4676,
				Longitude:        -97.5164,
				PermitTypeMapped: "RESIDENTIAL",
			}

			assert.Equal(t, tt.hasCost, p.HasCost())
			assert.Equal(t, tt.expected, p.Cost())
		})
	}
}

func TestPermitRecordJSONOmitsMissingFields(t *testing.T) {
	record := PermitRecord{
		PermitTypeMapped: "RESIDENTIAL",
		OriginalAddress1: "123 MAIN ST",
	}

	data, err := json.Marshal(&record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Degraded fields disappear; string fields always serialize
	assert.NotContains(t, decoded, "applied_date")
	assert.NotContains(t, decoded, "est_project_cost")
	assert.NotContains(t, decoded, "latitude")
	assert.NotContains(t, decoded, "longitude")
	assert.Equal(t, "RESIDENTIAL", decoded["permit_type_mapped"])
	assert.Equal(t, "123 MAIN ST", decoded["original_address_1"])
}

func TestRunResultJSONExcludesCleanSet(t *testing.T) {
	result := RunResult{
		RunID:     "run-a1b2c3d4",
		InputPath: "/data/input/permits.csv",
		CleanPermits: []CleanPermit{
			{
				AppliedDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Latitude:         35.4676,
				Longitude:        -97.5164,
				PermitTypeMapped: "RESIDENTIAL",
				OriginalAddress1: "123 MAIN ST",
			},
		},
		ParseStats: ParseStats{Rows: 1},
		CleanStats: CleanStats{InputRecords: 1, CleanRecords: 1},
	}

	data, err := json.Marshal(&result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// The clean set travels through the exporter, never through JSON
	assert.NotContains(t, decoded, "CleanPermits")
	assert.NotContains(t, string(data), "123 MAIN ST")
	assert.Equal(t, "run-a1b2c3d4", decoded["run_id"])
	assert.Contains(t, decoded, "parse_stats")
	assert.Contains(t, decoded, "clean_stats")
	assert.Contains(t, decoded, "aggregates")
	assert.Contains(t, decoded, "summary")
}

func TestCleanStatsAccounting(t *testing.T) {
	stats := CleanStats{
		InputRecords:              10,
		DroppedMissingCoordinates: 3,
		DroppedOutsideWindow:      2,
		CleanRecords:              5,
	}

	assert.Equal(t, stats.InputRecords-stats.CleanRecords,
		stats.DroppedMissingCoordinates+stats.DroppedOutsideWindow)
}
