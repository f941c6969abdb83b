package domain

import (
	"time"
)

// PermitRecord represents one row of a building-permit dataset after parsing.
// Parsing never drops a row: fields that fail to parse are nil, so a
// PermitRecord exists for every input row and downstream filters decide what
// to keep. String fields are carried verbatim (trimmed) from the source.
type PermitRecord struct {
	// AppliedDate is the permit application date. Nil when the source cell
	// is empty or does not match any accepted date layout.
	AppliedDate *time.Time `json:"applied_date,omitempty"`

	// EstProjectCost is the estimated project cost in dollars. Nil when the
	// source cell is empty or non-numeric.
	EstProjectCost *float64 `json:"est_project_cost,omitempty"`

	// Latitude and Longitude locate the permit site. Either is nil when the
	// source cell is empty or non-numeric.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// PermitTypeMapped is the normalized permit category from the source.
	PermitTypeMapped string `json:"permit_type_mapped"`

	// OriginalAddress1 is the street address as recorded on the permit.
	OriginalAddress1 string `json:"original_address_1"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *PermitRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// HasAppliedDate reports whether the application date parsed successfully.
func (r *PermitRecord) HasAppliedDate() bool {
	return r.AppliedDate != nil
}

// HasCost reports whether the estimated project cost parsed successfully.
func (r *PermitRecord) HasCost() bool {
	return r.EstProjectCost != nil
}

// CleanPermit is a PermitRecord that passed the validity filters. The
// guarantees are encoded in the field types: AppliedDate, Latitude and
// Longitude are always present; only EstProjectCost may still be missing.
// Clean permits are immutable once built and the clean set is recomputed in
// full on every run.
type CleanPermit struct {
	AppliedDate      time.Time `json:"applied_date"`
	EstProjectCost   *float64  `json:"est_project_cost,omitempty"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	PermitTypeMapped string    `json:"permit_type_mapped"`
	OriginalAddress1 string    `json:"original_address_1"`
}

// HasCost reports whether the estimated project cost is present.
func (p *CleanPermit) HasCost() bool {
	return p.EstProjectCost != nil
}

// Cost returns the estimated project cost, or 0 when missing. Callers that
// must distinguish "zero" from "missing" use HasCost.
func (p *CleanPermit) Cost() float64 {
	if p.EstProjectCost == nil {
		return 0
	}
	return *p.EstProjectCost
}

// MonthlyCount is one bucket of the permit time series: the number of clean
// permits applied for during a single calendar month. Month holds the last
// day of that month at midnight UTC. Months with no permits are absent from
// the series rather than zero-filled.
type MonthlyCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// TypeCount is one entry of the permit-type distribution.
type TypeCount struct {
	PermitType string `json:"permit_type"`
	Count      int    `json:"count"`
}

// TypeCostStats holds per-category cost statistics. Count tallies every
// permit in the category; MeanCost and MedianCost are computed over the
// permits whose cost is present, so Count can exceed the number of costs
// behind the mean. Categories with no priced permits report 0 for both.
type TypeCostStats struct {
	PermitType string  `json:"permit_type"`
	MeanCost   float64 `json:"mean_cost"`
	MedianCost float64 `json:"median_cost"`
	Count      int     `json:"count"`
}

// Outliers is the high-cost subset of the clean set. Threshold is the cost
// percentile the selection was made against, nil when the clean set carried
// no priced permits (in which case Records is empty). Records preserve
// clean-set order. Permits without a cost are never outliers.
type Outliers struct {
	Threshold *float64      `json:"threshold,omitempty"`
	Records   []CleanPermit `json:"records"`
}

// AggregateSet bundles the four derived views computed from one clean set.
// The derivations are mutually independent; each is valid on its own.
type AggregateSet struct {
	// MonthlyCounts is ordered by month ascending.
	MonthlyCounts []MonthlyCount `json:"monthly_counts"`

	// TypeDistribution is ordered by count descending, ties kept in
	// first-encountered order.
	TypeDistribution []TypeCount `json:"type_distribution"`

	// CostByType is ordered by mean cost descending, ties kept in
	// first-encountered order.
	CostByType []TypeCostStats `json:"cost_by_type"`

	// CostOutliers holds the permits whose cost strictly exceeds the
	// outlier threshold.
	CostOutliers Outliers `json:"cost_outliers"`
}

// SummaryMetrics is the scalar summary of one clean permit set. It is the
// single authoritative shape for summary output: the JSON artifact, the CSV
// row and the Markdown report are all rendered from this struct.
//
// TotalPermits counts every clean permit. TotalValue, AvgValue and
// MedianValue are computed over permits with a present cost only, so a set
// where every cost is missing has no defined value metrics (the summarizer
// reports that as an error rather than zero-filling).
type SummaryMetrics struct {
	// TotalPermits is the size of the clean set.
	TotalPermits int `json:"total_permits" csv:"TotalPermits" validate:"min=0"`

	// TotalValue is the sum of all present project costs in dollars.
	TotalValue float64 `json:"total_value" csv:"TotalValue"`

	// AvgValue is the mean of all present project costs.
	AvgValue float64 `json:"avg_value" csv:"AvgValue"`

	// MedianValue is the median of all present project costs.
	MedianValue float64 `json:"median_value" csv:"MedianValue"`

	// MostCommonType is the modal permit category. A tie goes to the
	// category encountered first in the clean set, so the value is
	// deterministic for a given input order.
	MostCommonType string `json:"most_common_type" csv:"MostCommonType" validate:"required"`

	// DateRangeStart and DateRangeEnd are the earliest and latest
	// application dates in the clean set.
	DateRangeStart time.Time `json:"date_range_start" csv:"DateRangeStart"`
	DateRangeEnd   time.Time `json:"date_range_end" csv:"DateRangeEnd"`
}
