package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "permitpulse/internal/errors"
)

const permitHeader = "AppliedDate,EstProjectCost,Latitude,Longitude,PermitTypeMapped,OriginalAddress1"

// writePermitCSV writes a permit CSV into a temp dir and returns its path.
func writePermitCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permits.csv")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp CSV: %v", err)
	}
	return path
}

// TestParseFileCSV ensures a well-formed CSV yields one record per data row
// with every field populated.
func TestParseFileCSV(t *testing.T) {
	path := writePermitCSV(t,
		permitHeader,
		"2024-03-15,125000.50,35.4676,-97.5164,RESIDENTIAL,100 MAIN ST",
		`2024-04-01,"$1,500.00",35.4700,-97.5200,COMMERCIAL,200 BROADWAY AVE`,
	)

	parser := NewParser(nil, nil)
	records, stats, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if stats.Rows != 2 {
		t.Errorf("stats.Rows mismatch: want 2, got %d", stats.Rows)
	}

	r := records[0]
	if r.AppliedDate == nil || !r.AppliedDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("applied date mismatch: got %v", r.AppliedDate)
	}
	if r.EstProjectCost == nil || *r.EstProjectCost != 125000.50 {
		t.Errorf("cost mismatch: got %v", r.EstProjectCost)
	}
	if r.Latitude == nil || *r.Latitude != 35.4676 {
		t.Errorf("latitude mismatch: got %v", r.Latitude)
	}
	if r.Longitude == nil || *r.Longitude != -97.5164 {
		t.Errorf("longitude mismatch: got %v", r.Longitude)
	}
	if r.PermitTypeMapped != "RESIDENTIAL" {
		t.Errorf("permit type mismatch: want RESIDENTIAL, got %s", r.PermitTypeMapped)
	}
	if r.OriginalAddress1 != "100 MAIN ST" {
		t.Errorf("address mismatch: want 100 MAIN ST, got %s", r.OriginalAddress1)
	}

	// Currency formatting with $ and thousands separators must still parse.
	if records[1].EstProjectCost == nil || *records[1].EstProjectCost != 1500.00 {
		t.Errorf("formatted cost mismatch: got %v", records[1].EstProjectCost)
	}
}

// TestParseFileNeverDropsRows feeds rows full of unparseable and missing
// cells and checks every row still comes back as a record, with the bad
// cells degraded to nil and counted.
func TestParseFileNeverDropsRows(t *testing.T) {
	path := writePermitCSV(t,
		permitHeader,
		"not-a-date,abc,91.x,,RESIDENTIAL,1 ELM ST", // bad date, bad cost, bad latitude, empty longitude
		",,,,,",                   // all empty: missing values, not degradations
		"2024-01-10,5000,35.1,-97.1,COMMERCIAL,2 OAK ST", // fully valid
	)

	parser := NewParser(nil, nil)
	records, stats, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if stats.DegradedDates != 1 {
		t.Errorf("DegradedDates mismatch: want 1, got %d", stats.DegradedDates)
	}
	if stats.DegradedCosts != 1 {
		t.Errorf("DegradedCosts mismatch: want 1, got %d", stats.DegradedCosts)
	}
	if stats.DegradedCoordinates != 1 {
		t.Errorf("DegradedCoordinates mismatch: want 1, got %d", stats.DegradedCoordinates)
	}

	bad := records[0]
	if bad.AppliedDate != nil || bad.EstProjectCost != nil || bad.Latitude != nil || bad.Longitude != nil {
		t.Errorf("degraded fields should be nil: %+v", bad)
	}
	empty := records[1]
	if empty.AppliedDate != nil || empty.EstProjectCost != nil || empty.Latitude != nil || empty.Longitude != nil {
		t.Errorf("empty fields should be nil: %+v", empty)
	}
}

// TestParseFileShortRows ensures ragged CSV rows lose fields, not rows.
func TestParseFileShortRows(t *testing.T) {
	path := writePermitCSV(t,
		permitHeader,
		"2024-02-01,1000", // only two cells
	)

	parser := NewParser(nil, nil)
	records, stats, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if stats.DegradedCoordinates != 0 {
		t.Errorf("missing trailing cells should not count as degradations, got %d", stats.DegradedCoordinates)
	}
	r := records[0]
	if r.AppliedDate == nil || r.EstProjectCost == nil {
		t.Errorf("present cells should parse: %+v", r)
	}
	if r.Latitude != nil || r.Longitude != nil || r.PermitTypeMapped != "" {
		t.Errorf("absent cells should read as empty: %+v", r)
	}
}

// TestParseFileBOMHeader ensures a UTF-8 BOM on the first header cell does
// not break column matching.
func TestParseFileBOMHeader(t *testing.T) {
	path := writePermitCSV(t,
		"\ufeff"+permitHeader,
		"2024-05-05,100,35.0,-97.0,RESIDENTIAL,3 PINE ST",
	)

	parser := NewParser(nil, nil)
	records, _, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].AppliedDate == nil {
		t.Error("AppliedDate column behind the BOM was not matched")
	}
}

// TestParseFileHeaderOnly ensures a file with a header and no data rows
// parses to an empty record set without error.
func TestParseFileHeaderOnly(t *testing.T) {
	path := writePermitCSV(t, permitHeader)

	parser := NewParser(nil, nil)
	records, stats, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected 0 records, got %d", len(records))
	}
	if stats.Rows != 0 {
		t.Errorf("stats.Rows mismatch: want 0, got %d", stats.Rows)
	}
}

// TestParseFileMissingFile ensures a nonexistent path is reported as a
// missing input, not a parse failure.
func TestParseFileMissingFile(t *testing.T) {
	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !apperrors.Is(err, apperrors.ErrTypeInputMissing) {
		t.Errorf("expected INPUT_MISSING, got %v", err)
	}
}

// TestParseFileUnsupportedExtension rejects files the parser cannot read.
func TestParseFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !apperrors.Is(err, apperrors.ErrTypeValidation) {
		t.Errorf("expected VALIDATION, got %v", err)
	}
}

// TestParseFileMissingColumn ensures the schema error names the absent
// column.
func TestParseFileMissingColumn(t *testing.T) {
	path := writePermitCSV(t,
		"AppliedDate,EstProjectCost,Latitude,Longitude,PermitTypeMapped", // no OriginalAddress1
		"2024-01-01,100,35.0,-97.0,RESIDENTIAL",
	)

	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for missing column")
	}
	if !apperrors.Is(err, apperrors.ErrTypeSchema) {
		t.Errorf("expected SCHEMA, got %v", err)
	}
	if !strings.Contains(err.Error(), "OriginalAddress1") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

// TestParseFileEmptyCSV ensures a zero-byte file reports a schema problem.
func TestParseFileEmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for empty file")
	}
	if !apperrors.Is(err, apperrors.ErrTypeSchema) {
		t.Errorf("expected SCHEMA, got %v", err)
	}
}

// TestParseFileXLSX builds a workbook whose first sheet is unrelated and
// whose second sheet carries the permit columns below two title rows, and
// checks the parser finds the right sheet and header.
func TestParseFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), "Notes")
	f.SetCellValue("Notes", "A1", "internal notes, no permit data")

	if _, err := f.NewSheet("Permits"); err != nil {
		t.Fatalf("failed to add sheet: %v", err)
	}
	f.SetCellValue("Permits", "A1", "City Permit Export")
	f.SetCellValue("Permits", "A2", "Generated 2024-06-01")
	headers := []string{"AppliedDate", "EstProjectCost", "Latitude", "Longitude", "PermitTypeMapped", "OriginalAddress1"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue("Permits", col+"3", h)
	}
	row := []interface{}{"2024-06-15", "42000", "35.47", "-97.52", "ELECTRICAL", "400 CEDAR CT"}
	for i, v := range row {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue("Permits", col+"4", v)
	}

	path := filepath.Join(t.TempDir(), "permits.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save temp workbook: %v", err)
	}

	parser := NewParser(nil, nil)
	records, stats, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if stats.Rows != 1 {
		t.Errorf("stats.Rows mismatch: want 1, got %d", stats.Rows)
	}
	r := records[0]
	if r.PermitTypeMapped != "ELECTRICAL" {
		t.Errorf("permit type mismatch: want ELECTRICAL, got %s", r.PermitTypeMapped)
	}
	if r.EstProjectCost == nil || *r.EstProjectCost != 42000 {
		t.Errorf("cost mismatch: got %v", r.EstProjectCost)
	}
	if r.AppliedDate == nil || !r.AppliedDate.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("applied date mismatch: got %v", r.AppliedDate)
	}
}

// TestParseFileXLSXNoPermitSheet ensures a workbook without the permit
// columns reports a schema error.
func TestParseFileXLSXNoPermitSheet(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue(f.GetSheetName(0), "A1", "nothing relevant")

	path := filepath.Join(t.TempDir(), "other.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save temp workbook: %v", err)
	}

	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for workbook without permit columns")
	}
	if !apperrors.Is(err, apperrors.ErrTypeSchema) {
		t.Errorf("expected SCHEMA, got %v", err)
	}
}

// TestParseFileXLSXPartialHeader ensures a near-match sheet produces an
// error naming the columns that are actually missing, not a generic one.
func TestParseFileXLSXPartialHeader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"AppliedDate", "EstProjectCost", "Latitude", "Longitude"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, col+"1", h)
	}

	path := filepath.Join(t.TempDir(), "partial.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save temp workbook: %v", err)
	}

	parser := NewParser(nil, nil)
	_, _, err := parser.ParseFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for partial header")
	}
	if !strings.Contains(err.Error(), "PermitTypeMapped") || !strings.Contains(err.Error(), "OriginalAddress1") {
		t.Errorf("error should name the missing columns: %v", err)
	}
}

// TestParseDateLayouts covers the accepted applied-date formats.
func TestParseDateLayouts(t *testing.T) {
	parser := NewParser(nil, nil)

	cases := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-15T08:30:00", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), true},
		{"2024-03-15 08:30:00", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), true},
		{"03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"15.03.2024", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tc := range cases {
		got, ok := parser.parseDate(tc.value)
		if ok != tc.ok {
			t.Errorf("parseDate(%q) ok mismatch: want %v, got %v", tc.value, tc.ok, ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("parseDate(%q) mismatch: want %v, got %v", tc.value, tc.want, got)
		}
	}
}

// TestParseCost covers currency formatting tolerance.
func TestParseCost(t *testing.T) {
	cases := []struct {
		value string
		want  float64
		ok    bool
	}{
		{"125000.50", 125000.50, true},
		{"$125000.50", 125000.50, true},
		{"$ 1,250,000", 1250000, true},
		{"1,500", 1500, true},
		{"0", 0, true},
		{"-500", -500, true},
		{"TBD", 0, false},
		{"$", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseCost(tc.value)
		if ok != tc.ok {
			t.Errorf("parseCost(%q) ok mismatch: want %v, got %v", tc.value, tc.ok, ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseCost(%q) mismatch: want %v, got %v", tc.value, tc.want, got)
		}
	}
}
