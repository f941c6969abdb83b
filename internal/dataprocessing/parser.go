package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"permitpulse/internal/config"
	apperrors "permitpulse/internal/errors"
	"permitpulse/pkg/contracts/domain"
)

// headerScanLimit caps how many leading rows of a worksheet are examined
// when looking for the permit header row.
const headerScanLimit = 8

// Parser reads a permit dataset file into typed records.
type Parser struct {
	logger  *slog.Logger
	layouts []string
}

// NewParser creates a parser that tries the given date layouts in order.
// A nil logger falls back to slog.Default(); an empty layout list falls
// back to the defaults.
func NewParser(layouts []string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if len(layouts) == 0 {
		layouts = config.DefaultDateLayouts()
	}
	return &Parser{logger: logger, layouts: layouts}
}

// ParseFile reads a permit dataset file and extracts one PermitRecord per
// data row. Date and numeric cells that fail to parse degrade to null and
// are tallied in ParseStats; rows are never dropped here. Only a missing
// file, an unsupported extension, or a header lacking a required column
// aborts the parse.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]domain.PermitRecord, domain.ParseStats, error) {
	var stats domain.ParseStats

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, stats, apperrors.NewInputMissingError("dataset file not found: "+path, err)
		}
		return nil, stats, apperrors.NewInputMissingError("dataset file not readable: "+path, err)
	}

	var (
		header []string
		rows   [][]string
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		header, rows, err = p.readCSV(path)
	case ".xlsx":
		header, rows, err = p.readXLSX(ctx, path)
	default:
		return nil, stats, apperrors.NewValidationError("unsupported dataset extension: " + filepath.Ext(path))
	}
	if err != nil {
		return nil, stats, err
	}

	columnMap, err := p.mapColumns(header)
	if err != nil {
		return nil, stats, err
	}

	p.logger.InfoContext(ctx, "parsing permit rows",
		slog.String("path", path),
		slog.Int("data_rows", len(rows)))

	records := make([]domain.PermitRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, p.parseRow(ctx, i, row, columnMap, &stats))
	}
	stats.Rows = len(records)

	p.logger.InfoContext(ctx, "parse complete",
		slog.String("path", path),
		slog.Int("rows", stats.Rows),
		slog.Int("degraded_dates", stats.DegradedDates),
		slog.Int("degraded_costs", stats.DegradedCosts),
		slog.Int("degraded_coordinates", stats.DegradedCoordinates))

	return records, stats, nil
}

// readCSV reads the header row and all data rows from a CSV file. Short
// rows are allowed; missing trailing cells read as empty during row
// parsing, so ragged files lose fields, not rows.
func (p *Parser) readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.NewInputMissingError("failed to open dataset file: "+path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewSchemaError("dataset file has no header row", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to read CSV header", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to read CSV rows", err)
	}

	return header, rows, nil
}

// readXLSX locates the worksheet carrying the permit columns and returns
// its header row and data rows. Sheets are scanned in workbook order; the
// first row within the scan limit that matches any required column is the
// candidate header, and a full match wins immediately.
func (p *Parser) readXLSX(ctx context.Context, path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to open workbook: "+path, err)
	}
	defer f.Close()

	required := config.RequiredColumns()

	var bestHeader []string
	var bestRows [][]string
	bestMatches := 0

	for _, name := range f.GetSheetList() {
		rows, rowsErr := f.GetRows(name)
		if rowsErr != nil || len(rows) == 0 {
			continue
		}

		for i := 0; i < len(rows) && i < headerScanLimit; i++ {
			matches := countColumnMatches(rows[i], required)
			if matches == 0 {
				continue
			}
			if matches == len(required) {
				p.logger.DebugContext(ctx, "found permit data sheet",
					slog.String("sheet", name),
					slog.Int("header_row", i))
				return rows[i], rows[i+1:], nil
			}
			if matches > bestMatches {
				bestMatches = matches
				bestHeader = rows[i]
				bestRows = rows[i+1:]
			}
		}
	}

	if bestMatches == 0 {
		return nil, nil, apperrors.NewSchemaError("no worksheet contains the permit columns", nil)
	}

	// Partial match: hand the best candidate to the column mapper so the
	// resulting error names the columns that are actually missing.
	return bestHeader, bestRows, nil
}

// countColumnMatches counts how many required columns appear in the row.
func countColumnMatches(row []string, required []string) int {
	matches := 0
	for _, col := range required {
		for _, cell := range row {
			if strings.EqualFold(normalizeHeaderCell(cell), col) {
				matches++
				break
			}
		}
	}
	return matches
}

// mapColumns maps each required column name to its position in the header.
// Matching is case-insensitive after trimming; the first occurrence wins
// when a header repeats a name.
func (p *Parser) mapColumns(header []string) (map[string]int, error) {
	required := config.RequiredColumns()
	columnMap := make(map[string]int, len(required))

	for i, cell := range header {
		name := normalizeHeaderCell(cell)
		for _, col := range required {
			if strings.EqualFold(name, col) {
				if _, exists := columnMap[col]; !exists {
					columnMap[col] = i
				}
			}
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := columnMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("required columns not found: %s", strings.Join(missing, ", ")), nil)
	}

	return columnMap, nil
}

// normalizeHeaderCell trims whitespace and strips the UTF-8 BOM and other
// zero-width characters that spreadsheet exports prepend to the first cell.
func normalizeHeaderCell(cell string) string {
	clean := strings.TrimSpace(cell)
	clean = strings.TrimPrefix(clean, "\ufeff")
	clean = strings.TrimLeft(clean, "\u200b\u200c\u200d\u2060\ufeff")
	return strings.TrimSpace(clean)
}

// parseRow converts one raw row into a PermitRecord. Empty cells are
// missing values; non-empty cells that fail to parse are degradations and
// counted in stats. Either way the field becomes null and the row survives.
func (p *Parser) parseRow(ctx context.Context, rowNum int, row []string, columnMap map[string]int, stats *domain.ParseStats) domain.PermitRecord {
	cell := func(col string) string {
		if idx := columnMap[col]; idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	record := domain.PermitRecord{
		PermitTypeMapped: cell(config.ColumnPermitTypeMapped),
		OriginalAddress1: cell(config.ColumnOriginalAddress),
	}

	if raw := cell(config.ColumnAppliedDate); raw != "" {
		if t, ok := p.parseDate(raw); ok {
			record.AppliedDate = &t
		} else {
			stats.DegradedDates++
			p.logger.DebugContext(ctx, "applied date degraded to null",
				slog.Int("row", rowNum),
				slog.String("value", raw))
		}
	}

	if raw := cell(config.ColumnEstProjectCost); raw != "" {
		if v, ok := parseCost(raw); ok {
			record.EstProjectCost = &v
		} else {
			stats.DegradedCosts++
			p.logger.DebugContext(ctx, "project cost degraded to null",
				slog.Int("row", rowNum),
				slog.String("value", raw))
		}
	}

	if raw := cell(config.ColumnLatitude); raw != "" {
		if v, ok := parseCoordinate(raw); ok {
			record.Latitude = &v
		} else {
			stats.DegradedCoordinates++
			p.logger.DebugContext(ctx, "latitude degraded to null",
				slog.Int("row", rowNum),
				slog.String("value", raw))
		}
	}

	if raw := cell(config.ColumnLongitude); raw != "" {
		if v, ok := parseCoordinate(raw); ok {
			record.Longitude = &v
		} else {
			stats.DegradedCoordinates++
			p.logger.DebugContext(ctx, "longitude degraded to null",
				slog.Int("row", rowNum),
				slog.String("value", raw))
		}
	}

	return record
}

// parseDate tries each configured layout in order.
func (p *Parser) parseDate(value string) (time.Time, bool) {
	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCost parses a dollar amount, tolerating a leading $ and thousands
// separators.
func parseCost(value string) (float64, bool) {
	clean := strings.TrimSpace(value)
	clean = strings.TrimSpace(strings.TrimPrefix(clean, "$"))
	clean = strings.ReplaceAll(clean, ",", "")

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCoordinate parses a plain decimal latitude or longitude.
func parseCoordinate(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
