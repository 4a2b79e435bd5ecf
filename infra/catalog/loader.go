// Package catalog loads the vehicle reference catalog from CSV or XLSX files
// and keeps it fresh when the file changes.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	corecatalog "github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/infra/logger"
)

// header aliases, compared after lower-casing and trimming
var aliases = map[string]column{
	"brand":                colBrand,
	"make":                 colBrand,
	"model":                colModel,
	"battery_capacity_kwh": colBattery,
	"battery_kwh":          colBattery,
	"battery":              colBattery,
	"batt_capacity":        colBattery,
	"model_year":           colYear,
	"year":                 colYear,
	"variant":              colVariant,
	"segment":              colSegment,
}

type column int

const (
	colBrand column = iota
	colModel
	colBattery
	colYear
	colVariant
	colSegment
	numColumns
)

// LoadFile reads the catalog at path. The format is chosen from the
// extension: .csv or .xlsx. Rows that cannot be used are skipped with a
// warning; a file without any usable row yields corecatalog.ErrEmptyCatalog.
func LoadFile(path string, log logger.Logger) (*corecatalog.Catalog, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	var (
		recs []model.VehicleRecord
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = f.Close() }()
		recs, err = ParseCSV(f, log)
	case ".xlsx":
		recs, err = loadXLSX(path, log)
	default:
		return nil, fmt.Errorf("%w: %q", corecatalog.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("load catalog %s: %w", path, corecatalog.ErrEmptyCatalog)
	}
	log.Infof("catalog %s loaded: %d vehicles", path, len(recs))
	return corecatalog.New(recs), nil
}

// ParseCSV reads comma separated rows, the first one being the header.
func ParseCSV(r io.Reader, log logger.Logger) ([]model.VehicleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return ParseRows(rows, log)
}

func loadXLSX(path string, log logger.Logger) ([]model.VehicleRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no sheets found in Excel file")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return ParseRows(rows, log)
}

// ParseRows maps a header row and data rows to vehicle records.
func ParseRows(rows [][]string, log logger.Logger) ([]model.VehicleRecord, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}
	var out []model.VehicleRecord
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec, err := parseRow(row, idx)
		if err != nil {
			log.Warnf("catalog row %d skipped: %v", i+2, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// headerIndex resolves column positions. A second "model" column is read as
// the model year, which is how some exports label it.
func headerIndex(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		col, ok := aliases[name]
		if !ok {
			continue
		}
		if idx[col] == -1 {
			idx[col] = i
		} else if col == colModel && idx[colYear] == -1 {
			idx[colYear] = i
		}
	}
	for _, c := range []column{colBrand, colModel, colBattery} {
		if idx[c] == -1 {
			return idx, fmt.Errorf("catalog header lacks a %s column", [...]string{"brand", "model", "battery capacity"}[c])
		}
	}
	return idx, nil
}

func parseRow(row []string, idx [numColumns]int) (model.VehicleRecord, error) {
	cell := func(c column) string {
		if idx[c] < 0 || idx[c] >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx[c]])
	}
	rec := model.VehicleRecord{
		Brand:   cell(colBrand),
		Model:   cell(colModel),
		Variant: cell(colVariant),
		Segment: cell(colSegment),
	}
	battery, err := parseFloat(cell(colBattery))
	if err != nil {
		return rec, fmt.Errorf("battery capacity: %w", err)
	}
	rec.BatteryKWh = battery
	if y := cell(colYear); y != "" {
		year, err := parseFloat(y)
		if err != nil || year != math.Trunc(year) || year < 0 {
			return rec, fmt.Errorf("invalid model year %q", y)
		}
		rec.ModelYear = int(year)
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
