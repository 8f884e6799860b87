package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/readar/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

// RequiredColumns must appear in the header row of every import sheet
var RequiredColumns = []string{"title", "price"}

// Supported reports whether filename has an extension Read understands
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ContentType returns the MIME type for a supported import file
func ContentType(filename string) string {
	if strings.ToLower(filepath.Ext(filename)) == ".xlsx" {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Read parses a csv or xlsx sheet into import rows. The first row is the
// header; fully blank rows are dropped.
func Read(filename string, r io.Reader) ([]domain.ImportRow, error) {
	var (
		records [][]string
		lines   []int
		err     error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, lines, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
		lines = make([]int, len(records))
		for i := range lines {
			lines[i] = i + 1
		}
	default:
		return nil, domain.ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}

	return toRows(records, lines)
}

// readCSV returns the records and the line each record starts on
func readCSV(r io.Reader) ([][]string, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("xlsx has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func toRows(records [][]string, lines []int) ([]domain.ImportRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}

	columns := make(map[string]int, len(records[0]))
	for idx, header := range records[0] {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		if _, seen := columns[name]; name != "" && !seen {
			columns[name] = idx
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}

	rows := make([]domain.ImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		line := lines[i+1]
		if blank(record) {
			continue
		}

		get := func(name string) *string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return nil
			}
			v := strings.TrimSpace(record[idx])
			if v == "" {
				return nil
			}
			return &v
		}

		rows = append(rows, domain.ImportRow{
			Row:         line,
			Title:       get("title"),
			Author:      get("author"),
			Price:       get("price"),
			Stock:       get("stock"),
			IsForSale:   get("is_for_sale"),
			IsForRent:   get("is_for_rent"),
			WeeklyFee:   get("weekly_fee"),
			Condition:   get("condition"),
			Tags:        get("tags"),
			Description: get("description"),
			ISBN:        get("isbn"),
		})
	}

	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
