// Package excel reads discovery batches out of spreadsheet exports.
// Both xlsx workbooks and CSV drops are handled by the same reader.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"seqtriage/domain/record"
)

// BatchReader reads Excel and CSV discovery exports into records. The
// first row is the header; every later row is one record. Rows that fail
// record validation are kept as empty-sequence placeholders so the dedupe
// stage can account for them.
type BatchReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	closed   bool
}

// NewBatchReader creates a reader that handles both Excel and CSV files,
// picked by extension.
func NewBatchReader(filePath string) *BatchReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &BatchReader{filePath: filePath, fileType: fileType}
}

// Fetch reads every data row of the spreadsheet into a record.
func (r *BatchReader) Fetch(ctx context.Context) ([]record.Raw, error) {
	if r.closed {
		return nil, fmt.Errorf("batch reader is closed: %s", r.filePath)
	}
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}
	records := r.processRows(rows)
	log.Printf("[BatchReader] %s file processed (%d columns, %d records)",
		strings.ToUpper(r.fileType), len(rows[0]), len(records))
	return records, nil
}

// Close marks the reader as consumed. File handles only live for the
// duration of Fetch.
func (r *BatchReader) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func (r *BatchReader) readExcelRows() ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("Excel workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	readTime := time.Since(startTime)
	log.Printf("[BatchReader] sheet %s read in %.2fms (%d rows)", sheet, float64(readTime.Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *BatchReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts header + data rows into records. Headers arrive in
// display form ("Novelty Score"); they are normalized to the record
// schema's key names before mapping.
func (r *BatchReader) processRows(rows [][]string) []record.Raw {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = normalizeHeader(header)
	}

	records := make([]record.Raw, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		rowData := make(map[string]interface{})
		for j, cell := range rows[i] {
			if j >= len(headers) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				rowData[headers[j]] = cell
			}
		}

		rec, err := record.FromMap(rowData)
		if err != nil {
			records = append(records, record.Placeholder(rowData))
			continue
		}
		records = append(records, rec)
	}
	return records
}

func normalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	return strings.ReplaceAll(h, " ", "_")
}
