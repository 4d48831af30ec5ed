package formats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ParseUpload turns raw upload bytes into a Document: rows for spreadsheet
// files, extracted text for PDFs. The spreadsheet path tries the format the
// extension claims first, then falls through the other readers, since
// vendors mislabel exports.
func ParseUpload(fileName, teamID string, data []byte) (Document, error) {
	doc := Document{FileName: fileName, TeamID: teamID}
	ext := strings.ToLower(filepath.Ext(fileName))

	if ext == ".pdf" {
		text, err := extractPDFText(data)
		if err != nil {
			return doc, fmt.Errorf("read pdf %s: %w", fileName, err)
		}
		doc.Text = text
		return doc, nil
	}

	var attempts []func([]byte) ([][]string, error)
	switch ext {
	case ".xlsx":
		attempts = []func([]byte) ([][]string, error){readXLSX, readXLS, readCSV}
	case ".xls":
		attempts = []func([]byte) ([][]string, error){readXLS, readXLSX, readCSV}
	default:
		attempts = []func([]byte) ([][]string, error){readCSV, readXLSX, readXLS}
	}
	var lastErr error
	for _, read := range attempts {
		rows, err := read(data)
		if err == nil && len(rows) > 0 {
			doc.Rows = normalizeRows(rows)
			return doc, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no rows")
	}
	return doc, fmt.Errorf("read %s: %w", fileName, lastErr)
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// normalizeCell trims whitespace, BOM and zero-width characters that
// spreadsheet exports leave behind.
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\uFEFF\u200B\u00A0")
	return strings.TrimSpace(s)
}

func normalizeRows(rows [][]string) [][]string {
	for i := range rows {
		for j := range rows[i] {
			rows[i][j] = normalizeCell(rows[i][j])
		}
	}
	return rows
}

func allEmptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func nonEmptyCount(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}
