package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractSheets reads a spreadsheet and returns one record list per sheet,
// mapping the first row's header names to cell values.
func ExtractSheets(r io.Reader) (map[string][]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := make(map[string][]map[string]string)
	for _, name := range f.GetSheetList() {
		records, err := sheetRecords(f, name)
		if err != nil {
			return nil, err
		}
		sheets[name] = records
	}
	return sheets, nil
}

func sheetRecords(f *excelize.File, name string) ([]map[string]string, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return []map[string]string{}, nil
	}

	headers := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		for j, header := range headers {
			if header == "" {
				header = fmt.Sprintf("column_%d", j+1)
			}
			if j < len(row) {
				record[header] = row[j]
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// XLSXParser flattens a spreadsheet into sectioned text, one section per
// sheet in workbook order, for the analysis pipeline.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var w sectionWriter
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}

		w.Heading(name)
		headers := rows[0]
		var text strings.Builder
		for _, row := range rows[1:] {
			wrote := false
			for j, cell := range row {
				if cell == "" {
					continue
				}
				if wrote {
					text.WriteString(", ")
				}
				if j < len(headers) && headers[j] != "" {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				wrote = true
			}
			if wrote {
				text.WriteString("\n")
			}
		}
		w.Paragraph(text.String())
	}
	return w.String(), nil
}
