package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docview/internal/ast"
)

// CSVParser handles CSV files. The first record becomes the header row of a
// single table.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*ast.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := baseTitle(filename)
	if len(records) == 0 {
		return newDocument(title, "", nil, nil), nil
	}

	headers := records[0]
	head := ast.New(ast.KindTableHead, nil, csvRow(headers, len(headers), true))
	body := ast.New(ast.KindTableBody, nil)
	for _, record := range records[1:] {
		body.Children = append(body.Children, csvRow(record, len(headers), false))
	}

	table := ast.New(ast.KindTable, nil, head, body)
	return newDocument(title, "", nil, []*ast.Node{table}), nil
}

// csvRow pads or truncates record to width cells.
func csvRow(record []string, width int, header bool) *ast.Node {
	row := ast.New(ast.KindTableRow, nil)
	for i := 0; i < width; i++ {
		var value string
		if i < len(record) {
			value = record[i]
		}
		row.Children = append(row.Children, ast.New(ast.KindTableCell, ast.Attributes{"header": header}, ast.Text(value)))
	}
	return row
}
