package spreadsheet

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// Sheet es el resultado de parsear la primera hoja de un libro: la primera
// fila se toma como cabeceras y el resto como registros.
type Sheet struct {
	Name    string
	Headers []string
	Records []map[string]any
}

// Rows devuelve la cantidad de registros de datos (sin contar cabeceras).
func (s Sheet) Rows() int {
	return len(s.Records)
}

// Columns devuelve la cantidad de columnas detectadas.
func (s Sheet) Columns() int {
	return len(s.Headers)
}

// Parse lee un xlsx y convierte la primera hoja en registros tabulares.
// Celdas vacías se omiten del registro, igual que filas completamente vacías.
func Parse(r io.Reader) (Sheet, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, err
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, ErrEmptyWorkbook
	}
	name := sheets[0]

	rows, err := workbook.GetRows(name)
	if err != nil {
		return Sheet{}, err
	}
	if len(rows) == 0 {
		return Sheet{Name: name, Headers: []string{}, Records: []map[string]any{}}, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]any, len(headers))
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if cell == "" {
				continue
			}
			record[headers[i]] = cell
		}
		if len(record) == 0 {
			continue
		}
		records = append(records, record)
	}

	return Sheet{Name: name, Headers: headers, Records: records}, nil
}
