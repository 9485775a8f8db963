package oilportal

import (
	"bytes"
	"encoding/csv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// ExportRow is one line of the portal's berthing export in its stock layout.
type ExportRow struct {
	TankerName string `csv:"Tanker Name"`
	Pier       string `csv:"Pier"`
	POB        string `csv:"POB"`
	TLB        string `csv:"TLB"`
}

// EncodeExport renders rows the way the portal exports them: header first,
// delimiter-separated.
func EncodeExport(rows []ExportRow, delimiter rune) ([]byte, error) {
	if delimiter == 0 {
		delimiter = ';'
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		return nil, errors.Wrap(err, "encode export")
	}
	return buf.Bytes(), nil
}
