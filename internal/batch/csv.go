// Package batch implements the spreadsheet round-trip: measurements come in
// as CSV rows, every row is generated against the model, and results go back
// out as CSV with the input columns preserved.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/somalabs/somagen/internal/measure"
)

// InputHeader is the canonical template header.
var InputHeader = []string{"age", "sex", "height_cm", "weight_kg", "waist_cm"}

// ResultHeader is the output header: inputs first, then derived and
// generated columns.
var ResultHeader = []string{"age", "sex", "height_cm", "weight_kg", "waist_cm", "bmi", "summary", "error"}

// Row is one parsed input line. Raw holds the source cells projected into
// InputHeader order, whatever order the upload used. When Err is set the
// measurement is invalid and the row is carried through to the output with
// its error.
type Row struct {
	Line        int
	Measurement measure.Measurement
	Raw         []string
	Err         error
}

// Result pairs a row with its generated summary.
type Result struct {
	Row     Row
	Summary string
	Err     error
}

// column aliases accepted in uploaded headers, lowercase
var columnAliases = map[string]string{
	"age":       "age",
	"sex":       "sex",
	"gender":    "sex",
	"height_cm": "height_cm",
	"height":    "height_cm",
	"weight_kg": "weight_kg",
	"weight":    "weight_kg",
	"waist_cm":  "waist_cm",
	"waist":     "waist_cm",
}

// ParseInput reads the uploaded CSV. The header row is required; column
// order is free and names are matched case-insensitively with aliases.
// Invalid rows are returned with Err set, not dropped: the batch loop
// reports them per-row.
func ParseInput(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("batch: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("batch: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			if _, dup := cols[canonical]; dup {
				return nil, fmt.Errorf("batch: duplicate column %q", canonical)
			}
			cols[canonical] = i
		}
	}
	for _, required := range []string{"age", "sex", "height_cm", "weight_kg"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("batch: missing column %q", required)
		}
	}

	var rows []Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("batch: line %d: %w", line, err)
		}

		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		row := Row{Line: line}
		for _, name := range InputHeader {
			row.Raw = append(row.Raw, cell(name))
		}
		row.Measurement, row.Err = measure.FromFields(
			cell("age"), cell("sex"), cell("height_cm"), cell("weight_kg"), cell("waist_cm"),
		)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("batch: no data rows")
	}
	return rows, nil
}

// WriteTemplate emits the canonical header plus one example row.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(InputHeader); err != nil {
		return err
	}
	if err := cw.Write([]string{"34", "female", "168", "62", "74"}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteResults emits the round-trip CSV for processed rows.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader); err != nil {
		return err
	}
	for _, res := range results {
		m := res.Row.Measurement
		record := []string{
			strconv.Itoa(m.Age),
			string(m.Sex),
			formatFloat(m.HeightCM),
			formatFloat(m.WeightKG),
			formatFloat(m.WaistCM),
			formatFloat(m.BMI()),
			res.Summary,
			errString(res.Err),
		}
		if res.Row.Err != nil {
			// invalid input rows carry their raw cells through untouched
			record = rawRecord(res.Row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rawRecord(row Row) []string {
	record := make([]string, len(ResultHeader))
	n := min(len(row.Raw), len(InputHeader))
	copy(record, row.Raw[:n])
	record[len(record)-1] = errString(row.Err)
	return record
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
