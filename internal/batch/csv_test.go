package batch

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/somalabs/somagen/internal/measure"
)

func TestParseInput(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"age,sex,height_cm,weight_kg,waist_cm",
		"34,female,168,62,74",
		"50,m,180,95,",
	}, "\n")

	rows, err := ParseInput(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d", len(rows))
	}
	want := measure.Measurement{Age: 34, Sex: measure.SexFemale, HeightCM: 168, WeightKG: 62, WaistCM: 74}
	if diff := cmp.Diff(want, rows[0].Measurement); diff != "" {
		t.Fatalf("row 0 mismatch (-want +got):\n%s", diff)
	}
	if rows[1].Measurement.WaistCM != 0 {
		t.Fatalf("empty waist cell should stay zero: %+v", rows[1].Measurement)
	}
}

func TestParseInputReordersAndAliases(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"Weight,HEIGHT,Gender,age",
		"70 kg,1.72 m,F,45",
	}, "\n")

	rows, err := ParseInput(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	m := rows[0].Measurement
	if m.Age != 45 || m.Sex != measure.SexFemale || m.HeightCM != 172 || m.WeightKG != 70 {
		t.Fatalf("aliased columns misparsed: %+v", m)
	}
}

// A bad row from a reordered upload must still echo its cells under the
// canonical output columns, not in the upload's column order.
func TestWriteResultsReorderedBadRow(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"weight,height,gender,age",
		"62,168,female,not-a-number",
	}, "\n")

	rows, err := ParseInput(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Err == nil {
		t.Fatal("row must be invalid")
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, []Result{{Row: rows[0]}}); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	got := records[1]
	if got[0] != "not-a-number" || got[1] != "female" || got[2] != "168" || got[3] != "62" {
		t.Fatalf("raw cells not under canonical columns: %v", got)
	}
	if got[7] == "" {
		t.Fatalf("error column empty: %v", got)
	}
}

func TestParseInputBadRowsSurvive(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"age,sex,height_cm,weight_kg",
		"34,female,168,62",
		"not-a-number,female,168,62",
	}, "\n")

	rows, err := ParseInput(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Err != nil {
		t.Fatalf("valid row flagged: %v", rows[0].Err)
	}
	if rows[1].Err == nil {
		t.Fatal("invalid row must carry its error")
	}
}

func TestParseInputRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          "",
		"missing column": "age,sex,height_cm\n34,f,168",
		"no data rows":   "age,sex,height_cm,weight_kg",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseInput(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatal(err)
	}
	rows, err := ParseInput(&buf)
	if err != nil {
		t.Fatalf("template must parse as input: %v", err)
	}
	if rows[0].Err != nil {
		t.Fatalf("template example row invalid: %v", rows[0].Err)
	}
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	m := measure.Measurement{Age: 34, Sex: measure.SexFemale, HeightCM: 168, WeightKG: 62, WaistCM: 74}
	errParse := errors.New("age: cannot parse")
	results := []Result{
		{Row: Row{Line: 2, Measurement: m}, Summary: "A healthy profile."},
		{Row: Row{Line: 3, Raw: []string{"abc", "f", "168", "62"}, Err: errParse}},
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, results); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ResultHeader, records[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if records[1][6] != "A healthy profile." || records[1][7] != "" {
		t.Fatalf("good row: %v", records[1])
	}
	if records[2][0] != "abc" || records[2][7] == "" {
		t.Fatalf("bad row must keep raw cells and carry the error: %v", records[2])
	}
}
