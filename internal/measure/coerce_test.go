package measure

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCoerceSex(t *testing.T) {
	t.Parallel()

	cases := map[any]Sex{
		"m":      SexMale,
		"Male":   SexMale,
		" MAN ":  SexMale,
		"f":      SexFemale,
		"FEMALE": SexFemale,
		"woman":  SexFemale,
	}
	for in, want := range cases {
		got, err := CoerceSex(in)
		if err != nil {
			t.Fatalf("CoerceSex(%v): %v", in, err)
		}
		if got != want {
			t.Fatalf("CoerceSex(%v): got %q, want %q", in, got, want)
		}
	}

	for _, in := range []any{"x", "", 3.0, nil} {
		if _, err := CoerceSex(in); err == nil {
			t.Fatalf("CoerceSex(%v): expected error", in)
		}
	}
}

func TestCoerceLength(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want float64
	}{
		{172.0, 172},
		{"172", 172},
		{" 172 cm ", 172},
		{"1.72 m", 172},
		{"1,72m", 172},
		{"68 in", 172.72},
		{"68 inches", 172.72},
		{172, 172},
	}
	for _, tc := range cases {
		got, err := CoerceLength("height_cm", tc.in)
		if err != nil {
			t.Fatalf("CoerceLength(%v): %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("CoerceLength(%v) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}

	for _, in := range []any{"", "tall", "cm", true, nil} {
		if _, err := CoerceLength("height_cm", in); err == nil {
			t.Fatalf("CoerceLength(%v): expected error", in)
		}
	}
}

func TestCoerceWeight(t *testing.T) {
	t.Parallel()

	got, err := CoerceWeight("weight_kg", "160 lb")
	if err != nil {
		t.Fatal(err)
	}
	if got < 72.5 || got > 72.6 {
		t.Fatalf("160 lb: got %v, want ~72.57", got)
	}

	got, err = CoerceWeight("weight_kg", "72,5 kg")
	if err != nil {
		t.Fatal(err)
	}
	if got != 72.5 {
		t.Fatalf("72,5 kg: got %v", got)
	}
}

func TestCoerceAge(t *testing.T) {
	t.Parallel()

	for in, want := range map[any]int{"34": 34, 34.0: 34, 34: 34} {
		got, err := CoerceAge(in)
		if err != nil {
			t.Fatalf("CoerceAge(%v): %v", in, err)
		}
		if got != want {
			t.Fatalf("CoerceAge(%v): got %d", in, got)
		}
	}
	if _, err := CoerceAge(34.5); err == nil {
		t.Fatal("fractional age should be rejected")
	}
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	m, err := FromFields("45", "F", "165cm", "70,0", "88")
	if err != nil {
		t.Fatal(err)
	}
	want := Measurement{Age: 45, Sex: SexFemale, HeightCM: 165, WeightKG: 70, WaistCM: 88}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("FromFields mismatch (-want +got):\n%s", diff)
	}

	// empty waist string is treated as absent
	m, err = FromFields(30.0, "m", 180.0, 75.0, "")
	if err != nil {
		t.Fatal(err)
	}
	if m.WaistCM != 0 {
		t.Fatalf("empty waist: got %v, want 0", m.WaistCM)
	}

	// out-of-range values are rejected, not clamped
	if _, err := FromFields("45", "f", "800", "70", nil); err == nil {
		t.Fatal("expected range error for height 800")
	}
}
