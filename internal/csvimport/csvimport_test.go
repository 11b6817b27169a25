package csvimport

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseStandardColumns(t *testing.T) {
	input := `date,glucose,blood_pressure,bmi,insulin,age
2024-01-01,95,72,24.5,85,35
2024-01-15,102,75,24.8,90,35
`
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if res.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Rows)
	}

	// Last row wins.
	want := map[string]float64{
		FieldGlucose:       102,
		FieldBloodPressure: 75,
		FieldBMI:           24.8,
		FieldInsulin:       90,
		FieldAge:           35,
	}
	for field, v := range want {
		got, ok := res.Values[field]
		if !ok {
			t.Errorf("field %s missing", field)
			continue
		}
		if got != v {
			t.Errorf("field %s = %v, want %v", field, got, v)
		}
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if want := "Successfully parsed 5 health parameters from 2 rows"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestParseCholesterolPanel(t *testing.T) {
	input := "total_cholesterol,good_cholesterol,bad_cholesterol\n190,55,120\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := map[string]float64{
		FieldCholesterol: 190,
		FieldHDL:         55,
		FieldLDL:         120,
	}
	for field, v := range want {
		if got := res.Values[field]; got != v {
			t.Errorf("field %s = %v, want %v (columns %v)", field, got, v, res.Columns)
		}
	}
}

func TestParseAliasesAndCase(t *testing.T) {
	tests := []struct {
		name   string
		header string
		field  string
	}{
		{"bg alias", "bg", FieldGlucose},
		{"fasting glucose with space", "Fasting Glucose", FieldGlucose},
		{"bp alias", "BP", FieldBloodPressure},
		{"diastolic substring", "diastolic_reading", FieldBloodPressure},
		{"body mass index", "Body Mass Index", FieldBMI},
		{"serum insulin", "serum insulin", FieldInsulin},
		{"patient age", "Patient Age", FieldAge},
		{"triceps", "triceps", FieldSkinThickness},
		{"pregnancy count", "pregnancy_count", FieldPregnancies},
		{"a1c", "A1C", FieldHbA1c},
		{"hemoglobin a1c", "hemoglobin_a1c", FieldHbA1c},
		{"tc alias", "tc", FieldCholesterol},
		{"good cholesterol", "good_cholesterol", FieldHDL},
		{"bad cholesterol", "bad_cholesterol", FieldLDL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.header + "\n42\n"))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if _, ok := res.Values[tt.field]; !ok {
				t.Errorf("header %q not mapped to %s: %v", tt.header, tt.field, res.Values)
			}
		})
	}
}

func TestParseFirstMatchingColumnWins(t *testing.T) {
	input := "glucose,blood_glucose\n110,220\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := res.Values[FieldGlucose]; got != 110 {
		t.Errorf("glucose = %v, want 110 (first matching column)", got)
	}
	if res.Columns[FieldGlucose] != "glucose" {
		t.Errorf("matched column = %q, want glucose", res.Columns[FieldGlucose])
	}
}

func TestParseSkipsNonNumeric(t *testing.T) {
	input := "glucose\nn/a\n105\n?\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := res.Values[FieldGlucose]; got != 105 {
		t.Errorf("glucose = %v, want 105 (last parseable value)", got)
	}
}

func TestParseDerivesBMI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"height in meters", "weight,height\n70,1.75\n", 70 / (1.75 * 1.75)},
		{"height in centimeters", "weight,height\n70,175\n", 70 / (1.75 * 1.75)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, ok := res.Values[FieldBMI]
			if !ok {
				t.Fatal("BMI not derived")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BMI = %v, want %v", got, tt.want)
			}
			if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "derived") {
				t.Errorf("expected derivation warning, got %v", res.Warnings)
			}
		})
	}
}

func TestParseBMIColumnBeatsDerivation(t *testing.T) {
	input := "bmi,weight,height\n27.5,70,175\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := res.Values[FieldBMI]; got != 27.5 {
		t.Errorf("BMI = %v, want 27.5 from explicit column", got)
	}
}

func TestParseRangeWarnings(t *testing.T) {
	input := "glucose,age\n900,150\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("got %d warnings %v, want 2", len(res.Warnings), res.Warnings)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty file", "", ErrEmptyFile},
		{"header only", "glucose,age\n", ErrNoData},
		{"no recognizable columns", "foo,bar\n1,2\n", ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFeaturesFromResult(t *testing.T) {
	input := "glucose,age,pregnancies\n130.7,44.9,2.8\n"
	res, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	f := res.Features()
	if f.Glucose != 130.7 {
		t.Errorf("glucose = %v, want 130.7", f.Glucose)
	}
	// Integer fields are truncated.
	if f.Age != 44 {
		t.Errorf("age = %v, want 44", f.Age)
	}
	if f.Pregnancies != 2 {
		t.Errorf("pregnancies = %v, want 2", f.Pregnancies)
	}
	// Missing fields take defaults.
	if f.BloodPressure != 70 || f.BMI != 25 || f.DiabetesPedigree != 0.5 {
		t.Errorf("defaults not applied: %+v", f)
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	res, err := Parse(strings.NewReader(string(Template())))
	if err != nil {
		t.Fatalf("Parse(Template()): %v", err)
	}
	for _, field := range []string{
		FieldGlucose, FieldBloodPressure, FieldBMI,
		FieldInsulin, FieldAge, FieldWeight, FieldHeight,
	} {
		if _, ok := res.Values[field]; !ok {
			t.Errorf("template missing field %s", field)
		}
	}
}
