// Package csvimport extracts health metrics from user-uploaded CSV
// exports. Column headers in the wild are inconsistent, so each metric
// has a vocabulary of aliases matched exactly or as substrings.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/diawise/diawise/internal/predict"
)

// Canonical field names.
const (
	FieldGlucose       = "glucose"
	FieldBloodPressure = "blood_pressure"
	FieldBMI           = "bmi"
	FieldInsulin       = "insulin"
	FieldAge           = "age"
	FieldWeight        = "weight"
	FieldHeight        = "height"
	FieldSkinThickness = "skin_thickness"
	FieldPregnancies   = "pregnancies"
	FieldCholesterol   = "cholesterol"
	FieldHDL           = "hdl"
	FieldLDL           = "ldl"
	FieldHbA1c         = "hba1c"
)

var (
	ErrEmptyFile = errors.New("csv file is empty")
	ErrNoData    = errors.New("csv file has a header but no data rows")
	ErrNoMatch   = errors.New("no recognizable health columns found")
)

type fieldSpec struct {
	name    string
	aliases []string
}

// fieldSpecs is matched in order; the first column whose header equals
// or contains an alias claims the field.
var fieldSpecs = []fieldSpec{
	{FieldGlucose, []string{"glucose", "blood_glucose", "fasting_glucose", "blood glucose", "fasting glucose", "glu", "bg"}},
	{FieldBloodPressure, []string{"blood_pressure", "bp", "diastolic", "blood pressure", "bp_diastolic", "diastolic_bp"}},
	{FieldBMI, []string{"bmi", "body_mass_index", "body mass index"}},
	{FieldInsulin, []string{"insulin", "insulin_level", "insulin level", "serum_insulin", "serum insulin"}},
	{FieldAge, []string{"age", "patient_age", "patient age"}},
	{FieldWeight, []string{"weight", "wt", "body_weight", "body weight"}},
	{FieldHeight, []string{"height", "ht", "body_height", "body height"}},
	{FieldSkinThickness, []string{"skin_thickness", "skinfold", "triceps", "skin thickness", "skinfold_thickness"}},
	{FieldPregnancies, []string{"pregnancies", "pregnancy", "num_pregnancies", "pregnancy_count"}},
	{FieldCholesterol, []string{"cholesterol", "total_cholesterol", "chol", "tc", "total cholesterol"}},
	{FieldHDL, []string{"hdl", "hdl_cholesterol", "hdl cholesterol", "good_cholesterol"}},
	{FieldLDL, []string{"ldl", "ldl_cholesterol", "ldl cholesterol", "bad_cholesterol"}},
	{FieldHbA1c, []string{"hba1c", "a1c", "hemoglobin_a1c", "glycated_hemoglobin", "glycated hemoglobin"}},
}

type rangeCheck struct {
	field    string
	min, max float64
	label    string
}

var rangeChecks = []rangeCheck{
	{FieldGlucose, 50, 500, "glucose"},
	{FieldBloodPressure, 40, 150, "blood pressure"},
	{FieldBMI, 12, 60, "BMI"},
	{FieldInsulin, 0, 600, "insulin"},
	{FieldAge, 1, 120, "age"},
}

// Result holds everything recognized in one upload.
type Result struct {
	// Values maps canonical field names to the most recent parseable
	// value in the file.
	Values map[string]float64 `json:"values"`
	// Columns maps canonical field names to the CSV header they were
	// read from.
	Columns map[string]string `json:"columns"`
	// Warnings flags implausible values and derivations.
	Warnings []string `json:"warnings,omitempty"`
	// Rows is the number of data rows scanned.
	Rows int `json:"rows"`
	// Message is a human-readable summary of the import.
	Message string `json:"message"`
}

// Parse reads a CSV stream and extracts every recognizable metric. When
// BMI is absent but weight and height are present, BMI is derived.
func Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}

	// Claim one column per field. All exact alias matches resolve before
	// any substring match: "weight" contains the height alias "ht" and
	// "good_cholesterol" contains "cholesterol", so substring matching
	// alone would bind the wrong field.
	colIdx := make(map[string]int)
	colName := make(map[string]string)
	claimed := make(map[int]bool)
	for _, spec := range fieldSpecs {
		if i := exactColumn(cols, spec.aliases, claimed); i >= 0 {
			colIdx[spec.name] = i
			colName[spec.name] = header[i]
			claimed[i] = true
		}
	}
	for _, spec := range fieldSpecs {
		if _, ok := colIdx[spec.name]; ok {
			continue
		}
		if i := substringColumn(cols, spec.aliases, claimed); i >= 0 {
			colIdx[spec.name] = i
			colName[spec.name] = header[i]
			claimed[i] = true
		}
	}
	if len(colIdx) == 0 {
		return nil, ErrNoMatch
	}

	res := &Result{
		Values:  make(map[string]float64),
		Columns: colName,
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", res.Rows+2, err)
		}
		res.Rows++

		for field, i := range colIdx {
			if i >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				continue
			}
			// Later rows overwrite earlier ones; the newest reading wins.
			res.Values[field] = v
		}
	}
	if res.Rows == 0 {
		return nil, ErrNoData
	}

	deriveBMI(res)
	checkRanges(res)
	res.Message = fmt.Sprintf("Successfully parsed %d health parameters from %d rows",
		len(res.Values), res.Rows)
	return res, nil
}

// deriveBMI computes BMI from weight and height when no BMI column was
// present. Heights above 3 are assumed to be centimeters.
func deriveBMI(res *Result) {
	if _, ok := res.Values[FieldBMI]; ok {
		return
	}
	weight, okW := res.Values[FieldWeight]
	height, okH := res.Values[FieldHeight]
	if !okW || !okH || height <= 0 {
		return
	}
	if height > 3 {
		height /= 100
	}
	bmi := weight / (height * height)
	res.Values[FieldBMI] = bmi
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("BMI %.1f derived from weight and height", bmi))
}

func checkRanges(res *Result) {
	for _, c := range rangeChecks {
		v, ok := res.Values[c.field]
		if !ok {
			continue
		}
		if v < c.min || v > c.max {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s value %.1f is outside the plausible range %.0f-%.0f", c.label, v, c.min, c.max))
		}
	}
}

func exactColumn(cols []string, aliases []string, claimed map[int]bool) int {
	for i, col := range cols {
		if claimed[i] {
			continue
		}
		for _, a := range aliases {
			if col == a {
				return i
			}
		}
	}
	return -1
}

func substringColumn(cols []string, aliases []string, claimed map[int]bool) int {
	for i, col := range cols {
		if claimed[i] {
			continue
		}
		for _, a := range aliases {
			if strings.Contains(col, a) {
				return i
			}
		}
	}
	return -1
}

// Features converts the extracted values into a model observation,
// filling every unrecognized field with its default.
func (r *Result) Features() predict.Features {
	f := predict.DefaultFeatures()
	if v, ok := r.Values[FieldPregnancies]; ok {
		f.Pregnancies = float64(int(v))
	}
	if v, ok := r.Values[FieldGlucose]; ok {
		f.Glucose = v
	}
	if v, ok := r.Values[FieldBloodPressure]; ok {
		f.BloodPressure = v
	}
	if v, ok := r.Values[FieldSkinThickness]; ok {
		f.SkinThickness = v
	}
	if v, ok := r.Values[FieldInsulin]; ok {
		f.Insulin = v
	}
	if v, ok := r.Values[FieldBMI]; ok {
		f.BMI = v
	}
	if v, ok := r.Values[FieldAge]; ok {
		f.Age = float64(int(v))
	}
	return f
}

// Template is a sample CSV in the format the importer understands best.
func Template() []byte {
	return []byte(`date,glucose,blood_pressure,bmi,insulin,age,weight,height
2024-01-01,95,72,24.5,85,35,70,175
2024-01-15,102,75,24.8,90,35,70.5,175
2024-02-01,98,71,24.3,82,35,69.8,175
`)
}
