// Package report renders a risk assessment as a downloadable PDF.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/diawise/diawise/internal/predict"
	"github.com/diawise/diawise/internal/recommend"
)

const (
	maxItemsPerSection = 3
	maxWarningSigns    = 5
)

const disclaimer = "IMPORTANT DISCLAIMER: This report is generated by a " +
	"statistical screening tool and does not constitute a medical diagnosis. " +
	"The risk assessment is based on a predictive model and should be " +
	"interpreted only as an indication. Always consult a qualified healthcare " +
	"professional before making any medical decisions or changes to your " +
	"treatment, diet, or exercise routine."

// Input is everything one report needs.
type Input struct {
	Username  string
	Features  predict.Features
	Result    predict.Result
	Advice    *recommend.Advice
	Generated time.Time
}

// Generate renders the report and returns the PDF bytes.
func Generate(in Input) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Diabetes Risk Assessment Report", false)
	doc.AddPage()

	writeHeader(doc, in)
	writeSummaryTable(doc, in.Result)
	writeParametersTable(doc, tr, in.Features)
	if in.Advice != nil {
		writeRecommendations(doc, tr, in.Advice)
		writeWarningSigns(doc, tr, in.Advice.WarningSigns)
	}
	writeDisclaimer(doc)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(doc *fpdf.Fpdf, in Input) {
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "Diabetes Risk Assessment Report", "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 6, fmt.Sprintf("Generated for: %s", in.Username), "", 1, "C", false, 0, "")

	when := in.Generated
	if when.IsZero() {
		when = time.Now()
	}
	doc.CellFormat(0, 6, when.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	doc.Ln(4)
}

func writeSummaryTable(doc *fpdf.Fpdf, r predict.Result) {
	sectionTitle(doc, "Risk Assessment Summary")

	rows := [][2]string{
		{"Risk Level", r.RiskLevel},
		{"Risk Probability", fmt.Sprintf("%.1f%%", r.ProbabilityDiabetes*100)},
		{"No Diabetes Probability", fmt.Sprintf("%.1f%%", r.ProbabilityNoDiabetes*100)},
	}
	writeTable(doc, rows)
}

func writeParametersTable(doc *fpdf.Fpdf, tr func(string) string, f predict.Features) {
	sectionTitle(doc, "Health Parameters")

	rows := [][2]string{
		{"Age", fmt.Sprintf("%.0f years", f.Age)},
		{"BMI", fmt.Sprintf("%.1f (%s)", f.BMI, bmiCategory(f.BMI))},
		{"Glucose Level", fmt.Sprintf("%.1f mg/dL (%s)", f.Glucose, glucoseStatus(f.Glucose))},
		{"Blood Pressure (diastolic)", fmt.Sprintf("%.1f mmHg", f.BloodPressure)},
		{"Insulin Level", tr(fmt.Sprintf("%.1f μU/mL", f.Insulin))},
		{"Family History Score", fmt.Sprintf("%.2f", f.DiabetesPedigree)},
	}
	writeTable(doc, rows)
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

func glucoseStatus(glucose float64) string {
	switch {
	case glucose < 100:
		return "Normal"
	case glucose < 126:
		return "Pre-diabetic Range"
	default:
		return "Diabetic Range"
	}
}

func writeRecommendations(doc *fpdf.Fpdf, tr func(string) string, advice *recommend.Advice) {
	sectionTitle(doc, "Personalized Recommendations")

	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, tr(advice.Summary), "", "L", false)
	doc.Ln(2)

	sections := []struct {
		title string
		items []recommend.Item
	}{
		{"Diet", advice.Diet},
		{"Exercise", advice.Exercise},
		{"Lifestyle", advice.Lifestyle},
		{"Medical", advice.Medical},
	}

	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 7, s.title, "", 1, "L", false, 0, "")

		doc.SetFont("Helvetica", "", 10)
		items := s.items
		if len(items) > maxItemsPerSection {
			items = items[:maxItemsPerSection]
		}
		for _, it := range items {
			line := fmt.Sprintf("[%s] %s: %s", priorityLabel(it.Priority), it.Title, it.Description)
			doc.MultiCell(0, 5, tr(line), "", "L", false)
		}
		doc.Ln(2)
	}
}

func priorityLabel(priority string) string {
	switch priority {
	case recommend.PriorityHigh:
		return "HIGH"
	case recommend.PriorityMedium:
		return "MEDIUM"
	case recommend.PriorityLow:
		return "LOW"
	default:
		return "INFO"
	}
}

func writeWarningSigns(doc *fpdf.Fpdf, tr func(string) string, signs []string) {
	if len(signs) == 0 {
		return
	}
	sectionTitle(doc, "Warning Signs to Watch For")

	doc.SetFont("Helvetica", "", 10)
	if len(signs) > maxWarningSigns {
		signs = signs[:maxWarningSigns]
	}
	for _, s := range signs {
		doc.MultiCell(0, 5, tr("- "+s), "", "L", false)
	}
	doc.Ln(2)
}

func writeDisclaimer(doc *fpdf.Fpdf) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(100, 100, 100)
	doc.MultiCell(0, 4, disclaimer, "", "L", false)
	doc.SetTextColor(0, 0, 0)
}

func sectionTitle(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
}

func writeTable(doc *fpdf.Fpdf, rows [][2]string) {
	doc.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		doc.SetFillColor(240, 240, 240)
		doc.CellFormat(70, 7, row[0], "1", 0, "L", true, 0, "")
		doc.CellFormat(70, 7, row[1], "1", 1, "L", false, 0, "")
	}
	doc.Ln(3)
}
