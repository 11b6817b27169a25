package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/diawise/diawise/internal/csvimport"
	"github.com/diawise/diawise/internal/predict"
)

// maxUploadBytes caps CSV uploads at 2 MiB.
const maxUploadBytes = 2 << 20

// importHandler serves CSV uploads and the sample template.
type importHandler struct {
	predictor *predict.Predictor
	logger    *slog.Logger
}

// upload handles POST /api/v1/import. Accepts multipart form data with
// a "file" part, or a raw text/csv body. Returns the extracted values,
// the observation they map to, and a risk assessment of that
// observation.
func (h *importHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	reader := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		reader = file
	}

	res, err := csvimport.Parse(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "csv file exceeds the upload limit", h.logger)
		case errors.Is(err, csvimport.ErrEmptyFile),
			errors.Is(err, csvimport.ErrNoData),
			errors.Is(err, csvimport.ErrNoMatch):
			WriteError(w, http.StatusBadRequest, "invalid_csv", err.Error(), h.logger)
		default:
			WriteError(w, http.StatusBadRequest, "invalid_csv", "could not parse csv file", h.logger)
		}
		return
	}

	f := res.Features()
	result := h.predictor.Predict(f)

	WriteJSON(w, http.StatusOK, map[string]any{
		"import":       res,
		"features":     featureMap(f),
		"result":       result,
		"risk_factors": h.predictor.RiskFactors(f),
	}, h.logger)
}

// featureMap renders an observation with API field names.
func featureMap(f predict.Features) map[string]float64 {
	return map[string]float64{
		"pregnancies":       f.Pregnancies,
		"glucose":           f.Glucose,
		"blood_pressure":    f.BloodPressure,
		"skin_thickness":    f.SkinThickness,
		"insulin":           f.Insulin,
		"bmi":               f.BMI,
		"diabetes_pedigree": f.DiabetesPedigree,
		"age":               f.Age,
	}
}

// template handles GET /api/v1/import/template, serving a sample CSV.
func (h *importHandler) template(w http.ResponseWriter, _ *http.Request) {
	body := csvimport.Template()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Disposition", `attachment; filename="health-data-template.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
