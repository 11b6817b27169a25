package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/diawise/diawise/internal/history"
	"github.com/diawise/diawise/internal/predict"
	"github.com/diawise/diawise/internal/recommend"
)

// Recommender produces advice for an assessment. Satisfied by
// *recommend.Generator.
type Recommender interface {
	Generate(ctx context.Context, f predict.Features, result predict.Result, factors []predict.RiskFactor) recommend.Advice
}

// assessHandler serves risk assessments.
type assessHandler struct {
	predictor   *predict.Predictor
	recommender Recommender
	store       *history.Store // nil disables saving
	logger      *slog.Logger
}

// assessRequest carries one observation. Absent fields take the model
// defaults, so a minimal {"glucose": 120} body is valid.
type assessRequest struct {
	Pregnancies            *int     `json:"pregnancies"`
	Glucose                *float64 `json:"glucose"`
	BloodPressure          *float64 `json:"blood_pressure"`
	SkinThickness          *float64 `json:"skin_thickness"`
	Insulin                *float64 `json:"insulin"`
	BMI                    *float64 `json:"bmi"`
	DiabetesPedigree       *float64 `json:"diabetes_pedigree"`
	Age                    *int     `json:"age"`
	IncludeRecommendations bool     `json:"include_recommendations"`
}

func (req *assessRequest) features() predict.Features {
	f := predict.DefaultFeatures()
	if req.Pregnancies != nil {
		f.Pregnancies = float64(*req.Pregnancies)
	}
	if req.Glucose != nil {
		f.Glucose = *req.Glucose
	}
	if req.BloodPressure != nil {
		f.BloodPressure = *req.BloodPressure
	}
	if req.SkinThickness != nil {
		f.SkinThickness = *req.SkinThickness
	}
	if req.Insulin != nil {
		f.Insulin = *req.Insulin
	}
	if req.BMI != nil {
		f.BMI = *req.BMI
	}
	if req.DiabetesPedigree != nil {
		f.DiabetesPedigree = *req.DiabetesPedigree
	}
	if req.Age != nil {
		f.Age = float64(*req.Age)
	}
	return f
}

type boundsCheck struct {
	name     string
	value    float64
	min, max float64
}

func (req *assessRequest) validate() error {
	f := req.features()
	checks := []boundsCheck{
		{"pregnancies", f.Pregnancies, 0, 20},
		{"glucose", f.Glucose, 0, 500},
		{"blood_pressure", f.BloodPressure, 0, 200},
		{"skin_thickness", f.SkinThickness, 0, 100},
		{"insulin", f.Insulin, 0, 1000},
		{"bmi", f.BMI, 10, 80},
		{"diabetes_pedigree", f.DiabetesPedigree, 0, 3},
		{"age", f.Age, 1, 120},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%s must be between %g and %g", c.name, c.min, c.max)
		}
	}
	return nil
}

type assessResponse struct {
	Result         predict.Result       `json:"result"`
	RiskFactors    []predict.RiskFactor `json:"risk_factors"`
	Recommendation *recommend.Advice    `json:"recommendations,omitempty"`
	PredictionID   int64                `json:"prediction_id,omitempty"`
}

// assess handles POST /api/v1/assess. Anonymous callers get a result;
// authenticated callers also get the assessment saved to their history.
func (h *assessHandler) assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}
	if err := req.validate(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), h.logger)
		return
	}

	f := req.features()
	result := h.predictor.Predict(f)
	factors := h.predictor.RiskFactors(f)

	resp := assessResponse{
		Result:      result,
		RiskFactors: factors,
	}
	if req.IncludeRecommendations && h.recommender != nil {
		advice := h.recommender.Generate(r.Context(), f, result, factors)
		resp.Recommendation = &advice
	}

	if userID, ok := userIDFromContext(r.Context()); ok && h.store != nil {
		id, err := h.savePrediction(r.Context(), userID, f, result, resp.Recommendation)
		if err != nil {
			// The assessment itself succeeded; log and return it anyway.
			h.logger.Error("saving prediction", "error", err, "user_id", userID)
		} else {
			resp.PredictionID = id
		}
	}

	WriteJSON(w, http.StatusOK, resp, h.logger)
}

func (h *assessHandler) savePrediction(ctx context.Context, userID int64, f predict.Features, result predict.Result, advice *recommend.Advice) (int64, error) {
	var recommendations json.RawMessage
	if advice != nil {
		raw, err := json.Marshal(advice)
		if err != nil {
			return 0, fmt.Errorf("marshal recommendations: %w", err)
		}
		recommendations = raw
	}

	return h.store.SavePrediction(ctx, &history.Prediction{
		UserID:           userID,
		Pregnancies:      int(f.Pregnancies),
		Glucose:          f.Glucose,
		BloodPressure:    f.BloodPressure,
		SkinThickness:    f.SkinThickness,
		Insulin:          f.Insulin,
		BMI:              f.BMI,
		DiabetesPedigree: f.DiabetesPedigree,
		Age:              int(f.Age),
		RiskProbability:  result.ProbabilityDiabetes,
		RiskLevel:        result.RiskLevel,
		Recommendations:  recommendations,
	})
}

// featureImportance handles GET /api/v1/model/importance.
func (h *assessHandler) featureImportance(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"importance": h.predictor.FeatureImportance(),
	}, h.logger)
}
