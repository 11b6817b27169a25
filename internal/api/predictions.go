package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/diawise/diawise/internal/auth"
	"github.com/diawise/diawise/internal/history"
	"github.com/diawise/diawise/internal/predict"
	"github.com/diawise/diawise/internal/recommend"
	"github.com/diawise/diawise/internal/report"
)

const (
	maxListLimit = 200
	maxTrendDays = 365
)

// predictionHandler serves saved assessments, trends, stats, and health
// logs. All routes require a logged-in user.
type predictionHandler struct {
	store  *history.Store
	users  *auth.Store
	logger *slog.Logger
}

// list handles GET /api/v1/predictions.
func (h *predictionHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	limit := min(parseIntParam(r, "limit", history.DefaultListLimit), maxListLimit)
	items, err := h.store.Predictions(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("listing predictions", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list predictions", h.logger)
		return
	}
	if items == nil {
		items = []history.Prediction{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	}, h.logger)
}

// get handles GET /api/v1/predictions/{id}.
func (h *predictionHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	p, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, p, h.logger)
}

// trend handles GET /api/v1/predictions/trend?days=N.
func (h *predictionHandler) trend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	days := min(parseIntParam(r, "days", history.DefaultTrendDays), maxTrendDays)
	points, err := h.store.Trend(r.Context(), userID, days)
	if err != nil {
		h.logger.Error("loading trend", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "trend_failed", "failed to load trend", h.logger)
		return
	}
	if points == nil {
		points = []history.TrendPoint{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"points": points,
	}, h.logger)
}

// stats handles GET /api/v1/predictions/stats.
func (h *predictionHandler) stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	st, err := h.store.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading stats", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to load stats", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, st, h.logger)
}

// downloadReport handles GET /api/v1/predictions/{id}/report as a PDF
// regenerated from the saved assessment.
func (h *predictionHandler) downloadReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	p, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	user, err := h.users.UserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading user for report", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "report_failed", "failed to generate report", h.logger)
		return
	}

	var advice *recommend.Advice
	if len(p.Recommendations) > 0 {
		advice = new(recommend.Advice)
		if err := json.Unmarshal(p.Recommendations, advice); err != nil {
			// Saved recommendations are best effort; render without them.
			h.logger.Warn("decoding saved recommendations", "error", err, "prediction_id", p.ID)
			advice = nil
		}
	}

	pdf, err := report.Generate(report.Input{
		Username: user.Username,
		Features: predict.Features{
			Pregnancies:      float64(p.Pregnancies),
			Glucose:          p.Glucose,
			BloodPressure:    p.BloodPressure,
			SkinThickness:    p.SkinThickness,
			Insulin:          p.Insulin,
			BMI:              p.BMI,
			DiabetesPedigree: p.DiabetesPedigree,
			Age:              float64(p.Age),
		},
		Result: predict.Result{
			Diabetic:              p.RiskProbability >= 0.5,
			ProbabilityDiabetes:   p.RiskProbability,
			ProbabilityNoDiabetes: 1 - p.RiskProbability,
			RiskLevel:             p.RiskLevel,
		},
		Advice:    advice,
		Generated: p.CreatedAt,
	})
	if err != nil {
		h.logger.Error("generating report", "error", err, "prediction_id", p.ID)
		WriteError(w, http.StatusInternalServerError, "report_failed", "failed to generate report", h.logger)
		return
	}

	writePDF(w, fmt.Sprintf("risk-report-%d.pdf", p.ID), pdf)
}

// loadOwned parses {id} and loads the prediction scoped to the caller.
func (h *predictionHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID int64) (*history.Prediction, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid prediction ID", h.logger)
		return nil, false
	}

	p, err := h.store.PredictionByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "prediction not found", h.logger)
			return nil, false
		}
		h.logger.Error("loading prediction", "error", err, "prediction_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to load prediction", h.logger)
		return nil, false
	}
	return p, true
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// logRequest is the POST /api/v1/health-logs body.
type logRequest struct {
	LogType          string   `json:"log_type"`
	Weight           *float64 `json:"weight"`
	Height           *float64 `json:"height"`
	BMI              *float64 `json:"bmi"`
	CaloriesConsumed *int     `json:"calories_consumed"`
	CaloriesBurned   *int     `json:"calories_burned"`
	ExerciseMinutes  *int     `json:"exercise_minutes"`
	ExerciseType     string   `json:"exercise_type"`
	Notes            string   `json:"notes"`
}

// createLog handles POST /api/v1/health-logs.
func (h *predictionHandler) createLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req logRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}
	if req.LogType == "" {
		WriteError(w, http.StatusBadRequest, "log_type_required", "log_type is required", h.logger)
		return
	}

	entry := &history.HealthLog{
		UserID:           userID,
		LogType:          req.LogType,
		Weight:           req.Weight,
		Height:           req.Height,
		BMI:              req.BMI,
		CaloriesConsumed: req.CaloriesConsumed,
		CaloriesBurned:   req.CaloriesBurned,
		ExerciseMinutes:  req.ExerciseMinutes,
		ExerciseType:     req.ExerciseType,
		Notes:            req.Notes,
	}

	// Derive BMI when weight and height are given but BMI is not.
	if entry.BMI == nil && entry.Weight != nil && entry.Height != nil && *entry.Height > 0 {
		height := *entry.Height
		if height > 3 {
			height /= 100
		}
		bmi := *entry.Weight / (height * height)
		entry.BMI = &bmi
	}

	id, err := h.store.SaveLog(r.Context(), entry)
	if err != nil {
		h.logger.Error("saving health log", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "save_failed", "failed to save health log", h.logger)
		return
	}
	entry.ID = id
	entry.CreatedAt = time.Now()

	WriteJSON(w, http.StatusCreated, entry, h.logger)
}

// listLogs handles GET /api/v1/health-logs?type=X&days=N.
func (h *predictionHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	logType := r.URL.Query().Get("type")
	days := min(parseIntParam(r, "days", history.DefaultLogDays), maxTrendDays)

	items, err := h.store.Logs(r.Context(), userID, logType, days)
	if err != nil {
		h.logger.Error("listing health logs", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list health logs", h.logger)
		return
	}
	if items == nil {
		items = []history.HealthLog{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	}, h.logger)
}
