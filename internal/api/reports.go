package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/diawise/diawise/internal/auth"
	"github.com/diawise/diawise/internal/predict"
	"github.com/diawise/diawise/internal/recommend"
	"github.com/diawise/diawise/internal/report"
)

// reportHandler renders ad-hoc PDF reports from a request body, without
// touching saved history.
type reportHandler struct {
	predictor   *predict.Predictor
	recommender Recommender
	users       *auth.Store
	logger      *slog.Logger
}

// generate handles POST /api/v1/report. The body is the same shape as
// an assessment request; the response is the rendered PDF.
func (h *reportHandler) generate(w http.ResponseWriter, r *http.Request) {
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

	var advice *recommend.Advice
	if h.recommender != nil {
		a := h.recommender.Generate(r.Context(), f, result, factors)
		advice = &a
	}

	username := "Guest"
	if userID, ok := userIDFromContext(r.Context()); ok {
		user, err := h.users.UserByID(r.Context(), userID)
		switch {
		case err == nil:
			username = user.Username
		case errors.Is(err, auth.ErrUserNotFound):
			// stale cookie, keep the guest label
		default:
			h.logger.Error("loading user for report", "error", err, "user_id", userID)
		}
	}

	pdf, err := report.Generate(report.Input{
		Username:  username,
		Features:  f,
		Result:    result,
		Advice:    advice,
		Generated: time.Now(),
	})
	if err != nil {
		h.logger.Error("generating report", "error", err)
		WriteError(w, http.StatusInternalServerError, "report_failed", "failed to generate report", h.logger)
		return
	}

	writePDF(w, "risk-report.pdf", pdf)
}
