//go:build integration

package history

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diawise/diawise/internal/auth"
	"github.com/diawise/diawise/internal/testutil"
)

func newTestUser(t *testing.T, users *auth.Store, name string) int64 {
	t.Helper()
	u, err := users.Register(context.Background(), name, "", "test-password")
	require.NoError(t, err)
	return u.ID
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestStoreIntegration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	users := auth.NewStore(db.Pool)
	store := NewStore(db.Pool)

	userID := newTestUser(t, users, "frank")
	otherID := newTestUser(t, users, "grace")

	seed := []Prediction{
		{UserID: userID, Pregnancies: 1, Glucose: 95, BloodPressure: 70, BMI: 23,
			DiabetesPedigree: 0.3, Age: 30, RiskProbability: 0.15, RiskLevel: "Low"},
		{UserID: userID, Pregnancies: 2, Glucose: 130, BloodPressure: 82, BMI: 28,
			DiabetesPedigree: 0.4, Age: 31, RiskProbability: 0.45, RiskLevel: "Moderate",
			Recommendations: json.RawMessage(`{"summary":"watch glucose"}`)},
	}

	var ids []int64
	for i := range seed {
		id, err := store.SavePrediction(ctx, &seed[i])
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("list newest first", func(t *testing.T) {
		got, err := store.Predictions(ctx, userID, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[1], got[0].ID)
		assert.Equal(t, "Moderate", got[0].RiskLevel)
		assert.JSONEq(t, `{"summary":"watch glucose"}`, string(got[0].Recommendations))
	})

	t.Run("limit respected", func(t *testing.T) {
		got, err := store.Predictions(ctx, userID, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("by id scoped to owner", func(t *testing.T) {
		p, err := store.PredictionByID(ctx, ids[0], userID)
		require.NoError(t, err)
		assert.InDelta(t, 0.15, p.RiskProbability, 1e-9)

		_, err = store.PredictionByID(ctx, ids[0], otherID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("trend ascending in percent", func(t *testing.T) {
		pts, err := store.Trend(ctx, userID, 0)
		require.NoError(t, err)
		require.Len(t, pts, 2)
		assert.True(t, !pts[0].Date.After(pts[1].Date), "trend must be oldest first")
		assert.InDelta(t, 15, pts[0].RiskPercent, 1e-9)
		assert.InDelta(t, 45, pts[1].RiskPercent, 1e-9)
		assert.InDelta(t, 95, pts[0].Glucose, 1e-9)
	})

	t.Run("stats", func(t *testing.T) {
		st, err := store.Stats(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, st.TotalPredictions)
		require.NotNil(t, st.LatestRisk)
		require.NotNil(t, st.FirstRisk)
		require.NotNil(t, st.RiskChange)
		assert.InDelta(t, 45, *st.LatestRisk, 1e-9)
		assert.InDelta(t, 15, *st.FirstRisk, 1e-9)
		assert.InDelta(t, 30, *st.RiskChange, 1e-9)
		assert.Equal(t, "Moderate", st.LatestRiskLevel)
	})

	t.Run("stats empty history", func(t *testing.T) {
		st, err := store.Stats(ctx, otherID)
		require.NoError(t, err)
		assert.Equal(t, 0, st.TotalPredictions)
		assert.Nil(t, st.LatestRisk)
		assert.Nil(t, st.RiskChange)
	})

	t.Run("health logs", func(t *testing.T) {
		_, err := store.SaveLog(ctx, &HealthLog{
			UserID: userID, LogType: "weight",
			Weight: floatPtr(82.5), Height: floatPtr(1.78), BMI: floatPtr(26.0),
		})
		require.NoError(t, err)

		_, err = store.SaveLog(ctx, &HealthLog{
			UserID: userID, LogType: "exercise",
			ExerciseMinutes: intPtr(45), ExerciseType: "running",
			CaloriesBurned: intPtr(400), Notes: "evening run",
		})
		require.NoError(t, err)

		all, err := store.Logs(ctx, userID, "", 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "exercise", all[0].LogType)

		weightOnly, err := store.Logs(ctx, userID, "weight", 0)
		require.NoError(t, err)
		require.Len(t, weightOnly, 1)
		require.NotNil(t, weightOnly[0].Weight)
		assert.InDelta(t, 82.5, *weightOnly[0].Weight, 1e-9)
		assert.Nil(t, weightOnly[0].ExerciseMinutes)
	})
}
