// Package history persists prediction results and health logs per user
// and derives trend and summary statistics from them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultListLimit caps how many predictions a listing returns.
const DefaultListLimit = 50

// Default lookback windows in days.
const (
	DefaultTrendDays = 90
	DefaultLogDays   = 30
)

// ErrNotFound is returned when a row does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("record not found")

// Prediction is one saved risk assessment.
type Prediction struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"-"`
	Pregnancies      int             `json:"pregnancies"`
	Glucose          float64         `json:"glucose"`
	BloodPressure    float64         `json:"blood_pressure"`
	SkinThickness    float64         `json:"skin_thickness"`
	Insulin          float64         `json:"insulin"`
	BMI              float64         `json:"bmi"`
	DiabetesPedigree float64         `json:"diabetes_pedigree"`
	Age              int             `json:"age"`
	RiskProbability  float64         `json:"risk_probability"`
	RiskLevel        string          `json:"risk_level"`
	Recommendations  json.RawMessage `json:"recommendations,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// HealthLog is one daily tracking entry. Numeric fields are pointers
// because every metric is optional.
type HealthLog struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"-"`
	LogType          string    `json:"log_type"`
	Weight           *float64  `json:"weight,omitempty"`
	Height           *float64  `json:"height,omitempty"`
	BMI              *float64  `json:"bmi,omitempty"`
	CaloriesConsumed *int      `json:"calories_consumed,omitempty"`
	CaloriesBurned   *int      `json:"calories_burned,omitempty"`
	ExerciseMinutes  *int      `json:"exercise_minutes,omitempty"`
	ExerciseType     string    `json:"exercise_type,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TrendPoint is one assessment projected onto the trend chart.
type TrendPoint struct {
	Date          time.Time `json:"date"`
	RiskPercent   float64   `json:"risk_percent"`
	Glucose       float64   `json:"glucose"`
	BMI           float64   `json:"bmi"`
	BloodPressure float64   `json:"blood_pressure"`
}

// Stats summarizes a user's assessment history. Latest/First fields are
// nil when no predictions exist; RiskChange requires at least two.
type Stats struct {
	TotalPredictions int        `json:"total_predictions"`
	LatestRisk       *float64   `json:"latest_risk,omitempty"`
	LatestRiskLevel  string     `json:"latest_risk_level,omitempty"`
	LatestDate       *time.Time `json:"latest_date,omitempty"`
	FirstRisk        *float64   `json:"first_risk,omitempty"`
	FirstDate        *time.Time `json:"first_date,omitempty"`
	RiskChange       *float64   `json:"risk_change,omitempty"`
}

// Store persists history rows in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SavePrediction inserts one assessment and returns its id.
func (s *Store) SavePrediction(ctx context.Context, p *Prediction) (int64, error) {
	var recommendations any
	if len(p.Recommendations) > 0 {
		recommendations = p.Recommendations
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO prediction_history (
			user_id, pregnancies, glucose, blood_pressure, skin_thickness,
			insulin, bmi, diabetes_pedigree, age,
			risk_probability, risk_level, recommendations
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.UserID, p.Pregnancies, p.Glucose, p.BloodPressure, p.SkinThickness,
		p.Insulin, p.BMI, p.DiabetesPedigree, p.Age,
		p.RiskProbability, p.RiskLevel, recommendations,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save prediction: %w", err)
	}
	return id, nil
}

// Predictions lists a user's assessments, newest first. A limit of zero
// or less means DefaultListLimit.
func (s *Store) Predictions(ctx context.Context, userID int64, limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, pregnancies, glucose, blood_pressure, skin_thickness,
			insulin, bmi, diabetes_pedigree, age,
			risk_probability, risk_level, recommendations, created_at
		FROM prediction_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return out, nil
}

// PredictionByID loads one assessment, scoped to its owner.
func (s *Store) PredictionByID(ctx context.Context, id, userID int64) (*Prediction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, pregnancies, glucose, blood_pressure, skin_thickness,
			insulin, bmi, diabetes_pedigree, age,
			risk_probability, risk_level, recommendations, created_at
		FROM prediction_history
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load prediction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("load prediction: %w", err)
		}
		return nil, ErrNotFound
	}
	p, err := scanPrediction(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPrediction(row pgx.Row) (Prediction, error) {
	var p Prediction
	err := row.Scan(
		&p.ID, &p.UserID, &p.Pregnancies, &p.Glucose, &p.BloodPressure,
		&p.SkinThickness, &p.Insulin, &p.BMI, &p.DiabetesPedigree, &p.Age,
		&p.RiskProbability, &p.RiskLevel, &p.Recommendations, &p.CreatedAt,
	)
	if err != nil {
		return Prediction{}, fmt.Errorf("scan prediction: %w", err)
	}
	return p, nil
}

// Trend returns one point per assessment in the lookback window,
// oldest first, with probabilities expressed as percentages.
func (s *Store) Trend(ctx context.Context, userID int64, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}

	rows, err := s.pool.Query(ctx, `
		SELECT created_at, risk_probability, glucose, bmi, blood_pressure
		FROM prediction_history
		WHERE user_id = $1 AND created_at >= now() - make_interval(days => $2)
		ORDER BY created_at ASC`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("load trend: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var (
			pt   TrendPoint
			prob float64
		)
		if err := rows.Scan(&pt.Date, &prob, &pt.Glucose, &pt.BMI, &pt.BloodPressure); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		pt.RiskPercent = prob * 100
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load trend: %w", err)
	}
	return out, nil
}

// SaveLog inserts one health log entry and returns its id.
func (s *Store) SaveLog(ctx context.Context, l *HealthLog) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO health_logs (
			user_id, log_type, weight, height, bmi,
			calories_consumed, calories_burned, exercise_minutes,
			exercise_type, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''))
		RETURNING id`,
		l.UserID, l.LogType, l.Weight, l.Height, l.BMI,
		l.CaloriesConsumed, l.CaloriesBurned, l.ExerciseMinutes,
		l.ExerciseType, l.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save health log: %w", err)
	}
	return id, nil
}

// Logs lists a user's health log entries within the lookback window,
// newest first, optionally filtered by log type.
func (s *Store) Logs(ctx context.Context, userID int64, logType string, days int) ([]HealthLog, error) {
	if days <= 0 {
		days = DefaultLogDays
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, log_type, weight, height, bmi,
			calories_consumed, calories_burned, exercise_minutes,
			COALESCE(exercise_type, ''), COALESCE(notes, ''), created_at
		FROM health_logs
		WHERE user_id = $1
			AND created_at >= now() - make_interval(days => $2)
			AND ($3 = '' OR log_type = $3)
		ORDER BY created_at DESC`,
		userID, days, logType,
	)
	if err != nil {
		return nil, fmt.Errorf("list health logs: %w", err)
	}
	defer rows.Close()

	var out []HealthLog
	for rows.Next() {
		var l HealthLog
		err := rows.Scan(
			&l.ID, &l.UserID, &l.LogType, &l.Weight, &l.Height, &l.BMI,
			&l.CaloriesConsumed, &l.CaloriesBurned, &l.ExerciseMinutes,
			&l.ExerciseType, &l.Notes, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan health log: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list health logs: %w", err)
	}
	return out, nil
}

// Stats summarizes the user's full assessment history. Risk values are
// percentages; RiskChange is latest minus first.
func (s *Store) Stats(ctx context.Context, userID int64) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM prediction_history WHERE user_id = $1`,
		userID,
	).Scan(&st.TotalPredictions)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	if st.TotalPredictions == 0 {
		return &st, nil
	}

	var (
		latestProb float64
		latestDate time.Time
	)
	err = s.pool.QueryRow(ctx, `
		SELECT risk_probability, risk_level, created_at
		FROM prediction_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		userID,
	).Scan(&latestProb, &st.LatestRiskLevel, &latestDate)
	if err != nil {
		return nil, fmt.Errorf("load latest prediction: %w", err)
	}
	latest := latestProb * 100
	st.LatestRisk = &latest
	st.LatestDate = &latestDate

	var (
		firstProb float64
		firstDate time.Time
	)
	err = s.pool.QueryRow(ctx, `
		SELECT risk_probability, created_at
		FROM prediction_history
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT 1`,
		userID,
	).Scan(&firstProb, &firstDate)
	if err != nil {
		return nil, fmt.Errorf("load first prediction: %w", err)
	}
	first := firstProb * 100
	st.FirstRisk = &first
	st.FirstDate = &firstDate

	if st.TotalPredictions > 1 {
		change := latest - first
		st.RiskChange = &change
	}
	return &st, nil
}
