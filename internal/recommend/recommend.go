// Package recommend generates personalized health recommendations for a
// risk assessment, using the Gemini API when a key is configured and a
// rule-based fallback otherwise.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/diawise/diawise/internal/predict"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Item is one actionable recommendation.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Advice is the full recommendation set for one assessment.
type Advice struct {
	Summary         string   `json:"summary"`
	Diet            []Item   `json:"diet_recommendations"`
	Exercise        []Item   `json:"exercise_recommendations"`
	Lifestyle       []Item   `json:"lifestyle_recommendations"`
	Medical         []Item   `json:"medical_advice"`
	WarningSigns    []string `json:"warning_signs"`
	PositiveFactors []string `json:"positive_factors"`
}

const systemInstruction = "You are a health advisor specializing in diabetes " +
	"prevention and management. Provide practical, evidence-based " +
	"recommendations. Always remind users to consult healthcare professionals " +
	"for medical decisions. Respond only with the requested JSON."

// Generator produces advice. With a nil client every request takes the
// rule-based path.
type Generator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New builds a generator backed by the Gemini API. An empty apiKey
// disables the API path entirely.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Generator{model: model, logger: logger}
	if apiKey == "" {
		logger.Info("no Gemini API key configured, using rule-based recommendations")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

// Generate returns advice for one assessment. Any API or parse failure
// degrades to the rule-based fallback rather than surfacing an error.
func (g *Generator) Generate(ctx context.Context, f predict.Features, result predict.Result, factors []predict.RiskFactor) Advice {
	if g.client == nil {
		return Fallback(f, result)
	}

	advice, err := g.generateLLM(ctx, f, result, factors)
	if err != nil {
		g.logger.Warn("llm recommendation failed, using fallback", "error", err)
		return Fallback(f, result)
	}
	return advice
}

func (g *Generator) generateLLM(ctx context.Context, f predict.Features, result predict.Result, factors []predict.RiskFactor) (Advice, error) {
	prompt, err := buildPrompt(f, result, factors)
	if err != nil {
		return Advice{}, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.4),
			MaxOutputTokens:   2048,
		},
	)
	if err != nil {
		return Advice{}, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Advice{}, fmt.Errorf("empty model response")
	}

	var advice Advice
	if err := json.Unmarshal([]byte(text), &advice); err != nil {
		return Advice{}, fmt.Errorf("parse model response: %w", err)
	}
	if advice.Summary == "" {
		return Advice{}, fmt.Errorf("model response missing summary")
	}
	return advice, nil
}

func buildPrompt(f predict.Features, result predict.Result, factors []predict.RiskFactor) (string, error) {
	factorsJSON, err := json.MarshalIndent(factors, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal risk factors: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Based on the following patient health profile, generate personalized health recommendations.

Patient Profile:
- Age: %.0f years
- BMI: %.1f
- Glucose Level: %.1f mg/dL
- Blood Pressure (diastolic): %.1f mmHg
- Insulin Level: %.1f μU/mL
- Pregnancies: %.0f
- Diabetes Pedigree Function: %.2f

Risk Assessment:
- Diabetes Risk Probability: %.1f%%
- Risk Level: %s

Identified Risk Factors:
%s

`,
		f.Age, f.BMI, f.Glucose, f.BloodPressure, f.Insulin,
		f.Pregnancies, f.DiabetesPedigree,
		result.ProbabilityDiabetes*100, result.RiskLevel,
		factorsJSON,
	)

	b.WriteString(`Respond with a JSON object of this exact shape:
{
  "summary": "one-paragraph overall assessment",
  "diet_recommendations": [{"title": "...", "description": "...", "priority": "high|medium|low"}],
  "exercise_recommendations": [{"title": "...", "description": "...", "priority": "high|medium|low"}],
  "lifestyle_recommendations": [{"title": "...", "description": "...", "priority": "high|medium|low"}],
  "medical_advice": [{"title": "...", "description": "...", "priority": "high|medium|low"}],
  "warning_signs": ["symptom to watch for"],
  "positive_factors": ["healthy aspect worth maintaining"]
}`)
	return b.String(), nil
}
