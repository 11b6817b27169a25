package recommend

import "github.com/diawise/diawise/internal/predict"

// Fallback builds advice from fixed rule tables. It needs no network and
// never fails, which makes it the floor the LLM path degrades to.
func Fallback(f predict.Features, result predict.Result) Advice {
	return Advice{
		Summary:         fallbackSummary(result.RiskLevel),
		Diet:            fallbackDiet(f),
		Exercise:        fallbackExercise(),
		Lifestyle:       fallbackLifestyle(),
		Medical:         fallbackMedical(result.RiskLevel),
		WarningSigns:    fallbackWarningSigns(),
		PositiveFactors: positiveFactors(f),
	}
}

func fallbackSummary(riskLevel string) string {
	switch riskLevel {
	case predict.RiskLow:
		return "Your diabetes risk assessment shows a low risk level. " +
			"Maintaining your current healthy habits will help keep it that way."
	case predict.RiskModerate:
		return "Your diabetes risk assessment shows a moderate risk level. " +
			"Some lifestyle adjustments now can significantly reduce your future risk."
	case predict.RiskHigh:
		return "Your diabetes risk assessment shows a high risk level. " +
			"We recommend taking proactive steps and consulting a healthcare provider."
	default:
		return "Your diabetes risk assessment shows a very high risk level. " +
			"Please consult a healthcare provider promptly to discuss prevention and screening."
	}
}

func fallbackDiet(f predict.Features) []Item {
	var items []Item
	if f.BMI > 25 {
		items = append(items, Item{
			Title:       "Calorie Control",
			Description: "Aim for a moderate calorie deficit to reach a healthy weight. Even 5-7% weight loss substantially reduces diabetes risk.",
			Priority:    PriorityHigh,
		})
	}
	return append(items,
		Item{
			Title:       "Increase Fiber Intake",
			Description: "Eat more vegetables, legumes, and whole grains. Fiber slows glucose absorption and improves insulin sensitivity.",
			Priority:    PriorityHigh,
		},
		Item{
			Title:       "Choose Complex Carbohydrates",
			Description: "Replace refined carbohydrates with whole-grain alternatives to avoid blood sugar spikes.",
			Priority:    PriorityMedium,
		},
		Item{
			Title:       "Limit Sugary Beverages",
			Description: "Replace sodas and sweetened drinks with water, unsweetened tea, or coffee.",
			Priority:    PriorityHigh,
		},
	)
}

func fallbackExercise() []Item {
	return []Item{
		{
			Title:       "Regular Aerobic Exercise",
			Description: "Aim for at least 150 minutes of moderate aerobic activity per week, such as brisk walking, cycling, or swimming.",
			Priority:    PriorityHigh,
		},
		{
			Title:       "Strength Training",
			Description: "Include resistance exercise twice a week. Muscle mass improves glucose uptake.",
			Priority:    PriorityMedium,
		},
		{
			Title:       "Daily Movement",
			Description: "Break up long sitting periods with short walks. Even light activity after meals helps control blood sugar.",
			Priority:    PriorityMedium,
		},
	}
}

func fallbackLifestyle() []Item {
	return []Item{
		{
			Title:       "Quality Sleep",
			Description: "Target 7-9 hours of sleep per night. Poor sleep impairs glucose metabolism and increases appetite.",
			Priority:    PriorityHigh,
		},
		{
			Title:       "Stress Management",
			Description: "Chronic stress raises cortisol and blood sugar. Consider meditation, breathing exercises, or regular downtime.",
			Priority:    PriorityMedium,
		},
		{
			Title:       "Regular Monitoring",
			Description: "Track your weight, activity, and glucose readings over time to notice trends early.",
			Priority:    PriorityMedium,
		},
	}
}

func fallbackMedical(riskLevel string) []Item {
	var items []Item
	if riskLevel == predict.RiskHigh || riskLevel == predict.RiskVeryHigh {
		items = append(items,
			Item{
				Title:       "Schedule a Doctor's Appointment",
				Description: "Discuss your risk assessment with a healthcare provider and ask about formal diabetes screening.",
				Priority:    PriorityHigh,
			},
			Item{
				Title:       "Request HbA1c Test",
				Description: "An HbA1c test measures your average blood sugar over the past three months and confirms your risk status.",
				Priority:    PriorityHigh,
			},
		)
	} else {
		items = append(items, Item{
			Title:       "Annual Health Check-up",
			Description: "Keep up with yearly physical exams including fasting glucose screening.",
			Priority:    PriorityMedium,
		})
	}
	return append(items, Item{
		Title:       "Know Your Numbers",
		Description: "Keep a record of your blood pressure, glucose, and cholesterol values between visits.",
		Priority:    PriorityMedium,
	})
}

func fallbackWarningSigns() []string {
	return []string{
		"Increased thirst and frequent urination",
		"Unexplained weight loss",
		"Fatigue and weakness",
		"Blurred vision",
		"Slow-healing cuts or frequent infections",
	}
}

func positiveFactors(f predict.Features) []string {
	var out []string
	if f.BMI < 25 {
		out = append(out, "Healthy BMI range")
	}
	if f.Glucose < 100 {
		out = append(out, "Normal fasting glucose level")
	}
	if f.Age < 45 {
		out = append(out, "Age is a protective factor")
	}
	if f.BloodPressure < 80 {
		out = append(out, "Healthy blood pressure")
	}
	return out
}
