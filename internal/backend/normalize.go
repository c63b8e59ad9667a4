package backend

import (
	"encoding/json"

	"shelfscan/pkg/models"
)

// Defaults substituted for missing or wrong-typed explanation fields.
const (
	defaultNutritionSummary = "No nutrition summary available."
	defaultEcoExplanation   = "Eco explanation unavailable."
	defaultAdvice           = "No advice available."
)

// NormalizeExplanation converts a raw backend explanation payload into an
// ExplanationResponse with defensive defaults for every field. The backend's
// AI layer occasionally omits fields or returns the wrong types; none of
// that is allowed to surface as an error.
func NormalizeExplanation(data []byte) *models.ExplanationResponse {
	var raw map[string]any
	// A decode failure leaves raw nil and every field at its default.
	_ = json.Unmarshal(data, &raw)

	return &models.ExplanationResponse{
		NutritionSummary:    stringField(raw, "nutrition_summary", defaultNutritionSummary),
		EcoExplanation:      stringField(raw, "eco_explanation", defaultEcoExplanation),
		IngredientFlags:     stringListField(raw, "ingredient_flags"),
		Advice:              stringField(raw, "advice", defaultAdvice),
		PredictedNutriscore: models.NormalizeGrade(stringField(raw, "predicted_nutriscore", "")),
		PredictedEcoscore:   models.NormalizeGrade(stringField(raw, "predicted_ecoscore", "")),
	}
}

func stringField(raw map[string]any, key, fallback string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return fallback
}

func stringListField(raw map[string]any, key string) []string {
	items, ok := raw[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
