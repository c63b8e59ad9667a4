package models

// ExplanationResponse is the AI-generated enrichment for one product.
// Instances are produced by backend.NormalizeExplanation with safe defaults
// for every field, so consumers never see missing or wrong-typed data.
//
// Once an explanation has settled for a product code it is locked: it must
// not be replaced by a later response for the same code except through an
// explicit re-fetch after navigating to a different code.
type ExplanationResponse struct {
	NutritionSummary string   `json:"nutrition_summary"`
	EcoExplanation   string   `json:"eco_explanation"`
	IngredientFlags  []string `json:"ingredient_flags"`
	Advice           string   `json:"advice"`

	// Predicted grades are fallback display values, used only when the
	// authoritative product record lacks a grade.
	PredictedNutriscore string `json:"predicted_nutriscore,omitempty"`
	PredictedEcoscore   string `json:"predicted_ecoscore,omitempty"`
}
