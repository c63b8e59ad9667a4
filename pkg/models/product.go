package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Product is a record from the product database, identified by an opaque
// product code. Product codes come from the upstream data source and are
// not guaranteed globally unique. Products are passed by value between
// flow steps and never mutated after creation.
type Product struct {
	ProductCode     string           `json:"product_code"`
	ProductName     string           `json:"product_name"`
	Brands          string           `json:"brands"`
	Categories      string           `json:"categories"`
	CategoriesTags  json.RawMessage  `json:"categories_tags,omitempty"`
	NutriscoreGrade string           `json:"nutriscore_grade"`
	EcoscoreGrade   string           `json:"ecoscore_grade"`
	EcoscoreScore   *float64         `json:"ecoscore_score"`
	PackagingTags   string           `json:"packaging_tags"`
	LabelsTags      string           `json:"labels_tags"`
	IngredientsText string           `json:"ingredients_text"`
	PalmOilCount    int              `json:"palm_oil_count"`
	NutritionJSON   NutritionPayload `json:"nutrition_json"`
	ImageURL        string           `json:"image_url"`
	SimilarityScore *float64         `json:"similarity_score,omitempty"`
}

// CandidateProduct is a product annotated with the identification confidence
// assigned by the backend.
type CandidateProduct struct {
	Product
	Confidence float64 `json:"confidence"`
}

// BestMatch is the backend's top identification result.
type BestMatch struct {
	ProductCode   string  `json:"product_code"`
	ProductName   string  `json:"product_name"`
	Brands        string  `json:"brands"`
	Confidence    float64 `json:"confidence"`
	EcoscoreGrade string  `json:"ecoscore_grade"`
}

// IdentifyResponse is the result of a photo identification call.
type IdentifyResponse struct {
	GeminiGuesses        []string             `json:"gemini_guesses"`
	BestMatch            *BestMatch           `json:"best_match"`
	BestMatchExplanation *ExplanationResponse `json:"best_match_explanation,omitempty"`
	Candidates           []CandidateProduct   `json:"candidates"`
	NeedsConfirmation    bool                 `json:"needs_confirmation"`
}

// NutritionPayload holds the per-100g nutrition table. The backend sends it
// either as a JSON-encoded string or as an already-parsed object; both are
// accepted, and anything unparseable decodes to an empty table rather than
// failing the whole product.
type NutritionPayload map[string]any

// UnmarshalJSON never returns an error: corrupt nutrition data degrades to
// an empty map.
func (n *NutritionPayload) UnmarshalJSON(data []byte) error {
	*n = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil
		}
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		trimmed = []byte(inner)
	}

	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil
	}
	*n = m
	return nil
}

// Nutrition returns the parsed nutrition table, never nil.
func (p *Product) Nutrition() map[string]any {
	if p.NutritionJSON == nil {
		return map[string]any{}
	}
	return p.NutritionJSON
}

// NormalizeGrade lowercases and validates a nutri/eco grade letter.
// Anything outside a-e (including the "unknown" sentinel) normalizes to "".
func NormalizeGrade(raw string) string {
	g := strings.ToLower(strings.TrimSpace(raw))
	switch g {
	case "a", "b", "c", "d", "e":
		return g
	}
	return ""
}
