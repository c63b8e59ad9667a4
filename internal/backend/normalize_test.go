package backend

import (
	"reflect"
	"testing"
)

func TestNormalizeExplanationDefaults(t *testing.T) {
	cases := []struct {
		name            string
		raw             string
		wantSummary     string
		wantEco         string
		wantFlags       []string
		wantAdvice      string
		wantPredNutri   string
		wantPredEco     string
	}{
		{
			name:          "complete payload",
			raw:           `{"nutrition_summary":"High in sugar.","eco_explanation":"Grade C packaging.","ingredient_flags":["palm oil"],"advice":"Drink water instead.","predicted_nutriscore":"D","predicted_ecoscore":" c "}`,
			wantSummary:   "High in sugar.",
			wantEco:       "Grade C packaging.",
			wantFlags:     []string{"palm oil"},
			wantAdvice:    "Drink water instead.",
			wantPredNutri: "d",
			wantPredEco:   "c",
		},
		{
			name:        "empty object",
			raw:         `{}`,
			wantSummary: defaultNutritionSummary,
			wantEco:     defaultEcoExplanation,
			wantFlags:   []string{},
			wantAdvice:  defaultAdvice,
		},
		{
			name:        "wrong types everywhere",
			raw:         `{"nutrition_summary":7,"eco_explanation":null,"ingredient_flags":"nope","advice":[],"predicted_nutriscore":42,"predicted_ecoscore":"z"}`,
			wantSummary: defaultNutritionSummary,
			wantEco:     defaultEcoExplanation,
			wantFlags:   []string{},
			wantAdvice:  defaultAdvice,
		},
		{
			name:        "not json at all",
			raw:         `<html>backend error page</html>`,
			wantSummary: defaultNutritionSummary,
			wantEco:     defaultEcoExplanation,
			wantFlags:   []string{},
			wantAdvice:  defaultAdvice,
		},
		{
			name:        "flags with mixed types",
			raw:         `{"ingredient_flags":["palm oil", 3, null, "additives"]}`,
			wantSummary: defaultNutritionSummary,
			wantEco:     defaultEcoExplanation,
			wantFlags:   []string{"palm oil", "additives"},
			wantAdvice:  defaultAdvice,
		},
	}

	for _, tc := range cases {
		got := NormalizeExplanation([]byte(tc.raw))
		if got == nil {
			t.Errorf("%s: NormalizeExplanation returned nil", tc.name)
			continue
		}
		if got.NutritionSummary != tc.wantSummary {
			t.Errorf("%s: summary = %q, expected %q", tc.name, got.NutritionSummary, tc.wantSummary)
		}
		if got.EcoExplanation != tc.wantEco {
			t.Errorf("%s: eco = %q, expected %q", tc.name, got.EcoExplanation, tc.wantEco)
		}
		if !reflect.DeepEqual(got.IngredientFlags, tc.wantFlags) {
			t.Errorf("%s: flags = %v, expected %v", tc.name, got.IngredientFlags, tc.wantFlags)
		}
		if got.Advice != tc.wantAdvice {
			t.Errorf("%s: advice = %q, expected %q", tc.name, got.Advice, tc.wantAdvice)
		}
		if got.PredictedNutriscore != tc.wantPredNutri {
			t.Errorf("%s: predicted nutriscore = %q, expected %q", tc.name, got.PredictedNutriscore, tc.wantPredNutri)
		}
		if got.PredictedEcoscore != tc.wantPredEco {
			t.Errorf("%s: predicted ecoscore = %q, expected %q", tc.name, got.PredictedEcoscore, tc.wantPredEco)
		}
	}
}
