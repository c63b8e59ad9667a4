package explain

import "shelfscan/pkg/models"

// GradeDisplay is the resolved grade for one score badge. Predicted marks a
// grade that came from the AI explanation rather than the product record, so
// the UI can flag it as non-authoritative.
type GradeDisplay struct {
	Grade     string `json:"grade"`
	Predicted bool   `json:"predicted"`
}

// DisplayGrade resolves the badge for a score: the product's own grade wins
// when present and valid; otherwise the explanation's predicted grade is
// shown flagged as a prediction. Pure derivation — recomputing it never
// unsettles a locked explanation.
func DisplayGrade(authoritative, predicted string) GradeDisplay {
	if g := models.NormalizeGrade(authoritative); g != "" {
		return GradeDisplay{Grade: g}
	}
	if g := models.NormalizeGrade(predicted); g != "" {
		return GradeDisplay{Grade: g, Predicted: true}
	}
	return GradeDisplay{}
}
