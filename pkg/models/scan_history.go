package models

import "time"

// ScanHistoryEntry is an immutable log record of one completed scan. Display
// fields are denormalized copies of the product so the history list renders
// without a lookup. Entries are created once when a fresh scan reaches the
// product detail view, and only ever removed (by id or by clear-all).
type ScanHistoryEntry struct {
	ID              string    `json:"id"`
	SavedAt         time.Time `json:"saved_at"`
	CapturedImage   string    `json:"captured_image,omitempty"`
	ProductCode     string    `json:"product_code"`
	ProductName     string    `json:"product_name"`
	Brands          string    `json:"brands"`
	NutriscoreGrade string    `json:"nutriscore_grade"`
	EcoscoreGrade   string    `json:"ecoscore_grade"`
	EcoscoreScore   *float64  `json:"ecoscore_score"`
	ProductImageURL string    `json:"product_image_url"`
	Product         *Product  `json:"product,omitempty"`
}
