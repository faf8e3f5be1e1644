package domain

type Villa struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ImageURL         string   `json:"image_url"`
	EvidenceURI      string   `json:"evidence_uri"`
	GalleryURI       string   `json:"gallery_uri"`
	ConditionScore   uint8    `json:"condition_score"` // 0..100
	Occupied         bool     `json:"occupied"`
	UnderMaintenance bool     `json:"under_maintenance"`
	RenovatedAtMs    *uint64  `json:"renovated_at_ms,omitempty"` // nil = no renovation recorded
	Tags             []string `json:"tags"`
	Owner            string   `json:"owner,omitempty"`
}

const MaxConditionScore = 100

// ConditionLabel buckets a condition score the way the dashboard badge does.
func ConditionLabel(score uint8) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 65:
		return "Good"
	case score >= 45:
		return "Fair"
	case score >= 25:
		return "Poor"
	default:
		return "Critical"
	}
}
