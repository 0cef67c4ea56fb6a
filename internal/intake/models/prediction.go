package models

// MaxStage is the most severe stage the prediction collaborator reports.
const MaxStage = 4

// PredictionResult is the prediction collaborator's answer for one
// NormalizedRecord. It is never modified after it is received.
type PredictionResult struct {
	Stage     int     `json:"stage"`
	RiskScore float64 `json:"risk_score"`
	Label     string  `json:"label"`
}

// FeedbackRequest is the payload sent to the feedback collaborator. A rating
// is required; skipping sends nothing.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Message string `json:"message" validate:"max=2000"`
}

// Document is one uploaded file handed to the scan collaborator.
type Document struct {
	Name        string
	ContentType string
	Content     []byte
}
