package handler

import (
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/report"
	"medinauts/internal/intake/risk"
	"medinauts/internal/intake/service"
)

// SubmitResponse is the result screen: the prediction as received plus
// what the user is shown for it.
type SubmitResponse struct {
	Result         models.PredictionResult      `json:"result"`
	Stratification risk.EffectiveStratification `json:"stratification"`
	Banner         string                       `json:"banner"`
	StageName      string                       `json:"stage_name"`
}

func newSubmitResponse(r *service.SubmitResult) SubmitResponse {
	return SubmitResponse{
		Result:         r.Result,
		Stratification: r.Stratification,
		Banner:         r.Stratification.Banner(),
		StageName:      risk.StageName(r.Stratification.EffectiveStage),
	}
}

type ReportResponse struct {
	Report   report.Model `json:"report"`
	Markdown string       `json:"markdown"`
	FileName string       `json:"file_name"`
}
