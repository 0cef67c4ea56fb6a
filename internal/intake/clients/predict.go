package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"medinauts/internal/intake/models"
	"medinauts/internal/platform/tracing"
)

// PredictClient calls the risk prediction collaborator.
type PredictClient struct {
	base
}

// NewPredictClient creates a client for {baseURL}/predict.
func NewPredictClient(baseURL string, opts ...Option) *PredictClient {
	return &PredictClient{base: newBase(CollaboratorPredict, baseURL, opts)}
}

// predictResponse accepts both backend generations: the current one answers
// with risk_score (0..100) and prediction_text, the older one with a
// probability in 0..1 and no label.
type predictResponse struct {
	Prediction     *int     `json:"prediction"`
	RiskScore      *float64 `json:"risk_score"`
	Probability    *float64 `json:"probability"`
	PredictionText string   `json:"prediction_text"`
}

// Predict submits record with the bearer token. A 401 is reported with
// CategoryAuthentication.
func (c *PredictClient) Predict(ctx context.Context, token string, record models.NormalizedRecord) (result models.PredictionResult, err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanPredict)
	defer func() { span.End(err) }()

	payload, err := json.Marshal(record)
	if err != nil {
		return models.PredictionResult{}, NewError(CategoryInternal, c.name, 0, "failed to marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/predict"), bytes.NewReader(payload))
	if err != nil {
		return models.PredictionResult{}, NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.do(ctx, req)
	if err != nil {
		return models.PredictionResult{}, err
	}
	span.SetAttributes(tracing.Int64(tracing.AttrStatusCode, int64(resp.status)))
	if !isSuccess(resp.status) {
		return models.PredictionResult{}, c.statusError(resp)
	}

	var parsed predictResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return models.PredictionResult{}, NewError(CategoryContractMismatch, c.name, resp.status, "failed to parse response", err)
	}
	result, err = parsed.toResult()
	if err != nil {
		return models.PredictionResult{}, NewError(CategoryContractMismatch, c.name, resp.status, err.Error(), nil)
	}
	span.SetAttributes(
		tracing.Int64(tracing.AttrStage, int64(result.Stage)),
		tracing.Float64(tracing.AttrRiskScore, result.RiskScore),
	)
	return result, nil
}

func (p predictResponse) toResult() (models.PredictionResult, error) {
	if p.Prediction == nil {
		return models.PredictionResult{}, fmt.Errorf("response has no prediction")
	}
	var score float64
	switch {
	case p.RiskScore != nil:
		score = *p.RiskScore
	case p.Probability != nil:
		score = *p.Probability * 100
	default:
		return models.PredictionResult{}, fmt.Errorf("response has neither risk_score nor probability")
	}
	score = min(max(score, 0), 100)

	label := strings.TrimSpace(p.PredictionText)
	if label == "" {
		label = StageLabel(*p.Prediction)
	}
	return models.PredictionResult{Stage: *p.Prediction, RiskScore: score, Label: label}, nil
}

// StageLabel is the label used when the collaborator sends none.
func StageLabel(stage int) string {
	switch {
	case stage == 0:
		return "No Heart Disease"
	case stage > 0 && stage <= models.MaxStage:
		return fmt.Sprintf("Heart Disease Stage %d", stage)
	default:
		return "Unknown Stage"
	}
}
