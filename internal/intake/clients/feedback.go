package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"medinauts/internal/intake/models"
	"medinauts/internal/platform/tracing"
)

// FeedbackClient posts ratings to the feedback collaborator.
type FeedbackClient struct {
	base
}

// NewFeedbackClient creates a client for {baseURL}/feedback.
func NewFeedbackClient(baseURL string, opts ...Option) *FeedbackClient {
	return &FeedbackClient{base: newBase(CollaboratorFeedback, baseURL, opts)}
}

type feedbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendFeedback posts fb. The backend answers 200 with status "error" when it
// could not store the feedback; that is reported as CategoryOutage.
func (c *FeedbackClient) SendFeedback(ctx context.Context, fb models.FeedbackRequest) (err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanFeedback, tracing.Int64("feedback.rating", int64(fb.Rating)))
	defer func() { span.End(err) }()

	payload, err := json.Marshal(fb)
	if err != nil {
		return NewError(CategoryInternal, c.name, 0, "failed to marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/feedback"), bytes.NewReader(payload))
	if err != nil {
		return NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	span.SetAttributes(tracing.Int64(tracing.AttrStatusCode, int64(resp.status)))
	if !isSuccess(resp.status) {
		return c.statusError(resp)
	}

	var parsed feedbackResponse
	if json.Unmarshal(resp.body, &parsed) == nil && parsed.Status == "error" {
		return NewError(CategoryOutage, c.name, resp.status, parsed.Message, nil)
	}
	return nil
}
