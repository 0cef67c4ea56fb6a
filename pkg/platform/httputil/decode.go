package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "medinauts/pkg/domain-errors"
	"medinauts/pkg/validation"
)

// Normalizable request types trim and default their fields before validation.
type Normalizable interface {
	Normalize()
}

// Validatable request types carry rules that struct tags cannot express.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes the body into a new T. On failure it writes a
// bad_request envelope and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := decodeBody[T](r.Body)
	if err != nil {
		reject(w, logger, ctx, requestID, err)
		return nil, false
	}
	return req, true
}

// DecodeAndPrepare decodes the body and runs PrepareRequest on it.
//
//	req, ok := httputil.DecodeAndPrepare[FeedbackRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := decodeBody[T](r.Body)
	if err == nil {
		err = PrepareRequest(req)
	}
	if err != nil {
		reject(w, logger, ctx, requestID, err)
		return nil, false
	}
	return req, true
}

// PrepareRequest normalizes req, checks its `validate` tags, then its
// Validate method. Errors without a domain code become validation_failed.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if err := validation.Validate(req); err != nil {
		return err
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.New(dErrors.CodeValidation, err.Error())
}

func decodeBody[T any](body io.Reader) (*T, error) {
	var req T
	err := json.NewDecoder(body).Decode(&req)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return &req, nil
	case errors.Is(err, io.EOF):
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
	case errors.As(err, &tooLarge):
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body too large")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
}

func reject(w http.ResponseWriter, logger *slog.Logger, ctx context.Context, requestID string, err error) {
	logger.WarnContext(ctx, "request body rejected",
		"error", err,
		"request_id", requestID,
	)
	WriteError(w, err)
}
