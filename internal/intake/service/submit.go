package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/gate"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/risk"
	dErrors "medinauts/pkg/domain-errors"
)

// ServerError is returned (wrapped in a server_error domain error) when the
// prediction collaborator answers with a non-2xx status other than 401.
type ServerError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prediction service answered %d", e.Status)
	}
	return fmt.Sprintf("prediction service answered %d: %s", e.Status, e.Message)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	Result         models.PredictionResult      `json:"result"`
	Stratification risk.EffectiveStratification `json:"stratification"`
	// Discarded is set when the intake was closed while the prediction was in
	// flight. The response was dropped and the session left where it is.
	Discarded bool `json:"discarded,omitempty"`
}

// Submit normalizes the session record and sends it for prediction with the
// caller's bearer token. A nil or blank token fails with auth_required before
// any network call. Collaborator failures return the session to the intake
// form: 401 is session_expired, other non-2xx statuses are server_error
// carrying a *ServerError, and transport failures are network_error.
func (s *Service) Submit(ctx context.Context, id string, token *string) (*SubmitResult, error) {
	started := s.now()
	if token == nil || strings.TrimSpace(*token) == "" {
		s.observeSubmission(dErrors.CodeAuthRequired, started)
		return nil, dErrors.New(dErrors.CodeAuthRequired, "sign in before submitting an analysis")
	}

	ticket, record, err := s.beginSubmit(ctx, id)
	if err != nil {
		return nil, err
	}

	result, callErr := s.predictor.Predict(ctx, *token, record)

	out, err := s.completeSubmit(ctx, id, ticket, record, result, callErr)
	if err != nil {
		s.observeSubmission(dErrors.CodeOf(err), started)
		return nil, err
	}
	if out.Discarded {
		s.observeSubmission("discarded", started)
	} else {
		s.observeSubmission("success", started)
	}
	return out, nil
}

func (s *Service) beginSubmit(ctx context.Context, id string) (uint64, models.NormalizedRecord, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		return 0, models.NormalizedRecord{}, err
	}
	if g.State() != gate.StateIntakeOpen {
		// BeginSubmit reports in-flight and illegal submissions precisely.
		if _, err := g.BeginSubmit(); err != nil {
			return 0, models.NormalizedRecord{}, gateError(err)
		}
		return 0, models.NormalizedRecord{}, dErrors.New(dErrors.CodeIllegalTransition, "intake form is not open")
	}

	record, err := s.Normalize(sess.Record)
	if err != nil {
		return 0, models.NormalizedRecord{}, err
	}

	ticket, err := g.BeginSubmit()
	if err != nil {
		return 0, models.NormalizedRecord{}, gateError(err)
	}
	if err := s.save(ctx, sess, g); err != nil {
		return 0, models.NormalizedRecord{}, err
	}
	return ticket, record, nil
}

func (s *Service) completeSubmit(
	ctx context.Context,
	id string,
	ticket uint64,
	record models.NormalizedRecord,
	result models.PredictionResult,
	callErr error,
) (*SubmitResult, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.InfoContext(ctx, "prediction discarded, session no longer exists", "session_id", id)
			return &SubmitResult{Discarded: true}, nil
		}
		return nil, err
	}

	if err := g.CompleteSubmit(ticket, callErr == nil); err != nil {
		if errors.Is(err, gate.ErrStale) {
			s.logger.InfoContext(ctx, "prediction discarded, intake was closed while it was in flight",
				"session_id", id, "state", g.State())
			return &SubmitResult{Discarded: true}, nil
		}
		return nil, gateError(err)
	}

	if callErr != nil {
		if err := s.save(ctx, sess, g); err != nil {
			return nil, err
		}
		translated := translatePredictError(callErr)
		s.logger.WarnContext(ctx, "prediction failed",
			"session_id", id,
			"code", dErrors.CodeOf(translated),
			"category", clients.CategoryOf(callErr),
			"error", callErr,
		)
		return nil, translated
	}

	strat := risk.Stratify(result)
	sess.Result = &result
	sess.Submitted = &record
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	if strat.Overridden && s.metrics != nil {
		s.metrics.IncrementSafetyOverride()
	}
	s.logger.InfoContext(ctx, "prediction received",
		"session_id", id,
		"stage", result.Stage,
		"risk_score", result.RiskScore,
		"effective_stage", strat.EffectiveStage,
		"overridden", strat.Overridden,
	)
	return &SubmitResult{Result: result, Stratification: strat}, nil
}

// translatePredictError maps the collaborator taxonomy onto the submission
// error codes.
func translatePredictError(err error) error {
	switch clients.CategoryOf(err) {
	case clients.CategoryAuthentication:
		return dErrors.Wrap(err, dErrors.CodeSessionExpired, "your session has expired, sign in again")
	case clients.CategoryTimeout, clients.CategoryUnreachable:
		return dErrors.Wrap(err, dErrors.CodeNetworkError, "the prediction service could not be reached, try again")
	case clients.CategoryInternal:
		return dErrors.Wrap(err, dErrors.CodeInternal, "prediction request could not be prepared")
	default:
		status := clients.StatusOf(err)
		var ce *clients.CollaboratorError
		msg := ""
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		serverErr := &ServerError{Status: status, Message: msg, Err: err}
		return dErrors.Wrap(serverErr, dErrors.CodeServerError,
			fmt.Sprintf("the prediction service failed (status %d), try again", status))
	}
}

func (s *Service) observeSubmission(outcome dErrors.Code, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(string(outcome), s.now().Sub(started))
	}
}
