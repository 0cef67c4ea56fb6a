package service

import (
	"context"
	"strings"
	"time"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/gate"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/report"
	"medinauts/internal/intake/risk"
	dErrors "medinauts/pkg/domain-errors"
	"medinauts/pkg/validation"
)

const feedbackTimeout = 10 * time.Second

// SubmitFeedback validates the rating, returns the session to Home and sends
// the feedback. Delivery failures are logged and never returned: feedback
// must not block leaving the result.
func (s *Service) SubmitFeedback(ctx context.Context, id string, fb models.FeedbackRequest) error {
	fb.Message = strings.TrimSpace(fb.Message)
	if err := validation.Validate(fb); err != nil {
		return err
	}

	if err := s.finishFeedback(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveFeedback(fb.Rating)
	}

	if s.feedback == nil {
		return nil
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedbackTimeout)
	defer cancel()
	if err := s.feedback.SendFeedback(sendCtx, fb); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementFeedbackFailure()
		}
		s.logger.WarnContext(ctx, "feedback delivery failed",
			"session_id", id,
			"category", clients.CategoryOf(err),
			"error", err,
		)
	}
	return nil
}

// SkipFeedback returns the session to Home without sending anything.
func (s *Service) SkipFeedback(ctx context.Context, id string) error {
	if err := s.finishFeedback(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveFeedback(0)
	}
	return nil
}

func (s *Service) finishFeedback(ctx context.Context, id string) error {
	_, err := s.navigate(ctx, id, (*gate.Gate).FinishFeedback)
	return err
}

// Report composes the printable report of the session's last result. It is
// available while the result or the feedback step is shown.
func (s *Service) Report(ctx context.Context, id string) (report.Model, error) {
	sess, err := s.find(ctx, id)
	if err != nil {
		return report.Model{}, err
	}
	switch sess.Navigation.State {
	case gate.StateResultShown, gate.StateFeedbackPending:
	default:
		return report.Model{}, dErrors.New(dErrors.CodeConflict, "no analysis result to report")
	}
	if sess.Result == nil || sess.Submitted == nil {
		return report.Model{}, dErrors.New(dErrors.CodeConflict, "no analysis result to report")
	}
	return report.Compose(*sess.Submitted, *sess.Result, risk.Stratify(*sess.Result), report.Meta{
		PatientName: sess.PatientName,
		GeneratedAt: s.now(),
	}), nil
}
