package service

import (
	"context"

	"medinauts/internal/intake/gate"
)

// navigate applies one gate event to a session under its lock.
func (s *Service) navigate(ctx context.Context, id string, fire func(*gate.Gate) error) (*View, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fire(g); err != nil {
		return nil, gateError(err)
	}
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	return newView(sess), nil
}

// Analyze shows the medical disclaimer.
func (s *Service) Analyze(ctx context.Context, id string) (*View, error) {
	return s.navigate(ctx, id, (*gate.Gate).Analyze)
}

// Consent opens the intake form. confirmed must be the explicit
// acknowledgement of the disclaimer.
func (s *Service) Consent(ctx context.Context, id string, confirmed bool) (*View, error) {
	return s.navigate(ctx, id, func(g *gate.Gate) error {
		return g.Consent(confirmed)
	})
}

// Cancel dismisses the disclaimer.
func (s *Service) Cancel(ctx context.Context, id string) (*View, error) {
	return s.navigate(ctx, id, (*gate.Gate).Cancel)
}

// Close leaves the intake form without a result. A prediction still in
// flight is discarded when it completes.
func (s *Service) Close(ctx context.Context, id string) (*View, error) {
	return s.navigate(ctx, id, (*gate.Gate).Close)
}

// Exit leaves the result for the feedback step.
func (s *Service) Exit(ctx context.Context, id string) (*View, error) {
	return s.navigate(ctx, id, (*gate.Gate).Exit)
}
