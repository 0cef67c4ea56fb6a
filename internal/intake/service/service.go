package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/gate"
	"medinauts/internal/intake/merge"
	"medinauts/internal/intake/metrics"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/risk"
	"medinauts/internal/intake/store"
	dErrors "medinauts/pkg/domain-errors"
	psync "medinauts/pkg/platform/sync"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Scanner,Predictor,FeedbackSender,Store

// Scanner extracts clinical fields from one document.
type Scanner interface {
	Scan(ctx context.Context, doc models.Document) (*clients.ScanResult, error)
}

// Predictor returns the risk prediction for a normalized record. Failures
// are classified with the clients error taxonomy.
type Predictor interface {
	Predict(ctx context.Context, token string, record models.NormalizedRecord) (models.PredictionResult, error)
}

// FeedbackSender delivers a feedback rating. Delivery is best effort.
type FeedbackSender interface {
	SendFeedback(ctx context.Context, fb models.FeedbackRequest) error
}

// Store persists sessions.
// Error Contract:
// - FindByID and Delete return store.ErrNotFound when no session exists
// - Save returns store.ErrNotFound when the session disappeared
// - Save returns store.ErrConflict when another writer saved first
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
}

type Option func(*Service)

const defaultScanConcurrency = 1

// Service is the intake controller: it owns the session lifecycle, drives
// the scan collaborator, folds results into the working record and submits
// the normalized record for prediction behind the navigation gate.
type Service struct {
	store     Store
	scanner   Scanner
	predictor Predictor
	feedback  FeedbackSender
	logger    *slog.Logger
	metrics   *metrics.Metrics
	locks     *psync.ShardedMutex
	now       func() time.Time
	newID     func() string

	scanConcurrency int
}

func New(st Store, scanner Scanner, predictor Predictor, feedback FeedbackSender, opts ...Option) *Service {
	svc := &Service{
		store:           st,
		scanner:         scanner,
		predictor:       predictor,
		feedback:        feedback,
		logger:          slog.New(slog.DiscardHandler),
		locks:           psync.NewShardedMutex(),
		now:             time.Now,
		newID:           uuid.NewString,
		scanConcurrency: defaultScanConcurrency,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScanConcurrency scans up to n documents of one batch in parallel.
// Values below 2 keep scanning sequential.
func WithScanConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scanConcurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// View is the read model of one session.
type View struct {
	ID             string                        `json:"id"`
	State          gate.State                    `json:"state"`
	Record         models.MergedRecord           `json:"record"`
	Missing        []models.Field                `json:"missing"`
	Complete       bool                          `json:"complete"`
	PatientName    string                        `json:"patient_name,omitempty"`
	Result         *models.PredictionResult      `json:"result,omitempty"`
	Stratification *risk.EffectiveStratification `json:"stratification,omitempty"`
	ScansSucceeded int                           `json:"scans_succeeded"`
	ScansFailed    int                           `json:"scans_failed"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

func newView(sess *models.Session) *View {
	missing := merge.Missing(sess.Record)
	if missing == nil {
		missing = []models.Field{}
	}
	v := &View{
		ID:             sess.ID,
		State:          sess.Navigation.State,
		Record:         sess.Record.Clone(),
		Missing:        missing,
		Complete:       len(missing) == 0,
		PatientName:    sess.PatientName,
		ScansSucceeded: sess.ScansSucceeded,
		ScansFailed:    sess.ScansFailed,
		UpdatedAt:      sess.UpdatedAt,
	}
	if sess.Result != nil {
		result := *sess.Result
		strat := risk.Stratify(result)
		v.Result = &result
		v.Stratification = &strat
	}
	return v
}

// Start creates a session at Home.
func (s *Service) Start(ctx context.Context) (*View, error) {
	sess := models.NewSession(s.newID(), s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create intake session")
	}
	if s.metrics != nil {
		s.metrics.IncrementSessionsStarted()
	}
	s.logger.InfoContext(ctx, "intake session started", "session_id", sess.ID)
	return newView(sess), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	sess, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(sess), nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "intake session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete intake session")
	}
	return nil
}

// Normalize converts a merged record into the numeric record the prediction
// collaborator accepts. Any absent, non-numeric or out-of-domain field is a
// validation_failed error naming every offending field.
func (s *Service) Normalize(record models.MergedRecord) (models.NormalizedRecord, error) {
	return models.Normalize(record)
}

func (s *Service) find(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "intake session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load intake session")
	}
	return sess, nil
}

// load returns the session and a live gate restored from it. Callers hold
// the session lock.
func (s *Service) load(ctx context.Context, id string) (*models.Session, *gate.Gate, error) {
	sess, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.Record == nil {
		sess.Record = models.NewMergedRecord()
	}
	g := gate.Restore(sess.Navigation,
		gate.WithClock(s.now),
		gate.WithObserver(func(t gate.Transition) {
			if s.metrics != nil {
				s.metrics.IncrementTransition(string(t.On), string(t.To))
			}
			s.logger.DebugContext(ctx, "intake navigation",
				"session_id", id, "event", t.On, "from", t.From, "to", t.To)
		}),
	)
	return sess, g, nil
}

// save writes the gate back into the session. Returning to Home ends the
// analysis, so its working data is dropped.
func (s *Service) save(ctx context.Context, sess *models.Session, g *gate.Gate) error {
	sess.Navigation = g.Snapshot()
	if sess.Navigation.State == gate.StateHome {
		sess.ResetWork()
	}
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "intake session not found")
		}
		if errors.Is(err, store.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "intake session was changed by another request, try again")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save intake session")
	}
	return nil
}

// gateError translates navigation failures into domain errors.
func gateError(err error) error {
	switch {
	case errors.Is(err, gate.ErrConsentRequired):
		return dErrors.Wrap(err, dErrors.CodeValidation, "the medical disclaimer must be explicitly confirmed")
	case errors.Is(err, gate.ErrSubmissionInFlight):
		return dErrors.Wrap(err, dErrors.CodeConflict, "an analysis is already being submitted")
	case errors.Is(err, gate.ErrIllegalTransition):
		return dErrors.Wrap(err, dErrors.CodeIllegalTransition, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "navigation failed")
	}
}
