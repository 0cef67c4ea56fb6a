package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/gate"
	"medinauts/internal/intake/metrics"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/risk"
	"medinauts/internal/intake/service/mocks"
	"medinauts/internal/intake/store"
	dErrors "medinauts/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	scanner   *mocks.MockScanner
	predictor *mocks.MockPredictor
	feedback  *mocks.MockFeedbackSender
	store     *store.InMemoryStore
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scanner = mocks.NewMockScanner(s.ctrl)
	s.predictor = mocks.NewMockPredictor(s.ctrl)
	s.feedback = mocks.NewMockFeedbackSender(s.ctrl)
	s.store = store.NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.service = New(s.store, s.scanner, s.predictor, s.feedback,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func token(v string) *string {
	return &v
}

func (s *ServiceSuite) openIntake() string {
	view, err := s.service.Start(s.ctx)
	s.Require().NoError(err)
	_, err = s.service.Analyze(s.ctx, view.ID)
	s.Require().NoError(err)
	_, err = s.service.Consent(s.ctx, view.ID, true)
	s.Require().NoError(err)
	return view.ID
}

func completeValues() map[models.Field]models.Value {
	return map[models.Field]models.Value{
		models.FieldAge: models.Number(54), models.FieldSex: models.Text("1"), models.FieldCP: models.Number(2),
		models.FieldTrestbps: models.Number(130), models.FieldChol: models.Text("246"), models.FieldFBS: models.Number(0),
		models.FieldRestECG: models.Number(1), models.FieldThalach: models.Number(150), models.FieldExang: models.Number(0),
		models.FieldOldpeak: models.Text("1.4"), models.FieldSlope: models.Number(1), models.FieldCA: models.Number(0),
		models.FieldThal: models.Number(2),
	}
}

func (s *ServiceSuite) fill(id string) {
	for f, v := range completeValues() {
		_, err := s.service.EditField(s.ctx, id, f, v)
		s.Require().NoError(err)
	}
}

func (s *ServiceSuite) state(id string) gate.State {
	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	return view.State
}

func (s *ServiceSuite) toResult(id string, result models.PredictionResult) {
	s.fill(id)
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).Return(result, nil)
	_, err := s.service.Submit(s.ctx, id, token("tok"))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestScenarioA_TwoDocumentsMerge() {
	id := s.openIntake()
	first := models.Document{Name: "labs.pdf", Content: []byte("a")}
	second := models.Document{Name: "ecg.png", Content: []byte("b")}
	s.scanner.EXPECT().Scan(gomock.Any(), first).Return(&clients.ScanResult{
		Record: models.PartialRecord{models.FieldAge: models.Number(54), models.FieldChol: models.Absent},
	}, nil)
	s.scanner.EXPECT().Scan(gomock.Any(), second).Return(&clients.ScanResult{
		Record: models.PartialRecord{models.FieldAge: models.Absent, models.FieldChol: models.Number(230)},
	}, nil)

	summary, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{first, second})
	s.Require().NoError(err)

	s.Equal(models.Number(54), summary.Record[models.FieldAge])
	s.Equal(models.Number(230), summary.Record[models.FieldChol])
	s.NotContains(summary.Missing, models.FieldAge)
	s.NotContains(summary.Missing, models.FieldChol)
	s.Len(summary.Missing, 11)
	s.Equal(2, summary.Succeeded)
	s.Zero(summary.Failed)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(summary.Missing, view.Missing)
	s.Equal(2, view.ScansSucceeded)
}

func (s *ServiceSuite) TestParallelScansFoldInSubmissionOrder() {
	s.service = New(s.store, s.scanner, s.predictor, s.feedback, WithScanConcurrency(4))
	id := s.openIntake()

	slow := models.Document{Name: "first.pdf"}
	fast := models.Document{Name: "second.pdf"}
	s.scanner.EXPECT().Scan(gomock.Any(), slow).DoAndReturn(func(context.Context, models.Document) (*clients.ScanResult, error) {
		time.Sleep(30 * time.Millisecond)
		return &clients.ScanResult{Record: models.PartialRecord{models.FieldAge: models.Number(50)}}, nil
	})
	s.scanner.EXPECT().Scan(gomock.Any(), fast).Return(&clients.ScanResult{
		Record: models.PartialRecord{models.FieldAge: models.Number(60)},
	}, nil)

	summary, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{slow, fast})
	s.Require().NoError(err)
	s.Equal(models.Number(60), summary.Record[models.FieldAge], "the later document wins even when it completes first")
}

func (s *ServiceSuite) TestPartialScanFailureIsCounted() {
	id := s.openIntake()
	s.scanner.EXPECT().Scan(gomock.Any(), models.Document{Name: "bad.png"}).
		Return(nil, clients.NewError(clients.CategoryRejected, clients.CollaboratorScan, 400, "Invalid image file.", nil))
	s.scanner.EXPECT().Scan(gomock.Any(), models.Document{Name: "good.png"}).
		Return(&clients.ScanResult{Record: models.PartialRecord{models.FieldThal: models.Number(3)}}, nil)

	summary, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{{Name: "bad.png"}, {Name: "good.png"}})
	s.Require().NoError(err)
	s.Equal(1, summary.Succeeded)
	s.Equal(1, summary.Failed)
	s.Require().Len(summary.Failures, 1)
	s.Equal("bad.png", summary.Failures[0].Name)
	s.Equal(models.Number(3), summary.Record[models.FieldThal])
}

func (s *ServiceSuite) TestAllScansFailLeavesRecordUntouched() {
	id := s.openIntake()
	_, err := s.service.EditField(s.ctx, id, models.FieldAge, models.Number(61))
	s.Require().NoError(err)

	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any()).
		Return(nil, clients.NewError(clients.CategoryOutage, clients.CollaboratorScan, 500, "ocr crashed", nil)).Times(2)

	_, err = s.service.ScanAndMerge(s.ctx, id, []models.Document{{Name: "a"}, {Name: "b"}})
	s.True(dErrors.HasCode(err, dErrors.CodeScanFailure))

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.MergedRecord{models.FieldAge: models.Number(61)}, view.Record)
	s.Zero(view.ScansFailed)
	s.Equal(gate.StateIntakeOpen, view.State)
}

func (s *ServiceSuite) TestCloseDuringScanDropsResults() {
	id := s.openIntake()
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Document) (*clients.ScanResult, error) {
			_, err := s.service.Close(s.ctx, id)
			s.Require().NoError(err)
			return &clients.ScanResult{Record: models.PartialRecord{models.FieldAge: models.Number(54)}}, nil
		})

	_, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{{Name: "labs.pdf"}})
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "got %v", err)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateHome, view.State)
	s.Empty(view.Record)
	s.Zero(view.ScansSucceeded)
}

func (s *ServiceSuite) TestReopenDuringScanDropsResults() {
	id := s.openIntake()
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Document) (*clients.ScanResult, error) {
			_, err := s.service.Close(s.ctx, id)
			s.Require().NoError(err)
			_, err = s.service.Analyze(s.ctx, id)
			s.Require().NoError(err)
			_, err = s.service.Consent(s.ctx, id, true)
			s.Require().NoError(err)
			return &clients.ScanResult{Record: models.PartialRecord{models.FieldAge: models.Number(54)}}, nil
		})

	_, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{{Name: "labs.pdf"}})
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "got %v", err)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateIntakeOpen, view.State)
	s.Empty(view.Record)
}

func (s *ServiceSuite) TestEditDuringScanIsKept() {
	id := s.openIntake()
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Document) (*clients.ScanResult, error) {
			_, err := s.service.EditField(s.ctx, id, models.FieldThal, models.Number(2))
			s.Require().NoError(err)
			return &clients.ScanResult{Record: models.PartialRecord{models.FieldAge: models.Number(54)}}, nil
		})

	summary, err := s.service.ScanAndMerge(s.ctx, id, []models.Document{{Name: "labs.pdf"}})
	s.Require().NoError(err)
	s.Equal(models.Number(2), summary.Record[models.FieldThal])
	s.Equal(models.Number(54), summary.Record[models.FieldAge])
}

// racingStore lets another writer save the session just before the next Save.
type racingStore struct {
	*store.InMemoryStore
	race func()
}

func (r *racingStore) Save(ctx context.Context, session *models.Session) error {
	if race := r.race; race != nil {
		r.race = nil
		race()
	}
	return r.InMemoryStore.Save(ctx, session)
}

func (s *ServiceSuite) TestConcurrentWriterIsConflict() {
	racing := &racingStore{InMemoryStore: s.store}
	s.service = New(racing, s.scanner, s.predictor, s.feedback,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	id := s.openIntake()

	racing.race = func() {
		other, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		other.Record[models.FieldThal] = models.Number(2)
		s.Require().NoError(s.store.Save(s.ctx, other))
	}
	_, err := s.service.EditField(s.ctx, id, models.FieldAge, models.Number(61))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.MergedRecord{models.FieldThal: models.Number(2)}, view.Record)

	_, err = s.service.EditField(s.ctx, id, models.FieldAge, models.Number(61))
	s.Require().NoError(err, "a retry on fresh state succeeds")
}

func (s *ServiceSuite) TestScanRequiresOpenIntake() {
	view, err := s.service.Start(s.ctx)
	s.Require().NoError(err)

	_, err = s.service.ScanAndMerge(s.ctx, view.ID, []models.Document{{Name: "a"}})
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))

	_, err = s.service.ScanAndMerge(s.ctx, view.ID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestManualEditUpdatesMissingImmediately() {
	id := s.openIntake()

	view, err := s.service.EditField(s.ctx, id, models.FieldAge, models.Text("54"))
	s.Require().NoError(err)
	s.NotContains(view.Missing, models.FieldAge)
	s.Len(view.Missing, 12)

	view, err = s.service.EditField(s.ctx, id, models.FieldAge, models.Absent)
	s.Require().NoError(err)
	s.Contains(view.Missing, models.FieldAge)

	_, err = s.service.EditField(s.ctx, id, models.Field("bmi"), models.Number(22))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestScenarioC_NoTokenFailsBeforeAnyNetworkCall() {
	id := s.openIntake()
	s.fill(id)
	// no Predict expectation: any call fails the test

	for _, tok := range []*string{nil, token(""), token("   ")} {
		_, err := s.service.Submit(s.ctx, id, tok)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthRequired))
	}
	s.Equal(gate.StateIntakeOpen, s.state(id))
}

func (s *ServiceSuite) TestSubmitIncompleteRecordIsValidationError() {
	id := s.openIntake()
	_, err := s.service.EditField(s.ctx, id, models.FieldAge, models.Number(54))
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, id, token("tok"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "chol")
	s.Equal(gate.StateIntakeOpen, s.state(id))
}

func (s *ServiceSuite) TestSubmitOutsideIntakeIsIllegal() {
	view, err := s.service.Start(s.ctx)
	s.Require().NoError(err)
	_, err = s.service.Submit(s.ctx, view.ID, token("tok"))
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}

func (s *ServiceSuite) TestScenarioB_DiscordantResult() {
	id := s.openIntake()
	s.fill(id)

	var sent models.NormalizedRecord
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, rec models.NormalizedRecord) (models.PredictionResult, error) {
			sent = rec
			return models.PredictionResult{Stage: 0, RiskScore: 72, Label: "No Heart Disease"}, nil
		})

	out, err := s.service.Submit(s.ctx, id, token("tok"))
	s.Require().NoError(err)
	s.False(out.Discarded)
	s.Equal(0, out.Result.Stage, "the prediction itself is never modified")
	s.True(out.Stratification.Overridden)
	s.Equal(risk.ColorAdvanced, out.Stratification.Color)
	s.Equal(risk.BannerHighRisk, out.Stratification.Banner())
	s.Equal(246, sent.Chol)
	s.Equal(1.4, sent.Oldpeak)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateResultShown, view.State)
	s.Require().NotNil(view.Stratification)
	s.Equal(3, view.Stratification.EffectiveStage)

	model, err := s.service.Report(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Total Calculated Risk: 72%", model.RiskLine)
	s.Equal("NA", model.PatientName)
	s.Equal(s.now, model.GeneratedAt)
}

func (s *ServiceSuite) TestSubmitFailuresReturnToIntake() {
	cases := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"401 is session expired", clients.NewError(clients.CategoryAuthentication, clients.CollaboratorPredict, 401, "Could not validate credentials", nil), dErrors.CodeSessionExpired},
		{"5xx is server error", clients.NewError(clients.CategoryOutage, clients.CollaboratorPredict, 503, "Model file not found", nil), dErrors.CodeServerError},
		{"4xx is server error", clients.NewError(clients.CategoryRejected, clients.CollaboratorPredict, 422, "bad body", nil), dErrors.CodeServerError},
		{"unreachable is network error", clients.NewError(clients.CategoryUnreachable, clients.CollaboratorPredict, 0, "failed to execute request", errors.New("connection refused")), dErrors.CodeNetworkError},
		{"timeout is network error", clients.NewError(clients.CategoryTimeout, clients.CollaboratorPredict, 0, "request timeout", context.DeadlineExceeded), dErrors.CodeNetworkError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			id := s.openIntake()
			s.fill(id)
			s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).Return(models.PredictionResult{}, tc.err)

			_, err := s.service.Submit(s.ctx, id, token("tok"))
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
			s.Equal(gate.StateIntakeOpen, s.state(id))
		})
	}
}

func (s *ServiceSuite) TestServerErrorCarriesStatus() {
	id := s.openIntake()
	s.fill(id)
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).
		Return(models.PredictionResult{}, clients.NewError(clients.CategoryOutage, clients.CollaboratorPredict, 503, "Model file not found", nil))

	_, err := s.service.Submit(s.ctx, id, token("tok"))
	var serverErr *ServerError
	s.Require().ErrorAs(err, &serverErr)
	s.Equal(503, serverErr.Status)
	s.Equal("Model file not found", serverErr.Message)
}

func (s *ServiceSuite) TestLateResultAfterCloseIsDiscarded() {
	id := s.openIntake()
	s.fill(id)
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.NormalizedRecord) (models.PredictionResult, error) {
			_, err := s.service.Close(s.ctx, id)
			s.Require().NoError(err)
			return models.PredictionResult{Stage: 2, RiskScore: 80, Label: "Stage 2"}, nil
		})

	out, err := s.service.Submit(s.ctx, id, token("tok"))
	s.Require().NoError(err)
	s.True(out.Discarded)

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateHome, view.State)
	s.Nil(view.Result)
	s.Empty(view.Record)
}

func (s *ServiceSuite) TestDiscardedSubmissionRecordsCallLatency() {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	s.service = New(s.store, s.scanner, s.predictor, s.feedback,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithMetrics(m),
	)
	id := s.openIntake()
	s.fill(id)
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.NormalizedRecord) (models.PredictionResult, error) {
			s.now = s.now.Add(4 * time.Second)
			_, err := s.service.Close(s.ctx, id)
			s.Require().NoError(err)
			return models.PredictionResult{Stage: 0, RiskScore: 10, Label: "No disease"}, nil
		})

	out, err := s.service.Submit(s.ctx, id, token("tok"))
	s.Require().NoError(err)
	s.Require().True(out.Discarded)

	s.Equal(1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("discarded")))
	s.Equal(0.0, testutil.ToFloat64(m.Submissions.WithLabelValues("success")))

	families, err := reg.Gather()
	s.Require().NoError(err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() == "medinauts_intake_submit_latency_seconds" {
			sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	s.InDelta(4.0, sum, 0.001)
}

func (s *ServiceSuite) TestSecondSubmitWhileInFlightIsRejected() {
	id := s.openIntake()
	s.fill(id)
	s.predictor.EXPECT().Predict(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.NormalizedRecord) (models.PredictionResult, error) {
			_, err := s.service.Submit(s.ctx, id, token("tok"))
			s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
			return models.PredictionResult{Stage: 1, RiskScore: 20, Label: "Stage 1"}, nil
		})

	out, err := s.service.Submit(s.ctx, id, token("tok"))
	s.Require().NoError(err)
	s.Equal(1, out.Result.Stage)
}

func (s *ServiceSuite) TestResultCannotBeLeftWithoutFeedback() {
	id := s.openIntake()
	s.toResult(id, models.PredictionResult{Stage: 1, RiskScore: 30, Label: "Stage 1"})

	_, err := s.service.Close(s.ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	_, err = s.service.Analyze(s.ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))

	_, err = s.service.Exit(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateFeedbackPending, s.state(id))
}

func (s *ServiceSuite) TestFeedbackRequiresRatingAndSwallowsDeliveryFailure() {
	id := s.openIntake()
	s.toResult(id, models.PredictionResult{Stage: 1, RiskScore: 30, Label: "Stage 1"})
	_, err := s.service.Exit(s.ctx, id)
	s.Require().NoError(err)

	err = s.service.SubmitFeedback(s.ctx, id, models.FeedbackRequest{Rating: 0})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	err = s.service.SubmitFeedback(s.ctx, id, models.FeedbackRequest{Rating: 6})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(gate.StateFeedbackPending, s.state(id))

	s.feedback.EXPECT().SendFeedback(gomock.Any(), models.FeedbackRequest{Rating: 5, Message: "clear report"}).
		Return(clients.NewError(clients.CategoryOutage, clients.CollaboratorFeedback, 503, "Supabase not configured", nil))

	s.Require().NoError(s.service.SubmitFeedback(s.ctx, id, models.FeedbackRequest{Rating: 5, Message: "  clear report "}))

	view, err := s.service.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(gate.StateHome, view.State)
	s.Nil(view.Result)
	s.Empty(view.Record)
}

func (s *ServiceSuite) TestSkipFeedback() {
	id := s.openIntake()
	s.toResult(id, models.PredictionResult{Stage: 0, RiskScore: 5, Label: "No Heart Disease"})

	s.True(dErrors.HasCode(s.service.SkipFeedback(s.ctx, id), dErrors.CodeIllegalTransition), "skip is only offered on the feedback step")

	_, err := s.service.Exit(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(s.service.SkipFeedback(s.ctx, id))
	s.Equal(gate.StateHome, s.state(id))
}

func (s *ServiceSuite) TestConsentMustBeConfirmed() {
	view, err := s.service.Start(s.ctx)
	s.Require().NoError(err)
	_, err = s.service.Analyze(s.ctx, view.ID)
	s.Require().NoError(err)

	_, err = s.service.Consent(s.ctx, view.ID, false)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(gate.StateDisclaimerPending, s.state(view.ID))

	v, err := s.service.Cancel(s.ctx, view.ID)
	s.Require().NoError(err)
	s.Equal(gate.StateHome, v.State)
}

func (s *ServiceSuite) TestReportNeedsResult() {
	id := s.openIntake()
	_, err := s.service.Report(s.ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Report(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPatientNameOnReport() {
	id := s.openIntake()
	_, err := s.service.SetPatientName(s.ctx, id, "  Dana Roe ")
	s.Require().NoError(err)
	s.toResult(id, models.PredictionResult{Stage: 2, RiskScore: 55, Label: "Stage 2"})

	model, err := s.service.Report(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Dana Roe", model.PatientName)
}

func TestTranslatePredictError_UnknownErrorIsInternal(t *testing.T) {
	err := translatePredictError(clients.NewError(clients.CategoryInternal, clients.CollaboratorPredict, 0, "marshal", nil))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	err = translatePredictError(clients.NewError(clients.CategoryContractMismatch, clients.CollaboratorPredict, 200, "no prediction", nil))
	require.True(t, dErrors.HasCode(err, dErrors.CodeServerError))
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 200, se.Status)
}
