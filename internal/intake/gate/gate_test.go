package gate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type GateSuite struct {
	suite.Suite
	gate *Gate
	now  time.Time
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.gate = New(WithClock(func() time.Time { return s.now }))
}

func (s *GateSuite) openIntake() {
	s.Require().NoError(s.gate.Analyze())
	s.Require().NoError(s.gate.Consent(true))
}

func (s *GateSuite) TestFullCycle() {
	s.Equal(StateHome, s.gate.State())
	s.openIntake()
	s.Equal(StateIntakeOpen, s.gate.State())

	ticket, err := s.gate.BeginSubmit()
	s.Require().NoError(err)
	s.Equal(StateSubmitting, s.gate.State())
	s.Require().NoError(s.gate.CompleteSubmit(ticket, true))
	s.Equal(StateResultShown, s.gate.State())

	s.Require().NoError(s.gate.Exit())
	s.Equal(StateFeedbackPending, s.gate.State())
	s.Require().NoError(s.gate.FinishFeedback())
	s.Equal(StateHome, s.gate.State())

	snap := s.gate.Snapshot()
	s.Len(snap.History, 6)
	s.Equal(s.now, snap.History[0].At)
}

func (s *GateSuite) TestIntakeRequiresConfirmedConsent() {
	s.Require().NoError(s.gate.Analyze())

	err := s.gate.Consent(false)
	s.ErrorIs(err, ErrConsentRequired)
	s.Equal(StateDisclaimerPending, s.gate.State())

	s.Require().NoError(s.gate.Cancel())
	s.Equal(StateHome, s.gate.State())

	s.ErrorIs(s.gate.Consent(true), ErrIllegalTransition, "consent is only accepted from the disclaimer")
	s.ErrorIs(s.gate.Consent(false), ErrIllegalTransition)
}

func (s *GateSuite) TestSubmitOnlyFromIntake() {
	for _, setup := range []struct {
		name  string
		state State
		reach func()
	}{
		{"home", StateHome, func() {}},
		{"disclaimer", StateDisclaimerPending, func() { s.Require().NoError(s.gate.Analyze()) }},
		{"feedback", StateFeedbackPending, func() {
			s.openIntake()
			ticket, err := s.gate.BeginSubmit()
			s.Require().NoError(err)
			s.Require().NoError(s.gate.CompleteSubmit(ticket, true))
			s.Require().NoError(s.gate.Exit())
		}},
	} {
		s.Run(setup.name, func() {
			s.gate = New()
			setup.reach()
			s.Require().Equal(setup.state, s.gate.State())
			s.False(s.gate.CanSubmit())
			_, err := s.gate.BeginSubmit()
			s.ErrorIs(err, ErrIllegalTransition)
			s.Equal(setup.state, s.gate.State(), "illegal event leaves the state unchanged")
		})
	}
}

func (s *GateSuite) TestNoDuplicateSubmission() {
	s.openIntake()
	_, err := s.gate.BeginSubmit()
	s.Require().NoError(err)
	s.True(s.gate.CanSubmit())

	_, err = s.gate.BeginSubmit()
	s.ErrorIs(err, ErrSubmissionInFlight)
}

func (s *GateSuite) TestFailedSubmitReturnsToIntake() {
	s.openIntake()
	ticket, err := s.gate.BeginSubmit()
	s.Require().NoError(err)
	s.Require().NoError(s.gate.CompleteSubmit(ticket, false))
	s.Equal(StateIntakeOpen, s.gate.State())
}

func (s *GateSuite) TestLateCompletionAfterCloseIsStale() {
	s.openIntake()
	ticket, err := s.gate.BeginSubmit()
	s.Require().NoError(err)
	s.Require().NoError(s.gate.Close())
	s.Equal(StateHome, s.gate.State())

	s.ErrorIs(s.gate.CompleteSubmit(ticket, true), ErrStale)
	s.Equal(StateHome, s.gate.State())

	s.Run("an old ticket cannot complete a newer submission", func() {
		s.openIntake()
		fresh, err := s.gate.BeginSubmit()
		s.Require().NoError(err)
		s.ErrorIs(s.gate.CompleteSubmit(ticket, true), ErrStale)
		s.Require().NoError(s.gate.CompleteSubmit(fresh, true))
	})
}

func (s *GateSuite) TestResultCannotBeLeftWithoutFeedback() {
	s.openIntake()
	ticket, _ := s.gate.BeginSubmit()
	s.Require().NoError(s.gate.CompleteSubmit(ticket, true))
	s.ErrorIs(s.gate.Close(), ErrIllegalTransition)
	s.ErrorIs(s.gate.Analyze(), ErrIllegalTransition)
}

func (s *GateSuite) TestSnapshotRoundTrip() {
	s.openIntake()
	restored := Restore(s.gate.Snapshot())
	s.Equal(StateIntakeOpen, restored.State())
	s.Equal(s.gate.Snapshot(), restored.Snapshot())

	s.Equal(StateHome, Restore(Snapshot{State: "bogus"}).State())
}

func (s *GateSuite) TestOpenedCountsIntakeOpenings() {
	s.Zero(s.gate.Opened())
	s.openIntake()
	s.Equal(uint64(1), s.gate.Opened())

	ticket, err := s.gate.BeginSubmit()
	s.Require().NoError(err)
	s.Require().NoError(s.gate.CompleteSubmit(ticket, false))
	s.Equal(StateIntakeOpen, s.gate.State())
	s.Equal(uint64(1), s.gate.Opened(), "a failed submit returns to the same opening")

	s.Require().NoError(s.gate.Close())
	s.openIntake()
	s.Equal(uint64(2), s.gate.Opened())
	s.Equal(uint64(2), Restore(s.gate.Snapshot()).Opened())
}

func TestGate_ObserverSeesTransitions(t *testing.T) {
	var seen []Transition
	g := New(WithObserver(func(tr Transition) { seen = append(seen, tr) }))
	require.NoError(t, g.Analyze())
	require.Len(t, seen, 1)
	assert.Equal(t, StateHome, seen[0].From)
	assert.Equal(t, StateDisclaimerPending, seen[0].To)
	assert.Equal(t, EventAnalyze, seen[0].On)
}

func TestGate_ConcurrentSubmitsAdmitOne(t *testing.T) {
	g := New()
	require.NoError(t, g.Analyze())
	require.NoError(t, g.Consent(true))

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.BeginSubmit(); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}
