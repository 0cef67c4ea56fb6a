// Package gate implements the consent → intake → submit → result → feedback
// navigation state machine for one intake session.
package gate

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a navigation state of one session.
type State string

const (
	StateHome              State = "home"
	StateDisclaimerPending State = "disclaimer_pending"
	StateIntakeOpen        State = "intake_open"
	StateSubmitting        State = "submitting"
	StateResultShown       State = "result_shown"
	StateFeedbackPending   State = "feedback_pending"
)

// IsValid checks if the state is one of the supported enum values.
func (s State) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Event is a user or system action that may move the gate.
type Event string

const (
	EventAnalyze         Event = "analyze"          // user expresses intent to analyze
	EventConsent         Event = "consent"          // disclaimer checkbox confirmed
	EventCancel          Event = "cancel"           // disclaimer dismissed
	EventSubmit          Event = "submit"           // prediction call starts
	EventSubmitSucceeded Event = "submit_succeeded" // prediction call returned a result
	EventSubmitFailed    Event = "submit_failed"    // prediction call failed
	EventClose           Event = "close"            // intake closed without a result
	EventExit            Event = "exit"             // close button or "new analysis" on the result
	EventFeedbackDone    Event = "feedback_done"    // feedback submitted or skipped
)

var (
	// ErrIllegalTransition is returned when an event is not allowed from the current state.
	ErrIllegalTransition = errors.New("illegal navigation transition")
	// ErrConsentRequired is returned when consent is sent without the confirmation.
	ErrConsentRequired = errors.New("disclaimer consent must be explicitly confirmed")
	// ErrSubmissionInFlight is returned for a second submit while one is outstanding.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrStale is returned when a submission completes after the session moved on.
	ErrStale = errors.New("submission completed after the intake was closed")
)

var transitions = map[State]map[Event]State{
	StateHome: {
		EventAnalyze: StateDisclaimerPending,
	},
	StateDisclaimerPending: {
		EventConsent: StateIntakeOpen,
		EventCancel:  StateHome,
	},
	StateIntakeOpen: {
		EventSubmit: StateSubmitting,
		EventClose:  StateHome,
	},
	StateSubmitting: {
		EventSubmitSucceeded: StateResultShown,
		EventSubmitFailed:    StateIntakeOpen,
		EventClose:           StateHome,
	},
	StateResultShown: {
		EventExit: StateFeedbackPending,
	},
	StateFeedbackPending: {
		EventFeedbackDone: StateHome,
	},
}

// Transition is one recorded state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	On   Event     `json:"on"`
	At   time.Time `json:"at"`
}

// Snapshot is the persistable form of a Gate.
type Snapshot struct {
	State   State        `json:"state"`
	History []Transition `json:"history,omitempty"`
	// Generation increments on every submit so a late completion can be told
	// apart from the current one.
	Generation uint64 `json:"generation"`
	// Opened counts how many times consent has opened the intake form.
	Opened uint64 `json:"opened"`
}

// Gate is safe for concurrent use. The initial state is StateHome.
type Gate struct {
	mu         sync.Mutex
	state      State
	history    []Transition
	generation uint64
	opened     uint64
	now        func() time.Time
	onChange   func(Transition)
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now for recorded transitions.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithObserver registers a callback invoked after every successful transition.
func WithObserver(fn func(Transition)) Option {
	return func(g *Gate) {
		g.onChange = fn
	}
}

// New returns a gate in StateHome.
func New(opts ...Option) *Gate {
	g := &Gate{state: StateHome, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Restore rebuilds a gate from a snapshot. An invalid state resets to StateHome.
func Restore(s Snapshot, opts ...Option) *Gate {
	g := New(opts...)
	if s.State.IsValid() {
		g.state = s.State
	}
	g.history = append([]Transition(nil), s.History...)
	g.generation = s.Generation
	g.opened = s.Opened
	return g
}

// Snapshot returns a copy of the gate's state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		State:      g.state,
		History:    append([]Transition(nil), g.history...),
		Generation: g.generation,
		Opened:     g.opened,
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Opened returns how many times the intake form has been opened. A scan that
// started in one opening must not write into the next.
func (g *Gate) Opened() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// Analyze moves Home to DisclaimerPending.
func (g *Gate) Analyze() error {
	return g.fire(EventAnalyze)
}

// Consent opens the intake. confirmed must reflect the explicit checkbox;
// anything else leaves the disclaimer pending.
func (g *Gate) Consent(confirmed bool) error {
	if !confirmed {
		g.mu.Lock()
		state := g.state
		g.mu.Unlock()
		if state != StateDisclaimerPending {
			return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, EventConsent, state)
		}
		return ErrConsentRequired
	}
	return g.fire(EventConsent)
}

// Cancel dismisses the disclaimer.
func (g *Gate) Cancel() error {
	return g.fire(EventCancel)
}

// Close leaves the intake without a result. Closing while a submission is in
// flight is allowed; its eventual completion is reported as ErrStale.
func (g *Gate) Close() error {
	return g.fire(EventClose)
}

// Exit leaves the result view for the feedback step.
func (g *Gate) Exit() error {
	return g.fire(EventExit)
}

// FinishFeedback returns to Home after feedback was sent or skipped.
func (g *Gate) FinishFeedback() error {
	return g.fire(EventFeedbackDone)
}

// BeginSubmit enters Submitting and returns a ticket identifying this
// submission. It fails with ErrSubmissionInFlight while another is outstanding.
func (g *Gate) BeginSubmit() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateSubmitting {
		return 0, ErrSubmissionInFlight
	}
	if err := g.transitionLocked(EventSubmit); err != nil {
		return 0, err
	}
	g.generation++
	return g.generation, nil
}

// CompleteSubmit resolves the submission identified by ticket. When the
// session was closed (or reopened) in the meantime it returns ErrStale and
// the state is left untouched.
func (g *Gate) CompleteSubmit(ticket uint64, succeeded bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateSubmitting || ticket != g.generation {
		return ErrStale
	}
	ev := EventSubmitFailed
	if succeeded {
		ev = EventSubmitSucceeded
	}
	return g.transitionLocked(ev)
}

// CanSubmit reports whether a submit call is permitted in the current state.
func (g *Gate) CanSubmit() bool {
	s := g.State()
	return s == StateIntakeOpen || s == StateSubmitting
}

// CanEdit reports whether the intake form accepts scans and edits.
func (g *Gate) CanEdit() bool {
	return g.State() == StateIntakeOpen
}

func (g *Gate) fire(ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transitionLocked(ev)
}

func (g *Gate) transitionLocked(ev Event) error {
	next, ok := transitions[g.state][ev]
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev, g.state)
	}
	t := Transition{From: g.state, To: next, On: ev, At: g.now()}
	g.state = next
	g.history = append(g.history, t)
	if ev == EventConsent {
		g.opened++
	}
	if g.onChange != nil {
		g.onChange(t)
	}
	return nil
}
