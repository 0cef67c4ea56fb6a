package models

import (
	"time"

	"medinauts/internal/intake/gate"
)

// Session is the state of one intake: the working record, the navigation
// gate and the last prediction. The missing-field set is derived from Record
// and never stored.
type Session struct {
	ID          string        `json:"id"`
	Record      MergedRecord  `json:"record"`
	Navigation  gate.Snapshot `json:"navigation"`
	PatientName string        `json:"patient_name,omitempty"`

	// Submitted is the record sent with the last successful prediction.
	Submitted *NormalizedRecord `json:"submitted,omitempty"`
	Result    *PredictionResult `json:"result,omitempty"`

	ScansSucceeded int `json:"scans_succeeded"`
	ScansFailed    int `json:"scans_failed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is bumped by the store on every save. A save carrying a stale
	// version is rejected.
	Version uint64 `json:"version"`
}

// NewSession returns an empty session at Home.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		Record:     NewMergedRecord(),
		Navigation: gate.Snapshot{State: gate.StateHome},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ResetWork drops everything tied to the current analysis. Navigation and
// identity are kept.
func (s *Session) ResetWork() {
	s.Record = NewMergedRecord()
	s.Submitted = nil
	s.Result = nil
	s.ScansSucceeded = 0
	s.ScansFailed = 0
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Record = s.Record.Clone()
	out.Navigation.History = append([]gate.Transition(nil), s.Navigation.History...)
	if s.Submitted != nil {
		submitted := *s.Submitted
		out.Submitted = &submitted
	}
	if s.Result != nil {
		result := *s.Result
		out.Result = &result
	}
	return &out
}
