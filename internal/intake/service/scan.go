package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/gate"
	"medinauts/internal/intake/merge"
	"medinauts/internal/intake/models"
	dErrors "medinauts/pkg/domain-errors"
)

// DocumentFailure describes one document the scan collaborator could not read.
type DocumentFailure struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ScanSummary is the outcome of one scan batch.
type ScanSummary struct {
	Record    models.MergedRecord `json:"record"`
	Missing   []models.Field      `json:"missing"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Failures  []DocumentFailure   `json:"failures,omitempty"`
}

// ScanAndMerge scans every document and folds the extracted fields into the
// session record in submission order, whatever order the scans complete in.
// Per-document failures are counted and skipped. When every document fails
// the session is left untouched and a scan_failure error is returned.
//
// The session is not locked while the scanner runs. If the intake was closed
// (or closed and reopened) in the meantime the results are dropped and an
// illegal_transition error is returned.
func (s *Service) ScanAndMerge(ctx context.Context, id string, docs []models.Document) (*ScanSummary, error) {
	if len(docs) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one document is required")
	}

	opened, err := s.beginScan(ctx, id)
	if err != nil {
		return nil, err
	}

	outcomes := s.scanAll(ctx, id, docs)

	summary := &ScanSummary{}
	for _, o := range outcomes {
		if o.Succeeded() {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, DocumentFailure{Index: o.Index, Name: o.Name, Reason: o.Failure.Error()})
	}

	if summary.Succeeded == 0 {
		if s.metrics != nil {
			s.metrics.ObserveScanBatch(0, summary.Failed, 0)
		}
		s.logger.WarnContext(ctx, "no document could be scanned", "session_id", id, "failed", summary.Failed)
		return nil, dErrors.New(dErrors.CodeScanFailure,
			fmt.Sprintf("no report could be read (%d of %d documents failed), enter the values manually", summary.Failed, len(docs)))
	}

	merged, err := s.completeScan(ctx, id, opened, outcomes)
	if err != nil {
		return nil, err
	}

	summary.Record = merged.Clone()
	summary.Missing = merge.Missing(merged)
	if summary.Missing == nil {
		summary.Missing = []models.Field{}
	}
	if s.metrics != nil {
		s.metrics.ObserveScanBatch(summary.Succeeded, summary.Failed, len(summary.Missing))
	}
	s.logger.InfoContext(ctx, "documents scanned",
		"session_id", id,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"missing", len(summary.Missing),
	)
	return summary, nil
}

// beginScan checks the intake is open and returns which opening it is.
func (s *Service) beginScan(ctx context.Context, id string) (uint64, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	_, g, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if !g.CanEdit() {
		return 0, dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("documents can only be scanned while the intake form is open (state %s)", g.State()))
	}
	return g.Opened(), nil
}

// completeScan folds the outcomes into the current record, provided the
// intake is still in the opening the scan started in.
func (s *Service) completeScan(ctx context.Context, id string, opened uint64, outcomes []merge.Outcome) (models.MergedRecord, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.CanEdit() || g.Opened() != opened {
		s.logger.InfoContext(ctx, "scan results discarded, intake was closed while documents were scanned",
			"session_id", id, "state", g.State())
		return nil, dErrors.New(dErrors.CodeIllegalTransition,
			"the intake form was closed while documents were being scanned")
	}

	merged, ok, failed := merge.Fold(sess.Record, outcomes)
	sess.Record = merged
	sess.ScansSucceeded += ok
	sess.ScansFailed += failed
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	return merged, nil
}

// scanAll calls the scanner once per document. Sequential unless a scan
// concurrency above one is configured; results always keep their index.
func (s *Service) scanAll(ctx context.Context, id string, docs []models.Document) []merge.Outcome {
	outcomes := make([]merge.Outcome, len(docs))
	if s.scanConcurrency <= 1 {
		for i, doc := range docs {
			outcomes[i] = s.scanOne(ctx, id, i, doc)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(s.scanConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			outcomes[i] = s.scanOne(ctx, id, i, doc)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) scanOne(ctx context.Context, id string, index int, doc models.Document) merge.Outcome {
	out := merge.Outcome{Index: index, Name: doc.Name}
	res, err := s.scanner.Scan(ctx, doc)
	if err != nil {
		s.logger.WarnContext(ctx, "document scan failed",
			"session_id", id,
			"document", doc.Name,
			"category", clients.CategoryOf(err),
			"error", err,
		)
		out.Failure = err
		return out
	}
	if res == nil {
		out.Record = models.PartialRecord{}
		return out
	}
	if len(res.UnknownKeys) > 0 {
		s.logger.DebugContext(ctx, "scan returned keys outside the schema",
			"session_id", id,
			"document", doc.Name,
			"keys", strings.Join(res.UnknownKeys, ","),
		)
	}
	out.Record = res.Record
	return out
}

// EditField applies a manual correction. A non-empty value clears the field
// from the missing set immediately; an empty value puts it back.
func (s *Service) EditField(ctx context.Context, id string, field models.Field, value models.Value) (*View, error) {
	if !field.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown field: %s", field))
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.CanEdit() {
		return nil, dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("fields can only be edited while the intake form is open (state %s)", g.State()))
	}

	if value.IsEmpty() {
		delete(sess.Record, field)
	} else {
		sess.Record[field] = value
	}
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementManualEdit(string(field))
	}
	return newView(sess), nil
}

// SetPatientName records the name printed on the report. Allowed until the
// session returns Home.
func (s *Service) SetPatientName(ctx context.Context, id, name string) (*View, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch g.State() {
	case gate.StateIntakeOpen, gate.StateResultShown:
	default:
		return nil, dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("patient name cannot be set in state %s", g.State()))
	}
	sess.PatientName = strings.TrimSpace(name)
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	return newView(sess), nil
}
