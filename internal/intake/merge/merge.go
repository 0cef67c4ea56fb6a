// Package merge folds partial scan extractions into one candidate record.
//
// The rule is deliberately simple: for each key, the last non-empty value
// supplied wins. No per-field confidence scoring is performed, so when two
// documents disagree the one processed later in upload order decides.
package merge

import (
	"slices"

	"medinauts/internal/intake/models"
)

// Merge returns current with every non-empty value of incoming written over it.
// Neither argument is modified. Keys outside the schema are ignored.
func Merge(current models.MergedRecord, incoming models.PartialRecord) models.MergedRecord {
	out := current.Clone()
	for f, v := range incoming {
		if v.IsEmpty() || !f.IsValid() {
			continue
		}
		out[f] = v
	}
	return out
}

// Missing returns the schema fields whose merged value is absent, in schema order.
func Missing(merged models.MergedRecord) []models.Field {
	var missing []models.Field
	for _, f := range models.Schema() {
		if merged.Get(f).IsEmpty() {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every schema field has a value.
func Complete(merged models.MergedRecord) bool {
	return len(Missing(merged)) == 0
}

// Outcome is the tagged result of scanning one document: either a
// PartialRecord or a failure reason. Index is the document's position in the
// upload order and decides merge precedence.
type Outcome struct {
	Index   int
	Name    string
	Record  models.PartialRecord
	Failure error
}

// Succeeded reports whether the scan produced a record.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}

// Fold merges the successful outcomes into current in ascending Index order,
// whatever order they completed in. It returns the merged record and the
// success and failure counts.
func Fold(current models.MergedRecord, outcomes []Outcome) (models.MergedRecord, int, int) {
	ordered := slices.Clone(outcomes)
	slices.SortStableFunc(ordered, func(a, b Outcome) int {
		return a.Index - b.Index
	})

	merged := current.Clone()
	var ok, failed int
	for _, o := range ordered {
		if !o.Succeeded() {
			failed++
			continue
		}
		ok++
		merged = Merge(merged, o.Record)
	}
	return merged, ok, failed
}
