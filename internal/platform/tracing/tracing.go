// Package tracing provides a small span abstraction over OpenTelemetry for
// calls to the external collaborators (scan, prediction, feedback, auth).
//
// Implementations:
//   - NoopTracer: tests and runs without an exporter
//   - OTelTracer: OpenTelemetry adapter
package tracing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentifier returns a short SHA-256 digest of a user or patient
// identifier so traces can be correlated without carrying it in clear.
func HashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanScan     = "intake.scan"
	SpanPredict  = "intake.predict"
	SpanFeedback = "intake.feedback"
	SpanLogin    = "intake.auth.login"
	SpanRegister = "intake.auth.register"
	SpanRender   = "intake.report.render"
)

// Attribute keys.
const (
	AttrDocument    = "document.name"
	AttrDocumentLen = "document.bytes"
	AttrStatusCode  = "http.status_code"
	AttrFieldCount  = "record.fields"
	AttrStage       = "prediction.stage"
	AttrRiskScore   = "prediction.risk_score"
	AttrUser        = "user"

	AttrCollaborator  = "peer.service"
	AttrErrorCategory = "error.category"
)
