// Package tracer is a small tracing facade over OpenTelemetry.
//
// The sync orchestrator opens one span per cycle and one child span per
// stage. NoopTracer is used in tests; OTelTracer in production.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
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

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanCycle          = "sync.cycle"
	SpanFetchDirectory = "sync.fetch_directory"
	SpanResolveGroup   = "sync.resolve_group"
	SpanFetchContacts  = "sync.fetch_contacts"
	SpanReconcile      = "sync.reconcile"
	SpanUpsert         = "sync.upsert"
	SpanFetchUpdated   = "sync.fetch_updated"
	SpanWriteDirectory = "sync.write_directory"
)

// Attribute keys.
const (
	AttrCycleID    = "cycle.id"
	AttrReset      = "cycle.reset"
	AttrStatus     = "cycle.status"
	AttrRecords    = "records"
	AttrContacts   = "contacts"
	AttrPayloads   = "payloads"
	AttrFailures   = "failures"
	AttrUpsertMode = "upsert.mode"
	AttrGroupUUID  = "group.uuid"
)

// Event names.
const (
	EventThrottled = "throttled"
)
