package core

import (
	"context"
	"time"

	"trackcore/pkg/domain"
)

// Logger captures structured service logging with leveled key/value output.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock abstracts time acquisition for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the function result, falling back to UTC wall time when nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// AuditStatus describes the outcome recorded in an audit entry.
type AuditStatus string

const (
	// AuditStatusSuccess marks operations that committed.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks operations that failed or were blocked.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry describes a single recorded service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Actor     string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating service operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation outcomes and latencies.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan finalizes a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer creates spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type serviceOptions struct {
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	blobs   BlobStore
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

// WithClock overrides the time source used for audit timestamps and latencies.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger wires a structured logger into the service.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder wires an audit sink into the service.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder wires a metrics sink into the service.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer wires a tracer into the service.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBlobStore wires the blob backend used for document attachments.
func WithBlobStore(store BlobStore) ServiceOption {
	return func(o *serviceOptions) {
		if store != nil {
			o.blobs = store
		}
	}
}

// operationMeta binds an audited operation name to the entity and action it mutates.
type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var auditedOperations = map[string]operationMeta{
	"create_location":    {domain.EntityLocation, domain.ActionCreate},
	"update_location":    {domain.EntityLocation, domain.ActionUpdate},
	"delete_location":    {domain.EntityLocation, domain.ActionDelete},
	"create_project":     {domain.EntityProject, domain.ActionCreate},
	"update_project":     {domain.EntityProject, domain.ActionUpdate},
	"delete_project":     {domain.EntityProject, domain.ActionDelete},
	"create_asset":       {domain.EntityAsset, domain.ActionCreate},
	"update_asset":       {domain.EntityAsset, domain.ActionUpdate},
	"delete_asset":       {domain.EntityAsset, domain.ActionDelete},
	"move_asset":         {domain.EntityAsset, domain.ActionUpdate},
	"assign_asset":       {domain.EntityAsset, domain.ActionUpdate},
	"checkout_asset":     {domain.EntityAsset, domain.ActionUpdate},
	"checkin_asset":      {domain.EntityAsset, domain.ActionUpdate},
	"create_user":        {domain.EntityUser, domain.ActionCreate},
	"update_user":        {domain.EntityUser, domain.ActionUpdate},
	"delete_user":        {domain.EntityUser, domain.ActionDelete},
	"record_transaction": {domain.EntityTransaction, domain.ActionCreate},
	"record_maintenance": {domain.EntityMaintenanceLog, domain.ActionCreate},
	"attach_document":    {domain.EntityDocument, domain.ActionCreate},
	"delete_document":    {domain.EntityDocument, domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := auditedOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, opErr error, duration time.Duration) {
	meta, ok := auditedOperations[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	s.audit.Record(ctx, entry)
}
