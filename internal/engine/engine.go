package engine

import (
	"context"
	"log/slog"

	"formcheck/internal/form"
	"formcheck/internal/messages"
	"formcheck/internal/platform/metrics"
	"formcheck/internal/presentation"
	dErrors "formcheck/pkg/domain-errors"
	"formcheck/pkg/requestcontext"
)

const resultValid = "valid"

// Engine runs one validation pass over a field. Invalid input is data:
// Validate never returns an error.
type Engine struct {
	registry *Registry
	catalog  *messages.Catalog
	sink     presentation.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine. A nil catalog means the built-in one.
func New(registry *Registry, catalog *messages.Catalog, sink presentation.Sink, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "registry is required")
	}
	if sink == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "presentation sink is required")
	}
	if catalog == nil {
		catalog = messages.Default()
	}
	e := &Engine{
		registry: registry,
		catalog:  catalog,
		sink:     sink,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate runs the field type's custom validator, if any, then reports.
func (e *Engine) Validate(ctx context.Context, field *form.Field) form.Outcome {
	if v, ok := e.registry.ValidatorFor(field.Type); ok {
		v.Validate(ctx, field)
	}
	return e.Report(ctx, field)
}

// Report reads the field's conditions in priority order and presents the
// first one, or a valid state. It implements form.Reporter.
func (e *Engine) Report(ctx context.Context, field *form.Field) form.Outcome {
	out := form.OutcomeOf(field)

	var message string
	result := resultValid
	if !out.Valid {
		result = string(out.Kind)
		message = e.catalog.MessageFor(field.Type, out.Condition)
		if message == "" {
			e.logger.WarnContext(ctx, "no message for reachable condition",
				"field", field.Type.String(),
				"condition", out.Condition.String(),
				"session_id", requestcontext.SessionID(ctx),
			)
		}
	}

	e.sink.Present(ctx, presentation.Report{Field: field.Type, Valid: out.Valid, Message: message})
	e.metrics.IncrementValidation(field.Type.String(), result)
	return out
}

// Reset presents field as clean without evaluating it. Used for fields
// emptied by the program rather than the user.
func (e *Engine) Reset(ctx context.Context, field *form.Field) {
	e.sink.Present(ctx, presentation.Report{Field: field.Type, Valid: true})
}
