package engine

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"formcheck/internal/address"
	addressmetrics "formcheck/internal/address/metrics"
	"formcheck/internal/address/ports"
	"formcheck/internal/form"
	"formcheck/internal/messages"
	"formcheck/internal/platform/metrics"
	"formcheck/internal/presentation"
	"formcheck/internal/validation"
	dErrors "formcheck/pkg/domain-errors"
	"formcheck/pkg/requestcontext"
)

var (
	ErrUnknownField  = dErrors.New(dErrors.CodeBadRequest, "unknown field")
	ErrFieldDisabled = dErrors.New(dErrors.CodeBadRequest, "field is filled from the postal code and cannot be edited")
)

// Session is one live form: its fields, the engine that validates them and
// the loop that serializes access to them. Methods may be called from any
// goroutine; the loop must be running for any of them to complete.
type Session struct {
	id       string
	loop     *Loop
	form     *form.Form
	engine   *Engine
	resolver *address.Resolver
	logger   *slog.Logger
}

// SessionConfig carries the collaborators of a session.
type SessionConfig struct {
	Loop    *Loop
	Lookup  ports.Lookup
	Catalog *messages.Catalog
	Sink    presentation.Sink

	// Rules defaults to form.DefaultRules.
	Rules map[form.FieldType]form.Rules
	// BirthDate defaults to validation.NewBirthDateValidator.
	BirthDate *validation.BirthDateValidator

	Metrics        *metrics.Metrics
	AddressMetrics *addressmetrics.Metrics
	AddressOptions []address.Option
	Logger         *slog.Logger
}

// NewSession builds a form and wires every validator it needs.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Loop == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "loop is required")
	}
	if cfg.Rules == nil {
		cfg.Rules = form.DefaultRules()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	logger := cfg.Logger.With("session_id", id)
	f := form.New(cfg.Rules)

	if cfg.BirthDate == nil {
		cfg.BirthDate = validation.NewBirthDateValidator()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = messages.Default()
	}
	catalog = catalog.With(messages.ParamMinAge, strconv.Itoa(cfg.BirthDate.MinYears))

	registry := NewRegistry(cfg.BirthDate)
	eng, err := New(registry, catalog, cfg.Sink, WithMetrics(cfg.Metrics), WithLogger(logger))
	if err != nil {
		return nil, err
	}

	binding, err := address.BindingFor(f)
	if err != nil {
		return nil, err
	}
	opts := append([]address.Option{
		address.WithMetrics(cfg.AddressMetrics),
		address.WithLogger(logger),
	}, cfg.AddressOptions...)
	resolver, err := address.NewResolver(cfg.Lookup, binding, cfg.Loop, eng, opts...)
	if err != nil {
		return nil, err
	}
	registry.Register(form.FieldPostalCode, resolver)
	if err := registry.complete(); err != nil {
		return nil, err
	}

	if gaps := eng.catalog.Coverage(f, registry.Types()...); len(gaps) > 0 {
		logger.Warn("message catalog is incomplete", "gaps", gaps)
	}
	cfg.Metrics.IncrementSessions()

	return &Session{
		id:       id,
		loop:     cfg.Loop,
		form:     f,
		engine:   eng,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Edit records a user edit and validates the field. A postal code edit
// returns before its lookup completes; use Settle to wait for it.
func (s *Session) Edit(ctx context.Context, t form.FieldType, value string) (form.Outcome, error) {
	var (
		out     form.Outcome
		editErr error
	)
	err := s.do(ctx, func(ctx context.Context) {
		field, ok := s.form.Field(t)
		switch {
		case !ok:
			editErr = ErrUnknownField
			return
		case field.Disabled:
			editErr = ErrFieldDisabled
			return
		}
		field.SetValue(value)
		out = s.engine.Validate(ctx, field)
	})
	if err != nil {
		return form.Outcome{}, err
	}
	return out, editErr
}

// Submit waits for pending lookups, then validates every enabled field. The
// postal code keeps the result of its last lookup rather than issuing a new
// one.
func (s *Session) Submit(ctx context.Context) ([]form.Outcome, error) {
	if err := s.Settle(ctx); err != nil {
		return nil, err
	}
	var outcomes []form.Outcome
	err := s.do(ctx, func(ctx context.Context) {
		for _, field := range s.form.Fields() {
			if field.Disabled {
				continue
			}
			if field.Type == form.FieldPostalCode {
				outcomes = append(outcomes, s.engine.Report(ctx, field))
				continue
			}
			outcomes = append(outcomes, s.engine.Validate(ctx, field))
		}
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Snapshot copies the current field states.
func (s *Session) Snapshot(ctx context.Context) ([]form.Field, error) {
	var fields []form.Field
	err := s.do(ctx, func(context.Context) {
		fields = s.form.Snapshot()
	})
	return fields, err
}

// Settle waits until every lookup issued so far has completed and its result
// has been applied to the form. Safe to call alongside Edit.
func (s *Session) Settle(ctx context.Context) error {
	var idle <-chan struct{}
	if err := s.do(ctx, func(context.Context) {
		idle = s.resolver.Idle()
	}); err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons any in-flight lookup.
func (s *Session) Close(ctx context.Context) error {
	return s.do(ctx, func(context.Context) {
		s.resolver.Close()
	})
}

func (s *Session) do(ctx context.Context, fn func(ctx context.Context)) error {
	return s.loop.Do(requestcontext.WithSessionID(ctx, s.id), fn)
}
