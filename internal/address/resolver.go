// Package address resolves a postal code into street, city and region and
// keeps the dependent form fields in step with the postal code field.
package address

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"formcheck/internal/address/metrics"
	"formcheck/internal/address/models"
	"formcheck/internal/address/ports"
	"formcheck/internal/form"
	"formcheck/pkg/domain"
	dErrors "formcheck/pkg/domain-errors"
	"formcheck/pkg/requestcontext"
)

// DefaultLookupTimeout bounds a single lookup.
const DefaultLookupTimeout = 5 * time.Second

// Binding names the fields a resolver reads and fills.
type Binding struct {
	PostalCode *form.Field
	Street     *form.Field
	City       *form.Field
	Region     *form.Field
}

// BindingFor takes the four address fields from f.
func BindingFor(f *form.Form) (Binding, error) {
	var b Binding
	for _, slot := range []struct {
		t   form.FieldType
		dst **form.Field
	}{
		{form.FieldPostalCode, &b.PostalCode},
		{form.FieldStreet, &b.Street},
		{form.FieldCity, &b.City},
		{form.FieldRegion, &b.Region},
	} {
		field, ok := f.Field(slot.t)
		if !ok {
			return Binding{}, dErrors.New(dErrors.CodeInvalidConfig, "form has no "+slot.t.String()+" field")
		}
		*slot.dst = field
	}
	return b, nil
}

func (b Binding) dependents() []*form.Field {
	return []*form.Field{b.Street, b.City, b.Region}
}

// request is one issued lookup. Only the latest request may touch fields.
type request struct {
	id     string
	code   domain.PostalCode
	cancel context.CancelFunc
}

// Resolver is the custom validator of the postal code field. Validate and
// every completion run on the goroutine that owns the form; lookups run on
// their own goroutines and hand results back through the Dispatcher.
type Resolver struct {
	lookup     ports.Lookup
	binding    Binding
	dispatcher form.Dispatcher
	reporter   form.Reporter
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	newID      func() string

	// Owned by the form goroutine, like the fields.
	current *request
	pending int
	idle    []chan struct{}
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver for the bound fields.
func NewResolver(lookup ports.Lookup, binding Binding, dispatcher form.Dispatcher, reporter form.Reporter, opts ...Option) (*Resolver, error) {
	if lookup == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "address lookup is required")
	}
	if binding.PostalCode == nil || binding.Street == nil || binding.City == nil || binding.Region == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "address binding is incomplete")
	}
	if dispatcher == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "dispatcher is required")
	}
	if reporter == nil {
		return nil, dErrors.New(dErrors.CodeInvalidConfig, "reporter is required")
	}

	r := &Resolver{
		lookup:     lookup,
		binding:    binding,
		dispatcher: dispatcher,
		reporter:   reporter,
		timeout:    DefaultLookupTimeout,
		logger:     slog.Default(),
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Validate implements form.Validator. A syntactically usable code starts a
// lookup and returns at once; the field's custom condition keeps its previous
// value until the lookup completes.
func (r *Resolver) Validate(ctx context.Context, field *form.Field) {
	r.abandon()

	if field.Validity.Missing || field.Validity.PatternMismatch {
		r.clearDependents(ctx)
		return
	}
	code, err := domain.ParsePostalCode(field.Value)
	if err != nil {
		r.clearDependents(ctx)
		return
	}

	// Lookups outlive the task that issued them; only supersession and the
	// timeout end them.
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	req := &request{id: r.newID(), code: code, cancel: cancel}
	lookupCtx = requestcontext.WithRequestID(lookupCtx, req.id)
	r.current = req

	r.logger.DebugContext(ctx, "address lookup issued",
		"request_id", req.id,
		"postal_code", code.String(),
	)

	r.pending++
	go func() {
		defer cancel()

		start := time.Now()
		record, err := r.lookup.Lookup(lookupCtx, code)
		if err == nil && record == nil {
			err = models.ErrNotFound
		}
		r.metrics.ObserveLookupLatency(outcomeOf(err), time.Since(start))

		r.dispatcher.Post(func(ctx context.Context) {
			r.complete(ctx, req, record, err)
			r.settle()
		})
	}()
}

// Idle returns a channel closed once every issued lookup has been
// completed on the form goroutine. It must be called on that goroutine.
func (r *Resolver) Idle() <-chan struct{} {
	ch := make(chan struct{})
	if r.pending == 0 {
		close(ch)
		return ch
	}
	r.idle = append(r.idle, ch)
	return ch
}

// Pending counts lookups whose completion has not run yet.
func (r *Resolver) Pending() int {
	return r.pending
}

func (r *Resolver) settle() {
	r.pending--
	if r.pending > 0 {
		return
	}
	for _, ch := range r.idle {
		close(ch)
	}
	r.idle = nil
}

// Close cancels the in-flight lookup. Like Validate, it must run on the
// goroutine that owns the form.
func (r *Resolver) Close() {
	r.abandon()
}

// abandon cancels the in-flight lookup, if any. Its completion will still
// be posted and discarded as stale.
func (r *Resolver) abandon() {
	if r.current != nil {
		r.current.cancel()
		r.current = nil
	}
}

func (r *Resolver) complete(ctx context.Context, req *request, record *models.Address, err error) {
	field := r.binding.PostalCode
	if r.current != req || !sameCode(field.Value, req.code) {
		r.metrics.IncrementOutcome(metrics.OutcomeStale)
		r.logger.DebugContext(ctx, "stale address lookup discarded",
			"request_id", req.id,
			"postal_code", req.code.String(),
		)
		return
	}
	r.current = nil

	outcome := outcomeOf(err)
	r.metrics.IncrementOutcome(outcome)

	switch outcome {
	case metrics.OutcomeFound:
		field.ClearCustom()
		r.fill(ctx, record)
	case metrics.OutcomeNotFound:
		field.SetCustom(form.ReasonNotFound)
		r.clearDependents(ctx)
	default:
		r.logger.WarnContext(ctx, "address lookup failed",
			"request_id", req.id,
			"postal_code", req.code.String(),
			"error", err,
		)
		field.SetCustom(form.ReasonUnavailable)
		r.clearDependents(ctx)
	}
	r.reporter.Report(ctx, field)
}

// fill writes the record into the dependents. A dependent the service left
// blank stays editable.
func (r *Resolver) fill(ctx context.Context, record *models.Address) {
	values := []string{record.Street, record.City, record.Region}
	for i, dep := range r.binding.dependents() {
		if values[i] == "" {
			dep.Clear()
			r.reporter.Reset(ctx, dep)
			continue
		}
		dep.Fill(values[i])
		dep.ClearCustom()
		r.reporter.Report(ctx, dep)
	}
}

func (r *Resolver) clearDependents(ctx context.Context) {
	for _, dep := range r.binding.dependents() {
		dep.Clear()
		r.reporter.Reset(ctx, dep)
	}
}

func sameCode(value string, code domain.PostalCode) bool {
	current, err := domain.ParsePostalCode(value)
	return err == nil && current == code
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFound
	case errors.Is(err, models.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailure
	}
}
