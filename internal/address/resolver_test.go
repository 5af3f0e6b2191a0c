package address

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"formcheck/internal/address/metrics"
	"formcheck/internal/address/models"
	"formcheck/internal/address/ports/mocks"
	"formcheck/internal/form"
	"formcheck/pkg/domain"
	"formcheck/pkg/requestcontext"
)

// queue is a Dispatcher the test drains by hand.
type queue struct {
	mu    sync.Mutex
	tasks []func(context.Context)
}

func (q *queue) Post(task func(context.Context)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		task(ctx)
	}
}

// reporter records what was presented per field.
type reporter struct {
	reported map[form.FieldType]int
	reset    map[form.FieldType]int
}

func newReporter() *reporter {
	return &reporter{reported: map[form.FieldType]int{}, reset: map[form.FieldType]int{}}
}

func (r *reporter) Report(_ context.Context, f *form.Field) form.Outcome {
	r.reported[f.Type]++
	return form.OutcomeOf(f)
}

func (r *reporter) Reset(_ context.Context, f *form.Field) {
	r.reset[f.Type]++
}

var (
	se = &models.Address{PostalCode: "01001-000", Street: "Praça da Sé", City: "São Paulo", Region: "SP"}
	rj = &models.Address{PostalCode: "20040-020", Street: "Avenida Rio Branco", City: "Rio de Janeiro", Region: "RJ"}
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	lookup   *mocks.MockLookup
	queue    *queue
	reporter *reporter
	metrics  *metrics.Metrics
	form     *form.Form
	binding  Binding
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.lookup = mocks.NewMockLookup(s.ctrl)
	s.queue = &queue{}
	s.reporter = newReporter()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.form = form.New(form.DefaultRules())

	var err error
	s.binding, err = BindingFor(s.form)
	s.Require().NoError(err)
	s.resolver, err = NewResolver(s.lookup, s.binding, s.queue, s.reporter,
		WithMetrics(s.metrics),
		WithTimeout(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

// edit sets the postal code and runs the resolver, then settles.
func (s *ResolverSuite) edit(value string) {
	s.binding.PostalCode.SetValue(value)
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.settle()
}

// settle drains completions until every issued lookup has been applied.
func (s *ResolverSuite) settle() {
	idle := s.resolver.Idle()
	s.Require().Eventually(func() bool {
		s.queue.drain(s.ctx)
		select {
		case <-idle:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	s.Zero(s.resolver.Pending())
}

func (s *ResolverSuite) outcomeCount(outcome string) float64 {
	return testutil.ToFloat64(s.metrics.LookupOutcome.WithLabelValues(outcome))
}

func (s *ResolverSuite) TestFoundFillsAndLocksDependents() {
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).Return(se, nil)

	s.edit("01001-000")

	s.True(s.binding.PostalCode.Validity.Valid())
	for _, tc := range []struct {
		field *form.Field
		want  string
	}{
		{s.binding.Street, "Praça da Sé"},
		{s.binding.City, "São Paulo"},
		{s.binding.Region, "SP"},
	} {
		s.Equal(tc.want, tc.field.Value)
		s.True(tc.field.Disabled)
		s.True(tc.field.Validity.Valid())
	}
	s.Equal(1, s.reporter.reported[form.FieldPostalCode])
	s.Equal(1, s.reporter.reported[form.FieldStreet])
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeFound))
}

func (s *ResolverSuite) TestBlankDependentStaysEditable() {
	partial := &models.Address{PostalCode: "38400-000", City: "Uberlândia", Region: "MG"}
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("38400000")).Return(partial, nil)

	s.edit("38400000")

	s.Empty(s.binding.Street.Value)
	s.False(s.binding.Street.Disabled)
	s.Equal(1, s.reporter.reset[form.FieldStreet])
	s.True(s.binding.City.Disabled)
}

func (s *ResolverSuite) TestNotFoundRaisesCustomAndClearsDependents() {
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).Return(se, nil)
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("99999999")).Return(nil, models.ErrNotFound)

	s.edit("01001-000")
	s.edit("99999-999")

	s.Equal(form.ConditionCustom, s.binding.PostalCode.Validity.First())
	s.Equal(form.ReasonNotFound, s.binding.PostalCode.Validity.CustomReason)
	s.Equal(form.KindCustomRejected, form.OutcomeOf(s.binding.PostalCode).Kind)
	for _, dep := range s.binding.dependents() {
		s.Empty(dep.Value)
		s.False(dep.Disabled)
	}
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeNotFound))
}

func (s *ResolverSuite) TestFailureIsDistinctFromNotFound() {
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	s.edit("01001000")

	s.Equal(form.ReasonUnavailable, s.binding.PostalCode.Validity.CustomReason)
	s.Equal(form.KindTransportFailure, form.OutcomeOf(s.binding.PostalCode).Kind)
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeFailure))
}

func (s *ResolverSuite) TestTimeoutIsAFailure() {
	resolver, err := NewResolver(s.lookup, s.binding, s.queue, s.reporter, WithTimeout(10*time.Millisecond))
	s.Require().NoError(err)
	s.resolver = resolver
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ domain.PostalCode) (*models.Address, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	s.edit("01001000")

	s.Equal(form.ReasonUnavailable, s.binding.PostalCode.Validity.CustomReason)
}

func (s *ResolverSuite) TestInvalidCodeSkipsLookup() {
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(se, nil)
	s.edit("01001-000")

	for _, value := range []string{"", "0100", "01001-00a", "010010000"} {
		s.edit(value)
		for _, dep := range s.binding.dependents() {
			s.Empty(dep.Value, "value %q", value)
			s.False(dep.Disabled, "value %q", value)
		}
	}
}

func (s *ResolverSuite) TestRequestIDTravelsWithLookup() {
	var seen string
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ domain.PostalCode) (*models.Address, error) {
			seen = requestcontext.RequestID(ctx)
			return se, nil
		})

	s.edit("01001000")

	s.NotEmpty(seen)
}

// A lookup issued first and completing last must not overwrite the newer
// result.
func (s *ResolverSuite) TestOutOfOrderCompletionIsDiscarded() {
	releaseFirst := make(chan struct{})
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).DoAndReturn(
		func(context.Context, domain.PostalCode) (*models.Address, error) {
			<-releaseFirst
			return se, nil
		})
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("20040020")).Return(rj, nil)

	s.binding.PostalCode.SetValue("01001-000")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.binding.PostalCode.SetValue("20040-020")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)

	s.Require().Eventually(func() bool { return s.queue.Len() == 1 }, time.Second, time.Millisecond)
	s.queue.drain(s.ctx)
	s.Equal("Rio de Janeiro", s.binding.City.Value)

	close(releaseFirst)
	s.settle()

	s.Equal("Avenida Rio Branco", s.binding.Street.Value)
	s.Equal("Rio de Janeiro", s.binding.City.Value)
	s.Equal("RJ", s.binding.Region.Value)
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeStale))
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeFound))
}

// A superseded request is discarded even when the field has come back to
// the code it was issued for.
func (s *ResolverSuite) TestSupersededRequestWithSameCodeIsDiscarded() {
	releaseFirst := make(chan struct{})
	var calls atomic.Int32
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).Times(2).DoAndReturn(
		func(context.Context, domain.PostalCode) (*models.Address, error) {
			if calls.Add(1) == 1 {
				<-releaseFirst
				return nil, models.ErrNotFound
			}
			return se, nil
		})
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("20040020")).Return(rj, nil)

	s.binding.PostalCode.SetValue("01001-000")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.Require().Eventually(func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	s.binding.PostalCode.SetValue("20040-020")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.binding.PostalCode.SetValue("01001-000")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)

	close(releaseFirst)
	s.settle()

	s.True(s.binding.PostalCode.Validity.Valid())
	s.Equal("São Paulo", s.binding.City.Value)
	s.Equal(float64(2), s.outcomeCount(metrics.OutcomeStale))
}

// A completion whose code no longer matches the field is dropped even if no
// newer lookup was issued.
func (s *ResolverSuite) TestCompletionForEditedValueIsDiscarded() {
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(se, nil)

	s.binding.PostalCode.SetValue("01001-000")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.Require().Eventually(func() bool { return s.queue.Len() == 1 }, time.Second, time.Millisecond)
	s.binding.PostalCode.SetValue("01001-00")
	s.queue.drain(s.ctx)

	for _, dep := range s.binding.dependents() {
		s.Empty(dep.Value)
	}
	s.Equal(float64(1), s.outcomeCount(metrics.OutcomeStale))
}

func (s *ResolverSuite) TestIdleTracksPendingLookups() {
	select {
	case <-s.resolver.Idle():
	default:
		s.Fail("idle channel should be closed with nothing pending")
	}

	release := make(chan struct{})
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.PostalCode) (*models.Address, error) {
			<-release
			return se, nil
		})
	s.binding.PostalCode.SetValue("01001-000")
	s.resolver.Validate(s.ctx, s.binding.PostalCode)
	s.Equal(1, s.resolver.Pending())

	idle := s.resolver.Idle()
	select {
	case <-idle:
		s.Fail("idle channel closed while a lookup is pending")
	default:
	}

	close(release)
	s.settle()
	s.Equal("São Paulo", s.binding.City.Value)
}

func TestNewResolver(t *testing.T) {
	f := form.New(form.DefaultRules())
	binding, err := BindingFor(f)
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	lookup := mocks.NewMockLookup(ctrl)

	_, err = NewResolver(nil, binding, &queue{}, newReporter())
	assert.Error(t, err)
	_, err = NewResolver(lookup, Binding{}, &queue{}, newReporter())
	assert.Error(t, err)
	_, err = NewResolver(lookup, binding, nil, newReporter())
	assert.Error(t, err)
	_, err = NewResolver(lookup, binding, &queue{}, nil)
	assert.Error(t, err)

	_, err = BindingFor(form.New(map[form.FieldType]form.Rules{form.FieldPostalCode: {}}))
	assert.Error(t, err)
}
