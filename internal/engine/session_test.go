package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"formcheck/internal/address/models"
	"formcheck/internal/address/ports/mocks"
	"formcheck/internal/form"
	"formcheck/internal/presentation"
	"formcheck/internal/validation"
	"formcheck/pkg/domain"
	"formcheck/pkg/requestcontext"
)

var praca = &models.Address{PostalCode: "01001-000", Street: "Praça da Sé", City: "São Paulo", Region: "SP"}

type SessionSuite struct {
	suite.Suite
	ctx      context.Context
	stop     context.CancelFunc
	lookup   *mocks.MockLookup
	recorder *presentation.Recorder
	session  *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.ctx = context.Background()
	s.lookup = mocks.NewMockLookup(gomock.NewController(s.T()))
	s.recorder = presentation.NewRecorder()

	loop := NewLoop(nil)
	var runCtx context.Context
	runCtx, s.stop = context.WithCancel(context.Background())
	go func() { _ = loop.Run(runCtx) }()

	var err error
	s.session, err = NewSession(SessionConfig{
		Loop:   loop,
		Lookup: s.lookup,
		Sink:   s.recorder,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s.Require().NoError(err)
}

func (s *SessionSuite) TearDownTest() {
	s.stop()
}

func (s *SessionSuite) field(t form.FieldType) form.Field {
	fields, err := s.session.Snapshot(s.ctx)
	s.Require().NoError(err)
	for _, f := range fields {
		if f.Type == t {
			return f
		}
	}
	s.FailNow("field not in snapshot", t.String())
	return form.Field{}
}

func (s *SessionSuite) TestPostalCodeFillsDependents() {
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).Return(praca, nil)

	_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "01001-000")
	s.Require().NoError(err)
	s.Require().NoError(s.session.Settle(s.ctx))

	s.True(s.field(form.FieldPostalCode).Validity.Valid())
	for t, want := range map[form.FieldType]string{
		form.FieldStreet: "Praça da Sé",
		form.FieldCity:   "São Paulo",
		form.FieldRegion: "SP",
	} {
		f := s.field(t)
		s.Equal(want, f.Value)
		s.True(f.Disabled)
	}
	last, _ := s.recorder.Last(form.FieldPostalCode)
	s.True(last.Valid)

	_, err = s.session.Edit(s.ctx, form.FieldCity, "Campinas")
	s.ErrorIs(err, ErrFieldDisabled)
}

func (s *SessionSuite) TestPostalCodeNotFound() {
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, models.ErrNotFound)

	_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "99999-999")
	s.Require().NoError(err)
	s.Require().NoError(s.session.Settle(s.ctx))

	postal := s.field(form.FieldPostalCode)
	s.Equal(form.KindCustomRejected, form.OutcomeOf(&postal).Kind)
	last, _ := s.recorder.Last(form.FieldPostalCode)
	s.Equal("O CEP informado não foi encontrado.", last.Message)
	for _, t := range []form.FieldType{form.FieldStreet, form.FieldCity, form.FieldRegion} {
		f := s.field(t)
		s.Empty(f.Value)
		s.False(f.Disabled)
	}
}

func (s *SessionSuite) TestLaterEditWinsOverEarlierLookup() {
	release := make(chan struct{})
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).DoAndReturn(
		func(context.Context, domain.PostalCode) (*models.Address, error) {
			<-release
			return praca, nil
		})
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("20040020")).Return(
		&models.Address{Street: "Avenida Rio Branco", City: "Rio de Janeiro", Region: "RJ"}, nil)

	_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "01001-000")
	s.Require().NoError(err)
	_, err = s.session.Edit(s.ctx, form.FieldPostalCode, "20040-020")
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return s.field(form.FieldCity).Value == "Rio de Janeiro"
	}, time.Second, time.Millisecond)

	close(release)
	s.Require().NoError(s.session.Settle(s.ctx))

	s.Equal("Avenida Rio Branco", s.field(form.FieldStreet).Value)
	s.Equal("Rio de Janeiro", s.field(form.FieldCity).Value)
	s.Equal("RJ", s.field(form.FieldRegion).Value)
}

func (s *SessionSuite) TestBirthDateBoundary() {
	birth := "2000-01-01"

	ctx := requestcontext.WithTime(s.ctx, time.Date(2017, 12, 31, 12, 0, 0, 0, time.UTC))
	out, err := s.session.Edit(ctx, form.FieldBirthDate, birth)
	s.Require().NoError(err)
	s.Equal(form.KindCustomRejected, out.Kind)
	last, _ := s.recorder.Last(form.FieldBirthDate)
	s.Equal("O usuário deve ter 18 anos ou mais para se cadastrar.", last.Message)

	ctx = requestcontext.WithTime(s.ctx, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	out, err = s.session.Edit(ctx, form.FieldBirthDate, birth)
	s.Require().NoError(err)
	s.True(out.Valid)
}

func (s *SessionSuite) TestBirthDateMessageFollowsMinimumAge() {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	recorder := presentation.NewRecorder()
	session, err := NewSession(SessionConfig{
		Loop:      loop,
		Lookup:    s.lookup,
		Sink:      recorder,
		BirthDate: &validation.BirthDateValidator{MinYears: 21},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	s.Require().NoError(err)

	editCtx := requestcontext.WithTime(s.ctx, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC))
	out, err := session.Edit(editCtx, form.FieldBirthDate, "2000-01-01")
	s.Require().NoError(err)
	s.Equal(form.KindCustomRejected, out.Kind)
	last, _ := recorder.Last(form.FieldBirthDate)
	s.Equal("O usuário deve ter 21 anos ou mais para se cadastrar.", last.Message)
}

func (s *SessionSuite) TestNationalID() {
	out, err := s.session.Edit(s.ctx, form.FieldNationalID, "111.111.111-11")
	s.Require().NoError(err)
	s.Equal(form.KindCustomRejected, out.Kind)

	out, err = s.session.Edit(s.ctx, form.FieldNationalID, "529.982.247-25")
	s.Require().NoError(err)
	s.True(out.Valid)
}

func (s *SessionSuite) TestUnknownField() {
	_, err := s.session.Edit(s.ctx, form.FieldType("nickname"), "x")
	s.ErrorIs(err, ErrUnknownField)
}

func (s *SessionSuite) TestSubmitEmptyFormReportsEveryFieldMissing() {
	outcomes, err := s.session.Submit(s.ctx)
	s.Require().NoError(err)

	s.Len(outcomes, len(form.FieldTypes))
	for _, out := range outcomes {
		s.Equal(form.KindMissing, out.Kind, out.Field.String())
	}
}

func (s *SessionSuite) TestSubmitSkipsFilledFieldsAndDoesNotLookUpAgain() {
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(1).Return(praca, nil)

	_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "01001000")
	s.Require().NoError(err)

	outcomes, err := s.session.Submit(s.ctx)
	s.Require().NoError(err)

	s.Len(outcomes, len(form.FieldTypes)-3)
	for _, out := range outcomes {
		if out.Field == form.FieldPostalCode {
			s.True(out.Valid)
		}
	}
}

func (s *SessionSuite) TestSettleHonoursContext() {
	release := make(chan struct{})
	defer close(release)
	s.lookup.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.PostalCode) (*models.Address, error) {
			<-release
			return praca, nil
		})
	_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "01001000")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.session.Settle(ctx), context.DeadlineExceeded)
}

// Edits and settles arriving from many goroutines all serialize on the loop;
// run with -race.
func (s *SessionSuite) TestConcurrentEditAndSettle() {
	s.lookup.EXPECT().Lookup(gomock.Any(), domain.PostalCode("01001000")).Return(praca, nil).AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.session.Edit(s.ctx, form.FieldPostalCode, "01001-000")
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			s.NoError(s.session.Settle(s.ctx))
		}()
	}
	wg.Wait()
	s.Require().NoError(s.session.Settle(s.ctx))

	var pending int
	s.Require().NoError(s.session.do(s.ctx, func(context.Context) {
		pending = s.session.resolver.Pending()
	}))
	s.Zero(pending)
	s.True(s.field(form.FieldPostalCode).Validity.Valid())
	s.Equal("São Paulo", s.field(form.FieldCity).Value)
}

func (s *SessionSuite) TestNewSessionRequiresCollaborators() {
	_, err := NewSession(SessionConfig{Lookup: s.lookup, Sink: s.recorder})
	s.Error(err)
	_, err = NewSession(SessionConfig{Loop: NewLoop(nil), Sink: s.recorder})
	s.Error(err)
	_, err = NewSession(SessionConfig{Loop: NewLoop(nil), Lookup: s.lookup})
	s.Error(err)
}
