package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"formcheck/internal/form"
	"formcheck/internal/presentation"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	KnowAddress(code, street, city, region string)
	FailLookups(code string)
	HoldAnswer(code string)
	ReleaseAnswer(code string) error
	SetToday(day time.Time)
	Edit(ctx context.Context, t form.FieldType, value string) (form.Outcome, error)
	Submit(ctx context.Context) ([]form.Outcome, error)
	Settle(ctx context.Context) error
	Field(ctx context.Context, t form.FieldType) (form.Field, error)
	LastReport(t form.FieldType) (presentation.Report, bool)
}

// RegisterSteps registers registration-form step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &formSteps{tc: tc}

	// Address service steps
	ctx.Step(`^the address service knows "([^"]*)" as "([^"]*)", "([^"]*)", "([^"]*)"$`, steps.knowAddress)
	ctx.Step(`^the address service is failing for "([^"]*)"$`, steps.failLookups)
	ctx.Step(`^the address service holds its answer for "([^"]*)"$`, steps.holdAnswer)
	ctx.Step(`^the address service releases its answer for "([^"]*)"$`, steps.releaseAnswer)

	// Input steps
	ctx.Step(`^today is "([^"]*)"$`, steps.today)
	ctx.Step(`^I enter "([^"]*)" into the (\w+) field$`, steps.enter)
	ctx.Step(`^the lookups settle$`, steps.settle)
	ctx.Step(`^I submit the form$`, steps.submit)

	// Assertion steps
	ctx.Step(`^the (\w+) field is valid$`, steps.fieldIsValid)
	ctx.Step(`^the (\w+) field is invalid with "([^"]*)"$`, steps.fieldIsInvalidWith)
	ctx.Step(`^the (\w+) field fails with (\w+)$`, steps.fieldFailsWith)
	ctx.Step(`^the (\w+) field holds "([^"]*)" and is locked$`, steps.fieldIsLocked)
	ctx.Step(`^the (\w+) field eventually holds "([^"]*)"$`, steps.fieldEventuallyHolds)
	ctx.Step(`^the (\w+) field is empty and editable$`, steps.fieldIsEmptyAndEditable)
	ctx.Step(`^the submission has (\d+) invalid fields?$`, steps.submissionInvalidCount)
}

type formSteps struct {
	tc       TestContext
	outcomes []form.Outcome
}

func (s *formSteps) knowAddress(_ context.Context, code, street, city, region string) error {
	s.tc.KnowAddress(code, street, city, region)
	return nil
}

func (s *formSteps) failLookups(_ context.Context, code string) error {
	s.tc.FailLookups(code)
	return nil
}

func (s *formSteps) holdAnswer(_ context.Context, code string) error {
	s.tc.HoldAnswer(code)
	return nil
}

func (s *formSteps) releaseAnswer(_ context.Context, code string) error {
	return s.tc.ReleaseAnswer(code)
}

func (s *formSteps) today(_ context.Context, day string) error {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return err
	}
	s.tc.SetToday(t)
	return nil
}

func (s *formSteps) enter(ctx context.Context, value, field string) error {
	t, err := form.ParseFieldType(field)
	if err != nil {
		return err
	}
	_, err = s.tc.Edit(ctx, t, value)
	return err
}

func (s *formSteps) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.tc.Settle(ctx)
}

func (s *formSteps) submit(ctx context.Context) error {
	outcomes, err := s.tc.Submit(ctx)
	s.outcomes = outcomes
	return err
}

func (s *formSteps) field(ctx context.Context, name string) (form.Field, error) {
	t, err := form.ParseFieldType(name)
	if err != nil {
		return form.Field{}, err
	}
	return s.tc.Field(ctx, t)
}

func (s *formSteps) fieldIsValid(ctx context.Context, name string) error {
	f, err := s.field(ctx, name)
	if err != nil {
		return err
	}
	if !f.Validity.Valid() {
		return fmt.Errorf("%s: expected valid, got %s", name, f.Validity.First())
	}
	if rep, ok := s.tc.LastReport(f.Type); ok && !rep.Valid {
		return fmt.Errorf("%s: last report was invalid: %q", name, rep.Message)
	}
	return nil
}

func (s *formSteps) fieldIsInvalidWith(ctx context.Context, name, message string) error {
	f, err := s.field(ctx, name)
	if err != nil {
		return err
	}
	rep, ok := s.tc.LastReport(f.Type)
	if !ok {
		return fmt.Errorf("%s: nothing presented", name)
	}
	if rep.Valid || rep.Message != message {
		return fmt.Errorf("%s: expected invalid with %q, got valid=%t message=%q", name, message, rep.Valid, rep.Message)
	}
	return nil
}

func (s *formSteps) fieldFailsWith(ctx context.Context, name, kind string) error {
	f, err := s.field(ctx, name)
	if err != nil {
		return err
	}
	if got := form.OutcomeOf(&f).Kind; string(got) != kind {
		return fmt.Errorf("%s: expected %s, got %q", name, kind, got)
	}
	return nil
}

func (s *formSteps) fieldIsLocked(ctx context.Context, name, value string) error {
	f, err := s.field(ctx, name)
	if err != nil {
		return err
	}
	if f.Value != value || !f.Disabled {
		return fmt.Errorf("%s: expected locked %q, got %q (disabled=%t)", name, value, f.Value, f.Disabled)
	}
	return nil
}

func (s *formSteps) fieldEventuallyHolds(ctx context.Context, name, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		f, err := s.field(ctx, name)
		if err != nil {
			return err
		}
		if f.Value == value {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: expected %q, still %q", name, value, f.Value)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *formSteps) fieldIsEmptyAndEditable(ctx context.Context, name string) error {
	f, err := s.field(ctx, name)
	if err != nil {
		return err
	}
	if f.Value != "" || f.Disabled {
		return fmt.Errorf("%s: expected empty and editable, got %q (disabled=%t)", name, f.Value, f.Disabled)
	}
	return nil
}

func (s *formSteps) submissionInvalidCount(_ context.Context, want int) error {
	got := 0
	for _, out := range s.outcomes {
		if !out.Valid {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d invalid fields, got %d", want, got)
	}
	return nil
}
