package e2e

import (
	"context"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			tc, err := NewTestContext()
			if err != nil {
				t.Fatalf("create test context: %v", err)
			}
			sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
				tc.Close()
				return ctx, err
			})
			RegisterSteps(sc, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
