// Package e2e drives a form session through feature scenarios against a
// fake address service.
package e2e

import (
	"github.com/cucumber/godog"

	"formcheck/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	registration.RegisterSteps(ctx, tc)
}
