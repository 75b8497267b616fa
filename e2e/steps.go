package e2e

import (
	"github.com/cucumber/godog"

	"vatgate/e2e/steps/common"
	"vatgate/e2e/steps/credit"
	"vatgate/e2e/steps/vat"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background, authentication and generic response assertions
	common.RegisterSteps(ctx, tc)

	// Single checks, batches and NDJSON streaming
	vat.RegisterSteps(ctx, tc)

	// Balance, ledger and operator top-ups
	credit.RegisterSteps(ctx, tc)
}
