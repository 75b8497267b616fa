package credit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetAccountID() string
	GetAdminToken() string
}

// RegisterSteps registers balance, ledger and top-up step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &creditSteps{tc: tc}

	ctx.Step(`^I request my balance$`, steps.requestBalance)
	ctx.Step(`^my balance should be "([^"]*)"$`, steps.balanceShouldBe)
	ctx.Step(`^I request my ledger$`, steps.requestLedger)
	ctx.Step(`^the latest ledger entry should be a "([^"]*)" of "([^"]*)"$`, steps.latestEntryShouldBe)
	ctx.Step(`^the operator tops up my account by "([^"]*)"$`, steps.operatorTopUp)
	ctx.Step(`^someone tops up my account by "([^"]*)" without the admin token$`, steps.topUpWithoutToken)
}

type creditSteps struct {
	tc TestContext
}

func (s *creditSteps) requestBalance(ctx context.Context) error {
	return s.tc.GET("/account/credit", nil)
}

func (s *creditSteps) balanceShouldBe(ctx context.Context, want string) error {
	if err := s.requestBalance(ctx); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected balance %s, got %s", want, got)
	}
	return nil
}

func (s *creditSteps) requestLedger(ctx context.Context) error {
	return s.tc.GET("/account/ledger?limit=10", nil)
}

func (s *creditSteps) latestEntryShouldBe(ctx context.Context, reason, amount string) error {
	if err := s.requestLedger(ctx); err != nil {
		return err
	}
	gotReason, err := s.tc.GetResponseField("entries.0.reason")
	if err != nil {
		return err
	}
	gotAmount, err := s.tc.GetResponseField("entries.0.amount")
	if err != nil {
		return err
	}
	if fmt.Sprint(gotReason) != reason || fmt.Sprint(gotAmount) != amount {
		return fmt.Errorf("expected latest entry %s %s, got %v %v", reason, amount, gotReason, gotAmount)
	}
	return nil
}

func (s *creditSteps) operatorTopUp(ctx context.Context, amount string) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrSkip
	}
	return s.topUp(amount, map[string]string{"X-Admin-Token": s.tc.GetAdminToken()})
}

func (s *creditSteps) topUpWithoutToken(ctx context.Context, amount string) error {
	return s.topUp(amount, nil)
}

func (s *creditSteps) topUp(amount string, headers map[string]string) error {
	path := fmt.Sprintf("/admin/accounts/%s/topup", s.tc.GetAccountID())
	return s.tc.POSTWithHeaders(path, map[string]string{"amount": amount, "actor": "e2e"}, headers)
}
