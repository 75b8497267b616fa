package batch

import (
	"github.com/shopspring/decimal"
)

// MaxAffordable is floor(balance / cost), never negative.
func MaxAffordable(balance, cost decimal.Decimal) (int, error) {
	if !cost.IsPositive() {
		return 0, ErrInvalidCost
	}
	q, _ := balance.QuoRem(cost, 0)
	if !q.IsPositive() {
		return 0, nil
	}
	return int(q.IntPart()), nil
}

// NewPlan splits items into the affordable prefix and the skipped remainder
// and computes the deduction. It returns ErrInsufficientCredit, with every
// item skipped and the balance unchanged, when nothing is affordable.
func NewPlan(req Request) (Plan, error) {
	n, err := MaxAffordable(req.Balance, req.Cost)
	if err != nil {
		return Plan{}, err
	}
	if n == 0 {
		return Plan{
			Skipped:    append([]string(nil), req.Items...),
			Charged:    decimal.Zero,
			NewBalance: req.Balance,
		}, ErrInsufficientCredit
	}

	n = min(n, len(req.Items))
	charged := req.Cost.Mul(decimal.NewFromInt(int64(n)))
	return Plan{
		ToProcess:  append([]string(nil), req.Items[:n]...),
		Skipped:    append([]string(nil), req.Items[n:]...),
		Charged:    charged,
		NewBalance: req.Balance.Sub(charged).Round(2),
	}, nil
}
