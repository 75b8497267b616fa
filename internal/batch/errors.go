package batch

import (
	dErrors "vatgate/pkg/domain-errors"
)

var (
	// ErrInsufficientCredit means the balance cannot cover a single item.
	ErrInsufficientCredit = dErrors.New(dErrors.CodeInsufficientCredit, "insufficient credit for a single check")
	// ErrInvalidCost rejects a non-positive per-item cost.
	ErrInvalidCost = dErrors.New(dErrors.CodeInvalidInput, "cost per check must be positive")
)
