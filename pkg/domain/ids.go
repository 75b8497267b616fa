package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "vatgate/pkg/domain-errors"
)

// AccountID is the opaque identity of the party whose credit pays for checks.
// Invariants: non-empty, at most 128 bytes, no whitespace or control characters.
type AccountID string

const maxAccountIDLen = 128

// ParseAccountID validates an account identifier received at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	if len(s) > maxAccountIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id is too long")
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id contains invalid characters")
	}
	return AccountID(s), nil
}

func (a AccountID) String() string {
	return string(a)
}

// IsNil returns true if the account ID is empty.
func (a AccountID) IsNil() bool {
	return a == ""
}

// BatchID identifies a single batch submission.
type BatchID uuid.UUID

// NewBatchID returns a fresh random batch ID.
func NewBatchID() BatchID {
	return BatchID(uuid.New())
}

// ParseBatchID parses a batch ID, rejecting the nil UUID.
func ParseBatchID(s string) (BatchID, error) {
	if s == "" {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "batch id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid batch id format")
	}
	if u == uuid.Nil {
		return BatchID{}, dErrors.New(dErrors.CodeInvalidInput, "batch id cannot be nil")
	}
	return BatchID(u), nil
}

func (b BatchID) String() string {
	return uuid.UUID(b).String()
}

// IsNil returns true if the batch ID is the zero value.
func (b BatchID) IsNil() bool {
	return uuid.UUID(b) == uuid.Nil
}

// MarshalText renders the batch ID as its canonical UUID string.
func (b BatchID) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText accepts the canonical UUID string.
func (b *BatchID) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	*b = BatchID(u)
	return nil
}
