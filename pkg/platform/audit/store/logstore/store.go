// Package logstore writes audit events as structured log lines.
package logstore

import (
	"context"
	"log/slog"

	audit "vatgate/pkg/platform/audit"
)

type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	attrs := []any{
		"audit_id", event.ID.String(),
		"action", string(event.Action),
		"account_id", event.AccountID.String(),
		"items", event.Items,
		"checked", event.Checked,
		"skipped", event.Skipped,
		"charged", event.Charged.StringFixed(2),
		"balance", event.Balance.StringFixed(2),
	}
	if !event.BatchID.IsNil() {
		attrs = append(attrs, "batch_id", event.BatchID.String())
	}
	if !event.Credited.IsZero() {
		attrs = append(attrs, "credited", event.Credited.StringFixed(2))
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	if event.ActorID != "" {
		attrs = append(attrs, "actor_id", event.ActorID)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	s.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}
