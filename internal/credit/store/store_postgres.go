package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"vatgate/internal/credit/models"
	id "vatgate/pkg/domain"
	"vatgate/pkg/platform/sentinel"
	"vatgate/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

const (
	pgCheckViolation  = "23514"
	pgUniqueViolation = "23505"
)

// PostgresStore persists balances in PostgreSQL. Every debit is a single
// conditional UPDATE; the CHECK constraint is the last line against a
// negative balance.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the credit tables if they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate credit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `
		SELECT account_id, balance, created_at, updated_at
		FROM credit_accounts
		WHERE account_id = $1
	`
	acct, err := scanAccount(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, accountID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) Create(ctx context.Context, accountID id.AccountID, initial decimal.Decimal, now time.Time) (*models.Account, error) {
	var acct *models.Account
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		query := `
			INSERT INTO credit_accounts (account_id, balance, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING account_id, balance, created_at, updated_at
		`
		var err error
		acct, err = scanAccount(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, accountID.String(), initial.Round(2), now))
		if err != nil {
			return translate(err)
		}
		return s.insertEntry(ctx, accountID, initial.Round(2), acct.Balance, models.ReasonInitial, "", now)
	})
	if err != nil {
		return nil, fmt.Errorf("create credit account: %w", err)
	}
	return acct, nil
}

// Debit atomically subtracts m.Amount, failing with
// models.ErrInsufficientBalance instead of going negative.
func (s *PostgresStore) Debit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error) {
	acct, err := s.move(ctx, accountID, m.Amount.Neg(), m)
	if err != nil {
		return nil, fmt.Errorf("debit credit account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) Credit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error) {
	acct, err := s.move(ctx, accountID, m.Amount, m)
	if err != nil {
		return nil, fmt.Errorf("credit credit account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) move(ctx context.Context, accountID id.AccountID, delta decimal.Decimal, m models.Movement) (*models.Account, error) {
	var acct *models.Account
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		query := `
			UPDATE credit_accounts
			SET balance = balance + $2, updated_at = $3
			WHERE account_id = $1
			RETURNING account_id, balance, created_at, updated_at
		`
		var err error
		acct, err = scanAccount(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, accountID.String(), delta, m.At))
		if err != nil {
			return translate(err)
		}
		return s.insertEntry(ctx, accountID, delta, acct.Balance, m.Reason, m.Reference, m.At)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Entries returns up to limit entries, newest first.
func (s *PostgresStore) Entries(ctx context.Context, accountID id.AccountID, limit int) ([]models.Entry, error) {
	query := `
		SELECT account_id, amount, balance_after, reason, reference, created_at
		FROM credit_ledger
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, accountID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list credit entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var acctID, reason string
		if err := rows.Scan(&acctID, &e.Amount, &e.BalanceAfter, &reason, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit entry: %w", err)
		}
		e.AccountID = id.AccountID(acctID)
		e.Reason = models.EntryReason(reason)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) insertEntry(ctx context.Context, accountID id.AccountID, amount, after decimal.Decimal, reason models.EntryReason, ref string, at time.Time) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO credit_ledger (account_id, amount, balance_after, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, accountID.String(), amount, after, string(reason), ref, at)
	if err != nil {
		return fmt.Errorf("insert credit entry: %w", err)
	}
	return nil
}

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return models.ErrInsufficientBalance
		case pgUniqueViolation:
			return sentinel.ErrConflict
		}
	}
	return err
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var acct models.Account
	var acctID string
	if err := row.Scan(&acctID, &acct.Balance, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return nil, err
	}
	acct.ID = id.AccountID(acctID)
	return &acct, nil
}
