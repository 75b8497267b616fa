package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTxNil(t *testing.T) {
	ctx := WithTx(context.Background(), nil)
	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestExecFallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, Exec(context.Background(), db))

	sqlTx := &sql.Tx{}
	assert.Same(t, sqlTx, Exec(WithTx(context.Background(), sqlTx), db))
}

func TestRunJoinsExistingTx(t *testing.T) {
	sqlTx := &sql.Tx{}
	ctx := WithTx(context.Background(), sqlTx)
	called := false
	err := Run(ctx, nil, func(inner context.Context) error {
		called = true
		got, ok := From(inner)
		assert.True(t, ok)
		assert.Same(t, sqlTx, got)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
