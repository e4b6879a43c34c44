package storage

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

func TestBuildTransactionFilter(t *testing.T) {
	t.Run("条件なし", func(t *testing.T) {
		clause, args := buildTransactionFilter(sedori.TransactionFilter{})
		assert.Equal(t, " ORDER BY purchase_date DESC, created_at DESC", clause)
		assert.Empty(t, args)
	})

	t.Run("全条件", func(t *testing.T) {
		status := sedori.StatusInStock
		pointStatus := sedori.PointPending
		from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

		clause, args := buildTransactionFilter(sedori.TransactionFilter{
			Status:      &status,
			PointStatus: &pointStatus,
			From:        &from,
			To:          &to,
			Limit:       50,
			Offset:      100,
		})

		assert.Equal(t,
			" WHERE status = $1 AND point_status = $2 AND purchase_date >= $3 AND purchase_date < $4"+
				" ORDER BY purchase_date DESC, created_at DESC LIMIT $5 OFFSET $6",
			clause)
		assert.Equal(t, []any{status, pointStatus, from, to, 50, 100}, args)
	})
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, sedori.ErrCouponNotFound, "x"))

	assert.ErrorIs(t, mapError(sql.ErrNoRows, sedori.ErrCouponNotFound, "x"), sedori.ErrCouponNotFound)

	dup := &pq.Error{Code: "23505", Constraint: "payment_methods_name_key"}
	assert.ErrorIs(t, mapError(dup, nil, "x"), sedori.ErrDuplicateRecord)

	fk := &pq.Error{Code: "23503", Constraint: "transactions_payment_method_id_fkey"}
	var ruleErr *sedori.BusinessRuleError
	if assert.ErrorAs(t, mapError(fk, nil, "x"), &ruleErr) {
		assert.Equal(t, "foreign_key", ruleErr.Rule)
	}

	cause := errors.New("connection reset")
	err := mapError(cause, nil, "取引作成に失敗しました")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "取引作成に失敗しました")
}
