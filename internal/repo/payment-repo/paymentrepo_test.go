package paymentrepo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

var paymentCols = []string{
	"id", "user_id", "amount", "currency", "provider", "status", "intent", "transaction_ref", "metadata",
	"failure_reason", "created_at", "updated_at",
}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestRepository_GetForUpdate(t *testing.T) {
	repo, mock := NewMock(t)
	ref := "TST123"
	metadata := []byte(`{"items":[{"productId":"p1","productName":"Gold","price":"5","quantity":2,"cartItemId":"c1"}]}`)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE id = $1 FOR UPDATE")).
		WithArgs("pay-1").
		WillReturnRows(pgxmock.NewRows(paymentCols).AddRow(
			"pay-1", 1, decimal.NewFromInt(10), "USD", "paytabs", domain.PaymentPending, domain.IntentCart, &ref, metadata,
			(*string)(nil), time.Time{}, time.Time{}))

	p, err := repo.GetForUpdate(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCart, p.Intent)
	require.Len(t, p.Metadata.Items, 1)
	assert.Equal(t, 2, p.Metadata.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(p.Metadata.Total()))
	assert.Equal(t, []string{"c1"}, p.Metadata.CartItemIDs())
}

func TestRepository_GetByTransactionRef_NotFound(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE transaction_ref = $1")).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByTransactionRef(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	p := &domain.Payment{
		ID:       "pay-1",
		UserID:   1,
		Amount:   decimal.NewFromInt(25),
		Currency: "USD",
		Provider: "paytabs",
		Status:   domain.PaymentPending,
		Intent:   domain.IntentTopUp,
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments (id, user_id, amount, currency, provider, status, intent, metadata)")).
		WithArgs("pay-1", 1, p.Amount, "USD", "paytabs", "pending", "topup", []byte(`{}`)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, created, p.CreatedAt)
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock := NewMock(t)
	reason := "declined"

	tests := []struct {
		name     string
		affected int64
		expectOK bool
	}{
		{name: "Pending payment moves to terminal status", affected: 1, expectOK: true},
		{name: "Already terminal payment is left alone", affected: 0, expectOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status = 'pending'")).
				WithArgs("failed", &reason, "pay-1").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := repo.UpdateStatus(context.Background(), "pay-1", domain.PaymentFailed, &reason)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectOK, ok)
		})
	}
}

func TestRepository_SetTransactionRef(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET transaction_ref = $1, updated_at = now()")).
		WithArgs("TST1", "pay-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.SetTransactionRef(context.Background(), "pay-1", "TST1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
