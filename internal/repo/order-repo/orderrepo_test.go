package orderrepo

import (
	"context"
	"errors"
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

var orderCols = []string{
	"id", "user_id", "product_id", "product_name", "region_id", "region_name", "denomination_id", "quantity_label",
	"custom_input_value", "amount", "status", "fulfillment_type", "delivered_code", "rejection_reason", "provider_name",
	"provider_order_id", "payment_id", "created_at", "updated_at",
}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func orderRow(rows *pgxmock.Rows, id string, status domain.OrderStatus, code *string) *pgxmock.Rows {
	none := (*string)(nil)
	return rows.AddRow(id, 1, "p1", "Gold", none, none, none, none, none, decimal.NewFromInt(5),
		status, domain.FulfillmentManual, code, none, none, none, none, time.Time{}, time.Time{})
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := NewMock(t)
	code := "ABC-123"

	tests := []struct {
		name      string
		id        string
		mockSetup func()
		expectErr bool
		expectNil bool
	}{
		{
			name: "Order found",
			id:   "o1",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
					WithArgs("o1").
					WillReturnRows(orderRow(pgxmock.NewRows(orderCols), "o1", domain.OrderCompleted, &code))
			},
		},
		{
			name: "Order not found",
			id:   "missing",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
					WithArgs("missing").
					WillReturnError(pgx.ErrNoRows)
			},
			expectNil: true,
		},
		{
			name: "Database error",
			id:   "o1",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
					WithArgs("o1").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
			expectNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			order, err := repo.GetByID(context.Background(), tt.id)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.expectNil {
				assert.Nil(t, order)
				return
			}
			assert.Equal(t, domain.OrderCompleted, order.Status)
			assert.Equal(t, &code, order.DeliveredCode)
		})
	}
}

func TestRepository_GetForUpdate(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1 FOR UPDATE")).
		WithArgs("o1").
		WillReturnRows(orderRow(pgxmock.NewRows(orderCols), "o1", domain.OrderPending, nil))

	order, err := repo.GetForUpdate(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	order := &domain.Order{
		ID:              "o1",
		UserID:          1,
		ProductID:       "p1",
		ProductName:     "Gold",
		Amount:          decimal.NewFromInt(5),
		Status:          domain.OrderPending,
		FulfillmentType: domain.FulfillmentAPI,
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders (id, user_id, product_id")).
		WithArgs("o1", 1, "p1", "Gold", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), order.Amount, "pending", "api", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	require.NoError(t, repo.Create(context.Background(), order))
	assert.Equal(t, created, order.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	repo, mock := NewMock(t)
	reason := "KD1S: out of stock"

	order := &domain.Order{ID: "o1", Status: domain.OrderCancelled, FulfillmentType: domain.FulfillmentAPI, RejectionReason: &reason}
	mock.ExpectExec(regexp.QuoteMeta("delivered_code = COALESCE(delivered_code, $3)")).
		WithArgs("cancelled", "api", (*string)(nil), &reason, (*string)(nil), (*string)(nil), "o1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.Update(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM orders WHERE user_id = $1")).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))
	rows := pgxmock.NewRows(orderCols)
	orderRow(rows, "o2", domain.OrderPending, nil)
	orderRow(rows, "o1", domain.OrderCompleted, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs(1, 2, 10).
		WillReturnRows(rows)

	orders, total, err := repo.ListByUser(context.Background(), 1, domain.Page{Limit: 2, Skip: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
}

func TestRepository_ListPendingProvider(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND provider_order_id IS NOT NULL")).
		WithArgs("pending", 20).
		WillReturnRows(orderRow(pgxmock.NewRows(orderCols), "o1", domain.OrderPending, nil))

	orders, err := repo.ListPendingProvider(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
