package balancerepo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestRepository_GetUserBalance(t *testing.T) {
	repo, mock := NewMock(t)

	tests := []struct {
		name      string
		userID    int
		mockSetup func()
		expectErr bool
		result    *domain.Balance
	}{
		{
			name:   "Valid userID returns balance",
			userID: 1,
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"id", "balance", "spent"}).
					AddRow(1, decimal.NewFromInt(100), decimal.NewFromInt(50))
				mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN transactions t ON t.user_id = u.id WHERE u.id = $1")).
					WithArgs(1).
					WillReturnRows(rows)
			},
			result: &domain.Balance{UserID: 1, Current: decimal.NewFromInt(100), Spent: decimal.NewFromInt(50)},
		},
		{
			name:   "Non-existing userID returns nil",
			userID: 99,
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
					WithArgs(99).
					WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name:   "Database error",
			userID: 1,
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
					WithArgs(1).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.GetUserBalance(context.Background(), tt.userID)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestRepository_Debit(t *testing.T) {
	repo, mock := NewMock(t)
	amount := decimal.NewFromInt(30)

	tests := []struct {
		name      string
		mockSetup func()
		expectOK  bool
		expectErr bool
	}{
		{
			name: "Sufficient balance",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("SET balance = balance - $1 WHERE id = $2 AND balance >= $1")).
					WithArgs(amount, 1).
					WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(70)))
			},
			expectOK: true,
		},
		{
			name: "Insufficient balance changes no row",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("SET balance = balance - $1")).
					WithArgs(amount, 1).
					WillReturnError(pgx.ErrNoRows)
			},
			expectOK: false,
		},
		{
			name: "Check constraint",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta("SET balance = balance - $1")).
					WithArgs(amount, 1).
					WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "users_balance_check"})
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			ok, err := repo.Debit(context.Background(), 1, amount)
			assert.Equal(t, tt.expectOK, ok)
			if tt.expectErr {
				assert.True(t, pg.IsViolation(err, pg.ViolationCheck))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepository_Credit(t *testing.T) {
	repo, mock := NewMock(t)
	amount := decimal.NewFromInt(5)

	mock.ExpectExec(regexp.QuoteMeta("SET balance = balance + $1 WHERE id = $2")).
		WithArgs(amount, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.Credit(context.Background(), 1, amount))

	mock.ExpectExec(regexp.QuoteMeta("SET balance = balance + $1")).
		WithArgs(amount, 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Credit(context.Background(), 2, amount), ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
