package walletservice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

func NewMock(t *testing.T) (*Service, *MockBalanceRepo, *MockTransactionRepo) {
	ctrl := gomock.NewController(t)
	balanceRepo := NewMockBalanceRepo(ctrl)
	transactionRepo := NewMockTransactionRepo(ctrl)
	service := New(balanceRepo, transactionRepo)
	return service, balanceRepo, transactionRepo
}

func TestGetBalance(t *testing.T) {
	service, balanceRepo, _ := NewMock(t)
	tests := []struct {
		name            string
		userID          int
		prepareMock     func()
		expectedBalance *domain.Balance
		expectedError   error
	}{
		{
			name:   "Retrieve balance successfully",
			userID: 1,
			prepareMock: func() {
				balanceRepo.EXPECT().GetUserBalance(gomock.Any(), 1).Return(&domain.Balance{
					UserID:  1,
					Current: decimal.RequireFromString("100.5"),
					Spent:   decimal.RequireFromString("20"),
				}, nil)
			},
			expectedBalance: &domain.Balance{
				UserID:  1,
				Current: decimal.RequireFromString("100.5"),
				Spent:   decimal.RequireFromString("20"),
			},
		},
		{
			name:   "Unknown user",
			userID: 2,
			prepareMock: func() {
				balanceRepo.EXPECT().GetUserBalance(gomock.Any(), 2).Return(nil, nil)
			},
			expectedError: ErrWalletNotFound,
		},
		{
			name:   "Error retrieving balance",
			userID: 1,
			prepareMock: func() {
				balanceRepo.EXPECT().GetUserBalance(gomock.Any(), 1).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			balance, err := service.GetBalance(context.Background(), tt.userID)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedBalance, balance)
			}
		})
	}
}

func TestTransactions(t *testing.T) {
	service, _, transactionRepo := NewMock(t)
	rows := []domain.Transaction{
		{ID: "t2", UserID: 1, Title: "Refund: Gift card", Amount: decimal.NewFromInt(10), Type: domain.TransactionCredit},
		{ID: "t1", UserID: 1, Title: "Purchase: Gift card", Amount: decimal.NewFromInt(10), Type: domain.TransactionDebit},
	}

	tests := []struct {
		name          string
		page          domain.Page
		prepareMock   func()
		expected      domain.PageResult[domain.Transaction]
		expectedError error
	}{
		{
			name: "First page with more",
			page: domain.NewPage(2, 0),
			prepareMock: func() {
				transactionRepo.EXPECT().ListByUser(gomock.Any(), 1, domain.Page{Limit: 2, Skip: 0}).Return(rows, 5, nil)
			},
			expected: domain.PageResult[domain.Transaction]{Items: rows, Total: 5, HasMore: true},
		},
		{
			name: "Last page",
			page: domain.NewPage(2, 4),
			prepareMock: func() {
				transactionRepo.EXPECT().ListByUser(gomock.Any(), 1, domain.Page{Limit: 2, Skip: 4}).Return(rows[:1], 5, nil)
			},
			expected: domain.PageResult[domain.Transaction]{Items: rows[:1], Total: 5, HasMore: false},
		},
		{
			name: "Empty ledger",
			page: domain.NewPage(0, 0),
			prepareMock: func() {
				transactionRepo.EXPECT().ListByUser(gomock.Any(), 1, domain.Page{Limit: domain.DefaultPageLimit}).Return(nil, 0, nil)
			},
			expected: domain.PageResult[domain.Transaction]{Items: []domain.Transaction{}},
		},
		{
			name: "Store error",
			page: domain.NewPage(10, 0),
			prepareMock: func() {
				transactionRepo.EXPECT().ListByUser(gomock.Any(), 1, gomock.Any()).Return(nil, 0, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			res, err := service.Transactions(context.Background(), 1, tt.page)
			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}
}
