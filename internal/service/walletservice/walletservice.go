package walletservice

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

//go:generate mockgen -source=walletservice.go -destination=mock_walletservice.go -package=walletservice

type BalanceRepo interface {
	GetUserBalance(ctx context.Context, userID int) (*domain.Balance, error)
}

type TransactionRepo interface {
	ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Transaction, int, error)
}

var ErrWalletNotFound = errors.New("wallet not found")

type Service struct {
	balanceRepo     BalanceRepo
	transactionRepo TransactionRepo
}

func New(balanceRepo BalanceRepo, transactionRepo TransactionRepo) *Service {
	return &Service{
		balanceRepo:     balanceRepo,
		transactionRepo: transactionRepo,
	}
}

func (s *Service) GetBalance(ctx context.Context, userID int) (*domain.Balance, error) {
	balance, err := s.balanceRepo.GetUserBalance(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Error(err))
		return nil, err
	}
	if balance == nil {
		return nil, ErrWalletNotFound
	}
	return balance, nil
}

// Transactions returns the newest ledger rows first.
func (s *Service) Transactions(ctx context.Context, userID int, page domain.Page) (domain.PageResult[domain.Transaction], error) {
	items, total, err := s.transactionRepo.ListByUser(ctx, userID, page)
	if err != nil {
		zap.L().Error("failed to fetch transactions", zap.Error(err))
		return domain.PageResult[domain.Transaction]{}, err
	}
	if items == nil {
		items = []domain.Transaction{}
	}
	return domain.NewPageResult(items, total, page), nil
}
