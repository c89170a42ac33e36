package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/pg"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	mockTxManager := pg.NewMockTXManager(ctrl)
	assert.NoError(t, err)
	repo := New(mockDB, mockTxManager)
	defer mockDB.Close()

	return repo, mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.UserRepo)
	assert.NotNil(t, repo.BalanceRepo)
	assert.NotNil(t, repo.TransactionRepo)
	assert.NotNil(t, repo.OrderRepo)
	assert.NotNil(t, repo.PaymentRepo)
	assert.NotNil(t, repo.InventoryRepo)
	assert.NotNil(t, repo.ProductRepo)
	assert.NotNil(t, repo.CartRepo)
	assert.NotNil(t, repo.NotificationRepo)
	assert.NotNil(t, repo.TXManager)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
