package productrepo

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

var productCols = []string{"id", "name", "category", "price", "denominations", "regions", "custom_input", "api_config", "auto_deliver_stock"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("pubg").
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(
			"pubg", "PUBG UC", "games", decimal.NullDecimal{},
			[]byte(`[{"id":"d1","price":5},{"id":"d2","amount":"9.5"}]`),
			[]byte(`[{"id":"tr","name":"Turkey","customInput":{"enabled":true,"label":"ID","required":true}}]`),
			[]byte(nil),
			[]byte(`{"type":"api","serviceId":42,"providerName":"KD1S"}`),
			true,
		))

	p, err := repo.GetByID(context.Background(), "pubg")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.Price.Valid)
	require.Len(t, p.Denominations, 2)
	price, ok := p.Denominations[0].Number("price")
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(price))
	assert.Equal(t, "42", p.ServiceID())
	assert.Equal(t, domain.FulfillmentAPI, p.Fulfillment())
	assert.True(t, p.ActiveCustomInput("tr").Required)
	assert.Nil(t, p.CustomInput)
	assert.True(t, p.AutoDeliverStock)
}

func TestRepository_GetByID_MalformedFieldIsIgnored(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("gift").
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(
			"gift", "Gift card", "cards", decimal.NewNullDecimal(decimal.NewFromInt(10)),
			[]byte(`{"not":"a list"}`), []byte(nil), []byte(nil), []byte(nil), false,
		))

	p, err := repo.GetByID(context.Background(), "gift")
	require.NoError(t, err)
	assert.Empty(t, p.Denominations)
	assert.True(t, decimal.NewFromInt(10).Equal(p.Price.Decimal))
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := NewMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "gone")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
