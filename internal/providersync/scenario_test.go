package providersync

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/kd1s"
	"github.com/GlebRadaev/ratnzer/internal/notify"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/internal/testutil/memstore"
)

type stubDispatcher struct{ next int }

func (d *stubDispatcher) PlaceOrder(context.Context, string, string, int) (string, error) {
	d.next++
	return []string{"", "901", "902"}[d.next], nil
}

type stubProvider map[string]string

func (p stubProvider) OrderStatus(_ context.Context, id string) (*kd1s.Status, error) {
	return &kd1s.Status{Provider: p[id], Normalized: kd1s.NormalizeStatus(p[id])}, nil
}

// The sync mirrors provider outcomes onto orders and refunds cancellations
// exactly once.
func TestSyncAgainstStore(t *testing.T) {
	store := memstore.New()
	notifier := notify.New(store.Notifications, store.Users, nil, 0)
	defer notifier.Wait()

	orders := orderservice.New(orderservice.Deps{
		Users:      store.Users,
		Balances:   store.Balances,
		Orders:     store.Orders,
		Inventory:  store.Inventory,
		Ledger:     store.Ledger,
		Products:   store.Products,
		TX:         store.TX,
		Dispatcher: &stubDispatcher{},
		Notifier:   notifier,
	})
	user := store.AddUser(domain.User{Login: "buyer", Balance: decimal.NewFromInt(50)})
	store.AddProduct(domain.Product{
		ID:        "uc",
		Name:      "PUBG UC",
		Price:     decimal.NewNullDecimal(decimal.NewFromInt(20)),
		APIConfig: &domain.APIConfig{Type: domain.FulfillmentAPI, ServiceID: "77"},
	})

	first, err := orders.CreateOrder(context.Background(), user.ID, orderservice.Selection{ProductID: "uc", CustomInputValue: "5123"}, decimal.Zero)
	require.NoError(t, err)
	second, err := orders.CreateOrder(context.Background(), user.ID, orderservice.Selection{ProductID: "uc", CustomInputValue: "5124"}, decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "901", domain.StringValue(first.ProviderOrderID))
	require.Equal(t, "10", store.Balance(user.ID).String())

	service := New(Config{Interval: 0}, store.Orders, stubProvider{"901": "Completed", "902": "Canceled"}, orders)
	service.workerPool.Close()
	service.workerPool = inlinePool{}

	service.SyncOnce(context.Background())
	service.SyncOnce(context.Background())

	byID := map[string]domain.Order{}
	for _, o := range store.AllOrders() {
		byID[o.ID] = o
	}
	assert.Equal(t, domain.OrderCompleted, byID[first.ID].Status)
	assert.Equal(t, domain.OrderCancelled, byID[second.ID].Status)
	assert.Equal(t, "KD1S: Canceled", domain.StringValue(byID[second.ID].RejectionReason))

	assert.Equal(t, "30", store.Balance(user.ID).String())
	assert.True(t, store.Balance(user.ID).Equal(decimal.NewFromInt(50).Add(store.LedgerSum(user.ID))))
}
