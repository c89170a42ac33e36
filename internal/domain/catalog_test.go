package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrs_Number(t *testing.T) {
	a, err := DecodeAttrs([]byte(`{"price": 5.5, "amount": "12", "label": "60 UC", "cost": null}`))
	require.NoError(t, err)

	tests := []struct {
		field string
		want  string
		ok    bool
	}{
		{field: "price", want: "5.5", ok: true},
		{field: "amount", want: "12", ok: true},
		{field: "label", ok: false},
		{field: "cost", ok: false},
		{field: "missing", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := a.Number(tt.field)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got))
			}
		})
	}
}

func TestAttrs_String(t *testing.T) {
	a, err := DecodeAttrs([]byte(`{"id": 7, "name": "Gold", "value": 60}`))
	require.NoError(t, err)

	id, ok := a.String("id")
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	name, ok := a.String("name")
	assert.True(t, ok)
	assert.Equal(t, "Gold", name)

	_, ok = a.String("label")
	assert.False(t, ok)
}

func TestProduct_RegionOverrides(t *testing.T) {
	raw := `{
		"id": "pubg",
		"name": "PUBG UC",
		"price": null,
		"denominations": [{"id": "g1", "price": 1}],
		"customInput": {"enabled": true, "label": "Player ID", "required": true},
		"regions": [
			{"id": 1, "name": "Global", "denominations": [{"id": "r1", "price": 2}], "customInput": {"enabled": false}},
			{"id": "tr", "name": "Turkey"}
		],
		"apiConfig": {"type": "api", "serviceId": 123}
	}`
	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.False(t, p.Price.Valid)
	assert.Equal(t, "123", p.ServiceID())
	assert.Equal(t, FulfillmentAPI, p.Fulfillment())

	global := p.ForRegion("1")
	require.Len(t, global.Denominations, 1)
	id, _ := global.Denominations[0].String("id")
	assert.Equal(t, "r1", id)
	assert.False(t, p.ActiveCustomInput("1").Enabled)

	turkey := p.ForRegion("tr")
	id, _ = turkey.Denominations[0].String("id")
	assert.Equal(t, "g1", id)
	assert.True(t, p.ActiveCustomInput("tr").Required)
	assert.True(t, p.ActiveCustomInput("").Required)
}

func TestProduct_Fulfillment(t *testing.T) {
	tests := []struct {
		name   string
		config *APIConfig
		want   FulfillmentType
	}{
		{name: "no config", config: nil, want: FulfillmentManual},
		{name: "empty type", config: &APIConfig{}, want: FulfillmentManual},
		{name: "api", config: &APIConfig{Type: FulfillmentAPI}, want: FulfillmentAPI},
		{name: "api with noise", config: &APIConfig{Type: " API "}, want: FulfillmentAPI},
		{name: "stock is chosen by inventory only", config: &APIConfig{Type: FulfillmentStock}, want: FulfillmentManual},
		{name: "unknown type", config: &APIConfig{Type: "webhook"}, want: FulfillmentManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{APIConfig: tt.config}
			assert.Equal(t, tt.want, p.Fulfillment())
		})
	}
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, NewPage(0, -3))
	assert.Equal(t, Page{Limit: MaxPageLimit, Skip: 5}, NewPage(500, 5))

	res := NewPageResult([]int{1, 2}, 5, Page{Limit: 2, Skip: 2})
	assert.True(t, res.HasMore)
	res = NewPageResult([]int{5}, 5, Page{Limit: 2, Skip: 4})
	assert.False(t, res.HasMore)
}

func TestPaymentMetadata_Total(t *testing.T) {
	m := PaymentMetadata{Items: []LineItem{
		{Price: decimal.NewFromInt(5), Quantity: 2, CartItemID: "c1"},
		{Price: decimal.RequireFromString("2.5"), Quantity: 1},
	}}
	assert.True(t, decimal.RequireFromString("12.5").Equal(m.Total()))
	assert.Equal(t, []string{"c1"}, m.CartItemIDs())
}
