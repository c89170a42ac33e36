package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve(t *testing.T) {
	withDens := &domain.Product{
		ID: "p1",
		Denominations: []domain.Attrs{
			{"id": "d1", "price": 5},
			{"id": "d2", "label": "60 UC", "amount": "12.5"},
			{"denominationId": "d3", "denomination": 100, "price": 9},
		},
	}
	tests := []struct {
		name         string
		product      *domain.Product
		key          string
		denomination domain.Attrs
		client       decimal.Decimal
		want         string
	}{
		{
			name:    "matched denomination wins over tampered client amount",
			product: withDens,
			key:     "d1",
			client:  dec("999"),
			want:    "5",
		},
		{
			name:    "price under amount field",
			product: withDens,
			key:     "d2",
			want:    "12.5",
		},
		{
			name:    "key matched by label",
			product: withDens,
			key:     "60 UC",
			want:    "12.5",
		},
		{
			name:    "numeric key against denomination field",
			product: withDens,
			key:     "100 coins",
			want:    "9",
		},
		{
			name:         "server snapshot object price",
			product:      withDens,
			key:          "unknown",
			denomination: domain.Attrs{"id": "gone", "price": 7},
			want:         "7",
		},
		{
			name:    "client amount equal to a denomination price",
			product: withDens,
			client:  dec("9"),
			want:    "9",
		},
		{
			name:    "client amount not in list falls back to cheapest denomination",
			product: withDens,
			client:  dec("1"),
			want:    "5",
		},
		{
			name:    "legacy product without denominations trusts client for requested denomination",
			product: &domain.Product{Price: decimal.NewNullDecimal(dec("3"))},
			key:     "x",
			client:  dec("4"),
			want:    "4",
		},
		{
			name:    "explicit product price",
			product: &domain.Product{Price: decimal.NewNullDecimal(dec("3"))},
			client:  dec("100"),
			want:    "3",
		},
		{
			name:    "nothing priced resolves to zero",
			product: &domain.Product{},
			client:  dec("-5"),
			want:    "0",
		},
		{
			name: "non positive candidates are skipped",
			product: &domain.Product{Denominations: []domain.Attrs{
				{"id": "z", "price": 0, "amount": -2, "value": 4},
			}},
			key:  "z",
			want: "4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.product, tt.key, tt.denomination, tt.client)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestResolver_Appendable(t *testing.T) {
	r := NewResolver()
	r.Prices = append(r.Prices, FieldPrice("sale_price"))
	r.Keys = append(r.Keys, FieldKey("sku"))

	p := &domain.Product{Denominations: []domain.Attrs{{"sku": "A-1", "sale_price": "2.75"}}}
	assert.True(t, dec("2.75").Equal(r.Resolve(p, "A-1", nil, decimal.Zero)))
}

func TestExtractNumber(t *testing.T) {
	n, ok := ExtractNumber("325 UC")
	assert.True(t, ok)
	assert.True(t, dec("325").Equal(n))

	_, ok = ExtractNumber("gold")
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	p := &domain.Product{Denominations: []domain.Attrs{
		{"id": "a", "label": "b"},
		{"id": "b"},
	}}
	d := Match(p, "b")
	id, _ := d.String("id")
	assert.Equal(t, "b", id)
	assert.Nil(t, Match(p, ""))
}
