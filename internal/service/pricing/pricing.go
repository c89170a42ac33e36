package pricing

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

// PriceAccessor reads a price candidate from a denomination object.
type PriceAccessor func(d domain.Attrs) (decimal.Decimal, bool)

// KeyMatcher reports whether a denomination object is identified by key.
type KeyMatcher func(d domain.Attrs, key string) bool

var (
	PriceFields      = []string{"price", "amount", "value", "cost", "denomination"}
	KeyFields        = []string{"id", "denominationId", "value", "amount", "name", "label", "denomination"}
	NumericKeyFields = []string{"value", "amount", "denomination"}
)

var numberInKey = regexp.MustCompile(`\d+(?:\.\d+)?`)

func FieldPrice(field string) PriceAccessor {
	return func(d domain.Attrs) (decimal.Decimal, bool) {
		v, ok := d.Number(field)
		if !ok || !v.IsPositive() {
			return decimal.Zero, false
		}
		return v, true
	}
}

func FieldKey(field string) KeyMatcher {
	return func(d domain.Attrs, key string) bool {
		v, ok := d.String(field)
		return ok && v == key
	}
}

// NumericKey matches keys such as "60 UC" against numeric fields.
func NumericKey(field string) KeyMatcher {
	return func(d domain.Attrs, key string) bool {
		n, ok := ExtractNumber(key)
		if !ok {
			return false
		}
		v, ok := d.Number(field)
		return ok && v.Equal(n)
	}
}

func ExtractNumber(s string) (decimal.Decimal, bool) {
	m := numberInKey.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	n, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}

// Resolver tries its accessors and matchers in list order.
type Resolver struct {
	Prices []PriceAccessor
	Keys   []KeyMatcher
}

func NewResolver() *Resolver {
	r := &Resolver{}
	for _, f := range PriceFields {
		r.Prices = append(r.Prices, FieldPrice(f))
	}
	for _, f := range KeyFields {
		r.Keys = append(r.Keys, FieldKey(f))
	}
	for _, f := range NumericKeyFields {
		r.Keys = append(r.Keys, NumericKey(f))
	}
	return r
}

var defaultResolver = NewResolver()

// Resolve returns the trusted unit price with the package default strategies.
func Resolve(p *domain.Product, key string, denomination domain.Attrs, clientAmount decimal.Decimal) decimal.Decimal {
	return defaultResolver.Resolve(p, key, denomination, clientAmount)
}

func Match(p *domain.Product, key string) domain.Attrs {
	return defaultResolver.Match(p.Denominations, key)
}

// Resolve never returns a negative amount. The denomination object must come
// from server-side state, never from a request body.
func (r *Resolver) Resolve(p *domain.Product, key string, denomination domain.Attrs, clientAmount decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	dens := p.Denominations

	if len(dens) > 0 && key != "" {
		if d := r.Match(dens, key); d != nil {
			if price, ok := r.Price(d); ok {
				return price
			}
		}
	}

	if denomination != nil {
		if price, ok := r.Price(denomination); ok {
			return price
		}
	}

	if clientAmount.IsPositive() {
		for _, d := range dens {
			if price, ok := r.Price(d); ok && price.Equal(clientAmount) {
				return clientAmount
			}
		}
		if len(dens) == 0 && (key != "" || denomination != nil) {
			return clientAmount
		}
	}

	return r.Base(p)
}

// Match returns the first denomination identified by key, trying matchers
// before denominations so an id match beats a label match further up the list.
func (r *Resolver) Match(dens []domain.Attrs, key string) domain.Attrs {
	if key == "" {
		return nil
	}
	for _, m := range r.Keys {
		for _, d := range dens {
			if m(d, key) {
				return d
			}
		}
	}
	return nil
}

func (r *Resolver) Price(d domain.Attrs) (decimal.Decimal, bool) {
	for _, get := range r.Prices {
		if v, ok := get(d); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

// Base is the explicit product price, else the cheapest denomination, else zero.
func (r *Resolver) Base(p *domain.Product) decimal.Decimal {
	if p.Price.Valid && p.Price.Decimal.IsPositive() {
		return p.Price.Decimal
	}
	var min decimal.Decimal
	found := false
	for _, d := range p.Denominations {
		price, ok := r.Price(d)
		if !ok {
			continue
		}
		if !found || price.LessThan(min) {
			min = price
			found = true
		}
	}
	if found {
		return min
	}
	return decimal.Zero
}
