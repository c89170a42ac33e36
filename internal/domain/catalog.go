package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Attrs is a loosely shaped catalog object, such as a denomination. Numbers
// decoded through DecodeAttrs are json.Number.
type Attrs map[string]any

func DecodeAttrs(raw []byte) (Attrs, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var a Attrs
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	return a, nil
}

// Number returns a finite numeric value for field. Numeric strings count.
func (a Attrs) Number(field string) (decimal.Decimal, bool) {
	v, ok := a[field]
	if !ok || v == nil {
		return decimal.Zero, false
	}
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}

// String returns the textual form of field, the way it would be compared
// against an identifier sent by a client.
func (a Attrs) String(field string) (string, bool) {
	v, ok := a[field]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case bool:
		return strconv.FormatBool(s), true
	case decimal.Decimal:
		return s.String(), true
	}
	return "", false
}

// FlexString accepts both JSON strings and numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

type CustomInput struct {
	Enabled     bool   `json:"enabled"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
	Type        string `json:"type,omitempty"`
}

type Region struct {
	ID            FlexString   `json:"id"`
	Name          string       `json:"name"`
	Flag          string       `json:"flag,omitempty"`
	CustomInput   *CustomInput `json:"customInput,omitempty"`
	Denominations []Attrs      `json:"denominations,omitempty"`
	IsAvailable   *bool        `json:"isAvailable,omitempty"`
}

type APIConfig struct {
	Type         FulfillmentType `json:"type"`
	ProviderName string          `json:"providerName,omitempty"`
	ServiceID    FlexString      `json:"serviceId,omitempty"`
	AutoApprove  bool            `json:"autoApprove,omitempty"`
}

type Product struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Category         string              `json:"category"`
	Price            decimal.NullDecimal `json:"price"`
	Denominations    []Attrs             `json:"denominations,omitempty"`
	Regions          []Region            `json:"regions,omitempty"`
	CustomInput      *CustomInput        `json:"customInput,omitempty"`
	APIConfig        *APIConfig          `json:"apiConfig,omitempty"`
	AutoDeliverStock bool                `json:"autoDeliverStock"`
}

func (p *Product) Region(id string) *Region {
	if id == "" {
		return nil
	}
	for i := range p.Regions {
		if string(p.Regions[i].ID) == id {
			return &p.Regions[i]
		}
	}
	return nil
}

// ForRegion returns a shallow copy whose denominations are the region's own
// list when the region defines one.
func (p *Product) ForRegion(regionID string) *Product {
	view := *p
	if r := p.Region(regionID); r != nil && len(r.Denominations) > 0 {
		view.Denominations = r.Denominations
	}
	return &view
}

// ActiveCustomInput prefers the region override over the product setting.
func (p *Product) ActiveCustomInput(regionID string) *CustomInput {
	if r := p.Region(regionID); r != nil && r.CustomInput != nil {
		return r.CustomInput
	}
	return p.CustomInput
}

// Fulfillment is the configured delivery mode. Anything other than api is
// delivered by hand.
func (p *Product) Fulfillment() FulfillmentType {
	if p.APIConfig == nil {
		return FulfillmentManual
	}
	if FulfillmentType(strings.ToLower(strings.TrimSpace(string(p.APIConfig.Type)))) == FulfillmentAPI {
		return FulfillmentAPI
	}
	return FulfillmentManual
}

// ServiceID is the provider service configured for API fulfillment.
func (p *Product) ServiceID() string {
	if p.APIConfig == nil {
		return ""
	}
	return strings.TrimSpace(string(p.APIConfig.ServiceID))
}

func (p *Product) ProviderName() string {
	if p.APIConfig == nil {
		return ""
	}
	return p.APIConfig.ProviderName
}
