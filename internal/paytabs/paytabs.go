package paytabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/pkg/clients"
)

var ErrGateway = errors.New("payment gateway error")

const defaultRegion = "ARE"

var regionDomains = map[string]string{
	"ARE": "secure.paytabs.com",
	"SAU": "secure.paytabs.sa",
	"EGY": "secure-egypt.paytabs.com",
	"OMN": "secure-oman.paytabs.com",
	"JOR": "secure-jordan.paytabs.com",
	"IRQ": "secure-iraq.paytabs.com",
	"BHR": "secure-bahrain.paytabs.com",
	"KWT": "secure-kuwait.paytabs.com",
	"QAT": "secure-qatar.paytabs.com",
}

// BaseURL returns the API root for a PayTabs region code. Unknown regions fall
// back to ARE.
func BaseURL(region string) string {
	domain, ok := regionDomains[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		domain = regionDomains[defaultRegion]
	}
	return "https://" + domain
}

type Config struct {
	BaseURL      string
	ServerKey    string
	ProfileID    string
	Currency     string
	CurrencyRate decimal.Decimal
	CallbackURL  string
	ReturnURL    string
}

type Client struct {
	cfg  Config
	http clients.HTTPClientI
}

func New(cfg Config, httpClient clients.HTTPClientI) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL(defaultRegion)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if !cfg.CurrencyRate.IsPositive() {
		cfg.CurrencyRate = decimal.NewFromInt(1)
	}
	return &Client{cfg: cfg, http: httpClient}
}

type SessionRequest struct {
	PaymentID     string
	Amount        decimal.Decimal
	Description   string
	CustomerName  string
	CustomerEmail string
}

type Session struct {
	TranRef     string
	RedirectURL string
	Amount      decimal.Decimal
	Currency    string
}

type Verdict string

const (
	VerdictPending  Verdict = "pending"
	VerdictApproved Verdict = "approved"
	VerdictDeclined Verdict = "declined"
)

// ParseVerdict maps payment_result.response_status.
func ParseVerdict(status string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "A":
		return VerdictApproved
	case "D", "E", "V", "X":
		return VerdictDeclined
	}
	return VerdictPending
}

type Verification struct {
	TranRef         string
	CartID          string
	Verdict         Verdict
	ResponseStatus  string
	ResponseMessage string
}

type customerDetails struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type sessionBody struct {
	ProfileID       any              `json:"profile_id"`
	TranType        string           `json:"tran_type"`
	TranClass       string           `json:"tran_class"`
	CartID          string           `json:"cart_id"`
	CartCurrency    string           `json:"cart_currency"`
	CartAmount      json.Number      `json:"cart_amount"`
	CartDescription string           `json:"cart_description"`
	Callback        string           `json:"callback,omitempty"`
	Return          string           `json:"return,omitempty"`
	Customer        *customerDetails `json:"customer_details,omitempty"`
	HideShipping    bool             `json:"hide_shipping"`
}

type sessionResponse struct {
	TranRef     string `json:"tran_ref"`
	RedirectURL string `json:"redirect_url"`
}

type queryBody struct {
	ProfileID any    `json:"profile_id"`
	TranRef   string `json:"tran_ref"`
}

type queryResponse struct {
	TranRef       string `json:"tran_ref"`
	CartID        string `json:"cart_id"`
	PaymentResult struct {
		ResponseStatus  string `json:"response_status"`
		ResponseCode    string `json:"response_code"`
		ResponseMessage string `json:"response_message"`
	} `json:"payment_result"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// GatewayAmount converts a canonical amount into the gateway currency.
func (c *Client) GatewayAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.cfg.CurrencyRate).Round(2)
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	amount := c.GatewayAmount(req.Amount)
	body := sessionBody{
		ProfileID:       c.profileID(),
		TranType:        "sale",
		TranClass:       "ecom",
		CartID:          req.PaymentID,
		CartCurrency:    c.cfg.Currency,
		CartAmount:      json.Number(amount.StringFixed(2)),
		CartDescription: req.Description,
		Callback:        c.cfg.CallbackURL,
		Return:          c.cfg.ReturnURL,
		HideShipping:    true,
	}
	if req.CustomerName != "" || req.CustomerEmail != "" {
		body.Customer = &customerDetails{Name: req.CustomerName, Email: req.CustomerEmail}
	}

	var resp sessionResponse
	if err := c.post(ctx, "/payment/request", body, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectURL == "" {
		zap.L().Error("paytabs response without redirect url", zap.String("payment_id", req.PaymentID))
		return nil, fmt.Errorf("%w: missing redirect_url", ErrGateway)
	}

	return &Session{
		TranRef:     resp.TranRef,
		RedirectURL: resp.RedirectURL,
		Amount:      amount,
		Currency:    c.cfg.Currency,
	}, nil
}

func (c *Client) Verify(ctx context.Context, tranRef string) (*Verification, error) {
	if tranRef == "" {
		return nil, fmt.Errorf("%w: empty tran_ref", ErrGateway)
	}

	var resp queryResponse
	if err := c.post(ctx, "/payment/query", queryBody{ProfileID: c.profileID(), TranRef: tranRef}, &resp); err != nil {
		return nil, err
	}

	ref := resp.TranRef
	if ref == "" {
		ref = tranRef
	}
	return &Verification{
		TranRef:         ref,
		CartID:          resp.CartID,
		Verdict:         ParseVerdict(resp.PaymentResult.ResponseStatus),
		ResponseStatus:  resp.PaymentResult.ResponseStatus,
		ResponseMessage: resp.PaymentResult.ResponseMessage,
	}, nil
}

func (c *Client) profileID() any {
	id := strings.TrimSpace(c.cfg.ProfileID)
	if _, err := decimal.NewFromString(id); err == nil && id != "" {
		return json.Number(id)
	}
	return id
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if c.cfg.ServerKey == "" {
		return fmt.Errorf("%w: server key is not configured", ErrGateway)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", c.cfg.ServerKey)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")

	status, respBody, err := c.http.Post(ctx, c.cfg.BaseURL+path, headers, body)
	if err != nil {
		zap.L().Error("paytabs request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		var e errorResponse
		_ = json.Unmarshal(respBody, &e)
		msg := e.Message
		if msg == "" {
			msg = e.Error
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		zap.L().Error("paytabs request rejected", zap.String("path", path), zap.Int("status", status), zap.String("message", msg))
		return fmt.Errorf("%w: %s", ErrGateway, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		zap.L().Error("paytabs response decode failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: invalid response: %v", ErrGateway, err)
	}
	return nil
}
