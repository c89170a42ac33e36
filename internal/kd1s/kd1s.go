package kd1s

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/pkg/clients"
)

const (
	DefaultURL   = "https://kd1s.com/api/v2"
	ProviderName = "KD1S"
)

var (
	ErrProvider      = errors.New("provider error")
	ErrNotConfigured = &Error{Message: "KD1S_API_KEY is not configured"}
)

// Error is a failure reported by or while talking to the provider.
type Error struct {
	Message string
	// Transport is set when the provider could not be reached or answered
	// with a server error. Such calls may succeed when repeated.
	Transport bool
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrProvider
}

func newError(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func transportError(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Transport: true}
}

// IsTemporary reports whether err is a transport failure worth retrying.
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Transport
	}
	return err != nil
}

type Client struct {
	url  string
	key  string
	http clients.HTTPClientI
}

func New(apiURL, key string, httpClient clients.HTTPClientI) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	return &Client{
		url:  strings.TrimRight(apiURL, "/"),
		key:  key,
		http: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c.key != ""
}

type response struct {
	Order   domain.FlexString `json:"order"`
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
}

// PlaceOrder submits an order and returns the provider order id.
func (c *Client) PlaceOrder(ctx context.Context, serviceID, link string, quantity int) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if serviceID == "" {
		return "", newError("serviceId is required for KD1S order")
	}
	if link == "" {
		link = "N/A"
	}
	if quantity < 1 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("key", c.key)
	form.Set("action", "add")
	form.Set("service", serviceID)
	form.Set("link", link)
	form.Set("quantity", strconv.Itoa(quantity))

	resp, err := c.call(ctx, form)
	if err != nil {
		return "", err
	}
	if resp.Order == "" {
		return "", newError("KD1S did not return order id")
	}

	zap.L().Info("kd1s order placed", zap.String("service", serviceID), zap.String("provider_order_id", string(resp.Order)))
	return string(resp.Order), nil
}

type Status struct {
	Provider   string
	Normalized domain.OrderStatus
}

// OrderStatus fetches the provider status. Normalized is empty while the order
// is still in progress.
func (c *Client) OrderStatus(ctx context.Context, providerOrderID string) (*Status, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("key", c.key)
	form.Set("action", "status")
	form.Set("order", providerOrderID)

	resp, err := c.call(ctx, form)
	if err != nil {
		return nil, err
	}

	return &Status{
		Provider:   resp.Status,
		Normalized: NormalizeStatus(resp.Status),
	}, nil
}

func NormalizeStatus(status string) domain.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed":
		return domain.OrderCompleted
	case "canceled", "cancelled", "refunded":
		return domain.OrderCancelled
	}
	return ""
}

func (c *Client) call(ctx context.Context, form url.Values) (*response, error) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.http.Post(ctx, c.url, headers, []byte(form.Encode()))
	if err != nil {
		zap.L().Error("kd1s request failed", zap.String("action", form.Get("action")), zap.Error(err))
		return nil, transportError("KD1S request failed: %v", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = err.Error()
		}
		return nil, newError("KD1S invalid JSON response: %s", text)
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "HTTP " + strconv.Itoa(status)
		}
		if status >= http.StatusInternalServerError {
			return nil, transportError("KD1S request failed: %s", msg)
		}
		return nil, newError("KD1S request failed: %s", msg)
	}
	if resp.Error != "" {
		return nil, newError("KD1S error: %s", resp.Error)
	}
	return &resp, nil
}

// ParseQuantity turns a free-form quantity label ("1,000 followers", "60") into
// a positive integer.
func ParseQuantity(label string) int {
	var b strings.Builder
	for _, r := range label {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 1
	}
	return max(1, int(math.Round(n)))
}
