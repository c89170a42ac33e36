package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/cartservice"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
)

func NewMock(t *testing.T) (*CartHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func withUser(req *http.Request, userID int) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func TestGetCart(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().List(gomock.Any(), 1).Return([]domain.CartItem{
		{ID: "ci-1", ProductID: "gift", Name: "Gift Card", Price: decimal.RequireFromString("2.5"), Quantity: 2},
		{ID: "ci-2", ProductID: "uc", Name: "UC", Price: decimal.RequireFromString("1"), Quantity: 1},
	}, nil)

	rr := httptest.NewRecorder()
	handler.GetCart(rr, withUser(httptest.NewRequest("GET", "/api/cart", nil), 1))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp dto.CartResponseDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Items, 2)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(6)), resp.Total.String())
}

func TestAddItem(t *testing.T) {
	handler, service := NewMock(t)

	in := cartservice.AddInput{ProductID: "gift", RegionID: "us", DenominationID: "d10", Quantity: 2}

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Added",
			body: `{"productId":"gift","regionId":"us","denominationId":"d10","quantity":2}`,
			prepareMock: func() {
				service.EXPECT().Add(gomock.Any(), 1, in).Return(&domain.CartItem{ID: "ci-1", ProductID: "gift", Quantity: 2}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:          "Missing product",
			body:          `{"quantity":2}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "productId is required",
		},
		{
			name: "Unknown product",
			body: `{"productId":"gift","regionId":"us","denominationId":"d10","quantity":2}`,
			prepareMock: func() {
				service.EXPECT().Add(gomock.Any(), 1, in).Return(nil, orderservice.ErrProductNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "product not found",
		},
		{
			name: "Custom input required",
			body: `{"productId":"gift","regionId":"us","denominationId":"d10","quantity":2}`,
			prepareMock: func() {
				service.EXPECT().Add(gomock.Any(), 1, in).Return(nil, orderservice.ErrCustomInputRequired)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "custom input is required for this product",
		},
		{
			name: "Store failure",
			body: `{"productId":"gift","regionId":"us","denominationId":"d10","quantity":2}`,
			prepareMock: func() {
				service.EXPECT().Add(gomock.Any(), 1, in).Return(nil, errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.AddItem(rr, withUser(httptest.NewRequest("POST", "/api/cart", bytes.NewBufferString(tt.body)), 1))

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestRemoveItem(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "Removed", expectedCode: http.StatusOK},
		{name: "Absent", err: cartservice.ErrItemNotFound, expectedCode: http.StatusNotFound},
		{name: "Store failure", err: errors.New("db down"), expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service.EXPECT().Remove(gomock.Any(), 1, "ci-1").Return(tt.err)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "ci-1")
			req := withUser(httptest.NewRequest("DELETE", "/api/cart/ci-1", nil), 1)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rr := httptest.NewRecorder()

			handler.RemoveItem(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestClearCart(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().Clear(gomock.Any(), 1).Return(nil)

	rr := httptest.NewRecorder()
	handler.ClearCart(rr, withUser(httptest.NewRequest("DELETE", "/api/cart", nil), 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Cart cleared"}`, rr.Body.String())
}
