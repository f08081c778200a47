package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakcart/discount-service/internal/discount"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	registry := discount.NewRegistry()
	factory := discount.NewFactory(registry)
	for _, cfg := range []discount.Config{
		{Type: discount.TypeBrand, Brand: "PUMA", Percentage: decimal.NewFromInt(40), PremiumOnly: true},
		{Type: discount.TypeCategory, Category: "T-shirts", Percentage: decimal.NewFromInt(10)},
		{Type: discount.TypeVoucher, Code: "SUPER69", Percentage: decimal.NewFromInt(69), MinCartAmount: decimal.NewFromInt(1000)},
		{Type: discount.TypeBankCard, Bank: "ICICI", Percentage: decimal.NewFromInt(10)},
	} {
		_, err := factory.Create(cfg)
		require.NoError(t, err)
	}

	mux := http.NewServeMux()
	New(discount.NewService(registry, nil)).Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func referenceQuoteBody(withPayment bool) map[string]any {
	body := map[string]any{
		"items": []map[string]any{
			{
				"productId": "p1",
				"brand":     "PUMA",
				"brandTier": "PREMIUM",
				"category":  "T-shirts",
				"price":     2000,
				"quantity":  1,
			},
		},
		"customer": map[string]any{"id": "c1", "name": "Asha", "tier": "GOLD"},
	}
	if withPayment {
		body["payment"] = map[string]any{"method": "CARD", "bankName": "ICICI", "cardType": "CREDIT"}
	}
	return body
}

func TestQuote_FullChain(t *testing.T) {
	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/quote", referenceQuoteBody(true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		QuoteID          string `json:"quoteId"`
		OriginalPrice    string `json:"originalPrice"`
		FinalPrice       string `json:"finalPrice"`
		AppliedDiscounts []struct {
			Name   string `json:"name"`
			Amount string `json:"amount"`
		} `json:"appliedDiscounts"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.NotEmpty(t, res.QuoteID)
	assert.Equal(t, "2000", res.OriginalPrice)
	assert.Equal(t, "301.32", res.FinalPrice)
	require.Len(t, res.AppliedDiscounts, 4)
	assert.Equal(t, "Brand Discount - PUMA (40%)", res.AppliedDiscounts[0].Name)
	assert.Equal(t, "800", res.AppliedDiscounts[0].Amount)
}

func TestQuote_NoPayment(t *testing.T) {
	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/quote", referenceQuoteBody(false))
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		FinalPrice string `json:"finalPrice"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "334.8", res.FinalPrice)
	assert.NotContains(t, res.Message, "Bank Card")
}

func TestQuote_BadInput(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "empty items",
			body: map[string]any{
				"items":    []map[string]any{},
				"customer": map[string]any{"id": "c1"},
			},
		},
		{
			name: "missing customer",
			body: map[string]any{
				"items": referenceQuoteBody(false)["items"],
			},
		},
		{
			name: "non-positive quantity",
			body: map[string]any{
				"items": []map[string]any{
					{"productId": "p1", "brand": "PUMA", "category": "T-shirts", "price": 10, "quantity": 0},
				},
				"customer": map[string]any{"id": "c1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, mux, "/api/quote", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestValidateVoucher(t *testing.T) {
	mux := newTestMux(t)

	body := map[string]any{
		"code":     "super69",
		"items":    referenceQuoteBody(false)["items"],
		"customer": map[string]any{"id": "c1", "tier": "GOLD"},
	}
	rec := postJSON(t, mux, "/api/vouchers/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Code  string `json:"code"`
		Valid bool   `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Valid, "code match is case-insensitive")

	body["code"] = "UNKNOWN"
	rec = postJSON(t, mux, "/api/vouchers/validate", body)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Valid)
}
