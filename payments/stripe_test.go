package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout/logic"
)

type capturedRequest struct {
	method         string
	path           string
	form           url.Values
	idempotencyKey string
}

func newStripeStub(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))
		captured = append(captured, capturedRequest{
			method:         r.Method,
			path:           r.URL.Path,
			form:           form,
			idempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestStripe(apiURL string) *StripeSessions {
	return NewStripeSessions(StripeConfig{
		SecretKey:         "sk_test_123",
		APIURL:            apiURL,
		Origin:            "https://shop.example.com/",
		ShippingCountries: []string{"GB", "NL"},
		ShippingRate:      "shr_123",
	}, nil)
}

func TestStripeSessions_CreateGroupsLineItems(t *testing.T) {
	srv, captured := newStripeStub(t, http.StatusOK,
		`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	sessions := newTestStripe(srv.URL)

	items := []logic.BasketItem{
		{ID: "iphone", Name: "iPhone", Price: decimal.RequireFromString("1099.99"), Image: "https://cdn.example.com/iphone.png"},
		{ID: "case", Name: "Case", Price: decimal.RequireFromString("49")},
		{ID: "iphone", Name: "iPhone", Price: decimal.RequireFromString("1099.99"), Image: "https://cdn.example.com/iphone.png"},
	}

	session, err := sessions.Create(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v1/checkout/sessions", req.path)
	assert.NotEmpty(t, req.idempotencyKey)

	form := req.form
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "pay", form.Get("submit_type"))
	assert.Equal(t, "card", form.Get("payment_method_types[0]"))
	assert.Equal(t, "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}", form.Get("success_url"))
	assert.Equal(t, "https://shop.example.com/checkout", form.Get("cancel_url"))
	assert.Equal(t, "GB", form.Get("shipping_address_collection[allowed_countries][0]"))
	assert.Equal(t, "NL", form.Get("shipping_address_collection[allowed_countries][1]"))
	assert.Equal(t, "shr_123", form.Get("shipping_options[0][shipping_rate]"))

	assert.Equal(t, "2", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "eur", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "109999", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "iPhone", form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "https://cdn.example.com/iphone.png", form.Get("line_items[0][price_data][product_data][images][0]"))

	assert.Equal(t, "1", form.Get("line_items[1][quantity]"))
	assert.Equal(t, "4900", form.Get("line_items[1][price_data][unit_amount]"))
	assert.Empty(t, form.Get("line_items[2][quantity]"))
}

func TestStripeSessions_CreateEmptyBasket(t *testing.T) {
	srv, captured := newStripeStub(t, http.StatusOK, `{}`)
	sessions := newTestStripe(srv.URL)

	_, err := sessions.Create(context.Background(), nil)

	var checkoutErr *logic.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, logic.KindInvalidItem, checkoutErr.Kind)
	assert.Empty(t, *captured, "no request should reach the provider")
}

func TestStripeSessions_CreateProviderError(t *testing.T) {
	srv, _ := newStripeStub(t, http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","message":"No such shipping rate: 'shr_123'"}}`)
	sessions := newTestStripe(srv.URL)

	_, err := sessions.Create(context.Background(), []logic.BasketItem{
		{ID: "a", Name: "A", Price: decimal.NewFromInt(1)},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such shipping rate")
}

func TestStripeSessions_Lookup(t *testing.T) {
	srv, captured := newStripeStub(t, http.StatusOK,
		`{"id":"cs_test_9","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_9"}`)
	sessions := newTestStripe(srv.URL)

	session, err := sessions.Lookup(context.Background(), "cs_test_9")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_9", session.URL)

	require.Len(t, *captured, 1)
	assert.Equal(t, http.MethodGet, (*captured)[0].method)
	assert.Equal(t, "/v1/checkout/sessions/cs_test_9", (*captured)[0].path)
}

func TestStripeSessions_CreateRejectsOverflowingPrice(t *testing.T) {
	srv, captured := newStripeStub(t, http.StatusOK, `{}`)
	sessions := newTestStripe(srv.URL)

	_, err := sessions.Create(context.Background(), []logic.BasketItem{
		{ID: "yacht", Name: "Yacht", Price: decimal.RequireFromString("1e30")},
	})

	var checkoutErr *logic.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, logic.KindInvalidItem, checkoutErr.Kind)
	assert.Empty(t, *captured)
}
