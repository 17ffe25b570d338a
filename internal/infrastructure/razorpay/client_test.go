package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{KeyID: "rzp_test", KeySecret: "s3cret", BaseURL: srv.URL, Timeout: time.Second, HTTP: srv.Client()}
}

func TestCreateOrderConvertsToPaise(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "s3cret", pass)

		var body orderReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 49999, body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "rcpt_1", body.Receipt)
		_ = json.NewEncoder(w).Encode(orderResp{ID: "order_A", Amount: body.Amount, Currency: "INR", Receipt: body.Receipt})
	})

	o, err := c.CreateOrder(context.Background(), 499.99, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_A", o.RemoteOrderID)
	assert.Equal(t, 499.99, o.Amount)
	assert.Equal(t, "rzp_test", o.KeyID)
}

func TestCreateOrderSurfacesProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	})

	_, err := c.CreateOrder(context.Background(), 0.5, "INR", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestVerify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/pay_ok":
			_, _ = w.Write([]byte(`{"id":"pay_ok","order_id":"order_A","status":"authorized","amount":100}`))
		case "/payments/pay_captured":
			_, _ = w.Write([]byte(`{"id":"pay_captured","order_id":"order_A","status":"captured","amount":100}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"not found"}}`))
		}
	})
	ctx := context.Background()

	v, err := c.Verify(ctx, "order_A", "pay_ok", Signature("s3cret", "order_A", "pay_ok"))
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, 1.0, v.Amount, "paise are converted back")
	assert.Equal(t, "authorized", v.Status)

	v, err = c.Verify(ctx, "order_A", "pay_ok", "deadbeef")
	require.NoError(t, err)
	assert.False(t, v.Verified, "bad signature")

	v, err = c.Verify(ctx, "order_B", "pay_ok", "")
	require.NoError(t, err)
	assert.False(t, v.Verified, "order mismatch")
	assert.Equal(t, "order_A", v.RemoteOrderID)

	v, err = c.Verify(ctx, "order_A", "pay_captured", "")
	require.NoError(t, err)
	assert.False(t, v.Verified, "not in authorized state")

	v, err = c.Verify(ctx, "order_A", "pay_missing", "")
	require.NoError(t, err)
	assert.False(t, v.Verified)
}

func TestVerifyServerErrorIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Verify(context.Background(), "order_A", "pay_1", "")
	require.Error(t, err)
}

func TestCapture(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1/capture", r.URL.Path)
		var body captureReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 1050, body.Amount)
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"captured","amount":1050}`))
	})

	res, err := c.Capture(context.Background(), "pay_1", 10.5)
	require.NoError(t, err)
	assert.Equal(t, "captured", res.Status)
	assert.Equal(t, 10.5, res.Amount)
}

func TestMinorUnits(t *testing.T) {
	assert.EqualValues(t, 1999, toMinor(19.99))
	assert.EqualValues(t, 30, toMinor(0.3))
	assert.Equal(t, 0.1, fromMinor(10))
}
