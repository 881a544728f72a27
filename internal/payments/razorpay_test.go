package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/config"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "rzp_secret"
	good := sign(secret, "order_1", "pay_1")
	require.True(t, VerifySignature(secret, "order_1", "pay_1", good))

	// tampered payment id
	require.False(t, VerifySignature(secret, "order_1", "pay_2", good))
	// wrong secret
	require.False(t, VerifySignature("other", "order_1", "pay_1", good))
	// garbage signature
	require.False(t, VerifySignature(secret, "order_1", "pay_1", "deadbeef"))
}

func gatewayConfig(baseURL string) *config.Config {
	return &config.Config{Razorpay: config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   baseURL,
	}}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "rzp_test_secret", pass)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, float64(49900), req["amount"])
		require.Equal(t, "INR", req["currency"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_test_123",
			"amount":   49900,
			"currency": "INR",
			"receipt":  req["receipt"],
			"status":   "created",
		})
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig(srv.URL))
	order, err := c.CreateOrder(context.Background(), 49900, "INR", "rcpt_1")
	require.NoError(t, err)
	require.Equal(t, "order_test_123", order.ID)
	require.Equal(t, int64(49900), order.Amount)
	require.Equal(t, "rcpt_1", order.Receipt)
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig(srv.URL))
	_, err := c.CreateOrder(context.Background(), 1, "INR", "rcpt_2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
}

func TestCreateOrderMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig(srv.URL))
	_, err := c.CreateOrder(context.Background(), 100, "INR", "rcpt_3")
	require.Error(t, err)
}
