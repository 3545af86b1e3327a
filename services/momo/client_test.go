package momo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		PartnerCode: "MOMOTEST",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    endpoint,
		RedirectURL: "https://shop.example.com/return",
		IPNURL:      "https://api.example.com/api/v1/payments/momo/callback",
	}
}

func TestSignKnownVector(t *testing.T) {
	// widely published HMAC-SHA256 vector
	got := Sign("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestCreatePaymentSignsRequest(t *testing.T) {
	var received CreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/gateway/api/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(CreateResponse{
			OrderID:    received.OrderID,
			RequestID:  received.RequestID,
			Amount:     received.Amount,
			ResultCode: ResultSuccess,
			Message:    "Successful.",
			PayURL:     "https://test-payment.momo.vn/pay/abc",
		})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL + "/v2/gateway/api/create")
	client := NewClient(cfg)

	resp, raw, err := client.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:   "ORDER_abc123def0",
		RequestID: "ORDER_abc123def0",
		Amount:    150000,
	})
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, resp.ResultCode)
	assert.Equal(t, "https://test-payment.momo.vn/pay/abc", resp.PayURL)
	assert.NotEmpty(t, raw)

	assert.Equal(t, "Course payment: ORDER_abc123def0", received.OrderInfo)
	assert.Equal(t, RequestTypeCaptureWallet, received.RequestType)
	assert.Equal(t, LangEN, received.Lang)

	expectedRaw := "accessKey=access&amount=150000&extraData=&ipnUrl=https://api.example.com/api/v1/payments/momo/callback" +
		"&orderId=ORDER_abc123def0&orderInfo=Course payment: ORDER_abc123def0&partnerCode=MOMOTEST" +
		"&redirectUrl=https://shop.example.com/return&requestId=ORDER_abc123def0&requestType=captureWallet"
	assert.Equal(t, Sign("secret", expectedRaw), received.Signature)
}

func TestCreatePaymentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL + "/create"))
	_, _, err := client.CreatePayment(context.Background(), CreatePaymentInput{OrderID: "ORDER_1", RequestID: "ORDER_1", Amount: 1000})
	assert.Error(t, err)
}

func TestRefundUsesRefundEndpoint(t *testing.T) {
	var received RefundRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/gateway/api/refund", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(RefundResponse{OrderID: received.OrderID, TransID: 99001, ResultCode: 0, Message: "Successful."})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL + "/v2/gateway/api/create"))
	resp, err := client.Refund(context.Background(), RefundInput{
		OrderID:     "ORDER_1",
		RequestID:   "refund_ORDER_1_1700000000000",
		Amount:      150000,
		TransID:     4088878653,
		Description: "Refund for invoice INV-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99001), resp.TransID)

	raw := "accessKey=access&amount=150000&description=Refund for invoice INV-1&orderId=ORDER_1&partnerCode=MOMOTEST" +
		"&requestId=refund_ORDER_1_1700000000000&transId=4088878653"
	assert.Equal(t, Sign("secret", raw), received.Signature)
}

func TestVerifyCallback(t *testing.T) {
	cfg := testConfig("https://test-payment.momo.vn/v2/gateway/api/create")
	cb := &Callback{
		PartnerCode:  cfg.PartnerCode,
		OrderID:      "ORDER_1",
		RequestID:    "ORDER_1",
		Amount:       150000,
		OrderInfo:    "Course payment: ORDER_1",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1700000000000,
	}
	cb.Signature = SignCallback(cfg, cb)

	assert.True(t, VerifyCallback(cfg, cb))

	tampered := *cb
	tampered.Amount = 1
	assert.False(t, VerifyCallback(cfg, &tampered))

	forged := *cb
	forged.Signature = "deadbeef"
	assert.False(t, VerifyCallback(cfg, &forged))
}
