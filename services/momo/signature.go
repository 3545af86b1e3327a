package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign returns the lowercase hex HMAC-SHA256 of raw keyed by secret
func Sign(secret, raw string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Fields are joined in alphabetical key order as MoMo requires.

func createRaw(accessKey string, r *CreateRequest) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		accessKey, r.Amount, r.ExtraData, r.IPNURL, r.OrderID, r.OrderInfo, r.PartnerCode, r.RedirectURL, r.RequestID, r.RequestType,
	)
}

func callbackRaw(accessKey string, cb *Callback) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		accessKey, cb.Amount, cb.ExtraData, cb.Message, cb.OrderID, cb.OrderInfo, cb.OrderType, cb.PartnerCode, cb.PayType, cb.RequestID, cb.ResponseTime, cb.ResultCode, cb.TransID,
	)
}

func refundRaw(accessKey string, r *RefundRequest) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&description=%s&orderId=%s&partnerCode=%s&requestId=%s&transId=%d",
		accessKey, r.Amount, r.Description, r.OrderID, r.PartnerCode, r.RequestID, r.TransID,
	)
}

// SignCallback computes the signature MoMo would put on cb. Used by tests and sandbox tooling.
func SignCallback(cfg Config, cb *Callback) string {
	return Sign(cfg.SecretKey, callbackRaw(cfg.AccessKey, cb))
}

// VerifyCallback reports whether cb carries a valid signature
func VerifyCallback(cfg Config, cb *Callback) bool {
	expected := SignCallback(cfg, cb)
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}
