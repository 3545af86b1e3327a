// Package momo talks to the MoMo e-wallet payment gateway.
package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

// Gateway is the part of the MoMo API the payment service needs
type Gateway interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreateResponse, []byte, error)
	Refund(ctx context.Context, in RefundInput) (*RefundResponse, error)
	VerifyCallback(cb *Callback) bool
}

// CreatePaymentInput carries the order fields of a create request
type CreatePaymentInput struct {
	OrderID   string
	RequestID string
	Amount    int64
	OrderInfo string
	ExtraData string
}

// RefundInput carries the fields of a refund request
type RefundInput struct {
	OrderID     string
	RequestID   string
	Amount      int64
	TransID     int64
	Description string
}

// Client signs and sends requests to MoMo
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// NewClientWithHTTP lets callers supply their own transport
func NewClientWithHTTP(config Config, httpClient *http.Client) *Client {
	return &Client{config: config, httpClient: httpClient}
}

// refundEndpoint derives the refund URL from the create URL
func (c *Client) refundEndpoint() string {
	if strings.HasSuffix(c.config.Endpoint, "/create") {
		return strings.TrimSuffix(c.config.Endpoint, "/create") + "/refund"
	}
	return strings.Replace(c.config.Endpoint, "/create", "/refund", 1)
}

// CreatePayment builds, signs and posts a captureWallet request. It also returns
// the raw response body so callers can keep it for auditing.
func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreateResponse, []byte, error) {
	orderInfo := in.OrderInfo
	if orderInfo == "" {
		orderInfo = "Course payment: " + in.OrderID
	}

	req := &CreateRequest{
		PartnerCode: c.config.PartnerCode,
		RequestID:   in.RequestID,
		Amount:      in.Amount,
		OrderID:     in.OrderID,
		OrderInfo:   orderInfo,
		RedirectURL: c.config.RedirectURL,
		IPNURL:      c.config.IPNURL,
		RequestType: RequestTypeCaptureWallet,
		ExtraData:   in.ExtraData,
		Lang:        LangEN,
	}
	req.Signature = Sign(c.config.SecretKey, createRaw(c.config.AccessKey, req))

	var resp CreateResponse
	raw, err := c.post(ctx, c.config.Endpoint, req, &resp)
	if err != nil {
		return nil, nil, err
	}
	return &resp, raw, nil
}

// Refund returns money for a settled transaction
func (c *Client) Refund(ctx context.Context, in RefundInput) (*RefundResponse, error) {
	req := &RefundRequest{
		PartnerCode: c.config.PartnerCode,
		OrderID:     in.OrderID,
		RequestID:   in.RequestID,
		Amount:      in.Amount,
		TransID:     in.TransID,
		Lang:        LangEN,
		Description: in.Description,
	}
	req.Signature = Sign(c.config.SecretKey, refundRaw(c.config.AccessKey, req))

	var resp RefundResponse
	if _, err := c.post(ctx, c.refundEndpoint(), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyCallback(cb *Callback) bool {
	return VerifyCallback(c.config, cb)
}

func (c *Client) post(ctx context.Context, url string, body interface{}, result interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("momo request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// MoMo reports business failures in resultCode with a 200 or 4xx body; only
	// an unparseable body is a transport error.
	if err := json.Unmarshal(respBody, result); err != nil {
		return nil, fmt.Errorf("momo returned status %d with unreadable body: %w", resp.StatusCode, err)
	}

	return respBody, nil
}
