package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type PaystackClient struct {
	client *resty.Client
}

func NewPaystackClient(cfg *PaystackConfig) *PaystackClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.SecretKey).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &PaystackClient{client: client}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	var out verifyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&out).
		SetError(&out).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode(), out.Message)
	}
	if !out.Status {
		return nil, fmt.Errorf("payment gateway rejected verification: %s", out.Message)
	}

	return &Verification{
		Reference:   out.Data.Reference,
		Status:      out.Data.Status,
		AmountMinor: out.Data.Amount,
		Currency:    out.Data.Currency,
	}, nil
}
