// Package relay wraps the signed telephony-relay API used to bridge a
// pre-verified SIP extension to a patient's phone number.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/otakuogeek/clinic-callcenter/internal/provider"
)

const statusSuccess = "success"

// Config controls how the relay client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues signed GET requests against the relay provider.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("relay: API key and secret key are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("relay: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// RequestCallback asks the provider to bridge fromExtension to toNumber.
// toNumber must already be in relay digit format (no "+").
func (c *Client) RequestCallback(ctx context.Context, fromExtension, toNumber string) (*CallbackResult, error) {
	if strings.TrimSpace(fromExtension) == "" || strings.TrimSpace(toNumber) == "" {
		return nil, provider.Validation("relay: from extension and destination number required")
	}
	params := map[string]string{
		"from": fromExtension,
		"to":   toNumber,
	}
	body, err := c.invoke(ctx, "/v1/request-callback/", params)
	if err != nil {
		return nil, err
	}
	var parsed callbackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("relay: decode callback response: %w", err)
	}
	return &CallbackResult{
		Accepted:     parsed.Status == statusSuccess,
		From:         parsed.From,
		To:           parsed.To,
		ProviderTime: parsed.Time,
		CallID:       parsed.CallID,
		Raw:          body,
	}, nil
}

// Balance returns the current account balance.
func (c *Client) Balance(ctx context.Context) (*BalanceResult, error) {
	body, err := c.invoke(ctx, "/v1/info/balance/", nil)
	if err != nil {
		return nil, err
	}
	var parsed balanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("relay: decode balance response: %w", err)
	}
	return &BalanceResult{
		OK:       parsed.Status == statusSuccess,
		Balance:  parsed.Balance,
		Currency: parsed.Currency,
		Raw:      body,
	}, nil
}

// SIPNumbers lists the SIP extensions available on the account.
func (c *Client) SIPNumbers(ctx context.Context) (*SIPListResult, error) {
	body, err := c.invoke(ctx, "/v1/sip-list/", nil)
	if err != nil {
		return nil, err
	}
	var parsed sipListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("relay: decode sip list response: %w", err)
	}
	return &SIPListResult{
		OK:         parsed.Status == statusSuccess,
		Extensions: parsed.SIPs,
		Raw:        body,
	}, nil
}

// CallInfo fetches the provider's view of a previously placed call.
func (c *Client) CallInfo(ctx context.Context, callID string) (*CallInfoResult, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, provider.Validation("relay: call id required")
	}
	body, err := c.invoke(ctx, "/v1/pbx/callinfo/", map[string]string{"call_id": callID})
	if err != nil {
		return nil, err
	}
	var parsed callInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("relay: decode call info response: %w", err)
	}
	return &CallInfoResult{
		OK:          parsed.Status == statusSuccess,
		CallID:      parsed.CallID,
		Duration:    parsed.Duration,
		Disposition: parsed.Disposition,
		Raw:         body,
	}, nil
}

func (c *Client) invoke(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		fullURL = fullURL + "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: build request: %w", err)
	}
	signature := Sign(http.MethodGet, path, params, c.secretKey)
	req.Header.Set("Authorization", c.apiKey+":"+signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.Error{Kind: provider.KindProvider, Message: fmt.Sprintf("relay: http error: %v", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("relay request failed", "path", path, "status", resp.StatusCode)
		return nil, provider.FromStatus(resp.StatusCode, "relay: "+http.StatusText(resp.StatusCode), body, false)
	}
	return body, nil
}
