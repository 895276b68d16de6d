// Package convai wraps the hosted conversational voice-AI provider. This is
// the primary outbound strategy: the provider's agent conducts a two-way
// phone conversation seeded with appointment variables.
//
// The provider signals "outbound calling not available on this plan" as a
// 404, so this client maps 404-class responses to a plan-limitation error
// kind. The dialer relies on that kind to decide whether to fall back to the
// synthesize-and-relay strategy.
package convai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/otakuogeek/clinic-callcenter/internal/provider"
)

// Config controls how the conversational client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client starts, inspects and ends provider-hosted phone conversations.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("convai: API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("convai: base URL is required")
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
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// StartCallRequest describes an outbound conversational call.
type StartCallRequest struct {
	AgentID          string
	PhoneNumber      string
	DynamicVariables map[string]string
	Metadata         map[string]any
}

// Conversation is the provider's view of a phone conversation.
type Conversation struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	Status         string `json:"status"`
	StartedAt      int64  `json:"start_time_unix_secs"`
	DurationSecs   int    `json:"call_duration_secs"`
}

// StartPhoneCall asks the hosted agent to call the patient.
func (c *Client) StartPhoneCall(ctx context.Context, req StartCallRequest) (*Conversation, error) {
	if strings.TrimSpace(req.AgentID) == "" {
		return nil, provider.Validation("convai: agent id required")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, provider.Validation("convai: phone number required")
	}
	payload, err := json.Marshal(struct {
		AgentID         string         `json:"agent_id"`
		PhoneNumber     string         `json:"phone_number"`
		PromptOverrides promptOverride `json:"prompt_overrides"`
		Metadata        map[string]any `json:"metadata,omitempty"`
	}{
		AgentID:         req.AgentID,
		PhoneNumber:     req.PhoneNumber,
		PromptOverrides: promptOverride{DynamicVariables: req.DynamicVariables},
		Metadata:        req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("convai: marshal start request: %w", err)
	}
	body, err := c.invoke(ctx, http.MethodPost, "/v1/convai/conversation/phone", payload)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("convai: decode start response: %w", err)
	}
	return &conv, nil
}

// GetConversation fetches the current state of a conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, provider.Validation("convai: conversation id required")
	}
	body, err := c.invoke(ctx, http.MethodGet, "/v1/convai/conversation/"+conversationID, nil)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("convai: decode conversation: %w", err)
	}
	return &conv, nil
}

// EndConversation terminates a live conversation.
func (c *Client) EndConversation(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return provider.Validation("convai: conversation id required")
	}
	_, err := c.invoke(ctx, http.MethodDelete, "/v1/convai/conversation/"+conversationID, nil)
	return err
}

type promptOverride struct {
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
}

func (c *Client) invoke(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("convai: build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.Error{Kind: provider.KindProvider, Message: fmt.Sprintf("convai: http error: %v", err)}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("convai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("convai request failed", "path", path, "status", resp.StatusCode)
		// 404 here means the feature is missing from the plan, not that the
		// resource is unknown.
		return nil, provider.FromStatus(resp.StatusCode, "convai: "+diagnosticMessage(data), data, true)
	}
	return data, nil
}

func diagnosticMessage(body []byte) string {
	var parsed struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail.Message != "" {
		return parsed.Detail.Message
	}
	return string(body)
}
