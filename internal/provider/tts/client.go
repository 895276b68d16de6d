// Package tts wraps the speech-synthesis API that turns reminder text into
// an audio buffer for the relay strategy.
package tts

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

// Config controls how the synthesis client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	ModelID    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// Client produces audio buffers from text.
type Client struct {
	baseURL    string
	apiKey     string
	modelID    string
	settings   VoiceSettings
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tts: API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tts: base URL is required")
	}
	modelID := strings.TrimSpace(cfg.ModelID)
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
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
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		modelID: modelID,
		settings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           1.0,
		},
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Synthesize converts text into an audio buffer using the given voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, provider.Validation("tts: text required")
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, provider.Validation("tts: voice id required")
	}
	payload, err := json.Marshal(struct {
		Text          string        `json:"text"`
		ModelID       string        `json:"model_id"`
		VoiceSettings VoiceSettings `json:"voice_settings"`
	}{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.Error{Kind: provider.KindProvider, Message: fmt.Sprintf("tts: http error: %v", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("tts synthesis failed", "voice_id", voiceID, "status", resp.StatusCode)
		return nil, provider.FromStatus(resp.StatusCode, "tts: "+diagnosticMessage(body), body, false)
	}
	if len(body) == 0 {
		return nil, &provider.Error{Kind: provider.KindProvider, Message: "tts: empty audio response"}
	}
	return body, nil
}

// diagnosticMessage extracts the provider's human-readable detail, falling
// back to the raw body.
func diagnosticMessage(body []byte) string {
	var parsed struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail.Message != "" {
		return parsed.Detail.Message
	}
	return string(body)
}
