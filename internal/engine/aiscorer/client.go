// internal/engine/aiscorer/client.go
package aiscorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"match-engine/internal/common/config"
	"match-engine/internal/common/httpx"
)

// TextGenerationClient is the transport strategy for the external
// text-generation service. Both implementations take a prompt and return the
// raw JSON object body the model produced. Which one is used is a deployment
// concern, not a scoring concern.
type TextGenerationClient interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// NewClientFromConfig selects the configured transport. The gateway wins when
// both are configured; nil is returned when neither is, which the scorer
// treats as the rule-only degraded mode.
func NewClientFromConfig(cfg config.AIConfig) TextGenerationClient {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if cfg.Gateway.BaseURL != "" {
		return NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.ServiceToken, timeout)
	}
	if cfg.Direct.Endpoint != "" && cfg.Direct.APIKey != "" {
		return NewDirectClient(cfg.Direct.Endpoint, cfg.Direct.APIKey, cfg.Direct.Model, timeout)
	}
	return nil
}

// GatewayClient posts prompts to the internal AI gateway, which forwards to
// whatever provider it fronts and passes the structured body through.
type GatewayClient struct {
	baseURL      string
	serviceToken string
	client       *httpx.Client
}

func NewGatewayClient(baseURL, serviceToken string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		client:       httpx.NewClient(timeout),
	}
}

func (g *GatewayClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  512,
		"temperature": 0.2,
	}
	body, _ := json.Marshal(requestBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/ai/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.serviceToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// DirectClient posts chat-completion requests straight to the provider and
// unwraps the message content, which carries the JSON object as text.
type DirectClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *httpx.Client
}

func NewDirectClient(endpoint, apiKey, model string, timeout time.Duration) *DirectClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &DirectClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   httpx.NewClient(timeout),
	}
}

func (d *DirectClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	requestBody := map[string]interface{}{
		"model": d.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.2,
	}
	body, _ := json.Marshal(requestBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider status %d", resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	return []byte(completion.Choices[0].Message.Content), nil
}
