package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// ChatGPTTranslator implements ports.Translator backed by OpenAI-compatible APIs.
type ChatGPTTranslator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Translator = (*ChatGPTTranslator)(nil)

// NewChatGPTTranslator builds a client from configuration.
func NewChatGPTTranslator(cfg config.ChatGPTConfig, client *http.Client) *ChatGPTTranslator {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ChatGPTTranslator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   client,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate asks the model for a translation of a single headline.
func (c *ChatGPTTranslator) Translate(ctx context.Context, text, targetLocale string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: chatgpt client is nil", domain.ErrTranslate)
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("%w: chatgpt client misconfigured", domain.ErrTranslate)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(c.systemPrompt, targetLocale)},
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal chatgpt payload: %v", domain.ErrTranslate, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: new request: %v", domain.ErrTranslate, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", domain.ErrTranslate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: chatgpt error %s: %s", domain.ErrTranslate, resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrTranslate, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrTranslate)
	}

	out := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty translation", domain.ErrTranslate)
	}
	return out, nil
}

func systemPrompt(prompt, targetLocale string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "Translate the user's news headline into %s. Reply with the translation only."
	}
	if strings.Contains(prompt, "%s") {
		return fmt.Sprintf(prompt, targetLocale)
	}
	return prompt
}
