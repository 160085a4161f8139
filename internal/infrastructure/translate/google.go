package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator uses the public Google Translate endpoint.
type GoogleTranslator struct {
	endpoint string
	http     *http.Client
}

var _ ports.Translator = (*GoogleTranslator)(nil)

// NewGoogleTranslator builds a translator; empty endpoint means the public one.
func NewGoogleTranslator(endpoint string, client *http.Client) *GoogleTranslator {
	if endpoint == "" {
		endpoint = defaultGoogleEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleTranslator{endpoint: endpoint, http: client}
}

// Translate detects the source language and returns text in targetLocale.
func (g *GoogleTranslator) Translate(ctx context.Context, text, targetLocale string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint: %v", domain.ErrTranslate, err)
	}
	q := u.Query()
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", targetLocale)
	q.Set("dt", "t")
	q.Set("q", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: new request: %v", domain.ErrTranslate, err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %v", domain.ErrTranslate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %s", domain.ErrTranslate, resp.Status)
	}

	// The payload is a nested array: [[["translated","original",...],...],...].
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrTranslate, err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrTranslate)
	}

	var segments [][]any
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("%w: decode segments: %v", domain.ErrTranslate, err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: no translated segments", domain.ErrTranslate)
	}
	return out, nil
}
