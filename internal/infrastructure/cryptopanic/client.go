package cryptopanic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Client fetches the latest posts from the CryptoPanic API.
type Client struct {
	endpoint string
	apiKey   string
	kind     string
	regions  string
	public   bool
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.NewsSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 30 second timeout.
func NewClient(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		kind:     cfg.Kind,
		regions:  cfg.Regions,
		public:   cfg.Public,
		client:   client,
		logger:   logger,
	}
}

type response struct {
	Results json.RawMessage `json:"results"`
}

type post struct {
	ID          *domain.ArticleID `json:"id"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Domain      string            `json:"domain"`
	PublishedAt string            `json:"published_at"`
	Source      struct {
		Domain string `json:"domain"`
	} `json:"source"`
}

// FetchLatest returns the current result window in the order served, newest first.
func (c *Client) FetchLatest(ctx context.Context) ([]domain.Article, error) {
	reqURL, err := c.buildURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsRelay/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request posts: %v", domain.ErrFetch, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: cryptopanic returned %s: %s", domain.ErrFetch, resp.Status, strings.TrimSpace(string(payload)))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrMalformedResponse, err)
	}

	results := bytes.TrimSpace(body.Results)
	if len(results) == 0 || results[0] != '[' {
		return nil, fmt.Errorf("%w: results is not a list", domain.ErrMalformedResponse)
	}

	var posts []post
	if err := json.Unmarshal(results, &posts); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", domain.ErrMalformedResponse, err)
	}

	articles := make([]domain.Article, 0, len(posts))
	for _, p := range posts {
		if p.ID == nil || *p.ID == "" {
			c.logger.Debug("skip post without id", "title", p.Title)
			continue
		}
		articles = append(articles, toArticle(p))
	}

	return articles, nil
}

func toArticle(p post) domain.Article {
	source := p.Source.Domain
	if source == "" {
		source = p.Domain
	}

	var publishedAt time.Time
	if p.PublishedAt != "" {
		if parsed, err := dateparse.ParseAny(p.PublishedAt); err == nil {
			publishedAt = parsed.UTC()
		}
	}

	return domain.Article{
		ID:          *p.ID,
		Title:       strings.TrimSpace(p.Title),
		URL:         p.URL,
		Source:      source,
		PublishedAt: publishedAt,
	}
}

func (c *Client) buildURL() (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %s: %w", c.endpoint, err)
	}

	query := parsed.Query()
	query.Set("auth_token", c.apiKey)
	query.Set("public", strconv.FormatBool(c.public))
	if c.kind != "" {
		query.Set("kind", c.kind)
	}
	if c.regions != "" {
		query.Set("regions", c.regions)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// redact keeps the API key out of logged transport errors, which embed the URL.
func redact(err error, secret string) string {
	msg := err.Error()
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "***")
}
