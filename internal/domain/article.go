package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ArticleID is the opaque identifier assigned by the news source.
type ArticleID string

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (id *ArticleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("article id: empty value")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("article id: %w", err)
		}
		*id = ArticleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("article id: %w", err)
	}
	*id = ArticleID(n.String())
	return nil
}

// MarshalJSON writes numeric identifiers back as numbers so history files stay
// compatible with the ones produced by earlier deployments.
func (id ArticleID) MarshalJSON() ([]byte, error) {
	if isDigits(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func isDigits(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Article is a news item as returned by the source. It is never mutated.
type Article struct {
	ID          ArticleID
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Post is the transport-neutral message handed to a publisher.
type Post struct {
	ArticleID ArticleID
	Title     string
	URL       string
}
