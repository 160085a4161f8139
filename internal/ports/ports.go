package ports

import (
	"context"
	"time"

	"NewsRelay/internal/domain"
)

// NewsSource pulls the current window of articles, newest first.
type NewsSource interface {
	FetchLatest(ctx context.Context) ([]domain.Article, error)
}

// Publisher delivers a single post to the destination channel.
type Publisher interface {
	Publish(ctx context.Context, post domain.Post) error
}

// Translator converts text to the target locale.
type Translator interface {
	Translate(ctx context.Context, text, targetLocale string) (string, error)
}

// HistoryStore persists the full set of delivered identifiers.
type HistoryStore interface {
	Load(ctx context.Context) ([]domain.ArticleID, error)
	Save(ctx context.Context, ids []domain.ArticleID) error
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(ctx context.Context, trigger time.Time)) error
	Stop(ctx context.Context) error
}
