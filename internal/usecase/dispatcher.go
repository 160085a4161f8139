package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/firstrun"
	"NewsRelay/internal/ports"
)

// DispatcherDeps wires all driven adapters into the relay loop.
type DispatcherDeps struct {
	Source     ports.NewsSource
	Publisher  ports.Publisher
	Translator ports.Translator
	History    ports.HistoryStore
	FirstRun   firstrun.Policy
	Logger     *slog.Logger

	// TargetLocale is passed to Translator; ignored when Translator is nil.
	TargetLocale string
	// Seen is the history loaded at startup.
	Seen []domain.ArticleID
}

// Dispatcher owns the sent history and the first-run flag. It is driven by a
// single goroutine and is not safe for concurrent cycles.
type Dispatcher struct {
	source       ports.NewsSource
	publisher    ports.Publisher
	translator   ports.Translator
	store        ports.HistoryStore
	policy       firstrun.Policy
	logger       *slog.Logger
	targetLocale string

	sent     *domain.SentHistory
	firstRun bool
	dirty    bool
}

// NewDispatcher constructs the loop state. The seed-and-skip policy is used
// when none is provided.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	policy := deps.FirstRun
	if policy == nil {
		policy = firstrun.Seed{}
	}

	return &Dispatcher{
		source:       deps.Source,
		publisher:    deps.Publisher,
		translator:   deps.Translator,
		store:        deps.History,
		policy:       policy,
		logger:       logger,
		targetLocale: deps.TargetLocale,
		sent:         domain.NewSentHistory(deps.Seen),
		firstRun:     true,
	}
}

// FirstRun reports whether the next cycle is the first one.
func (d *Dispatcher) FirstRun() bool {
	return d.firstRun
}

// History returns a snapshot of delivered or seeded identifiers.
func (d *Dispatcher) History() []domain.ArticleID {
	return d.sent.IDs()
}

// RunCycle fetches, filters and delivers once. It never returns an error and
// recovers from panics so that the caller can always reschedule.
func (d *Dispatcher) RunCycle(ctx context.Context) {
	log := d.logger.With("cycle_id", uuid.NewString(), "first_run", d.firstRun)
	started := time.Now()
	before := d.sent.Len()
	delivered := 0

	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle aborted", "panic", fmt.Sprint(r))
		}
		d.firstRun = false
		log.Info("cycle finished",
			"delivered", delivered,
			"history_size", d.sent.Len(),
			"history_growth", d.sent.Len()-before,
			"duration", time.Since(started))
	}()

	articles := d.fetch(ctx, log)

	if d.firstRun {
		delivered = d.runFirst(ctx, log, articles)
	} else {
		delivered = d.runSteady(ctx, log, articles)
	}

	if d.dirty {
		d.persist(ctx, log)
	}
}

func (d *Dispatcher) fetch(ctx context.Context, log *slog.Logger) []domain.Article {
	if d.source == nil {
		return nil
	}

	articles, err := d.source.FetchLatest(ctx)
	if err != nil {
		log.Error("fetch failed, treating as empty", "error", err)
		return nil
	}

	log.Debug("fetched articles", "count", len(articles))
	return articles
}

func (d *Dispatcher) runFirst(ctx context.Context, log *slog.Logger, articles []domain.Article) int {
	seed, deliver := d.policy.Plan(articles)
	log.Info("first run", "policy", d.policy.Name(), "fetched", len(articles), "seed", len(seed), "deliver", len(deliver))

	if len(seed) > 0 {
		for _, id := range seed {
			d.sent.Add(id)
		}
		d.persist(ctx, log)
	}

	return d.deliverAll(ctx, log, deliver)
}

func (d *Dispatcher) runSteady(ctx context.Context, log *slog.Logger, articles []domain.Article) int {
	fresh := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if !d.sent.Contains(article.ID) {
			fresh = append(fresh, article)
		}
	}

	if len(fresh) == 0 {
		return 0
	}

	log.Info("fresh articles", "count", len(fresh))
	return d.deliverAll(ctx, log, fresh)
}

func (d *Dispatcher) deliverAll(ctx context.Context, log *slog.Logger, articles []domain.Article) int {
	delivered := 0
	for _, article := range articles {
		if d.deliver(ctx, log, article) {
			delivered++
		}
	}
	return delivered
}

// deliver runs the per-article procedure and reports whether a message was sent.
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, article domain.Article) bool {
	if d.sent.Contains(article.ID) {
		return false
	}
	if d.publisher == nil {
		return false
	}

	log = log.With("article_id", article.ID)

	post := domain.Post{
		ArticleID: article.ID,
		Title:     d.translateTitle(ctx, log, article.Title),
		URL:       article.URL,
	}

	if err := d.publisher.Publish(ctx, post); err != nil {
		log.Error("delivery failed, will retry while in fetch window", "error", err)
		return false
	}

	d.sent.Add(article.ID)
	d.persist(ctx, log)

	attrs := []any{"title", post.Title}
	if !article.PublishedAt.IsZero() {
		attrs = append(attrs, "age", time.Since(article.PublishedAt).Round(time.Second))
	}
	log.Info("article delivered", attrs...)
	return true
}

func (d *Dispatcher) translateTitle(ctx context.Context, log *slog.Logger, title string) string {
	if d.translator == nil {
		return title
	}

	translated, err := d.translator.Translate(ctx, title, d.targetLocale)
	if err != nil {
		log.Warn("translation failed, using original title", "error", err)
		return title
	}
	if translated == "" {
		return title
	}
	return translated
}

// persist rewrites the full history. A failure keeps the ids in memory and
// marks the history dirty so the next save repairs the file.
func (d *Dispatcher) persist(ctx context.Context, log *slog.Logger) {
	if d.store == nil {
		d.dirty = false
		return
	}

	if err := d.store.Save(ctx, d.sent.IDs()); err != nil {
		if !errors.Is(err, domain.ErrPersist) {
			err = fmt.Errorf("%w: %w", domain.ErrPersist, err)
		}
		log.Error("history write failed, duplicates possible after restart", "error", err, "history_size", d.sent.Len())
		d.dirty = true
		return
	}
	d.dirty = false
}
