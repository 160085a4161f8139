package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultReadMore = "Leia mais"

// requester is the subset of *tgbotapi.BotAPI the notifier relies on.
// sendMessage is issued as a raw request because the released MessageConfig
// has no message_thread_id field.
type requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Notifier posts articles to a Telegram chat topic via the Bot API.
type Notifier struct {
	api      requester
	chatID   string
	topicID  int
	readMore string
}

var _ ports.Publisher = (*Notifier)(nil)

// NewNotifier registers the bot client and destination.
func NewNotifier(api requester, cfg config.TelegramConfig) *Notifier {
	readMore := strings.TrimSpace(cfg.ReadMoreText)
	if readMore == "" {
		readMore = defaultReadMore
	}
	return &Notifier{
		api:      api,
		chatID:   cfg.ChatID,
		topicID:  cfg.TopicID,
		readMore: readMore,
	}
}

// Publish sends a single HTML-formatted post. The context is only checked
// before sending; the bot client has no per-request cancellation.
func (n *Notifier) Publish(ctx context.Context, post domain.Post) error {
	if n.api == nil || n.chatID == "" {
		return fmt.Errorf("%w: telegram notifier misconfigured", domain.ErrDeliver)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliver, err)
	}

	params := tgbotapi.Params{}
	params.AddNonEmpty("chat_id", n.chatID)
	params.AddNonEmpty("text", FormatPost(post, n.readMore))
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	params.AddNonZero("message_thread_id", n.topicID)

	if _, err := n.api.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("%w: send message for article %s: %v", domain.ErrDeliver, post.ArticleID, err)
	}

	return nil
}

// FormatPost renders a bold title, a blank line and a "read more" link in
// Telegram HTML markup. Title text is kept verbatim apart from escaping.
func FormatPost(post domain.Post, readMore string) string {
	title := html.EscapeString(DecodeEntities(post.Title))
	link := html.EscapeString(post.URL)
	return fmt.Sprintf("<b>%s</b>\n\n<a href=\"%s\">%s</a>", title, link, html.EscapeString(readMore))
}

// DecodeEntities resolves character references such as "&amp;" or "&#39;"
// that upstream titles or translations sometimes carry. Anything that looks
// like a tag is left as literal text.
func DecodeEntities(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "&") {
		return s
	}

	// With every '<' escaped the parser sees a single text node.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.ReplaceAll(s, "<", "&lt;")))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
