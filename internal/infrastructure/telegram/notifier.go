package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
	"HNFilter/pkg/logger"
)

// Notifier sends matched articles to a Telegram chat via bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken string, chatID int64, log *slog.Logger) (*Notifier, error) {
	return NewNotifierWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewNotifierWithEndpoint allows pointing the bot at a non-default API endpoint.
func NewNotifierWithEndpoint(botToken string, chatID int64, endpoint string, client *http.Client, log *slog.Logger) (*Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := tgbotapi.SetLogger(logger.New(log, "telegram-bot-api")); err != nil {
		return nil, fmt.Errorf("set telegram logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	log = log.With("component", "telegram")
	log.Info("telegram bot initialized", "username", bot.Self.UserName)

	return &Notifier{bot: bot, chatID: chatID, logger: log}, nil
}

// Notify posts one HTML message per matched article.
func (n *Notifier) Notify(ctx context.Context, article domain.MatchedArticle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(article))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	n.logger.Debug("article delivered", "url", article.Article.URL)
	return nil
}

// FormatMessage renders the Telegram HTML body for a matched article.
func FormatMessage(article domain.MatchedArticle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(article.Article.Title))
	fmt.Fprintf(&b, "%s\n", html.EscapeString(article.Article.URL))

	topics := make([]string, 0, len(article.Matches))
	for _, m := range article.Matches {
		topics = append(topics, html.EscapeString(string(m.Topic)))
	}
	fmt.Fprintf(&b, "\nTopics: %s\n", strings.Join(topics, ", "))

	if article.Article.CommentCount > 0 {
		fmt.Fprintf(&b, "Comments: %d", article.Article.CommentCount)
		if article.Article.DiscussionURL != "" {
			fmt.Fprintf(&b, " (<a href=\"%s\">discussion</a>)", html.EscapeString(article.Article.DiscussionURL))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
