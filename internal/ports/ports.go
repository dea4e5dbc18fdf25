package ports

import (
	"context"
	"time"

	"QiitaAnalyzer/internal/domain"
)

// ArticleSource pulls an author's articles from the content API.
// token is passed through untouched and may be empty.
type ArticleSource interface {
	FetchUserItems(ctx context.Context, userID, token string, limit int) ([]domain.Article, error)
}

// TextGenerator sends one prompt to a generative-text endpoint keyed by apiKey.
type TextGenerator interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
