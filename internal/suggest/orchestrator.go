package suggest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/ports"
)

// Kind identifies one of the independent suggestion artifacts.
type Kind string

const (
	KindProfile Kind = "profile"
	KindTopics  Kind = "topics"
	KindTitle   Kind = "title"
)

// Collection exposes the articles suggestions are built from.
type Collection interface {
	Articles() []domain.Article
}

type key struct {
	kind      Kind
	articleID string
}

// Orchestrator owns suggestion state. Every key has its own lifecycle and at
// most one request in flight.
type Orchestrator struct {
	generator ports.TextGenerator
	source    Collection
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	apiKey string
	epoch  uuid.UUID
	states map[key]State
}

// New wires the generator and the collection reader. apiKey may be empty and set later.
func New(generator ports.TextGenerator, source Collection, apiKey string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		source:    source,
		logger:    logger,
		now:       time.Now,
		apiKey:    apiKey,
		epoch:     uuid.New(),
		states:    map[key]State{},
	}
}

// SetAPIKey replaces the generative-text credential.
func (o *Orchestrator) SetAPIKey(apiKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.apiKey = apiKey
}

// Reset clears every suggestion. Requests still in flight are discarded when they finish.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch = uuid.New()
	o.states = map[key]State{}
	o.debug("suggestions reset", "epoch", o.epoch)
}

// Profile returns the profile-analysis state.
func (o *Orchestrator) Profile() State {
	return o.state(key{kind: KindProfile})
}

// Topics returns the topic-suggestion state.
func (o *Orchestrator) Topics() State {
	return o.state(key{kind: KindTopics})
}

// TitleSuggestion returns the rewrite state for one article.
func (o *Orchestrator) TitleSuggestion(articleID string) State {
	return o.state(key{kind: KindTitle, articleID: articleID})
}

// TitleSuggestions returns every non-idle rewrite state keyed by article id.
func (o *Orchestrator) TitleSuggestions() map[string]State {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]State)
	for k, st := range o.states {
		if k.kind == KindTitle {
			out[k.articleID] = st
		}
	}
	return out
}

// AnalyzeProfile summarizes the author from the leading articles. A resolved
// profile stays until the next Reset.
func (o *Orchestrator) AnalyzeProfile(ctx context.Context) error {
	return o.run(ctx, key{kind: KindProfile}, false, func(articles []domain.Article) (string, error) {
		return ProfilePrompt(articles), nil
	})
}

// SuggestTopics proposes three new article topics. A resolved result stays until the next Reset.
func (o *Orchestrator) SuggestTopics(ctx context.Context) error {
	return o.run(ctx, key{kind: KindTopics}, false, func(articles []domain.Article) (string, error) {
		return TopicsPrompt(articles), nil
	})
}

// RequestTitleSuggestion generates rewrites for one article. It does nothing
// while a request for the same article is pending or a result is present.
func (o *Orchestrator) RequestTitleSuggestion(ctx context.Context, articleID string) error {
	return o.run(ctx, key{kind: KindTitle, articleID: articleID}, false, titlePrompt(articleID))
}

// DismissTitleSuggestion returns a resolved or failed rewrite to idle.
// Pending requests are left alone.
func (o *Orchestrator) DismissTitleSuggestion(articleID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := key{kind: KindTitle, articleID: articleID}
	if _, pending := o.states[k].(Pending); pending {
		return
	}
	delete(o.states, k)
}

// ToggleTitleSuggestion dismisses a resolved rewrite, otherwise requests one.
func (o *Orchestrator) ToggleTitleSuggestion(ctx context.Context, articleID string) error {
	return o.run(ctx, key{kind: KindTitle, articleID: articleID}, true, titlePrompt(articleID))
}

func titlePrompt(articleID string) func([]domain.Article) (string, error) {
	return func(articles []domain.Article) (string, error) {
		art, ok := domain.FindArticle(articles, articleID)
		if !ok {
			return "", domain.NewError(domain.ErrValidation, "No article with ID "+articleID+" in the current collection.", nil)
		}
		return TitlePrompt(art.Title), nil
	}
}

func (o *Orchestrator) state(k key) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked(k)
}

func (o *Orchestrator) stateLocked(k key) State {
	if st, ok := o.states[k]; ok {
		return st
	}
	return Idle{}
}

// run drives one key through Pending into Resolved or Failed.
func (o *Orchestrator) run(ctx context.Context, k key, dismissResolved bool, build func([]domain.Article) (string, error)) error {
	// Read the collection before taking o.mu; the store calls Reset while replacing it.
	var articles []domain.Article
	if o.source != nil {
		articles = o.source.Articles()
	}

	o.mu.Lock()
	switch o.stateLocked(k).(type) {
	case Pending:
		o.mu.Unlock()
		o.debug("request already pending", "kind", k.kind, "article", k.articleID)
		return nil
	case Resolved:
		if dismissResolved {
			delete(o.states, k)
		}
		o.mu.Unlock()
		return nil
	}

	if o.apiKey == "" || o.generator == nil {
		o.mu.Unlock()
		return domain.NewError(domain.ErrConfiguration, "Set a Gemini API key before requesting suggestions.", nil)
	}
	if len(articles) == 0 {
		o.mu.Unlock()
		return domain.NewError(domain.ErrConfiguration, "Fetch articles before requesting suggestions.", nil)
	}

	prompt, err := build(articles)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	requestID := uuid.New()
	epoch := o.epoch
	apiKey := o.apiKey
	o.states[k] = Pending{RequestID: requestID, Since: o.now()}
	o.mu.Unlock()

	o.debug("suggestion requested", "kind", k.kind, "article", k.articleID, "request", requestID)
	text, genErr := o.generator.Generate(ctx, apiKey, prompt)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epoch != epoch {
		o.debug("discarding result from previous collection", "kind", k.kind, "request", requestID)
		return nil
	}
	if p, ok := o.states[k].(Pending); !ok || p.RequestID != requestID {
		return nil
	}

	if genErr != nil {
		o.states[k] = Failed{Message: domain.UserMessage(genErr), Err: genErr}
		if o.logger != nil {
			o.logger.Warn("suggestion failed", "kind", k.kind, "article", k.articleID, "request", requestID, "error", genErr)
		}
		return genErr
	}

	o.states[k] = Resolved{Text: text}
	o.debug("suggestion resolved", "kind", k.kind, "article", k.articleID, "request", requestID)
	return nil
}

func (o *Orchestrator) debug(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}
