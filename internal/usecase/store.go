package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/ports"
	"QiitaAnalyzer/internal/stats"
)

// DefaultPerPage is the number of items requested per retrieval.
const DefaultPerPage = 100

// Resetter clears suggestion state derived from the previous collection.
type Resetter interface {
	Reset()
}

// StoreDeps wires the store's collaborators.
type StoreDeps struct {
	Source      ports.ArticleSource
	Suggestions Resetter
	Logger      *slog.Logger
	PerPage     int
}

// Snapshot is a consistent view of the store.
type Snapshot struct {
	UserID    string
	Articles  []domain.Article
	Stats     domain.CollectionStats
	Err       error
	Message   string
	Fetching  bool
	FetchedAt time.Time
}

// Store owns the current collection and its stats.
type Store struct {
	source      ports.ArticleSource
	suggestions Resetter
	logger      *slog.Logger
	perPage     int
	now         func() time.Time

	mu         sync.RWMutex
	generation uint64
	fetching   bool
	userID     string
	articles   []domain.Article
	stats      domain.CollectionStats
	err        error
	fetchedAt  time.Time
}

// NewStore constructs an empty store.
func NewStore(deps StoreDeps) *Store {
	perPage := deps.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Store{
		source:      deps.Source,
		suggestions: deps.Suggestions,
		logger:      deps.Logger,
		perPage:     perPage,
		now:         time.Now,
	}
}

// SetSuggestions attaches the suggestion state reset on every retrieval.
func (s *Store) SetSuggestions(r Resetter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = r
}

// Retrieve replaces the collection with userID's articles. Readers keep
// seeing the previous collection until the fetch resolves. Only the most
// recently started retrieval commits.
func (s *Store) Retrieve(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return s.reject(domain.NewError(domain.ErrValidation, "A user ID is required.", nil))
	}
	if s.source == nil {
		return s.reject(domain.NewError(domain.ErrConfiguration, "No article source is configured.", nil))
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.fetching = true
	suggestions := s.suggestions
	s.mu.Unlock()

	if suggestions != nil {
		suggestions.Reset()
	}

	s.debug("retrieval started", "user", userID, "generation", gen)
	articles, err := s.source.FetchUserItems(ctx, userID, token, s.perPage)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.debug("retrieval superseded", "user", userID, "generation", gen)
		if err != nil {
			return fmt.Errorf("retrieve %s: %w", userID, err)
		}
		return nil
	}

	s.fetching = false
	s.userID = userID
	s.fetchedAt = s.now()

	// Requests started against the old collection while the fetch was running are dropped.
	if s.suggestions != nil {
		s.suggestions.Reset()
	}

	if err != nil {
		s.articles = nil
		s.stats = domain.CollectionStats{}
		s.err = err
		if s.logger != nil {
			s.logger.Warn("retrieval failed", "user", userID, "error", err)
		}
		return fmt.Errorf("retrieve %s: %w", userID, err)
	}

	s.articles = articles
	s.stats = stats.Aggregate(articles)
	s.err = nil
	s.debug("retrieval finished", "user", userID, "count", s.stats.Count, "likes", s.stats.TotalLikes)
	return nil
}

// Articles returns a copy of the current collection.
func (s *Store) Articles() []domain.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.articles)
}

// Stats returns the stats of the current collection.
func (s *Store) Stats() domain.CollectionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Snapshot returns collection, stats and error as one consistent value.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		UserID:    s.userID,
		Articles:  slices.Clone(s.articles),
		Stats:     s.stats,
		Err:       s.err,
		Fetching:  s.fetching,
		FetchedAt: s.fetchedAt,
	}
	if s.err != nil {
		snap.Message = domain.UserMessage(s.err)
	}
	return snap
}

// reject records an error raised before any fetch starts. The collection is kept.
func (s *Store) reject(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return err
}

func (s *Store) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
