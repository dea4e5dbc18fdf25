package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/infrastructure/qiita"
	"QiitaAnalyzer/internal/suggest"
)

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	limits   []int
	tokens   []string
	articles map[string][]domain.Article
	err      error
	gate     map[string]chan struct{}
}

func (f *fakeSource) FetchUserItems(ctx context.Context, userID, token string, limit int) ([]domain.Article, error) {
	f.mu.Lock()
	f.calls++
	f.limits = append(f.limits, limit)
	f.tokens = append(f.tokens, token)
	gate := f.gate[userID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.articles[userID], nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	return "generated", nil
}

// gatedGenerator reports each prompt on started and blocks until release is closed.
type gatedGenerator struct {
	started chan string
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	g.started <- prompt
	<-g.release
	return "profile from " + prompt[:20], nil
}

func sample() []domain.Article {
	return []domain.Article{
		{ID: "a", Title: "First", Likes: 10, Stocks: 3},
		{ID: "b", Title: "Second", Likes: 5},
		{ID: "c", Title: "Third", Likes: 0, Stocks: 7},
	}
}

func TestRetrieveValidation(t *testing.T) {
	t.Parallel()

	src := &fakeSource{articles: map[string][]domain.Article{"alice": sample()}}
	store := NewStore(StoreDeps{Source: src})
	ctx := context.Background()
	require.NoError(t, store.Retrieve(ctx, "alice", ""))

	err := store.Retrieve(ctx, "  ", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, src.calls, "no request for an empty user")

	snap := store.Snapshot()
	assert.Equal(t, "A user ID is required.", snap.Message)
	assert.ErrorIs(t, snap.Err, domain.ErrValidation)
	assert.Equal(t, "alice", snap.UserID)
	assert.Len(t, snap.Articles, 3)

	require.NoError(t, store.Retrieve(ctx, "alice", ""))
	assert.Empty(t, store.Snapshot().Message)
}

func TestRetrieveReplacesCollectionAndStats(t *testing.T) {
	t.Parallel()

	src := &fakeSource{articles: map[string][]domain.Article{"alice": sample()}}
	store := NewStore(StoreDeps{Source: src})

	require.NoError(t, store.Retrieve(context.Background(), "alice", "tok"))

	snap := store.Snapshot()
	assert.Equal(t, "alice", snap.UserID)
	assert.Len(t, snap.Articles, 3)
	assert.Equal(t, domain.CollectionStats{TotalLikes: 15, TotalStocks: 10, Count: 3}, snap.Stats)
	assert.NoError(t, snap.Err)
	assert.Empty(t, snap.Message)
	assert.False(t, snap.Fetching)
	assert.Equal(t, []int{DefaultPerPage}, src.limits)
	assert.Equal(t, []string{"tok"}, src.tokens)

	// callers get copies
	snap.Articles[0].Title = "changed"
	assert.Equal(t, "First", store.Articles()[0].Title)
}

func TestRetrieveNotFoundClearsCollection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "user:ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"x1","title":"Hello","url":"https://qiita.com/x1","likes_count":4,"created_at":"2024-03-05T10:00:00+09:00","tags":[{"name":"go"}]}]`))
	}))
	defer server.Close()

	store := NewStore(StoreDeps{Source: qiita.NewClient(server.URL, server.Client(), nil)})
	ctx := context.Background()

	require.NoError(t, store.Retrieve(ctx, "alice", ""))
	require.Equal(t, 1, store.Stats().Count)

	err := store.Retrieve(ctx, "ghost", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap := store.Snapshot()
	assert.Empty(t, snap.Articles)
	assert.Equal(t, domain.CollectionStats{}, snap.Stats)
	assert.Equal(t, qiita.MessageNotFound, snap.Message)
}

func TestRetrieveClearsSuggestions(t *testing.T) {
	t.Parallel()

	src := &fakeSource{articles: map[string][]domain.Article{"alice": sample(), "bob": sample()[:1]}}
	store := NewStore(StoreDeps{Source: src})
	orch := suggest.New(fakeGenerator{}, store, "key", nil)
	store.SetSuggestions(orch)
	ctx := context.Background()

	require.NoError(t, store.Retrieve(ctx, "alice", ""))
	require.NoError(t, orch.AnalyzeProfile(ctx))
	require.NoError(t, orch.SuggestTopics(ctx))
	require.NoError(t, orch.RequestTitleSuggestion(ctx, "b"))
	require.IsType(t, suggest.Resolved{}, orch.Profile())

	require.NoError(t, store.Retrieve(ctx, "bob", ""))
	assert.IsType(t, suggest.Idle{}, orch.Profile())
	assert.IsType(t, suggest.Idle{}, orch.Topics())
	assert.Empty(t, orch.TitleSuggestions())
}

func TestFailedRetrievalAlsoClearsSuggestions(t *testing.T) {
	t.Parallel()

	src := &fakeSource{articles: map[string][]domain.Article{"alice": sample()}}
	store := NewStore(StoreDeps{Source: src})
	orch := suggest.New(fakeGenerator{}, store, "key", nil)
	store.SetSuggestions(orch)
	ctx := context.Background()

	require.NoError(t, store.Retrieve(ctx, "alice", ""))
	require.NoError(t, orch.AnalyzeProfile(ctx))

	src.err = domain.NewError(domain.ErrRateLimited, qiita.MessageRateLimited, nil)
	assert.ErrorIs(t, store.Retrieve(ctx, "alice", ""), domain.ErrRateLimited)
	assert.IsType(t, suggest.Idle{}, orch.Profile())
	assert.Equal(t, qiita.MessageRateLimited, store.Snapshot().Message)
}

func TestFailedRetrievalDropsSuggestionsStartedDuringFetch(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	src := &fakeSource{
		articles: map[string][]domain.Article{"alice": sample()},
		gate:     map[string]chan struct{}{"bob": gate},
	}
	store := NewStore(StoreDeps{Source: src})
	gen := &gatedGenerator{started: make(chan string, 1), release: make(chan struct{})}
	orch := suggest.New(gen, store, "key", nil)
	store.SetSuggestions(orch)
	ctx := context.Background()

	require.NoError(t, store.Retrieve(ctx, "alice", ""))

	fetched := make(chan error, 1)
	go func() { fetched <- store.Retrieve(ctx, "bob", "") }()
	assert.Eventually(t, func() bool { return store.Snapshot().Fetching }, time.Second, 5*time.Millisecond)

	analyzed := make(chan error, 1)
	go func() { analyzed <- orch.AnalyzeProfile(ctx) }()
	prompt := <-gen.started
	assert.Contains(t, prompt, "First", "built from the previous collection")

	src.err = domain.NewError(domain.ErrNotFound, qiita.MessageNotFound, nil)
	close(gate)
	assert.ErrorIs(t, <-fetched, domain.ErrNotFound)

	close(gen.release)
	require.NoError(t, <-analyzed)

	snap := store.Snapshot()
	assert.Equal(t, "bob", snap.UserID)
	assert.Empty(t, snap.Articles)
	assert.IsType(t, suggest.Idle{}, orch.Profile())
}

func TestPreviousCollectionVisibleWhileFetching(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	src := &fakeSource{
		articles: map[string][]domain.Article{"alice": sample(), "bob": sample()[:1]},
		gate:     map[string]chan struct{}{"bob": gate},
	}
	store := NewStore(StoreDeps{Source: src})
	ctx := context.Background()
	require.NoError(t, store.Retrieve(ctx, "alice", ""))

	done := make(chan error, 1)
	go func() { done <- store.Retrieve(ctx, "bob", "") }()

	assert.Eventually(t, func() bool { return store.Snapshot().Fetching }, time.Second, 5*time.Millisecond)
	snap := store.Snapshot()
	assert.Equal(t, "alice", snap.UserID)
	assert.Equal(t, 3, snap.Stats.Count)
	assert.Len(t, snap.Articles, snap.Stats.Count)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.Stats().Count)
	assert.False(t, store.Snapshot().Fetching)
}

func TestLatestRetrievalWins(t *testing.T) {
	t.Parallel()

	slow := make(chan struct{})
	src := &fakeSource{
		articles: map[string][]domain.Article{"alice": sample(), "bob": sample()[:1]},
		gate:     map[string]chan struct{}{"alice": slow},
	}
	store := NewStore(StoreDeps{Source: src})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- store.Retrieve(ctx, "alice", "") }()
	assert.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Retrieve(ctx, "bob", ""))
	close(slow)
	require.NoError(t, <-first)

	snap := store.Snapshot()
	assert.Equal(t, "bob", snap.UserID)
	assert.Equal(t, 1, snap.Stats.Count)
}

func TestRetrieveWithoutSource(t *testing.T) {
	t.Parallel()

	err := NewStore(StoreDeps{}).Retrieve(context.Background(), "alice", "")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
