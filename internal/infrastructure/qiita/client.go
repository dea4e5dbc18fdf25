package qiita

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/ports"
)

const (
	defaultBaseURL = "https://qiita.com/api/v2"
	maxPerPage     = 100
	excerptRunes   = 140
)

// User-facing messages for the three fetch failure causes.
const (
	MessageRateLimited = "The Qiita API rate limit was exceeded or access was denied. Wait a while or supply an access token."
	MessageNotFound    = "No Qiita user with that ID was found."
	MessageTransport   = "Failed to fetch articles"
)

// Client reads a user's items from the Qiita API v2.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient wires an HTTP client; an empty baseURL targets qiita.com.
func NewClient(baseURL string, client *http.Client, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  log,
	}
}

type item struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	LikesCount   int    `json:"likes_count"`
	StocksCount  *int   `json:"stocks_count"`
	CreatedAt    string `json:"created_at"`
	RenderedBody string `json:"rendered_body"`
	Tags         []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

// FetchUserItems returns the first page of items authored by userID.
func (c *Client) FetchUserItems(ctx context.Context, userID, token string, limit int) ([]domain.Article, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewError(domain.ErrValidation, "A user ID is required.", nil)
	}
	if limit <= 0 || limit > maxPerPage {
		limit = maxPerPage
	}

	endpoint, err := buildItemsURL(c.baseURL, userID, limit)
	if err != nil {
		return nil, domain.NewError(domain.ErrTransport, MessageTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrTransport, MessageTransport, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.debug("fetch items", "user", userID, "per_page", limit, "authenticated", token != "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrTransport, MessageTransport, fmt.Errorf("request items: %w", err))
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var items []item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, domain.NewError(domain.ErrTransport, MessageTransport, fmt.Errorf("decode items: %w", err))
	}

	articles := make([]domain.Article, 0, len(items))
	for _, it := range items {
		articles = append(articles, c.toArticle(it))
	}

	c.debug("items fetched", "user", userID, "count", len(articles))
	return articles, nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return domain.NewError(domain.ErrRateLimited, MessageRateLimited, fmt.Errorf("qiita returned %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewError(domain.ErrNotFound, MessageNotFound, fmt.Errorf("qiita returned %s", resp.Status))
	default:
		return domain.NewError(domain.ErrTransport, fmt.Sprintf("%s: %s", MessageTransport, resp.Status), fmt.Errorf("qiita returned %s", resp.Status))
	}
}

func (c *Client) toArticle(it item) domain.Article {
	art := domain.Article{
		ID:         it.ID,
		Title:      it.Title,
		URL:        it.URL,
		Likes:      it.LikesCount,
		CreatedRaw: it.CreatedAt,
		Excerpt:    excerpt(it.RenderedBody),
	}
	if it.StocksCount != nil {
		art.Stocks = *it.StocksCount
	}

	if created, err := time.Parse(time.RFC3339, it.CreatedAt); err == nil {
		art.CreatedAt = created
	} else if c.logger != nil {
		c.logger.Warn("unparseable created_at", "item", it.ID, "value", it.CreatedAt, "error", err)
	}

	art.Tags = make([]domain.Tag, 0, len(it.Tags))
	for _, tag := range it.Tags {
		art.Tags = append(art.Tags, domain.Tag{Name: tag.Name})
	}
	return art
}

// excerpt flattens rendered HTML to a short single-line preview.
func excerpt(renderedBody string) string {
	if strings.TrimSpace(renderedBody) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderedBody))
	if err != nil {
		return ""
	}
	doc.Find("script, style, pre").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if len(runes) > excerptRunes {
		return string(runes[:excerptRunes-1]) + "…"
	}
	return text
}

func buildItemsURL(base, userID string, perPage int) (string, error) {
	parsed, err := url.Parse(base + "/items")
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("page", "1")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("query", "user:"+userID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
