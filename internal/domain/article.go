package domain

import "time"

// Article is one item published by the queried author.
// Records are never modified after fetching; a new retrieval replaces the whole collection.
type Article struct {
	ID         string
	Title      string
	URL        string
	Likes      int
	Stocks     int // zero when the API omits stocks_count
	CreatedAt  time.Time
	CreatedRaw string
	Tags       []Tag
	Excerpt    string
}

// Tag is a single topic label attached to an article. Duplicates are kept as fetched.
type Tag struct {
	Name string
}

// TagNames returns tag names in display order.
func (a Article) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, tag := range a.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// CollectionStats is derived from a collection and recomputed on every replacement.
type CollectionStats struct {
	TotalLikes  int
	TotalStocks int
	Count       int
}

// FindArticle looks up an article by id.
func FindArticle(articles []Article, id string) (Article, bool) {
	for _, art := range articles {
		if art.ID == id {
			return art, true
		}
	}
	return Article{}, false
}
