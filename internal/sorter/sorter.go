package sorter

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"QiitaAnalyzer/internal/domain"
)

// Key names the article field a collection is ordered by.
type Key string

const (
	KeyTitle     Key = "title"
	KeyCreatedAt Key = "created_at"
	KeyLikes     Key = "likes_count"
)

// Direction is the sort order applied on top of the natural comparator.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Spec is the caller-owned sort state.
type Spec struct {
	Key       Key
	Direction Direction
}

// DefaultSpec lists newest articles first.
var DefaultSpec = Spec{Key: KeyCreatedAt, Direction: Descending}

// Toggle flips the direction when key is already active and otherwise
// switches to key in descending order.
func (s Spec) Toggle(key Key) Spec {
	if s.Key == key {
		if s.Direction == Descending {
			return Spec{Key: key, Direction: Ascending}
		}
		return Spec{Key: key, Direction: Descending}
	}
	return Spec{Key: key, Direction: Descending}
}

// ParseKey validates a key supplied by a caller.
func ParseKey(value string) (Key, error) {
	switch Key(value) {
	case KeyTitle, KeyCreatedAt, KeyLikes:
		return Key(value), nil
	default:
		return "", domain.NewError(domain.ErrValidation, fmt.Sprintf("Unknown sort key %q (want title, created_at or likes_count).", value), nil)
	}
}

// Sorter orders collections; string keys use collation for its language.
type Sorter struct {
	lang language.Tag
}

// New builds a Sorter collating strings for lang.
func New(lang language.Tag) *Sorter {
	return &Sorter{lang: lang}
}

// Sort returns a new slice ordered by spec. The input is left untouched and
// equal keys keep their input order.
func (s *Sorter) Sort(articles []domain.Article, spec Spec) []domain.Article {
	out := slices.Clone(articles)
	if len(out) < 2 {
		return out
	}

	// collate.Collator keeps internal buffers, so each call gets its own.
	coll := collate.New(s.lang)

	slices.SortStableFunc(out, func(a, b domain.Article) int {
		c := compare(coll, spec.Key, a, b)
		if spec.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}

func compare(coll *collate.Collator, key Key, a, b domain.Article) int {
	switch key {
	case KeyCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case KeyTitle:
		return coll.CompareString(a.Title, b.Title)
	case KeyLikes:
		return cmp.Compare(a.Likes, b.Likes)
	default:
		return 0
	}
}
