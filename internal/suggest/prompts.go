package suggest

import (
	"fmt"
	"strings"

	"QiitaAnalyzer/internal/domain"
)

// How many leading articles feed each prompt.
const (
	ProfileArticleLimit = 30
	TopicArticleLimit   = 40
)

// ProfilePrompt asks for a prose summary of the author built from titles and tags.
func ProfilePrompt(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString("The following is a list of technical articles written by one Qiita author, with their tags.\n")
	b.WriteString("Analyze the author's areas of expertise, recurring interests and writing tendencies, ")
	b.WriteString("and summarize them as a single prose profile of about 200 words. Do not use bullet points.\n\n")

	for i, art := range head(articles, ProfileArticleLimit) {
		fmt.Fprintf(&b, "%d. %s", i+1, art.Title)
		if names := art.TagNames(); len(names) > 0 {
			fmt.Fprintf(&b, " [tags: %s]", strings.Join(names, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TopicsPrompt asks for exactly three new article ideas based on past titles.
func TopicsPrompt(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString("These are titles of articles a Qiita author has already published:\n\n")
	for _, art := range head(articles, TopicArticleLimit) {
		fmt.Fprintf(&b, "- %s\n", art.Title)
	}
	b.WriteString("\nPropose exactly three new article topics this author could write next. ")
	b.WriteString("Use this format for each proposal:\n")
	b.WriteString("1. Title: <proposed title>\n   Reason: <one sentence explaining why it suits the author>\n")
	return b.String()
}

// TitlePrompt asks for three catchier rewrites of one title.
func TitlePrompt(title string) string {
	return fmt.Sprintf(`Suggest exactly three catchier alternative titles for the following technical article.
Keep the technical meaning intact and answer with a numbered list only.

Title: %s`, title)
}

func head(articles []domain.Article, n int) []domain.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}
