package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsJSON = `[
  {"id":"aaa","title":"Zebra patterns in Go","url":"https://qiita.com/alice/items/aaa","likes_count":1500,"stocks_count":20,
   "created_at":"2024-03-01T09:00:00+09:00","tags":[{"name":"go"},{"name":"design"}],"rendered_body":"<p>Stripes.</p>"},
  {"id":"bbb","title":"Apple \"quoted\" notes","url":"https://qiita.com/alice/items/bbb","likes_count":3,
   "created_at":"2024-03-05T09:00:00+09:00","tags":[{"name":"misc"}],"rendered_body":"<p>Fruit.</p>"}
]`

type fixture struct {
	configPath string
	dir        string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	for _, env := range []string{"QIITA_ANALYZER_CONFIG", "QIITA_ACCESS_TOKEN", "GEMINI_API_KEY", "GEMINI_MODEL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "LOG_LEVEL"} {
		t.Setenv(env, "")
	}

	qiitaServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "user:ghost":
			w.WriteHeader(http.StatusNotFound)
		case "user:empty":
			fmt.Fprint(w, `[]`)
		default:
			fmt.Fprint(w, itemsJSON)
		}
	}))
	t.Cleanup(qiitaServer.Close)

	geminiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.Contents[0].Parts[0].Text

		reply := "profile summary"
		switch {
		case strings.Contains(prompt, "new article topics"):
			reply = "1. Title: Next\n   Reason: fits"
		case strings.Contains(prompt, "Title: Apple"):
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"Resource has been exhausted"}}`)
			return
		case strings.Contains(prompt, "catchier"):
			reply = "1. Stripes everywhere\n2. B\n3. C"
		}
		out, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": reply}}}}},
		})
		_, _ = w.Write(out)
	}))
	t.Cleanup(geminiServer.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`logging:
  level: error
qiita:
  baseUrl: %s
gemini:
  baseUrl: %s
  model: test-model
export:
  dir: %s
  timezone: Asia/Tokyo
`, qiitaServer.URL, geminiServer.URL, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return fixture{configPath: path, dir: dir}
}

func run(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFetchText(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "fetch", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "User: alice (sorted by created_at desc)")
	assert.Contains(t, out, "Articles: 2  Likes: 1,503 (avg 751.5)  Bookmarks: 20 (avg 10.0)")
	assert.Less(t, strings.Index(out, "Apple"), strings.Index(out, "Zebra"), "newest first")
	assert.Contains(t, out, "2024/3/1  likes 1,500  bookmarks 20  [go, design]")
}

func TestFetchSortToggleAndJSON(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "fetch", "alice", "--sort", "likes_count", "--format", "json")
	require.NoError(t, err)

	var report reportView
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "likes_count desc", report.Sort)
	require.Len(t, report.Articles, 2)
	assert.Equal(t, "aaa", report.Articles[0].ID)

	out, err = run(t, f, "fetch", "alice", "--sort", "created_at", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "sort: created_at asc")
	assert.Less(t, strings.Index(out, "id: aaa"), strings.Index(out, "id: bbb"))
}

func TestFetchRejectsUnknownFlagValue(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, f, "fetch", "alice", "--sort", "stocks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Unknown sort key "stocks"`)

	_, err = run(t, f, "fetch", "alice", "--sort", " Likes_Count ")
	assert.NoError(t, err, "keys are matched case-insensitively")
}

func TestFetchNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, f, "fetch", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "export", "alice", "--sort", "title", "--order", "asc")
	require.NoError(t, err)
	path := filepath.Join(f.dir, "alice_qiita_articles.csv")
	assert.Contains(t, out, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "\ufeff" + `"title","url","likes","created-date","tags"` + "\n" +
		`"Apple ""quoted"" notes","https://qiita.com/alice/items/bbb","3","2024/3/5","misc"` + "\n" +
		`"Zebra patterns in Go","https://qiita.com/alice/items/aaa","1500","2024/3/1","go design"` + "\n"
	assert.Equal(t, want, string(raw))
}

func TestExportXLSXAndEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, f, "export", "alice", "--type", "xlsx")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.dir, "alice_qiita_articles.xlsx"))
	assert.NoError(t, err)

	out, err := run(t, f, "export", "empty")
	require.NoError(t, err)
	assert.Equal(t, "nothing to export\n", out)
	_, err = os.Stat(filepath.Join(f.dir, "empty_qiita_articles.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzeRequiresKey(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "analyze", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini API key")
	assert.Contains(t, out, "== Profile (idle)")
}

func TestAnalyzeIsolatesFailures(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "--gemini-key", "k", "analyze", "alice", "--topics", "--titles", "5")
	require.Error(t, err, "the Apple rewrite fails")

	assert.Contains(t, out, "== Profile (resolved)\nprofile summary")
	assert.Contains(t, out, "== Topics (resolved)\n1. Title: Next")
	assert.Contains(t, out, "== Title: Zebra patterns in Go (resolved)\n1. Stripes everywhere")
	assert.Contains(t, out, "== Title: Apple \"quoted\" notes (failed)\nResource has been exhausted")
}

func TestRewrite(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, f, "--gemini-key", "k", "rewrite", "alice", "aaa")
	require.NoError(t, err)
	assert.Contains(t, out, "== Title: Zebra patterns in Go (resolved)")

	out, err = run(t, f, "--gemini-key", "k", "rewrite", "alice", "aaa")
	require.NoError(t, err)
	assert.Contains(t, out, "== Title: Zebra patterns in Go (resolved)", "a second run requests again")

	_, err = run(t, f, "--gemini-key", "k", "rewrite", "alice", "zzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No article with ID zzz")
}
