package adapter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePushCount(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"explosive push renders as a fixed high score", "爆", 100},
		{"negative push starts with X", "X5", -10},
		{"a plain number parses directly", "42", 42},
		{"empty or unparseable text is neutral", "--", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parsePushCount(tc.text))
		})
	}
}

func TestResolveRelative(t *testing.T) {
	got, err := resolveRelative("https://forum.example", "/bbs/tech/index.html")
	require.NoError(t, err)
	assert.Equal(t, "https://forum.example/bbs/tech/index.html", got)

	got, err = resolveRelative("https://forum.example/bbs/tech/index1234.html", "index1233.html")
	require.NoError(t, err)
	assert.Equal(t, "https://forum.example/bbs/tech/index1233.html", got)
}

func TestParseForumEntry(t *testing.T) {
	html := `<div class="r-ent">
		<div class="nrec">38</div>
		<div class="title"><a href="/bbs/tech/M.123.html">Interesting new language feature</a></div>
		<div class="author">alice</div>
	</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	sel := doc.Find("div.r-ent").First()
	entry, ok := parseForumEntry(sel, "https://forum.example", "tech")

	require.True(t, ok)
	assert.Equal(t, "Interesting new language feature", entry.title)
	assert.Equal(t, "https://forum.example/bbs/tech/M.123.html", entry.url)
	assert.Equal(t, "alice", entry.author)
	assert.Equal(t, 38, entry.pushCount)
}

func TestParseForumEntry_MissingTitleIsRejected(t *testing.T) {
	html := `<div class="r-ent"><div class="nrec">5</div></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	sel := doc.Find("div.r-ent").First()
	_, ok := parseForumEntry(sel, "https://forum.example", "tech")

	assert.False(t, ok)
}

func TestExtractHotSort(t *testing.T) {
	query, found := extractHotSort("sort:hot taiwan election")
	assert.True(t, found)
	assert.Equal(t, "taiwan election", query)

	query, found = extractHotSort("SORT:HOT")
	assert.True(t, found)
	assert.Empty(t, query)

	query, found = extractHotSort("taiwan election")
	assert.False(t, found)
	assert.Equal(t, "taiwan election", query)
}

func TestHotArticles_FiltersAndSortsByPushCount(t *testing.T) {
	entries := []forumEntry{
		{title: "a", pushCount: 10},
		{title: "b", pushCount: 50},
		{title: "c", pushCount: 5},
		{title: "d", pushCount: 100},
	}
	hot := hotArticlesFrom(entries, 10)

	require.Len(t, hot, 3)
	assert.Equal(t, "d", hot[0].title)
	assert.Equal(t, "b", hot[1].title)
	assert.Equal(t, "a", hot[2].title)
}

func TestNewForumAdapter_RejectsInvalidBoardName(t *testing.T) {
	_, err := NewForumAdapter("https://forum.example", "tech/../admin", 3, nil, nil)
	assert.Error(t, err)
}

func TestNewForumAdapter_Name(t *testing.T) {
	a, err := NewForumAdapter("https://forum.example", "tech", 3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "forum:tech", a.Name())
}
