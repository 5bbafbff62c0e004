package book

import (
	"sort"
	"strings"
	"sync"
)

// ChapterPath resolves the outline breadcrumb ("Part I > Chapter 2 > Notes")
// that applies to a page of one document. Results are memoized per page for
// the lifetime of the instance, and it is safe for concurrent use.
type ChapterPath struct {
	chapters []Chapter
	maxLevel int

	mu    sync.Mutex
	cache map[int]string
}

// Option configures a ChapterPath.
type Option func(*ChapterPath)

// WithMaxLevel ignores outline entries nested deeper than level.
func WithMaxLevel(level int) Option {
	return func(c *ChapterPath) {
		c.maxLevel = level
	}
}

// NewChapterPath builds a resolver for one document's outline. The input
// order does not matter; chapters are stably sorted by page.
func NewChapterPath(chapters []Chapter, opts ...Option) *ChapterPath {
	sorted := make([]Chapter, len(chapters))
	for i, ch := range chapters {
		ch.Title = normalizeTitle(ch.Title)
		sorted[i] = ch
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Page < sorted[j].Page
	})

	c := &ChapterPath{
		chapters: sorted,
		maxLevel: -1,
		cache:    make(map[int]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ByPageNumber returns the chapter path for page, or "" when the page comes
// before the first outline entry.
func (c *ChapterPath) ByPageNumber(page int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.cache[page]; ok {
		return path
	}
	path := c.resolve(page)
	c.cache[page] = path
	return path
}

func (c *ChapterPath) resolve(page int) string {
	var (
		stack pathStack
		last  *Chapter
	)
	for i := range c.chapters {
		ch := &c.chapters[i]
		if ch.Page > page {
			break
		}
		if c.maxLevel >= 0 && ch.Level > c.maxLevel {
			continue
		}

		switch {
		case last == nil || ch.Level > last.Level:
			stack.push(ch.Level, ch.Title)
		case ch.Level == last.Level:
			stack.replaceTop(ch.Title)
		default:
			stack.popToLevel(ch.Level)
			stack.push(ch.Level, ch.Title)
		}
		last = ch
	}
	return stack.String()
}

type pathEntry struct {
	level int
	title string
}

type pathStack []pathEntry

func (s *pathStack) push(level int, title string) {
	*s = append(*s, pathEntry{level: level, title: title})
}

func (s *pathStack) replaceTop(title string) {
	if len(*s) == 0 {
		return
	}
	(*s)[len(*s)-1].title = title
}

// popToLevel drops entries until the top is shallower than level.
func (s *pathStack) popToLevel(level int) {
	for len(*s) > 0 && (*s)[len(*s)-1].level >= level {
		*s = (*s)[:len(*s)-1]
	}
}

func (s pathStack) String() string {
	titles := make([]string, len(s))
	for i, e := range s {
		titles[i] = e.title
	}
	return strings.Join(titles, " > ")
}

func normalizeTitle(title string) string {
	title = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(title)
	for strings.Contains(title, "  ") {
		title = strings.ReplaceAll(title, "  ", " ")
	}
	return strings.TrimSpace(title)
}
