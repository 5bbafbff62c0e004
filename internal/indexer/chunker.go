package indexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Budget holds the token limits applied when splitting page text.
type Budget struct {
	MaxTokensPerLine      int
	MaxTokensPerParagraph int
	OverlapTokens         int
}

// DefaultBudget matches the limits the book importer has always used.
var DefaultBudget = Budget{
	MaxTokensPerLine:      300,
	MaxTokensPerParagraph: 512,
	OverlapTokens:         100,
}

// Validate checks that the limits are usable together.
func (b Budget) Validate() error {
	if b.MaxTokensPerLine <= 0 {
		return fmt.Errorf("max tokens per line must be greater than 0")
	}
	if b.MaxTokensPerParagraph < b.MaxTokensPerLine {
		return fmt.Errorf("max tokens per paragraph (%d) must be at least max tokens per line (%d)",
			b.MaxTokensPerParagraph, b.MaxTokensPerLine)
	}
	if b.OverlapTokens < 0 {
		return fmt.Errorf("overlap tokens must not be negative")
	}
	if b.OverlapTokens >= b.MaxTokensPerParagraph {
		return fmt.Errorf("overlap tokens (%d) must be less than max tokens per paragraph (%d)",
			b.OverlapTokens, b.MaxTokensPerParagraph)
	}
	return nil
}

// Chunker splits page text into token-bounded, overlapping chunks.
//
// Splitting runs in two stages. Source lines are first reflowed into lines of
// at most MaxTokensPerLine tokens, breaking only between words. Lines are then
// packed greedily into paragraphs of at most MaxTokensPerParagraph tokens; each
// new paragraph starts with the trailing OverlapTokens tokens of the previous
// one. A single line that alone exceeds the paragraph budget becomes its own
// chunk without a carried overlap, since there is no room for one; the chunk
// after it still starts with the line's trailing words.
type Chunker struct {
	budget  Budget
	counter TokenCounter
}

// NewChunker creates a chunker. A nil counter defaults to WordCounter.
func NewChunker(budget Budget, counter TokenCounter) *Chunker {
	if counter == nil {
		counter = WordCounter{}
	}
	return &Chunker{budget: budget, counter: counter}
}

// Budget returns the limits the chunker enforces.
func (c *Chunker) Budget() Budget {
	return c.budget
}

// Chunk splits text in reading order. Empty or blank text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	lines := c.splitLines(JoinHyphenatedLines(text))
	if len(lines) == 0 {
		return nil
	}
	return c.splitParagraphs(lines)
}

var hyphenBreak = regexp.MustCompile(`-[ \t]*\r?\n[ \t]*`)

// JoinHyphenatedLines rejoins words that were hyphenated across a line break.
// Only breaks with a letter on both sides are joined.
func JoinHyphenatedLines(text string) string {
	var (
		b    strings.Builder
		last int
	)
	for _, m := range hyphenBreak.FindAllStringIndex(text, -1) {
		before, _ := utf8.DecodeLastRuneInString(text[:m[0]])
		after, _ := utf8.DecodeRuneInString(text[m[1]:])
		if !unicode.IsLetter(before) || !unicode.IsLetter(after) {
			continue
		}
		b.WriteString(text[last:m[0]])
		last = m[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func (c *Chunker) count(words []string) int {
	return c.counter.CountTokens(strings.Join(words, " "))
}

// splitLines reflows every source line into lines within MaxTokensPerLine.
func (c *Chunker) splitLines(text string) []string {
	var lines []string
	for _, source := range strings.Split(text, "\n") {
		words := strings.Fields(source)
		if len(words) == 0 {
			continue
		}

		start := 0
		for i := 1; i < len(words); i++ {
			if c.count(words[start:i+1]) > c.budget.MaxTokensPerLine {
				lines = append(lines, strings.Join(words[start:i], " "))
				start = i
			}
		}
		lines = append(lines, strings.Join(words[start:], " "))
	}
	return lines
}

// paragraph is the chunk under construction: carried-over overlap words
// followed by whole lines.
type paragraph struct {
	lead  []string
	lines []string
}

func (p *paragraph) text() string {
	body := strings.Join(p.lines, "\n")
	if len(p.lead) == 0 {
		return body
	}
	return strings.Join(p.lead, " ") + " " + body
}

func (p *paragraph) with(line string) string {
	next := paragraph{lead: p.lead, lines: append(p.lines[:len(p.lines):len(p.lines)], line)}
	return next.text()
}

func (c *Chunker) splitParagraphs(lines []string) []string {
	var (
		chunks []string
		p      paragraph
	)

	for _, line := range lines {
		if c.counter.CountTokens(line) > c.budget.MaxTokensPerParagraph {
			if len(p.lines) > 0 {
				chunks = append(chunks, p.text())
			}
			chunks = append(chunks, line)
			p = paragraph{lead: c.overlap(line)}
			continue
		}

		if len(p.lines) > 0 && c.counter.CountTokens(p.with(line)) > c.budget.MaxTokensPerParagraph {
			closed := p.text()
			chunks = append(chunks, closed)
			p = paragraph{lead: c.overlap(closed)}
		}

		if len(p.lines) == 0 {
			// The carried overlap gives way when it cannot fit next to the line.
			for len(p.lead) > 0 && c.counter.CountTokens(p.with(line)) > c.budget.MaxTokensPerParagraph {
				p.lead = p.lead[1:]
			}
		}
		p.lines = append(p.lines, line)
	}

	if len(p.lines) > 0 {
		chunks = append(chunks, p.text())
	}
	return chunks
}

// overlap returns the longest run of trailing words of text that fits in
// OverlapTokens.
func (c *Chunker) overlap(text string) []string {
	if c.budget.OverlapTokens <= 0 {
		return nil
	}
	words := strings.Fields(text)
	n := 0
	for n < len(words) && c.count(words[len(words)-n-1:]) <= c.budget.OverlapTokens {
		n++
	}
	if n == 0 {
		return nil
	}
	lead := make([]string, n)
	copy(lead, words[len(words)-n:])
	return lead
}
