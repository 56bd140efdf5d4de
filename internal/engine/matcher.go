package engine

import (
	"regexp"
	"strings"
	"sync"

	"github.com/linarr/linarr/internal/models"
	"golang.org/x/text/width"
)

// matcher evaluates keywords against message text. Compiled regex
// patterns are cached; the cache is safe for concurrent readers since
// matching runs for many inbound messages at once.
type matcher struct {
	maxPatternLen int

	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func newMatcher(maxPatternLen int) *matcher {
	if maxPatternLen <= 0 {
		maxPatternLen = models.MaxPatternLength
	}
	return &matcher{
		maxPatternLen: maxPatternLen,
		cache:         make(map[string]*regexp.Regexp),
	}
}

// normalizeText folds full-width and half-width variants to a canonical
// form so that keywords match regardless of input method width.
func normalizeText(s string) string {
	return width.Fold.String(s)
}

// matchKeyword reports whether a single keyword matches the message text.
// Regex compile failures yield a non-match rather than an error: invalid
// patterns are rejected at rule-save time, and anything that slips
// through must fail closed here.
func (m *matcher) matchKeyword(text string, kw models.Keyword) bool {
	switch kw.MatchType {
	case models.MatchTypeExact:
		return strings.TrimSpace(normalizeText(text)) == strings.TrimSpace(normalizeText(kw.Text))
	case models.MatchTypePartial:
		return strings.Contains(normalizeText(text), normalizeText(kw.Text))
	case models.MatchTypeRegex:
		re := m.compile(kw.Text)
		if re == nil {
			return false
		}
		return re.MatchString(text)
	default:
		return false
	}
}

// ruleMatches reports whether any of the rule's keywords match (OR) and
// returns the first matching keyword's text.
func (m *matcher) ruleMatches(text string, rule *models.AutoResponseRule) (string, bool) {
	for _, kw := range rule.Keywords {
		if m.matchKeyword(text, kw) {
			return kw.Text, true
		}
	}
	return "", false
}

// compile returns the cached compiled pattern, or nil if the pattern is
// oversized or does not compile. Failed patterns are cached as nil so
// they are not recompiled per message.
func (m *matcher) compile(pattern string) *regexp.Regexp {
	if len(pattern) > m.maxPatternLen {
		return nil
	}

	m.mu.RLock()
	re, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}

	m.mu.Lock()
	m.cache[pattern] = re
	m.mu.Unlock()
	return re
}
