// Package monitor watches live conversation traffic for keyword matches.
package monitor

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
)

type compiledRule struct {
	rule model.KeywordRule
	re   *regexp.Regexp
}

// Matcher evaluates message text against the loaded keyword rules.
type Matcher struct {
	mu         sync.RWMutex
	rules      []compiledRule
	configured bool
}

// NewMatcher compiles rules in order. Rules whose pattern does not compile
// are logged and skipped.
func NewMatcher(rules []model.KeywordRule) *Matcher {
	m := &Matcher{}
	m.Load(rules)
	return m
}

// Load replaces the rule list.
func (m *Matcher) Load(rules []model.KeywordRule) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		pattern := rule.Pattern
		if !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Error().Err(err).
				Int64("keyword_id", rule.ID).
				Str("pattern", rule.Pattern).
				Msg("Skipping keyword with invalid pattern")
			continue
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}

	m.mu.Lock()
	m.rules = compiled
	m.configured = len(rules) > 0
	m.mu.Unlock()
	log.Info().Int("keywords", len(compiled)).Msg("Keyword rules loaded")
}

// Match returns the rules whose pattern occurs anywhere in text, in rule
// order.
func (m *Matcher) Match(text string) []model.KeywordRule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []model.KeywordRule
	for _, c := range m.rules {
		if c.re.MatchString(text) {
			matched = append(matched, c.rule)
		}
	}
	return matched
}

// MatchAll reports whether no rules are configured, in which case every
// message is dispatched under the catch-all keyword. Rules that failed to
// compile still count as configured.
func (m *Matcher) MatchAll() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.configured
}

// Len returns the number of usable rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Refresh is called periodically by the scheduler. Rules are only loaded at
// startup, so it just logs.
func (m *Matcher) Refresh(ctx context.Context) error {
	log.Debug().Int("keywords", m.Len()).Msg("Keyword refresh requested, rules unchanged")
	return ctx.Err()
}
