// Package guardrails screens call text: caller utterances before they
// reach the language model and replies before they are spoken. Text that
// trips a rule is replaced with the configured refusal line.
//
// Three rule kinds apply, cheapest first: exact blocked terms, regex
// patterns, and fuzzy term matching (Jaro-Winkler) that catches the
// misspellings language models produce under pressure.
package guardrails

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultRefusal is spoken when a reply is blocked and no refusal line is
// configured.
const DefaultRefusal = "I'm sorry, I can't help with that."

// fuzzyThreshold is the Jaro-Winkler similarity above which a word counts
// as a blocked term. 1.0 is an exact match.
const fuzzyThreshold = 0.92

// Config declares the screening rules.
type Config struct {
	// BlockedTerms are case-insensitive words or phrases that block a
	// reply outright.
	BlockedTerms []string `yaml:"blocked_terms"`

	// BlockedPatterns are case-insensitive regular expressions.
	BlockedPatterns []string `yaml:"blocked_patterns"`

	// Refusal replaces a blocked reply. Empty means DefaultRefusal.
	Refusal string `yaml:"refusal"`
}

// Screen applies the configured rules to candidate replies.
type Screen struct {
	terms    []string
	patterns []*regexp.Regexp
	refusal  string
}

// New compiles the rules. Invalid patterns fail construction; a guardrail
// that silently does not match is worse than no guardrail.
func New(cfg Config) (*Screen, error) {
	s := &Screen{refusal: cfg.Refusal}
	if s.refusal == "" {
		s.refusal = DefaultRefusal
	}
	for _, t := range cfg.BlockedTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			s.terms = append(s.terms, t)
		}
	}
	for _, p := range cfg.BlockedPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("guardrails: pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

// Check reports whether text may be spoken and, if not, which rule blocked
// it.
func (s *Screen) Check(text string) (ok bool, rule string) {
	lower := strings.ToLower(text)

	for _, t := range s.terms {
		if strings.Contains(lower, t) {
			return false, "term:" + t
		}
	}
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return false, "pattern:" + re.String()
		}
	}

	// Fuzzy pass over single-word terms only; phrase similarity across
	// word boundaries produces too many false positives.
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	})
	for _, t := range s.terms {
		if strings.ContainsRune(t, ' ') {
			continue
		}
		for _, w := range words {
			if matchr.JaroWinkler(w, t, false) >= fuzzyThreshold {
				return false, "fuzzy:" + t
			}
		}
	}
	return true, ""
}

// Apply returns text unchanged when it passes, or the refusal line and the
// rule that fired when it does not.
func (s *Screen) Apply(text string) (spoken, rule string) {
	if ok, rule := s.Check(text); !ok {
		return s.refusal, rule
	}
	return text, ""
}
