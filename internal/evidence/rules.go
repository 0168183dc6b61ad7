package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Content rule categories.
const (
	PatternScraping  = "scraping"
	PatternCopyright = "copyright"
)

// ContentRules holds the restriction phrase patterns per content category,
// compiled once at load time.
type ContentRules struct {
	version  int
	patterns map[string][]contentPattern
}

type contentPattern struct {
	source string
	re     *regexp.Regexp
}

type contentRulesFile struct {
	Version  int                 `json:"version"`
	Patterns map[string][]string `json:"patterns"`
}

// NewContentRules loads and compiles content restriction rules from the
// provided JSON file.
func NewContentRules(path string) (*ContentRules, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read content rules: %w", err)
	}
	var raw contentRulesFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal content rules: %w", err)
	}
	patterns := make(map[string][]contentPattern)
	for category, list := range raw.Patterns {
		var compiled []contentPattern
		for _, src := range list {
			src = strings.TrimSpace(src)
			if src == "" {
				continue
			}
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", src, err)
			}
			compiled = append(compiled, contentPattern{source: src, re: re})
		}
		if len(compiled) > 0 {
			patterns[category] = compiled
		}
	}
	rules := &ContentRules{version: raw.Version, patterns: patterns}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Version reports the rule set version.
func (r *ContentRules) Version() int {
	return r.version
}

// Match returns the distinct pattern sources that matched the lowercased text
// at least once, in rule-set order.
func (r *ContentRules) Match(category, text string) []string {
	var found []string
	for _, p := range r.patterns[category] {
		if p.re.MatchString(text) {
			found = append(found, p.source)
		}
	}
	return found
}

// Validate ensures the rule set carries both pattern categories.
func (r *ContentRules) Validate() error {
	if r == nil {
		return errors.New("content rules are nil")
	}
	for _, category := range []string{PatternScraping, PatternCopyright} {
		if len(r.patterns[category]) == 0 {
			return fmt.Errorf("content rules missing %q patterns", category)
		}
	}
	return nil
}

// TechnicalRules holds the machine-restriction signal tables.
type TechnicalRules struct {
	Version           int      `json:"version"`
	RobotsDirectives  []string `json:"robots_directives"`
	ChallengeKeywords []string `json:"challenge_keywords"`
	RateLimitHeaders  []string `json:"rate_limit_headers"`
}

// NewTechnicalRules loads technical restriction rules from the provided JSON
// file.
func NewTechnicalRules(path string) (*TechnicalRules, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read technical rules: %w", err)
	}
	var rules TechnicalRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("unmarshal technical rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate ensures every signal table is populated.
func (r *TechnicalRules) Validate() error {
	if r == nil {
		return errors.New("technical rules are nil")
	}
	if len(r.RobotsDirectives) == 0 {
		return errors.New("technical rules missing robots directives")
	}
	if len(r.ChallengeKeywords) == 0 {
		return errors.New("technical rules missing challenge keywords")
	}
	if len(r.RateLimitHeaders) == 0 {
		return errors.New("technical rules missing rate limit headers")
	}
	return nil
}
