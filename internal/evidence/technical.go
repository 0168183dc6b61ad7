package evidence

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// AgentTechnical is the preference key under which the technical extractor
// learns.
const AgentTechnical = "technical_validation"

const (
	metaRobotsConfidence = 0.95
	challengeConfidence  = 0.98
	rateLimitConfidence  = 0.90
)

// TechnicalExtractor scans fetched page markup and response headers for
// machine-enforced restriction signals.
type TechnicalExtractor struct {
	rules *TechnicalRules
	prefs PreferenceSource
}

// NewTechnicalExtractor wires the extractor with its rule set and preferences.
func NewTechnicalExtractor(rules *TechnicalRules, prefs PreferenceSource) *TechnicalExtractor {
	return &TechnicalExtractor{rules: rules, prefs: prefs}
}

// Analyze inspects the main page for technical restriction signals. Signals
// are scanned in a fixed order and each match overwrites the running
// confidence, so a later match wins over an earlier one. Scan failures degrade
// to an allowed verdict.
func (e *TechnicalExtractor) Analyze(page Document) (RuleEvidence, error) {
	if !page.Success {
		return RuleEvidence{
			Name:       "Technical Analysis",
			Category:   CategoryTechnical,
			Status:     StatusAllowed,
			Confidence: baselineConfidence,
			Details:    NoteDetails("Could not check technical restrictions"),
			SourceURL:  page.URL,
			Technical:  &TechnicalSignals{},
		}, nil
	}

	restrictions, confidence, scanErr := e.scan(page)
	if scanErr != nil {
		return RuleEvidence{
			Name:       "Technical Analysis",
			Category:   CategoryTechnical,
			Status:     StatusAllowed,
			Confidence: baselineConfidence,
			Details:    NoteDetails(fmt.Sprintf("Error analyzing technical restrictions: %v", scanErr)),
			SourceURL:  page.URL,
			Technical:  &TechnicalSignals{},
		}, nil
	}

	modifier, err := e.prefs.Get(AgentTechnical, fmt.Sprintf("technical_%d", len(restrictions)))
	if err != nil {
		return RuleEvidence{}, fmt.Errorf("preference lookup: %w", err)
	}
	confidence *= modifier

	result := RuleEvidence{
		Name:       "Technical Analysis",
		Category:   CategoryTechnical,
		Status:     StatusAllowed,
		Confidence: confidence,
		Details:    NoteDetails("No technical restrictions found"),
		SourceURL:  page.URL,
		Technical:  signalsFrom(restrictions),
	}
	if len(restrictions) > 0 {
		result.Status = StatusRestricted
		result.Details = Details{Restrictions: restrictions}
	}
	return result, nil
}

// scan runs the ordered signal checks. A panic inside the markup traversal is
// converted into an ordinary error so the caller can degrade.
func (e *TechnicalExtractor) scan(page Document) (restrictions []string, confidence float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			restrictions, confidence = nil, 0
			err = fmt.Errorf("scan panic: %v", r)
		}
	}()

	confidence = baselineConfidence

	if content, ok := metaRobotsContent(page.Content); ok {
		if containsAny(content, e.rules.RobotsDirectives) {
			restrictions = append(restrictions, "Meta robots tag: "+content)
			confidence = metaRobotsConfidence
		}
	}

	if value, ok := headerLookup(page.Headers, "X-Robots-Tag"); ok {
		lowered := strings.ToLower(value)
		if containsAny(lowered, e.rules.RobotsDirectives) {
			restrictions = append(restrictions, "X-Robots-Tag header: "+lowered)
			confidence = metaRobotsConfidence
		}
	}

	pageText := strings.ToLower(page.Content)
	for _, keyword := range e.rules.ChallengeKeywords {
		if strings.Contains(pageText, keyword) {
			restrictions = append(restrictions, "CAPTCHA detected: "+keyword)
			confidence = challengeConfidence
			break
		}
	}

	for _, header := range e.rules.RateLimitHeaders {
		if _, ok := headerLookup(page.Headers, header); ok {
			restrictions = append(restrictions, "Rate limiting detected: "+header)
			confidence = rateLimitConfidence
		}
	}

	return restrictions, confidence, nil
}

func signalsFrom(restrictions []string) *TechnicalSignals {
	signals := &TechnicalSignals{}
	for _, r := range restrictions {
		if strings.Contains(r, "CAPTCHA") {
			signals.HasCaptcha = true
		}
		if strings.Contains(r, "robots tag") {
			signals.HasMetaRobots = true
		}
		if strings.Contains(r, "Rate limiting") {
			signals.HasRateLimiting = true
		}
	}
	return signals
}

// metaRobotsContent finds the first <meta name="robots"> tag and returns its
// lowercased content attribute.
func metaRobotsContent(markup string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	var found string
	var ok bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if ok {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = strings.ToLower(attr.Val)
				case "content":
					content = strings.ToLower(attr.Val)
				}
			}
			if name == "robots" {
				found, ok = content, true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found, ok
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// headerLookup resolves a header by case-insensitive name match.
func headerLookup(headers map[string]string, name string) (string, bool) {
	if headers == nil {
		return "", false
	}
	if v, ok := headers[name]; ok {
		return v, true
	}
	lowered := strings.ToLower(name)
	for k, v := range headers {
		if strings.ToLower(k) == lowered {
			return v, true
		}
	}
	return "", false
}
