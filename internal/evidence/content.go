package evidence

import (
	"fmt"
	"strings"
)

// PreferenceSource yields the adaptive multiplier for an (agent, context)
// pair. Lookup failures abort the current analysis.
type PreferenceSource interface {
	Get(agentType, context string) (float64, error)
}

// AgentContent is the preference key under which the content extractor learns.
const AgentContent = "content_analysis"

const (
	baselineConfidence   = 0.85
	restrictedConfidence = 0.90
)

// ContentExtractor scans fetched textual documents for restriction language.
type ContentExtractor struct {
	rules *ContentRules
	prefs PreferenceSource
}

// NewContentExtractor wires the extractor with its rule set and preferences.
func NewContentExtractor(rules *ContentRules, prefs PreferenceSource) *ContentExtractor {
	return &ContentExtractor{rules: rules, prefs: prefs}
}

// Analyze inspects a document for restriction phrases of the given pattern
// category. Missing or unreadable documents yield an allowed verdict; absence
// of evidence never counts as restriction.
func (e *ContentExtractor) Analyze(doc Document, category string) (RuleEvidence, error) {
	if !doc.Success {
		modifier, err := e.prefs.Get(AgentContent, category+"_not_found")
		if err != nil {
			return RuleEvidence{}, fmt.Errorf("preference lookup: %w", err)
		}
		return RuleEvidence{
			Status:     StatusAllowed,
			Confidence: baselineConfidence * modifier,
			Details:    NoteDetails(fmt.Sprintf("No %s content found or accessible", category)),
			SourceURL:  doc.URL,
		}, nil
	}

	text := strings.ToLower(doc.Content)
	found := e.rules.Match(category, text)
	if len(found) == 0 {
		return RuleEvidence{
			Status:     StatusAllowed,
			Confidence: baselineConfidence,
			Details:    NoteDetails("No explicit restrictions found"),
			SourceURL:  doc.URL,
		}, nil
	}

	modifier, err := e.prefs.Get(AgentContent, fmt.Sprintf("%s_%d", category, len(found)))
	if err != nil {
		return RuleEvidence{}, fmt.Errorf("preference lookup: %w", err)
	}
	return RuleEvidence{
		Status:     StatusRestricted,
		Confidence: restrictedConfidence * modifier,
		Details:    Details{Restrictions: found},
		SourceURL:  doc.URL,
	}, nil
}

// AnalyzeRobots analyzes a robots.txt document.
func (e *ContentExtractor) AnalyzeRobots(doc Document) (RuleEvidence, error) {
	result, err := e.Analyze(doc, PatternScraping)
	if err != nil {
		return RuleEvidence{}, err
	}
	result.Name = "Robots.txt Analysis"
	result.Category = CategoryRobotsDirective
	return result, nil
}

// AnalyzeTermsOfService runs both the scraping and copyright scans over a
// terms-of-service document and combines them, taking the more restrictive
// outcome.
func (e *ContentExtractor) AnalyzeTermsOfService(doc Document) (RuleEvidence, error) {
	if !doc.Success {
		return RuleEvidence{
			Name:       "Terms of Service Analysis",
			Category:   CategoryTermsOfService,
			Status:     StatusAllowed,
			Confidence: baselineConfidence,
			Details:    NoteDetails("No Terms of Service found"),
			SourceURL:  doc.URL,
		}, nil
	}

	scraping, err := e.Analyze(doc, PatternScraping)
	if err != nil {
		return RuleEvidence{}, err
	}
	copyright, err := e.Analyze(doc, PatternCopyright)
	if err != nil {
		return RuleEvidence{}, err
	}

	combined := RuleEvidence{
		Name:      "Terms of Service Analysis",
		Category:  CategoryTermsOfService,
		SourceURL: doc.URL,
	}
	if scraping.Restricted() || copyright.Restricted() {
		combined.Status = StatusRestricted
		combined.Confidence = maxFloat(scraping.Confidence, copyright.Confidence)
		combined.Details = Details{
			ScrapingRestrictions:  detailsRef(scraping.Details),
			CopyrightRestrictions: detailsRef(copyright.Details),
		}
		return combined, nil
	}

	combined.Status = StatusAllowed
	combined.Confidence = minFloat(scraping.Confidence, copyright.Confidence)
	combined.Details = NoteDetails("No restrictions found in Terms of Service")
	return combined, nil
}

func detailsRef(d Details) *Details {
	copied := d
	return &copied
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
