package evidence

import "strings"

// Category identifies which signal source produced a piece of evidence. The
// decision combiner weights evidence by this tag.
type Category string

const (
	CategoryRobotsDirective Category = "robots_directive"
	CategoryTermsOfService  Category = "terms_of_service"
	CategoryTechnical       Category = "technical"
)

// Status is an extractor's verdict for a single signal source.
type Status string

const (
	StatusAllowed    Status = "allowed"
	StatusRestricted Status = "restricted"
)

// Document is the shape returned by the document retrieval collaborator.
type Document struct {
	Success bool
	Content string
	URL     string
	Headers map[string]string
	Error   string
}

// Details describes what an extractor found. Exactly one representation is
// populated: Note for allowed or fail-open evidence, Restrictions for matched
// restriction descriptions, or the Scraping/Copyright pair for combined
// terms-of-service evidence.
type Details struct {
	Note                  string   `json:"note,omitempty"`
	Restrictions          []string `json:"restrictions,omitempty"`
	ScrapingRestrictions  *Details `json:"scrapingRestrictions,omitempty"`
	CopyrightRestrictions *Details `json:"copyrightRestrictions,omitempty"`
}

// NoteDetails builds a free-form note detail.
func NoteDetails(note string) Details {
	return Details{Note: note}
}

// String flattens the details to a single line. Severity keyword scans and
// restriction source labels operate on this form.
func (d Details) String() string {
	var parts []string
	if d.Note != "" {
		parts = append(parts, d.Note)
	}
	if len(d.Restrictions) > 0 {
		parts = append(parts, strings.Join(d.Restrictions, "; "))
	}
	if d.ScrapingRestrictions != nil {
		parts = append(parts, "scraping: "+d.ScrapingRestrictions.String())
	}
	if d.CopyrightRestrictions != nil {
		parts = append(parts, "copyright: "+d.CopyrightRestrictions.String())
	}
	return strings.Join(parts, " | ")
}

// TechnicalSignals exposes derived booleans for machine-enforced restrictions.
type TechnicalSignals struct {
	HasCaptcha      bool `json:"has_captcha"`
	HasMetaRobots   bool `json:"has_meta_robots"`
	HasRateLimiting bool `json:"has_rate_limiting"`
}

// RuleEvidence is one extractor's finding about a single signal source.
// Instances are created fresh per request and never mutated afterwards.
type RuleEvidence struct {
	Name       string
	Category   Category
	Status     Status
	Confidence float64 // intended range [0,1], not enforced
	Details    Details
	SourceURL  string
	Technical  *TechnicalSignals
}

// Restricted reports whether the evidence carries a restricted verdict.
func (e RuleEvidence) Restricted() bool {
	return e.Status == StatusRestricted
}
