package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"scraping-analyzer/internal/decision"
	"scraping-analyzer/internal/evidence"
)

// AnalyzeRequest is the analysis request boundary: a single resource URL.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse is the full nested analysis payload.
type AnalyzeResponse struct {
	Issuer IssuerDTO `json:"Issuer"`
}

// IssuerDTO wraps the analyzed resource and its license decision.
type IssuerDTO struct {
	DirectoryURLs []DirectoryURLDTO `json:"directoryUrls"`
	PrimaryDomain string            `json:"primaryDomain"`
	LicenseType   LicenseTypeDTO    `json:"LicenseType"`
}

// DirectoryURLDTO carries one analyzed directory URL.
type DirectoryURLDTO struct {
	DirectoryURL string `json:"directoryUrl"`
}

// LicenseTypeDTO is the decision payload rendered at the boundary.
type LicenseTypeDTO struct {
	RightsToDerivate     bool            `json:"rightsToDerivate"`
	RightsToRedistribute bool            `json:"rightsToRedistribute"`
	RightsToScrape       bool            `json:"rightsToScrape"`
	RightsToTag          bool            `json:"rightsToTag"`
	RightsToTransform    bool            `json:"rightsToTransform"`
	SchemaVersion        string          `json:"schemaVersion"`
	UsageLicenseType     string          `json:"usageLicenseType"`
	Details              LicenseDetails  `json:"details"`
	ElementID            string          `json:"elementId"`
	ID                   string          `json:"@id"`
	Type                 string          `json:"@type"`
	LicenseRightsRef     string          `json:"licenseRightsReference"`
	UsageRulesExamined   []UsageRuleItem `json:"usageRulesExamined"`
}

// LicenseDetails nests the scoring outcome inside the license payload.
type LicenseDetails struct {
	DecisionConfidence float64                `json:"decision_confidence"`
	RestrictionScore   float64                `json:"restriction_score"`
	RestrictionsFound  []decision.Restriction `json:"restrictions_found"`
	AnalysisSummary    string                 `json:"analysis_summary"`
}

// UsageRuleItem wraps one examined rule entry.
type UsageRuleItem struct {
	UsageRuleExamined UsageRuleDTO `json:"usageRuleExamined"`
}

// UsageRuleDTO renders one piece of rule evidence.
type UsageRuleDTO struct {
	ID              string           `json:"@id"`
	Type            string           `json:"@type"`
	Checked         bool             `json:"checked"`
	ConfidenceScore float64          `json:"confidenceScore"`
	Details         evidence.Details `json:"details"`
	ElementID       string           `json:"elementId"`
	Name            string           `json:"name"`
	StatusText      string           `json:"statusText"`
	URL             string           `json:"url"`
}

// LicenseFromDecision renders a decision plus the examined evidence into the
// boundary payload.
func LicenseFromDecision(d decision.Decision, rules []evidence.RuleEvidence, resourceURL string) LicenseTypeDTO {
	items := make([]UsageRuleItem, 0, len(rules))
	for _, rule := range rules {
		sourceURL := rule.SourceURL
		if sourceURL == "" {
			sourceURL = resourceURL
		}
		items = append(items, UsageRuleItem{UsageRuleExamined: UsageRuleDTO{
			ID:              resourceURL,
			Type:            "UsageRuleExamined",
			Checked:         true,
			ConfidenceScore: rule.Confidence * 100,
			Details:         rule.Details,
			ElementID:       uuid.NewString(),
			Name:            rule.Name,
			StatusText:      string(rule.Status),
			URL:             sourceURL,
		}})
	}

	return LicenseTypeDTO{
		RightsToDerivate:     d.RightsToDerivate,
		RightsToRedistribute: d.RightsToRedistribute,
		RightsToScrape:       d.RightsToScrape,
		RightsToTag:          d.RightsToTag,
		RightsToTransform:    d.RightsToTransform,
		SchemaVersion:        d.SchemaVersion,
		UsageLicenseType:     d.UsageLicenseType,
		Details: LicenseDetails{
			DecisionConfidence: d.DecisionConfidence,
			RestrictionScore:   d.RestrictionScore,
			RestrictionsFound:  d.RestrictionsFound,
			AnalysisSummary:    d.AnalysisSummary,
		},
		ElementID:          d.ElementID,
		ID:                 d.ID,
		Type:               d.Type,
		LicenseRightsRef:   d.LicenseRightsRef,
		UsageRulesExamined: items,
	}
}

// ToDecision rebuilds the domain decision from a stored payload so the
// explanation can be replayed later.
func (l LicenseTypeDTO) ToDecision() decision.Decision {
	return decision.Decision{
		RightsToDerivate:     l.RightsToDerivate,
		RightsToRedistribute: l.RightsToRedistribute,
		RightsToScrape:       l.RightsToScrape,
		RightsToTag:          l.RightsToTag,
		RightsToTransform:    l.RightsToTransform,
		SchemaVersion:        l.SchemaVersion,
		UsageLicenseType:     l.UsageLicenseType,
		DecisionConfidence:   l.Details.DecisionConfidence,
		RestrictionScore:     l.Details.RestrictionScore,
		RestrictionsFound:    l.Details.RestrictionsFound,
		AnalysisSummary:      l.Details.AnalysisSummary,
		ElementID:            l.ElementID,
		ID:                   l.ID,
		Type:                 l.Type,
		LicenseRightsRef:     l.LicenseRightsRef,
	}
}

// RecentAnalysisDTO is one history row in the recent-analyses listing.
type RecentAnalysisDTO struct {
	URL          string          `json:"url"`
	Result       json.RawMessage `json:"result"`
	ProcessingMs int64           `json:"processing_time_ms"`
	Timestamp    time.Time       `json:"timestamp"`
}

// RecentAnalysesResponse lists history rows newest first.
type RecentAnalysesResponse struct {
	Status   string              `json:"status"`
	Analyses []RecentAnalysisDTO `json:"analyses"`
}

// ExplanationResponse replays a stored decision explanation.
type ExplanationResponse struct {
	Status      string `json:"status"`
	Explanation string `json:"explanation"`
}

// PreferenceFeedback is one expert adjustment to a learned multiplier.
type PreferenceFeedback struct {
	Agent   string  `json:"agent"`
	Context string  `json:"context"`
	Value   float64 `json:"value"`
}

// FeedbackRequest carries an expert feedback submission.
type FeedbackRequest struct {
	URL         string               `json:"url"`
	Notes       string               `json:"notes"`
	Preferences []PreferenceFeedback `json:"preferences"`
}

// FeedbackResponse reports the multipliers after applying feedback.
type FeedbackResponse struct {
	Status  string             `json:"status"`
	Updated map[string]float64 `json:"updated"`
}
