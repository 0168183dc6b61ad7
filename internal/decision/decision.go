// Package decision combines rule evidence into a single weighted restriction
// verdict and renders it for humans.
package decision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"scraping-analyzer/internal/evidence"
)

// AgentDecision is the preference key under which the combiner learns.
const AgentDecision = "decision_making"

// Severity scalars for matched restriction classes.
const (
	SeverityExplicitProhibition = 1.0
	SeverityAuthentication      = 0.8
	SeverityRateLimiting        = 0.7
	SeverityImplicitProhibition = 0.6
	SeverityNoSpecification     = 0.2
)

const (
	highConfidence   = 90.0
	mediumConfidence = 75.0

	defaultWeight = 0.2
)

// baseWeights assigns evidence mass per category. Unrecognized categories fall
// back to defaultWeight.
var baseWeights = map[evidence.Category]float64{
	evidence.CategoryRobotsDirective: 0.35,
	evidence.CategoryTermsOfService:  0.35,
	evidence.CategoryTechnical:       0.30,
}

// Restriction is one restricted evidence item contributing to the verdict.
type Restriction struct {
	Source     string           `json:"source"`
	Severity   float64          `json:"severity"`
	Confidence float64          `json:"confidence"`
	Details    evidence.Details `json:"details"`
}

// Decision is the final rights verdict for a resource. Confidence and score
// are expressed on the 0-100 scale; DecisionConfidence is deliberately
// unclipped and can leave [0,100] under adverse feedback.
type Decision struct {
	RightsToDerivate     bool          `json:"rightsToDerivate"`
	RightsToRedistribute bool          `json:"rightsToRedistribute"`
	RightsToScrape       bool          `json:"rightsToScrape"`
	RightsToTag          bool          `json:"rightsToTag"`
	RightsToTransform    bool          `json:"rightsToTransform"`
	SchemaVersion        string        `json:"schemaVersion"`
	UsageLicenseType     string        `json:"usageLicenseType"`
	DecisionConfidence   float64       `json:"decisionConfidence"`
	RestrictionScore     float64       `json:"restrictionScore"`
	RestrictionsFound    []Restriction `json:"restrictionsFound"`
	AnalysisSummary      string        `json:"analysisSummary"`
	ElementID            string        `json:"elementId"`
	ID                   string        `json:"@id"`
	Type                 string        `json:"@type"`
	LicenseRightsRef     string        `json:"licenseRightsReference"`
}

// Restricted reports whether the verdict denies usage rights.
func (d Decision) Restricted() bool {
	return d.UsageLicenseType == "RESTRICTED"
}

// Combiner aggregates rule evidence into a Decision.
type Combiner struct {
	prefs evidence.PreferenceSource
}

// NewCombiner builds a combiner over the preference source.
func NewCombiner(prefs evidence.PreferenceSource) *Combiner {
	return &Combiner{prefs: prefs}
}

// Decide weighs every evidence item and emits the final Decision. The
// restriction score is the ratio of weighted restricted mass to total weighted
// mass; an empty or all-zero-weight list scores 0 and stays OPEN.
func (c *Combiner) Decide(rules []evidence.RuleEvidence, resourceURL string) (Decision, error) {
	var (
		totalWeightedRestricted float64
		totalWeight             float64
		restrictions            []Restriction
		highestConfidence       float64
	)

	for _, rule := range rules {
		weighted := weightedScore(rule)
		severity := SeverityFor(rule.Details.String())

		confidencePct := rule.Confidence * 100
		if confidencePct > highestConfidence {
			highestConfidence = confidencePct
		}

		if rule.Restricted() {
			restrictions = append(restrictions, Restriction{
				Source:     rule.Details.String(),
				Severity:   severity,
				Confidence: confidencePct,
				Details:    rule.Details,
			})
			totalWeightedRestricted += weighted * severity
		}
		totalWeight += weighted
	}

	restrictionScore := 0.0
	if totalWeight > 0 {
		restrictionScore = totalWeightedRestricted / totalWeight
	}
	isRestricted := restrictionScore > 0.5

	modifier, err := c.prefs.Get(AgentDecision, "decision_"+strconv.FormatBool(isRestricted))
	if err != nil {
		return Decision{}, fmt.Errorf("preference lookup: %w", err)
	}

	licenseType := "OPEN"
	if isRestricted {
		licenseType = "RESTRICTED"
	}

	return Decision{
		RightsToDerivate:     !isRestricted,
		RightsToRedistribute: !isRestricted,
		RightsToScrape:       !isRestricted,
		RightsToTag:          !isRestricted,
		RightsToTransform:    !isRestricted,
		SchemaVersion:        "1",
		UsageLicenseType:     licenseType,
		DecisionConfidence:   highestConfidence * modifier,
		RestrictionScore:     restrictionScore * 100,
		RestrictionsFound:    restrictions,
		AnalysisSummary:      "Detailed analysis of scraping permissions based on multiple factors",
		ElementID:            uuid.NewString(),
		ID:                   resourceURL,
		Type:                 "LicenseType",
		LicenseRightsRef:     resourceURL,
	}, nil
}

// weightedScore converts one evidence item into weighted mass: base category
// weight times the confidence factor, adjusted by a confidence tier
// multiplier.
func weightedScore(rule evidence.RuleEvidence) float64 {
	base, ok := baseWeights[rule.Category]
	if !ok {
		base = defaultWeight
	}

	confidencePct := rule.Confidence * 100
	factor := confidencePct / 100

	multiplier := 0.8
	switch {
	case confidencePct >= highConfidence:
		multiplier = 1.2
	case confidencePct >= mediumConfidence:
		multiplier = 1.0
	}

	return base * factor * multiplier
}

var severityClasses = []struct {
	severity float64
	phrases  []string
}{
	{SeverityExplicitProhibition, []string{"prohibited", "forbidden", "not allowed", "not permitted"}},
	{SeverityRateLimiting, []string{"rate limit", "throttling", "requests per"}},
	{SeverityAuthentication, []string{"login required", "authentication required", "authorized access"}},
}

// SeverityFor scans the flattened details text and returns the maximum
// matching severity, or the no-specification floor when nothing matches.
func SeverityFor(details string) float64 {
	lowered := strings.ToLower(details)
	severity := 0.0
	for _, class := range severityClasses {
		for _, phrase := range class.phrases {
			if strings.Contains(lowered, phrase) {
				if class.severity > severity {
					severity = class.severity
				}
				break
			}
		}
	}
	if severity == 0 {
		return SeverityNoSpecification
	}
	return severity
}
