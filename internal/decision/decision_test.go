package decision

import (
	"errors"
	"math"
	"testing"

	"scraping-analyzer/internal/evidence"
)

type stubPrefs struct {
	values  map[string]float64
	err     error
	lookups []string
}

func (s *stubPrefs) Get(agentType, context string) (float64, error) {
	s.lookups = append(s.lookups, agentType+"/"+context)
	if s.err != nil {
		return 0, s.err
	}
	if v, ok := s.values[context]; ok {
		return v, nil
	}
	return 1.0, nil
}

func restrictedRobots(confidence float64) evidence.RuleEvidence {
	return evidence.RuleEvidence{
		Name:       "Robots.txt Analysis",
		Category:   evidence.CategoryRobotsDirective,
		Status:     evidence.StatusRestricted,
		Confidence: confidence,
		Details:    evidence.Details{Restrictions: []string{"scraping is (strictly )?prohibited"}},
		SourceURL:  "https://example.com/robots.txt",
	}
}

func allowed(category evidence.Category, confidence float64) evidence.RuleEvidence {
	return evidence.RuleEvidence{
		Category:   category,
		Status:     evidence.StatusAllowed,
		Confidence: confidence,
		Details:    evidence.NoteDetails("No explicit restrictions found"),
	}
}

func TestDecideEmptyEvidence(t *testing.T) {
	prefs := &stubPrefs{}
	dec, err := NewCombiner(prefs).Decide(nil, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if dec.RestrictionScore != 0 {
		t.Fatalf("expected score 0 got %.2f", dec.RestrictionScore)
	}
	if dec.UsageLicenseType != "OPEN" {
		t.Fatalf("expected OPEN got %s", dec.UsageLicenseType)
	}
	if prefs.lookups[0] != AgentDecision+"/decision_false" {
		t.Fatalf("expected decision_false lookup got %v", prefs.lookups)
	}
}

func TestDecideSingleRestrictedRobots(t *testing.T) {
	dec, err := NewCombiner(&stubPrefs{}).Decide(
		[]evidence.RuleEvidence{restrictedRobots(0.90)},
		"https://example.com",
	)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	// One restricted item with positive weight and severity 1.0 drives the
	// ratio to 1.
	if !closeTo(dec.RestrictionScore, 100) {
		t.Fatalf("expected score 100 got %.4f", dec.RestrictionScore)
	}
	if dec.UsageLicenseType != "RESTRICTED" {
		t.Fatalf("expected RESTRICTED got %s", dec.UsageLicenseType)
	}
	if dec.RightsToScrape || dec.RightsToDerivate || dec.RightsToRedistribute || dec.RightsToTag || dec.RightsToTransform {
		t.Fatal("expected all rights denied")
	}
	if len(dec.RestrictionsFound) != 1 {
		t.Fatalf("expected one restriction entry got %d", len(dec.RestrictionsFound))
	}
	if !closeTo(dec.RestrictionsFound[0].Severity, SeverityExplicitProhibition) {
		t.Fatalf("expected severity 1.0 got %.2f", dec.RestrictionsFound[0].Severity)
	}
	if !closeTo(dec.DecisionConfidence, 90) {
		t.Fatalf("expected decision confidence 90 got %.2f", dec.DecisionConfidence)
	}
}

func TestDecideAllAllowed(t *testing.T) {
	prefs := &stubPrefs{}
	rules := []evidence.RuleEvidence{
		allowed(evidence.CategoryRobotsDirective, 0.85),
		allowed(evidence.CategoryTermsOfService, 0.85),
		allowed(evidence.CategoryTechnical, 0.85),
	}
	dec, err := NewCombiner(prefs).Decide(rules, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if dec.RestrictionScore != 0 {
		t.Fatalf("expected score 0 got %.4f", dec.RestrictionScore)
	}
	if dec.UsageLicenseType != "OPEN" {
		t.Fatalf("expected OPEN got %s", dec.UsageLicenseType)
	}
	if !dec.RightsToScrape || !dec.RightsToDerivate || !dec.RightsToRedistribute || !dec.RightsToTag || !dec.RightsToTransform {
		t.Fatal("expected all rights granted")
	}
	if len(dec.RestrictionsFound) != 0 {
		t.Fatalf("expected no restrictions got %d", len(dec.RestrictionsFound))
	}
}

func TestDecideMixedEvidenceScore(t *testing.T) {
	// Restricted ToS at 80% sits in the medium confidence tier (x1.0):
	// weight 0.35*0.80*1.0 = 0.28, severity 1.0.
	// Allowed technical at 85%: weight 0.30*0.85*1.0 = 0.255.
	// Score = 0.28 / 0.535 = 52.336...%.
	restricted := evidence.RuleEvidence{
		Category:   evidence.CategoryTermsOfService,
		Status:     evidence.StatusRestricted,
		Confidence: 0.80,
		Details:    evidence.Details{Restrictions: []string{"scraping is prohibited"}},
	}
	rules := []evidence.RuleEvidence{restricted, allowed(evidence.CategoryTechnical, 0.85)}

	dec, err := NewCombiner(&stubPrefs{}).Decide(rules, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	want := 0.28 / 0.535 * 100
	if !closeTo(dec.RestrictionScore, want) {
		t.Fatalf("expected score %.4f got %.4f", want, dec.RestrictionScore)
	}
	if dec.UsageLicenseType != "RESTRICTED" {
		t.Fatalf("expected RESTRICTED got %s", dec.UsageLicenseType)
	}
	if dec.RestrictionScore < 0 || dec.RestrictionScore > 100 {
		t.Fatalf("score out of range: %.4f", dec.RestrictionScore)
	}
}

func TestDecideUnknownCategoryFallsBack(t *testing.T) {
	rule := evidence.RuleEvidence{
		Category:   evidence.Category("mystery"),
		Status:     evidence.StatusRestricted,
		Confidence: 0.95,
		Details:    evidence.Details{Restrictions: []string{"access is forbidden"}},
	}
	dec, err := NewCombiner(&stubPrefs{}).Decide([]evidence.RuleEvidence{rule}, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	// Default weight still yields a pure restricted ratio.
	if !closeTo(dec.RestrictionScore, 100) {
		t.Fatalf("expected score 100 got %.4f", dec.RestrictionScore)
	}
}

func TestDecideConfidenceUnclipped(t *testing.T) {
	prefs := &stubPrefs{values: map[string]float64{"decision_true": 1.5}}
	dec, err := NewCombiner(prefs).Decide(
		[]evidence.RuleEvidence{restrictedRobots(0.90)},
		"https://example.com",
	)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	// 90 * 1.5 exceeds 100; the combiner deliberately does not clamp.
	if !closeTo(dec.DecisionConfidence, 135) {
		t.Fatalf("expected 135 got %.2f", dec.DecisionConfidence)
	}
}

func TestDecideDeterministic(t *testing.T) {
	rules := []evidence.RuleEvidence{
		restrictedRobots(0.90),
		allowed(evidence.CategoryTechnical, 0.85),
	}
	combiner := NewCombiner(&stubPrefs{})

	first, err := combiner.Decide(rules, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	second, err := combiner.Decide(rules, "https://example.com")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	// Everything except the freshly minted element id must be identical.
	second.ElementID = first.ElementID
	if first.RestrictionScore != second.RestrictionScore ||
		first.DecisionConfidence != second.DecisionConfidence ||
		first.UsageLicenseType != second.UsageLicenseType ||
		len(first.RestrictionsFound) != len(second.RestrictionsFound) {
		t.Fatalf("expected identical decisions, got %+v vs %+v", first, second)
	}
}

func TestDecidePreferenceFailure(t *testing.T) {
	prefs := &stubPrefs{err: errors.New("db down")}
	if _, err := NewCombiner(prefs).Decide(nil, "https://example.com"); err == nil {
		t.Fatal("expected preference failure to propagate")
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		name     string
		details  string
		expected float64
	}{
		{"explicit", "scraping is prohibited", SeverityExplicitProhibition},
		{"forbidden", "access Forbidden here", SeverityExplicitProhibition},
		{"rate limit", "rate limit of 10 requests per minute", SeverityRateLimiting},
		{"authentication", "login required for this area", SeverityAuthentication},
		{"max wins", "login required and scraping prohibited", SeverityExplicitProhibition},
		{"floor", "nothing of note", SeverityNoSpecification},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SeverityFor(tc.details); !closeTo(got, tc.expected) {
				t.Fatalf("expected %.2f got %.2f", tc.expected, got)
			}
		})
	}
}

func TestWeightedScoreTiers(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		category   evidence.Category
		expected   float64
	}{
		{"high tier", 0.95, evidence.CategoryRobotsDirective, 0.35 * 0.95 * 1.2},
		{"boundary high", 0.90, evidence.CategoryRobotsDirective, 0.35 * 0.90 * 1.2},
		{"medium tier", 0.80, evidence.CategoryTermsOfService, 0.35 * 0.80 * 1.0},
		{"low tier", 0.60, evidence.CategoryTechnical, 0.30 * 0.60 * 0.8},
		{"unknown category", 0.80, evidence.Category("odd"), 0.2 * 0.80 * 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := evidence.RuleEvidence{Category: tc.category, Confidence: tc.confidence}
			if got := weightedScore(rule); !closeTo(got, tc.expected) {
				t.Fatalf("expected %.4f got %.4f", tc.expected, got)
			}
		})
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
