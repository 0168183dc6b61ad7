package decision

import (
	"fmt"
	"strings"
)

// Explain renders a deterministic human-readable explanation of the decision.
// Output depends only on the decision fields and the insertion order of the
// restriction list.
func Explain(d Decision) string {
	verdict := ""
	if d.Restricted() {
		verdict = "NOT "
	}

	lines := []string{
		fmt.Sprintf("Final Decision: Scraping is %sallowed (Confidence: %.1f%%)", verdict, d.DecisionConfidence),
	}

	if len(d.RestrictionsFound) > 0 {
		lines = append(lines, "\nRestrictions found:")
		for _, r := range d.RestrictionsFound {
			lines = append(lines, fmt.Sprintf("- %s: Severity %.2f (Confidence: %.1f%%)", r.Source, r.Severity, r.Confidence))
		}
	} else {
		lines = append(lines, "\nNo explicit restrictions found.")
	}

	return strings.Join(lines, "\n")
}
