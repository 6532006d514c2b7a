package orchestrator

import (
	"strings"

	"taskforge/internal/subagent"
)

// QuickRoute matches the message against the catalog's trigger phrases
// and returns the winning agent key, or "" when nothing matches.
func (o *Orchestrator) QuickRoute(message string) string {
	return QuickRoute(o.catalog, message)
}

// QuickRoute scores each sub-agent by the trigger phrases found in the
// message (case-insensitive substring match). A phrase contributes its
// word count, so longer, more specific phrases outweigh generic ones.
// Ties go to the agent defined earlier in the catalog: only a strictly
// greater score displaces the current winner.
func QuickRoute(catalog *subagent.Catalog, message string) string {
	lower := strings.ToLower(message)

	best := ""
	bestScore := 0
	for _, def := range catalog.All() {
		score := 0
		for _, phrase := range def.Triggers {
			p := strings.ToLower(strings.TrimSpace(phrase))
			if p == "" {
				continue
			}
			if strings.Contains(lower, p) {
				score += len(strings.Fields(p))
			}
		}
		if score > bestScore {
			bestScore = score
			best = def.Key
		}
	}
	return best
}
