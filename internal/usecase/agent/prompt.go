package agent

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain/match"
)

const patternUnavailable = "Unavailable: pattern synthesis failed. Rely on the historical resolutions only."

// promptLimits caps how much retrieved material goes into a prompt.
type promptLimits struct {
	maxMatches int
	maxRunes   int
}

// matchContext renders the non-stale matches as numbered prompt context.
func (l promptLimits) matchContext(ms []match.Match) string {
	var b strings.Builder
	n := 0
	for _, m := range ms {
		if m.Stale {
			continue
		}
		if l.maxMatches > 0 && n == l.maxMatches {
			break
		}
		n++
		if n > 1 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Match %d] Incident %s (similarity=%.4f)\n", n, m.IncidentID, m.Score)
		fmt.Fprintf(&b, "State: %s\n", match.Excerpt(m.Symptoms, l.maxRunes))
		fmt.Fprintf(&b, "Resolution: %s", match.Excerpt(m.Resolution, l.maxRunes))
	}
	return b.String()
}

func (l promptLimits) analysisPrompt(symptoms string, ms []match.Match) string {
	return `You are an expert SRE analyst. Given the current symptoms and historical matches, identify the root cause pattern.

Current symptoms:
` + symptoms + `

Historical similar incidents:
` + l.matchContext(ms) + `

In 2-3 sentences, identify the root cause pattern you see across these incidents and how it relates to the current situation. Be specific and technical.`
}

func (l promptLimits) actionPrompt(symptoms, pattern string, ms []match.Match) string {
	if pattern == "" {
		pattern = patternUnavailable
	}
	return `You are a senior SRE writing an emergency runbook. Use ONLY the historical resolutions provided to suggest remediation steps for the current incident.

Current symptoms:
` + symptoms + `

Root cause pattern:
` + pattern + `

Historical resolutions:
` + l.matchContext(ms) + `

Generate a numbered 5-7 step remediation runbook. Each step should be:
- Specific and actionable (include actual commands or config changes where relevant)
- Ordered by priority (most critical first)
- Based strictly on the historical resolutions above

Format each step as:
Step N: [Action Title]
[Detailed description with specific commands/values]`
}

// fallbackRunbook labels the best match's stored resolution as a verbatim fallback.
func fallbackRunbook(best match.Match) string {
	return fmt.Sprintf("FALLBACK — most similar historical resolution (incident %s):\n%s",
		best.IncidentID, best.Resolution)
}
