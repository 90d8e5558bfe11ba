package pipeline

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/sentinel/internal/domain/match"
)

// Run is the ephemeral aggregate of one analysis pipeline execution.
type Run struct {
	status          Status
	steps           []Step
	matches         []match.Match
	pattern         string
	runbook         string
	patternFallback bool
	runbookFallback bool
	message         string
	startedAt       time.Time
	elapsed         time.Duration
}

// NewRun starts a run in the PENDING state.
func NewRun(startedAt time.Time) *Run {
	return &Run{status: Pending, startedAt: startedAt, steps: make([]Step, 0, 3)}
}

// Transition moves the run along a legal edge of the state machine.
func (r *Run) Transition(to Status) error {
	if !r.status.CanTransition(to) {
		return fmt.Errorf("illegal pipeline transition %s -> %s", r.status, to)
	}
	r.status = to
	return nil
}

// Record appends a timeline step.
func (r *Run) Record(step Step) { r.steps = append(r.steps, step) }

// SetMatches stores the fused match list.
func (r *Run) SetMatches(ms []match.Match) { r.matches = ms }

// SetPattern stores the synthesized root cause pattern.
func (r *Run) SetPattern(p string) { r.pattern = p }

// MarkPatternFallback records that analysis fell back to matches only.
func (r *Run) MarkPatternFallback() {
	r.pattern = ""
	r.patternFallback = true
}

// SetRunbook stores the generated runbook.
func (r *Run) SetRunbook(rb string) { r.runbook = rb }

// SetFallbackRunbook stores a deterministic runbook built from historical data.
func (r *Run) SetFallbackRunbook(rb string) {
	r.runbook = rb
	r.runbookFallback = true
}

// SetMessage stores an explanatory message (no-match and degraded runs).
func (r *Run) SetMessage(msg string) { r.message = msg }

// Finish freezes the total elapsed time.
func (r *Run) Finish(now time.Time) { r.elapsed = now.Sub(r.startedAt) }

// Status returns the current state.
func (r *Run) Status() Status { return r.status }

// Steps returns the timeline.
func (r *Run) Steps() []Step { return r.steps }

// Matches returns the ranked matches.
func (r *Run) Matches() []match.Match { return r.matches }

// Pattern returns the root cause pattern ("" when unavailable).
func (r *Run) Pattern() string { return r.pattern }

// Runbook returns the remediation runbook.
func (r *Run) Runbook() string { return r.runbook }

// PatternFallback reports whether analysis output was replaced by a fallback.
func (r *Run) PatternFallback() bool { return r.patternFallback }

// RunbookFallback reports whether the runbook is a verbatim historical resolution.
func (r *Run) RunbookFallback() bool { return r.runbookFallback }

// Degraded reports whether any reasoning stage fell back.
func (r *Run) Degraded() bool { return r.patternFallback || r.runbookFallback }

// Message returns the explanatory message, if any.
func (r *Run) Message() string { return r.message }

// StartedAt returns the run start time.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Elapsed returns the total elapsed time (zero until Finish).
func (r *Run) Elapsed() time.Duration { return r.elapsed }
