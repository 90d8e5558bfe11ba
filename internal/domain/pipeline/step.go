package pipeline

import "time"

// Stage is one of the three pipeline stages.
type Stage string

// Pipeline stages in execution order.
const (
	StageRetrieval Stage = "retrieval"
	StageAnalysis  Stage = "analysis"
	StageAction    Stage = "action"
)

// Agent returns the human-facing agent name for the stage.
func (s Stage) Agent() string {
	switch s {
	case StageRetrieval:
		return "Retrieval Agent"
	case StageAnalysis:
		return "Analysis Agent"
	case StageAction:
		return "Action Agent"
	default:
		return string(s)
	}
}

// StepStatus is the outcome of one stage.
type StepStatus string

// Step outcomes.
const (
	StepOK       StepStatus = "ok"
	StepFailed   StepStatus = "failed"
	StepFallback StepStatus = "fallback"
)

// Step is one timeline entry. Retries inside a stage change Duration,
// Attempts and Detail, never the number of steps.
type Step struct {
	Stage    Stage
	Duration time.Duration
	Detail   string
	Status   StepStatus
	Attempts int
}

// Agent returns the agent name of the step's stage.
func (s *Step) Agent() string { return s.Stage.Agent() }
