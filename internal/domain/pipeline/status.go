package pipeline

// Status is the state of a pipeline run.
type Status string

// Pipeline states. COMPLETE, DEGRADED, NO_MATCH and FAILED are terminal.
const (
	Pending    Status = "PENDING"
	Retrieving Status = "RETRIEVING"
	NoMatch    Status = "NO_MATCH"
	Analyzing  Status = "ANALYZING"
	Acting     Status = "ACTING"
	Complete   Status = "COMPLETE"
	Degraded   Status = "DEGRADED"
	Failed     Status = "FAILED"
)

var transitions = map[Status][]Status{
	Pending:    {Retrieving},
	Retrieving: {NoMatch, Analyzing, Failed},
	Analyzing:  {Acting, Degraded},
	Acting:     {Complete, Degraded},
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case Complete, Degraded, NoMatch, Failed:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case Pending, Retrieving, NoMatch, Analyzing, Acting, Complete, Degraded, Failed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the edge s -> to exists.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
