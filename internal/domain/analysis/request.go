package analysis

import (
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// Request limits.
const (
	// MaxSymptomsLength is the maximum symptoms text length in bytes.
	MaxSymptomsLength = 8192
	DefaultTopK       = 3
	MaxTopK           = 20
)

// Request is a validated analysis request.
type Request struct {
	symptoms string
	domain   string
	topK     int
}

// NewRequest validates analysis parameters. topK below 1 is rejected, not clamped.
func NewRequest(symptoms, dom string, topK int) (Request, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return Request{}, domain.NewValidationError("symptoms", "is required")
	}
	if len(symptoms) > MaxSymptomsLength {
		return Request{}, domain.NewValidationError("symptoms", "too long (max 8192 bytes)")
	}
	if topK < 1 {
		return Request{}, domain.NewValidationError("top_k", "must be >= 1")
	}
	if topK > MaxTopK {
		return Request{}, domain.NewValidationError("top_k", "must be <= 20")
	}
	return Request{
		symptoms: symptoms,
		domain:   strings.TrimSpace(dom),
		topK:     topK,
	}, nil
}

// Symptoms returns the incident description.
func (r *Request) Symptoms() string { return r.symptoms }

// Domain returns the optional domain filter ("" means all domains).
func (r *Request) Domain() string { return r.domain }

// TopK returns the maximum number of matches.
func (r *Request) TopK() int { return r.topK }
