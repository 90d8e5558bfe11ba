package slice

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// Size limits for slice text fields.
const (
	MaxSymptomsSize   = 16384
	MaxResolutionSize = 32768
	MaxIDLength       = 128
	MaxDomainLength   = 64
)

// Well-known metadata keys surfaced in match summaries.
const (
	MetaIncidentID = "incident_id"
	MetaSeverity   = "severity"
)

// Slice is the operational fingerprint of a past incident (immutable value object).
type Slice struct {
	id         string
	domain     string
	symptoms   string
	resolution string
	metadata   map[string]string
	vector     []float32
	createdAt  int64
}

// New validates and creates a Slice. An empty id is allowed: the ingestion
// service assigns one before persisting.
func New(id, dom, symptoms, resolution string, metadata map[string]string) (Slice, error) {
	if id != "" {
		if len(id) > MaxIDLength {
			return Slice{}, domain.NewValidationError("id", "too long")
		}
		if !nameRegex.MatchString(id) {
			return Slice{}, domain.NewValidationError("id", "must match [a-zA-Z0-9_.:-]+")
		}
	}
	if dom == "" {
		return Slice{}, domain.NewValidationError("domain", "is required")
	}
	if len(dom) > MaxDomainLength || !nameRegex.MatchString(dom) {
		return Slice{}, domain.NewValidationError("domain", "must match [a-zA-Z0-9_.:-]+ (max 64)")
	}
	if strings.TrimSpace(symptoms) == "" {
		return Slice{}, domain.NewValidationError("symptoms", "is required")
	}
	if len(symptoms) > MaxSymptomsSize {
		return Slice{}, domain.NewValidationError("symptoms", "too large")
	}
	if strings.TrimSpace(resolution) == "" {
		return Slice{}, domain.NewValidationError("resolution", "is required")
	}
	if len(resolution) > MaxResolutionSize {
		return Slice{}, domain.NewValidationError("resolution", "too large")
	}

	return Slice{
		id:         id,
		domain:     dom,
		symptoms:   symptoms,
		resolution: resolution,
		metadata:   cloneMeta(metadata),
	}, nil
}

// Reconstruct creates a Slice without validation (storage hydration).
func Reconstruct(
	id, dom, symptoms, resolution string, metadata map[string]string,
	vector []float32, createdAt int64,
) Slice {
	return Slice{
		id: id, domain: dom, symptoms: symptoms, resolution: resolution,
		metadata: metadata, vector: vector, createdAt: createdAt,
	}
}

// ID returns the slice identifier.
func (s *Slice) ID() string { return s.id }

// Domain returns the namespace tag.
func (s *Slice) Domain() string { return s.domain }

// Symptoms returns the symptom text.
func (s *Slice) Symptoms() string { return s.symptoms }

// Resolution returns the recorded resolution/runbook text.
func (s *Slice) Resolution() string { return s.resolution }

// Metadata returns the arbitrary metadata fields.
func (s *Slice) Metadata() map[string]string { return s.metadata }

// Vector returns the embedding vector (nil if not embedded yet).
func (s *Slice) Vector() []float32 { return s.vector }

// CreatedAt returns the creation timestamp in unix millis.
func (s *Slice) CreatedAt() int64 { return s.createdAt }

// IncidentID returns metadata incident_id, falling back to the slice id.
func (s *Slice) IncidentID() string {
	if v := s.metadata[MetaIncidentID]; v != "" {
		return v
	}
	return s.id
}

// Severity returns metadata severity or "unknown".
func (s *Slice) Severity() string {
	if v := s.metadata[MetaSeverity]; v != "" {
		return v
	}
	return "unknown"
}

// WithID returns a copy carrying the given id.
func (s *Slice) WithID(id string) Slice {
	c := *s
	c.id = id
	return c
}

// WithVector returns a copy carrying the given embedding.
func (s *Slice) WithVector(v []float32) Slice {
	c := *s
	c.vector = v
	return c
}

// WithCreatedAt returns a copy stamped with the given creation time (unix millis).
func (s *Slice) WithCreatedAt(ms int64) Slice {
	c := *s
	c.createdAt = ms
	return c
}

func cloneMeta(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// DomainCount is the number of stored slices in one domain.
type DomainCount struct {
	Domain string
	Count  int
}
