package slice

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

// Hash field names of a stored slice.
const (
	fieldDomain     = "domain"
	fieldSymptoms   = "symptoms"
	fieldResolution = "resolution"
	fieldMetadata   = "metadata"
	fieldCreatedAt  = "created_at"
	fieldVector     = "vector"
)

// summaryFields are returned by listing and hydration queries (no vector).
var summaryFields = []string{fieldDomain, fieldSymptoms, fieldResolution, fieldMetadata, fieldCreatedAt}

// buildHashFields flattens a slice into HSET field/value pairs.
func buildHashFields(s *domslice.Slice) (map[string]string, error) {
	meta, err := json.Marshal(s.Metadata())
	if err != nil {
		return nil, err
	}
	m := map[string]string{
		fieldDomain:     s.Domain(),
		fieldSymptoms:   s.Symptoms(),
		fieldResolution: s.Resolution(),
		fieldMetadata:   string(meta),
		fieldCreatedAt:  strconv.FormatInt(s.CreatedAt(), 10),
	}
	if len(s.Vector()) > 0 {
		m[fieldVector] = vectorToBytes(s.Vector())
	}
	return m, nil
}

// parseHashFields rebuilds a slice from stored hash fields. Corrupt metadata
// or timestamps degrade to empty values rather than failing the read.
func parseHashFields(id string, m map[string]string) domslice.Slice {
	var meta map[string]string
	if raw := m[fieldMetadata]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &meta)
	}
	if meta == nil {
		meta = map[string]string{}
	}
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)

	var vector []float32
	if raw, ok := m[fieldVector]; ok {
		vector = bytesToVector(raw)
	}

	return domslice.Reconstruct(
		id, m[fieldDomain], m[fieldSymptoms], m[fieldResolution], meta, vector, createdAt,
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
