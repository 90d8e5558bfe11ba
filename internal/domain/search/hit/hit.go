package hit

// Modality names a retrieval method.
type Modality string

// Retrieval modalities in tie-break priority order.
const (
	Lexical  Modality = "lexical"
	Semantic Modality = "semantic"
)

// RankedHit is a single ranked hit from one modality.
type RankedHit struct {
	SliceID string
	Rank    int // 1-based
	Score   float64
}

// Ranking is the ordered output of one modality (best first).
type Ranking struct {
	Modality Modality
	Hits     []RankedHit
}

// IDs returns the slice ids in rank order.
func (r *Ranking) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.SliceID
	}
	return ids
}

// FromIDs builds a ranking from ordered ids, assigning 1-based ranks.
func FromIDs(m Modality, ids ...string) Ranking {
	hits := make([]RankedHit, len(ids))
	for i, id := range ids {
		hits[i] = RankedHit{SliceID: id, Rank: i + 1}
	}
	return Ranking{Modality: m, Hits: hits}
}
