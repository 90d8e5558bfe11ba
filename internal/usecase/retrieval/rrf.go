package retrieval

import (
	"math"
	"sort"

	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
)

// DefaultK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultK = 60

// scoreEpsilon is the tolerance under which two fused scores count as tied.
const scoreEpsilon = 1e-12

// Fused is one entry of a fused ranking.
type Fused struct {
	SliceID  string
	Score    float64
	BestRank int
	// Source is the index of the ranking where BestRank was seen.
	Source int
}

// Fuse merges rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) over rankings containing d, rank 1-based by position.
//
// Ties are broken by the best rank seen in any ranking, then by the position
// of the ranking where that rank occurred (rankings earlier in the slice win),
// then by slice id. The order is total, so identical inputs always fuse to
// identical outputs.
func Fuse(rankings []hit.Ranking, k, topK int) []Fused {
	if topK <= 0 {
		return []Fused{}
	}
	if k <= 0 {
		k = DefaultK
	}

	merged := make(map[string]*Fused)
	for src, r := range rankings {
		seen := make(map[string]struct{}, len(r.Hits))
		for pos, h := range r.Hits {
			if _, dup := seen[h.SliceID]; dup {
				continue
			}
			seen[h.SliceID] = struct{}{}

			rank := pos + 1
			s := 1.0 / float64(k+rank)
			f, ok := merged[h.SliceID]
			if !ok {
				merged[h.SliceID] = &Fused{SliceID: h.SliceID, Score: s, BestRank: rank, Source: src}
				continue
			}
			f.Score += s
			if rank < f.BestRank {
				f.BestRank = rank
				f.Source = src
			}
		}
	}

	out := make([]Fused, 0, len(merged))
	for _, f := range merged {
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if a.BestRank != b.BestRank {
			return a.BestRank < b.BestRank
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.SliceID < b.SliceID
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
