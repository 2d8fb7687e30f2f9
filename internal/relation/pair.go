package relation

import (
	"github.com/seifer44/lexigraph/internal/domain"
)

// evidenceLimit caps the chunk text carried on a candidate; the scorer's
// prompt does not need more than the opening of the chunk.
const evidenceLimit = 500

// EnumeratePairs expands a chunk's concept set into relation candidates: one
// per unordered pair of distinct concepts, canonically ordered so that
// A.ConceptID < B.ConceptID. Chunks with fewer than two distinct concepts
// produce nothing.
func EnumeratePairs(chunk domain.Chunk, concepts []domain.Concept) []domain.RelationCandidate {
	if len(concepts) < 2 {
		return nil
	}

	evidence := truncate(chunk.Text, evidenceLimit)
	out := make([]domain.RelationCandidate, 0, len(concepts)*(len(concepts)-1)/2)
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			a, b := concepts[i], concepts[j]
			if a.ConceptID == b.ConceptID {
				continue
			}
			if b.ConceptID < a.ConceptID {
				a, b = b, a
			}
			out = append(out, domain.RelationCandidate{
				CoOccurrence: domain.CoOccurrence{
					A:        a,
					B:        b,
					WindowID: chunk.ChunkID,
					Freq:     1,
				},
				Evidence: evidence,
			})
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
