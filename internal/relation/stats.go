package relation

import (
	"math"
	"sync"

	"github.com/seifer44/lexigraph/internal/domain"
)

// CorpusStats accumulates per-concept and per-pair chunk frequencies across a
// run so relation edges can be PMI-filtered after scoring. The counters are
// safe for concurrent pipeline workers.
type CorpusStats struct {
	mu         sync.Mutex
	chunks     int
	conceptObs map[string]int
	pairObs    map[[2]string]int
}

func NewCorpusStats() *CorpusStats {
	return &CorpusStats{
		conceptObs: make(map[string]int),
		pairObs:    make(map[[2]string]int),
	}
}

// Observe records one chunk's concept set. Concepts are counted once per
// chunk regardless of how often they appear in its text.
func (s *CorpusStats) Observe(concepts []domain.Concept) {
	if len(concepts) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks++
	distinct := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		if _, dup := distinct[c.ConceptID]; dup {
			continue
		}
		distinct[c.ConceptID] = struct{}{}
		s.conceptObs[c.ConceptID]++
	}

	ids := make([]string, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			s.pairObs[pairKey(ids[i], ids[j])]++
		}
	}
}

// PMI returns log2(P(a,b) / (P(a)·P(b))) with chunk counts as frequencies.
// A pair never observed together yields -Inf.
func (s *CorpusStats) PMI(a, b string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chunks == 0 {
		return math.Inf(-1)
	}
	pab := float64(s.pairObs[pairKey(a, b)]) / float64(s.chunks)
	pa := float64(s.conceptObs[a]) / float64(s.chunks)
	pb := float64(s.conceptObs[b]) / float64(s.chunks)
	if pab == 0 || pa == 0 || pb == 0 {
		return math.Inf(-1)
	}
	return math.Log2(pab / (pa * pb))
}

// Keep reports whether the edge between a and b survives the configured PMI
// threshold. A threshold of zero disables filtering, matching the per-chunk
// window semantics where PMI is configured but not applied.
func (s *CorpusStats) Keep(a, b string, minPMI float64) bool {
	if minPMI == 0 {
		return true
	}
	return s.PMI(a, b) >= minPMI
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
