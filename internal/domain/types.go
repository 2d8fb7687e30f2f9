package domain

// Span locates a chunk inside its source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is the immutable unit of ingest. Created once during parsing and
// never mutated afterwards.
type Chunk struct {
	ChunkID   string `json:"chunkId"`
	DocID     string `json:"docId"`
	Span      Span   `json:"span"`
	Text      string `json:"text"`
	SourceURI string `json:"sourceUri"`
	Hash      string `json:"hash"`
}

// Concept is a canonical entity extracted from chunk text. ConceptID is a
// pure function of Lemma (first 16 hex chars of its SHA-256 digest), so the
// same lemma always resolves to the same node.
type Concept struct {
	ConceptID string `json:"conceptId"`
	Lemma     string `json:"lemma"`
	Surface   string `json:"surface"`
	Origin    string `json:"origin"`
}

// Mention ties a chunk to one concept it contains.
type Mention struct {
	ChunkID string
	Concept Concept
}

// CoOccurrence is an unordered pair of distinct concepts observed in the same
// chunk. A.ConceptID < B.ConceptID lexicographically, always.
type CoOccurrence struct {
	A        Concept
	B        Concept
	WindowID string
	Freq     int
}

// RelationCandidate is a co-occurrence plus the evidence text handed to the
// relation scorer.
type RelationCandidate struct {
	CoOccurrence
	Evidence string
}

// LlmVerdict is the scorer's parsed judgment for one candidate.
type LlmVerdict struct {
	Predicate  string  `json:"predicate"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	Ref        string  `json:"ref"`
}

// ScoredRelation is a verdict that passed the confidence threshold, joined
// back to its concept pair.
type ScoredRelation struct {
	A          Concept
	B          Concept
	Predicate  string
	Confidence float64
	Evidence   string
}
