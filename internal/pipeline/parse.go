package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/seifer44/lexigraph/internal/domain"
)

// chunkRecord mirrors the wire shape with pointer fields so missing keys are
// distinguishable from zero values. Unknown fields are ignored.
type chunkRecord struct {
	ChunkID   *string     `json:"chunkId"`
	DocID     *string     `json:"docId"`
	Span      *spanRecord `json:"span"`
	Text      *string     `json:"text"`
	SourceURI *string     `json:"sourceUri"`
	Hash      *string     `json:"hash"`
}

type spanRecord struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// ParseChunk decodes one JSONL record into a Chunk. Every field of the wire
// shape is required; malformed records are the caller's to drop.
func ParseChunk(data []byte) (domain.Chunk, error) {
	var rec chunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Chunk{}, fmt.Errorf("parse chunk: %w", err)
	}

	switch {
	case rec.ChunkID == nil || *rec.ChunkID == "":
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing chunkId")
	case rec.DocID == nil:
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing docId")
	case rec.Span == nil || rec.Span.Start == nil || rec.Span.End == nil:
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing span")
	case rec.Text == nil:
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing text")
	case rec.SourceURI == nil:
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing sourceUri")
	case rec.Hash == nil:
		return domain.Chunk{}, fmt.Errorf("parse chunk: missing hash")
	}

	return domain.Chunk{
		ChunkID:   *rec.ChunkID,
		DocID:     *rec.DocID,
		Span:      domain.Span{Start: *rec.Span.Start, End: *rec.Span.End},
		Text:      *rec.Text,
		SourceURI: *rec.SourceURI,
		Hash:      *rec.Hash,
	}, nil
}

// EncodeChunk is the inverse of ParseChunk; encoding then re-parsing yields
// the same chunk.
func EncodeChunk(c domain.Chunk) ([]byte, error) {
	return json.Marshal(c)
}
