package extract

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// AnnotatedToken is one token of the NER path: the raw text, its PTB POS tag,
// and the entity type it sits inside ("" when outside every entity span).
type AnnotatedToken struct {
	Text string
	POS  string
	NER  string
}

// Annotator produces POS and entity annotations for a chunk of text. The
// default implementation runs prose; tests substitute fakes, and any error
// drops the extractor back to the heuristic path for that chunk.
type Annotator interface {
	Annotate(text string) ([]AnnotatedToken, error)
}

type proseAnnotator struct{}

// NewProseAnnotator returns the production annotator backed by the prose
// English model (sentence split, tokenize, POS tag, NER).
func NewProseAnnotator() Annotator {
	return proseAnnotator{}
}

func (proseAnnotator) Annotate(text string) ([]AnnotatedToken, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}
	toks := doc.Tokens()
	out := make([]AnnotatedToken, 0, len(toks))
	for _, t := range toks {
		out = append(out, AnnotatedToken{
			Text: t.Text,
			POS:  t.Tag,
			NER:  entityType(t.Label),
		})
	}
	return out, nil
}

// entityType strips the IOB prefix from a prose token label, e.g. "B-GPE"
// becomes "GPE". "O" and "" mean no entity.
func entityType(label string) string {
	if label == "" || label == "O" {
		return ""
	}
	if i := strings.IndexByte(label, '-'); i >= 0 {
		return label[i+1:]
	}
	return label
}
