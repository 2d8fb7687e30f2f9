package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/seifer44/lexigraph/internal/domain"
)

// NormalizeLemma canonicalizes a surface form: a lowercase→uppercase boundary
// becomes an underscore, everything is lowercased, anything outside
// [a-z0-9_] becomes an underscore, runs of underscores collapse, and leading
// and trailing underscores are trimmed. Applying it twice equals applying it
// once.
func NormalizeLemma(surface string) string {
	var b strings.Builder
	b.Grow(len(surface) + 4)

	runes := []rune(surface)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	lowered := b.String()
	b.Reset()
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	collapsed := b.String()
	for strings.Contains(collapsed, "__") {
		collapsed = strings.ReplaceAll(collapsed, "__", "_")
	}
	return strings.Trim(collapsed, "_")
}

// ConceptID returns the first 16 hex characters of the SHA-256 digest of the
// lemma. Identity of a concept is this value and nothing else.
func ConceptID(lemma string) string {
	sum := sha256.Sum256([]byte(lemma))
	return hex.EncodeToString(sum[:])[:16]
}

// NewConcept builds a Concept from a surface string and extraction origin.
func NewConcept(surface, origin string) domain.Concept {
	lemma := NormalizeLemma(surface)
	return domain.Concept{
		ConceptID: ConceptID(lemma),
		Lemma:     lemma,
		Surface:   surface,
		Origin:    origin,
	}
}
