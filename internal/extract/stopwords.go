package extract

// stopWords are capitalized sentence-starters and document furniture that the
// heuristic path must never promote to concepts. Matching is case-sensitive.
var stopWords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"They": {}, "There": {}, "Then": {}, "When": {}, "Where": {},
	"What": {}, "Which": {}, "Who": {}, "Why": {}, "How": {},
	"Figure": {}, "Table": {}, "Section": {}, "Chapter": {}, "Page": {},
	"For": {}, "From": {}, "With": {}, "Without": {}, "About": {},
}

func isStopWord(s string) bool {
	_, ok := stopWords[s]
	return ok
}
