// Package transcript assembles transcript text: whitespace normalization of
// decoder segments (SPEC_FULL.md §4.2) and the punctuation-aware join rule
// used by streaming commit (SPEC_FULL.md §4.3).
//
// This keeps the join/whitespace-normalize shape of this lineage's own
// transcript assembly, but replaces its space-only join with the ASCII
// punctuation rule the spec requires. The spec's own Open Question
// (SPEC_FULL.md §9) explicitly forbids inferring additional punctuation or
// casing rules beyond the literal ASCII set below — so the sentence-casing
// and pronoun-capitalization behavior this lineage's transcript package also
// has is deliberately not carried forward here (see DESIGN.md).
package transcript

import "strings"

// noSpaceBefore is the ASCII punctuation set that joins onto the preceding
// text without a leading space. SPEC_FULL.md's Open Question preserves this
// exact set rather than generalizing to Unicode punctuation or open
// quotes/parens.
var noSpaceBefore = map[string]struct{}{
	".": {}, ",": {}, "!": {}, "?": {}, ";": {}, ":": {}, ")": {},
}

// AppendPiece appends piece to text using the punctuation-aware join rule:
// a single joining space is inserted unless piece is one of the single
// characters in noSpaceBefore, or text is currently empty. Used both to
// build a stream commit's delta token-by-token and, identically, to append a
// finished delta onto the tail of an existing committed transcript
// (SPEC_FULL.md §4.3 "Commit and append").
func AppendPiece(text, piece string) string {
	if piece == "" {
		return text
	}
	if text == "" {
		return piece
	}
	if _, noSpace := noSpaceBefore[piece]; noSpace {
		return text + piece
	}
	return text + " " + piece
}

// Normalize applies SPEC_FULL.md §4.2's uniform transcript normalization:
// concatenate, split on whitespace, rejoin with single spaces, trim.
func Normalize(segments []string) string {
	joined := strings.Join(segments, " ")
	return strings.Join(strings.Fields(joined), " ")
}
