package transducerdecoder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// blankSymbol is the RNN-T blank label, conventionally vocabulary index 0.
const blankSymbol = 0

// loadVocab reads a newline-delimited token vocabulary where a token's line
// number (0-indexed) is its label id, the convention this pack's local ONNX
// inference wiring already assumes for fixed-vocabulary models.
func loadVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transducerdecoder: open vocab %q: %w", path, err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		tokens = append(tokens, strings.TrimRight(line, "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transducerdecoder: read vocab %q: %w", path, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("transducerdecoder: vocab %q is empty", path)
	}
	return tokens, nil
}

// pieceText renders a subword/token piece as display text. The underscore
// glyph "▁" is the common sentencepiece word-boundary marker; other tokens
// are concatenated directly to their neighbor.
func pieceText(piece string) (text string, leadingSpace bool) {
	const wordBoundary = "▁"
	if strings.HasPrefix(piece, wordBoundary) {
		return strings.TrimPrefix(piece, wordBoundary), true
	}
	return piece, false
}
