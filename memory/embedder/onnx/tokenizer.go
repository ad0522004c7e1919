//go:build onnx

package onnx

import (
	"encoding/json"
	"os"
	"strings"
)

const (
	clsToken = 101
	sepToken = 102
	unkToken = 100
)

// tokenizer is a BERT WordPiece tokenizer read from a HuggingFace
// tokenizer.json file.
type tokenizer struct {
	vocab map[string]int
}

func loadTokenizer(path string) (*tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return &tokenizer{vocab: file.Model.Vocab}, nil
}

// encode returns input ids and attention mask of length maxLen:
// [CLS] tokens... [SEP] followed by padding.
func (t *tokenizer) encode(text string, maxLen int) (ids, mask []int64) {
	ids = make([]int64, maxLen)
	mask = make([]int64, maxLen)

	tokens := t.tokenize(text)
	if len(tokens) > maxLen-2 {
		tokens = tokens[:maxLen-2]
	}
	ids[0], mask[0] = clsToken, 1
	for i, tok := range tokens {
		ids[i+1], mask[i+1] = tok, 1
	}
	end := len(tokens) + 1
	ids[end], mask[end] = sepToken, 1
	return ids, mask
}

func (t *tokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		for _, piece := range t.wordPieces(word) {
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, unkToken)
			}
		}
	}
	return tokens
}

// wordPieces splits word greedily into the longest known prefixes, marking
// continuations with "##".
func (t *tokenizer) wordPieces(word string) []string {
	var pieces []string
	for start := 0; start < len(word); {
		end := len(word)
		for ; end > start; end-- {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := t.vocab[piece]; ok {
				pieces = append(pieces, piece)
				break
			}
		}
		if end == start {
			pieces = append(pieces, "[UNK]")
			start++
			continue
		}
		start = end
	}
	return pieces
}
