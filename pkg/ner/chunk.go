package ner

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// maxChunkTokens keeps each extraction request comfortably inside the
// model's context window.
const maxChunkTokens = 4096

// chunkText splits text into token-bounded chunks on paragraph
// boundaries where possible, falling back to hard token cuts for
// oversized paragraphs.
func chunkText(text string) ([]string, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, err
	}

	if len(enc.Encode(text, nil, nil)) <= maxChunkTokens {
		return []string{text}, nil
	}

	paragraphs := strings.Split(text, "\n\n")
	chunks := make([]string, 0)
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		tokens := enc.Encode(p, nil, nil)
		if len(tokens) > maxChunkTokens {
			flush()
			for start := 0; start < len(tokens); start += maxChunkTokens {
				end := min(start+maxChunkTokens, len(tokens))
				chunks = append(chunks, enc.Decode(tokens[start:end]))
			}
			continue
		}
		if currentTokens+len(tokens) > maxChunkTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		currentTokens += len(tokens)
	}
	flush()

	return chunks, nil
}
