package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// splitIntoChunks cuts text into pieces of at most size bytes, ending each
// piece at the last whitespace before the limit when there is one. Pieces
// never split a UTF-8 sequence.
func splitIntoChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{strings.TrimSpace(text)}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= size {
			chunks = appendChunk(chunks, text)
			break
		}
		end := size
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		cut := strings.LastIndexFunc(text[:end], unicode.IsSpace)
		if cut > 0 {
			end = cut
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(text)
		}
		chunks = appendChunk(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}

func appendChunk(chunks []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
