package embeddings

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"lukechampine.com/blake3"
)

// HashModel is the model name recorded for vectors from HashEmbedder.
const HashModel = "vecfs/feature-hash"

// HashEmbedder maps text to vectors by hashing lowercase word tokens into a
// fixed number of buckets, with a signed contribution per token, and
// normalizing the result. Equal texts get equal vectors, and texts sharing
// words score higher than texts that share none.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns an embedder producing dim-sized vectors.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dim)
	}
	return &HashEmbedder{dim: dim}, nil
}

// EmbedDocuments embeds every text.
func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

// EmbedQuery embeds text.
func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		sum := blake3.Sum256([]byte(w))
		bucket := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dim)
		if sum[8]&1 == 0 {
			v[bucket]++
		} else {
			v[bucket]--
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// Model returns HashModel.
func (h *HashEmbedder) Model() string { return HashModel }

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Close is a no-op.
func (h *HashEmbedder) Close() error { return nil }
