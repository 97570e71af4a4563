package resource

import (
	"math"
	"sort"
)

// Embedding is a vector identified by the ID of the node (or resource) it
// describes.
type Embedding struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

// IsEmpty reports whether the embedding carries no vector.
func (e Embedding) IsEmpty() bool {
	return len(e.Vector) == 0
}

// Score pairs an embedding ID with its similarity to a query.
type Score struct {
	ID    string
	Score float32
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// ScoreEmbeddings scores every embedding against query and returns them best
// first. Equal scores keep the order of embeddings. k <= 0 returns all.
func ScoreEmbeddings(query []float32, embeddings []Embedding, k int) []Score {
	scores := make([]Score, len(embeddings))
	for i, e := range embeddings {
		scores[i] = Score{ID: e.ID, Score: CosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if k > 0 && len(scores) > k {
		scores = scores[:k]
	}
	return scores
}
