package search

import (
	"context"
	"math"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// RetrieveAllNodes enumerates every node below start, containers first.
func RetrieveAllNodes(ctx context.Context, root resource.Resource, start resource.Path) ([]RetrievedNode, error) {
	return Search(ctx, root, nil, math.MaxInt, UnscoredAllNodes, WithStartingPath(start))
}

// RetrieveTextNodes is RetrieveAllNodes limited to text nodes.
func RetrieveTextNodes(ctx context.Context, root resource.Resource, start resource.Path) ([]RetrievedNode, error) {
	all, err := RetrieveAllNodes(ctx, root, start)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Node.Content.Kind() == resource.ContentText {
			out = append(out, r)
		}
	}
	return out, nil
}

// RetrieveResourceNodes is RetrieveAllNodes limited to nested resources.
func RetrieveResourceNodes(ctx context.Context, root resource.Resource, start resource.Path) ([]RetrievedNode, error) {
	all, err := RetrieveAllNodes(ctx, root, start)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Node.IsResource() {
			out = append(out, r)
		}
	}
	return out, nil
}

// SyntacticSearch is an exhaustive, hierarchically scored search over the
// nodes carrying any of tags.
func SyntacticSearch(ctx context.Context, root resource.Resource, query []float32, k int, tags []string, opts ...Option) ([]RetrievedNode, error) {
	opts = append([]Option{WithHierarchicalAverageScoring(), WithSyntacticPrefilter(tags...)}, opts...)
	return Search(ctx, root, query, k, Exhaustive, opts...)
}

// Scoped is a resource mounted at a path, such as an item in a filesystem
// or an entry in a bundle.
type Scoped struct {
	Path     resource.Path
	Resource resource.Resource
}

// DeepSearch first ranks whole resources by their resource embedding, then
// searches inside the best numResources of them. Node scores are blended
// with their resource's score the same way hierarchical averaging does,
// and result paths are prefixed with the mount path.
func DeepSearch(ctx context.Context, query []float32, scopes []Scoped, numResources, k int, method Method, opts ...Option) ([]RetrievedNode, error) {
	if numResources <= 0 || k <= 0 || len(scopes) == 0 {
		return []RetrievedNode{}, nil
	}

	embeddings := make([]resource.Embedding, len(scopes))
	byID := make(map[string]Scoped, len(scopes))
	for i, s := range scopes {
		id := s.Path.String()
		embeddings[i] = resource.Embedding{ID: id, Vector: s.Resource.ResourceEmbedding().Vector}
		byID[id] = s
	}

	var out []RetrievedNode
	for _, rs := range resource.ScoreEmbeddings(query, embeddings, numResources) {
		scope := byID[rs.ID]
		hits, err := Search(ctx, scope.Resource, query, k, method, opts...)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if method != UnscoredAllNodes {
				h.Score = h.Score*HierarchicalOwnWeight + rs.Score*(1-HierarchicalOwnWeight)
			}
			h.Path = scope.Path.Append(h.Path)
			out = append(out, h)
		}
	}

	if method != UnscoredAllNodes {
		sortByScore(out)
		if len(out) > k {
			out = out[:k]
		}
	}
	return out, nil
}
