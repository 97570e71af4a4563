package vecfs

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
)

// ScoredItem is an item ranked by its resource embedding.
type ScoredItem struct {
	Item  *Item
	Score float32
}

// SearchItems ranks the items below under by the embedding in their
// header and returns the best n. No resource is loaded.
func (s *Service) SearchItems(ctx context.Context, tenant string, under resource.Path, query []float32, n int) (out []ScoredItem, err error) {
	ctx, done := s.begin(ctx, "search_items", tenant, under)
	defer done(&err)
	defer s.locks.read(tenant)()

	items, err := s.itemsUnder(ctx, tenant, under)
	if err != nil {
		return nil, err
	}
	return rankItems(items, query, n), nil
}

// DeepSearch searches inside the numResources items below under that best
// match query, and returns the top k nodes across them. Node scores are
// blended with their item's score; paths are absolute filesystem paths.
func (s *Service) DeepSearch(ctx context.Context, tenant string, under resource.Path, query []float32, numResources, k int, method search.Method, opts ...search.Option) (hits []search.RetrievedNode, err error) {
	ctx, done := s.begin(ctx, "deep_search", tenant, under)
	defer done(&err)
	defer s.locks.read(tenant)()

	items, err := s.itemsUnder(ctx, tenant, under)
	if err != nil {
		return nil, err
	}
	ranked := rankItems(items, query, numResources)
	scopes := make([]search.Scoped, 0, len(ranked))
	for _, r := range ranked {
		res, err := s.readResource(ctx, tenant, r.Item.Path)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, search.Scoped{Path: r.Item.Path, Resource: res})
	}
	return search.DeepSearch(ctx, query, scopes, numResources, k, method, opts...)
}

func (s *Service) itemsUnder(ctx context.Context, tenant string, under resource.Path) ([]*Item, error) {
	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if _, err := snap.requireFolder(under); err != nil {
		return nil, err
	}
	var items []*Item
	for _, p := range snap.descendants(under) {
		if rec, _ := snap.get(p); rec.Kind == KindItem {
			items = append(items, itemFromRecord(p, rec))
		}
	}
	return items, nil
}

func rankItems(items []*Item, query []float32, n int) []ScoredItem {
	if n <= 0 || len(items) == 0 {
		return []ScoredItem{}
	}
	embs := make([]resource.Embedding, len(items))
	byID := make(map[string]*Item, len(items))
	for i, it := range items {
		id := it.Path.String()
		embs[i] = resource.Embedding{ID: id}
		if it.Header.Embedding != nil {
			embs[i].Vector = it.Header.Embedding.Vector
		}
		byID[id] = it
	}
	scores := resource.ScoreEmbeddings(query, embs, n)
	out := make([]ScoredItem, len(scores))
	for i, sc := range scores {
		out[i] = ScoredItem{Item: byID[sc.ID], Score: sc.Score}
	}
	return out
}

// String implements fmt.Stringer for log fields.
func (si ScoredItem) String() string {
	return fmt.Sprintf("%s (%.4f)", si.Item.Path, si.Score)
}
