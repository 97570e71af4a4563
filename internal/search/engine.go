package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/vecfs/internal/search")

// RetrievedNode is one search result.
type RetrievedNode struct {
	Node  resource.Node
	Score float32
	// Header describes the resource that directly holds Node.
	Header resource.Header
	// Path is the absolute path of Node from the searched root.
	Path resource.Path
	// ProximityGroup numbers the window a proximity result belongs to,
	// starting at 1. It is 0 outside proximity mode.
	ProximityGroup int
}

// task is one resource level on the work list. A task is expanded once,
// which schedules its nested resources, and collapsed once all of them have
// written their results into parts.
type task struct {
	res       resource.Resource
	path      resource.Path
	ancestors []float32
	dst       *[]RetrievedNode
	lead      *RetrievedNode

	expanded    bool
	parts       [][]RetrievedNode
	hadResource bool
}

type walker struct {
	query   []float32
	k       int
	method  Method
	opts    Options
	visited int
}

// Search ranks the nodes of root against query and returns at most k of
// them, best first. An empty result is not an error; an invalid starting
// path is.
func Search(ctx context.Context, root resource.Resource, query []float32, k int, method Method, opts ...Option) ([]RetrievedNode, error) {
	o := buildOptions(opts)
	_, span := tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("method", method.String()),
		attribute.Int("k", k),
		attribute.String("resource", root.Name()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		TraversalsTotal.WithLabelValues(method.String()).Inc()
		TraversalDuration.WithLabelValues(method.String()).Observe(time.Since(start).Seconds())
	}()

	if k <= 0 {
		return []RetrievedNode{}, nil
	}

	startRes := root
	if !o.StartingPath.IsRoot() {
		r, err := resource.ResourceAtPath(root, o.StartingPath)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("starting path %s: %w", o.StartingPath, err)
		}
		startRes = r
	}

	w := &walker{query: query, k: k, method: method, opts: o}
	results := w.walk(startRes, o.StartingPath)
	results = w.finish(root, results)

	NodesVisited.Observe(float64(w.visited))
	span.SetAttributes(attribute.Int("results", len(results)), attribute.Int("visited", w.visited))
	return results, nil
}

// walk runs the level tasks depth-first from an explicit stack. Children are
// pushed in reverse so they are processed in native order.
func (w *walker) walk(res resource.Resource, path resource.Path) []RetrievedNode {
	var out []RetrievedNode
	stack := []*task{{res: res, path: path, dst: &out}}

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		if t.expanded {
			stack = stack[:len(stack)-1]
			*t.dst = w.collapse(t)
			continue
		}
		t.expanded = true
		children := w.expand(t)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// expand scores one level, records its content results and returns the
// nested resources to descend into.
func (w *walker) expand(t *task) []*task {
	header := t.res.Header()
	if !w.opts.IncludeEmbedding {
		header.Embedding = nil
	}

	scores := w.score(t.res)
	t.parts = make([][]RetrievedNode, len(scores))

	var children []*task
	for i, s := range scores {
		node, err := t.res.NodeByID(s.ID)
		if err != nil {
			continue
		}
		w.visited++
		nodePath := t.path.Push(node.ID)

		if !w.opts.metadataMatches(node.Metadata) {
			continue
		}

		hit := RetrievedNode{Node: node, Score: w.adjust(s.Score, t.ancestors), Header: header, Path: nodePath}

		child, isResource := node.Resource()
		if !isResource {
			t.parts[i] = []RetrievedNode{hit}
			continue
		}
		if w.opts.LimitToType != "" && child.BaseType() != w.opts.LimitToType {
			continue
		}
		if w.opts.Validate != nil && !w.opts.Validate(node, nodePath) {
			continue
		}
		t.hadResource = true

		if w.opts.UntilDepth != nil && t.path.Depth() >= *w.opts.UntilDepth {
			t.parts[i] = []RetrievedNode{hit}
			continue
		}

		ancestors := make([]float32, len(t.ancestors), len(t.ancestors)+1)
		copy(ancestors, t.ancestors)
		ancestors = append(ancestors, s.Score)

		next := &task{res: child, path: nodePath, ancestors: ancestors, dst: &t.parts[i]}
		if w.method == UnscoredAllNodes {
			next.lead = &hit
		}
		children = append(children, next)
	}
	return children
}

// collapse flattens a finished level. Levels that mixed in nested results
// are re-ranked and cut to k.
func (w *walker) collapse(t *task) []RetrievedNode {
	var out []RetrievedNode
	if t.lead != nil {
		out = append(out, *t.lead)
	}
	for _, p := range t.parts {
		out = append(out, p...)
	}
	if w.method != UnscoredAllNodes && t.hadResource {
		sortByScore(out)
		if len(out) > w.k {
			out = out[:w.k]
		}
	}
	return out
}

// score returns the candidate scores of one level in traversal order.
func (w *walker) score(res resource.Resource) []resource.Score {
	embeddings := res.Embeddings()
	if len(w.opts.SyntacticTags) > 0 {
		allowed := res.DataTagIndex().NodeIDs(w.opts.SyntacticTags)
		filtered := embeddings[:0]
		for _, e := range embeddings {
			if _, ok := allowed[e.ID]; ok {
				filtered = append(filtered, e)
			}
		}
		embeddings = filtered
	}

	switch w.method {
	case UnscoredAllNodes:
		out := make([]resource.Score, len(embeddings))
		for i, e := range embeddings {
			out[i] = resource.Score{ID: e.ID}
		}
		return out
	case Exhaustive:
		return resource.ScoreEmbeddings(w.query, embeddings, 0)
	default:
		return resource.ScoreEmbeddings(w.query, embeddings, w.k)
	}
}

// adjust applies hierarchical averaging when enabled.
func (w *walker) adjust(score float32, ancestors []float32) float32 {
	if !w.opts.Hierarchical || w.method == UnscoredAllNodes || len(ancestors) == 0 {
		return score
	}
	var sum float32
	for _, a := range ancestors {
		sum += a
	}
	if sum <= 0 {
		return score
	}
	avg := sum / float32(len(ancestors))
	return score*HierarchicalOwnWeight + avg*(1-HierarchicalOwnWeight)
}

// finish applies the result-set wide options.
func (w *walker) finish(root resource.Resource, results []RetrievedNode) []RetrievedNode {
	if w.method == UnscoredAllNodes {
		return filterMinimum(results, w.opts.MinimumScore)
	}

	sortByScore(results)

	if w.opts.ToleranceRange != nil && len(results) > 0 {
		top := results[0].Score
		lower := top - float32(math.Abs(float64(top)))*(*w.opts.ToleranceRange)
		kept := results[:0]
		for _, r := range results {
			if r.Score >= lower {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	results = filterMinimum(results, w.opts.MinimumScore)

	if w.opts.ProximityWindow > 0 {
		results = w.expandProximity(root, results)
	}
	if len(results) > w.k {
		results = results[:w.k]
	}
	return results
}

func filterMinimum(results []RetrievedNode, floor *float32) []RetrievedNode {
	if floor == nil {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Score >= *floor {
			kept = append(kept, r)
		}
	}
	return kept
}

// expandProximity turns the best ProximityTopN distinct results into
// groups: each hit is followed by the nodes within ProximityWindow of it in
// its document, scored against the query. Results after the last group are
// dropped. A hit that does not live in a document is kept as it is and
// opens no group.
func (w *walker) expandProximity(root resource.Resource, results []RetrievedNode) []RetrievedNode {
	topN := w.opts.ProximityTopN
	if topN <= 0 {
		topN = len(results)
	}
	seen := make(map[string]struct{})
	out := make([]RetrievedNode, 0, len(results))
	group := 0

	for _, r := range results {
		if group >= topN {
			break
		}
		if _, dup := seen[r.Path.String()]; dup {
			continue
		}
		parent := r.Path.Parent()
		holder, err := resource.ResourceAtPath(root, parent)
		doc, ok := holder.(*resource.DocumentResource)
		if err != nil || !ok {
			seen[r.Path.String()] = struct{}{}
			out = append(out, r)
			continue
		}
		nodes, err := doc.ProximityWindow(r.Node.ID, w.opts.ProximityWindow)
		if err != nil {
			seen[r.Path.String()] = struct{}{}
			out = append(out, r)
			continue
		}

		group++
		for _, n := range nodes {
			p := parent.Push(n.ID)
			if _, dup := seen[p.String()]; dup {
				continue
			}
			seen[p.String()] = struct{}{}
			hit := r
			if n.ID != r.Node.ID {
				hit = RetrievedNode{Node: n, Score: w.similarity(doc, n.ID), Header: r.Header, Path: p}
			}
			hit.ProximityGroup = group
			out = append(out, hit)
		}
	}
	return out
}

// similarity scores one node of res against the query. Nodes without an
// embedding score 0.
func (w *walker) similarity(res resource.Resource, id string) float32 {
	emb, err := res.EmbeddingByID(id)
	if err != nil {
		return 0
	}
	return resource.CosineSimilarity(w.query, emb.Vector)
}

// GroupByProximity splits proximity results into their groups, in order.
// It fails when a result carries no group.
func GroupByProximity(results []RetrievedNode) ([][]RetrievedNode, error) {
	var groups [][]RetrievedNode
	index := make(map[int]int)
	for _, r := range results {
		if r.ProximityGroup == 0 {
			return nil, fmt.Errorf("result %s has no proximity group", r.Path)
		}
		i, ok := index[r.ProximityGroup]
		if !ok {
			i = len(groups)
			index[r.ProximityGroup] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups, nil
}

func sortByScore(results []RetrievedNode) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
