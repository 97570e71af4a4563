// Package search walks nested vector resources and ranks their nodes
// against a query embedding.
package search

import (
	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// Method selects how a traversal scores and descends.
type Method int

const (
	// Efficient scores every node at a level but only keeps and descends
	// into the top k of that level.
	Efficient Method = iota

	// Exhaustive scores and descends into every node at every depth.
	Exhaustive

	// UnscoredAllNodes enumerates every node, including container resource
	// nodes ahead of their children, all with score 0. Never truncated.
	UnscoredAllNodes
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case Efficient:
		return "efficient"
	case Exhaustive:
		return "exhaustive"
	case UnscoredAllNodes:
		return "unscored_all_nodes"
	default:
		return "unknown"
	}
}

// ParseMethod maps a method name back to its value.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "", "efficient":
		return Efficient, true
	case "exhaustive":
		return Exhaustive, true
	case "unscored_all_nodes", "unscored":
		return UnscoredAllNodes, true
	default:
		return Efficient, false
	}
}

// FilterMode selects how metadata terms combine.
type FilterMode int

const (
	FilterAny FilterMode = iota
	FilterAll
)

// HierarchicalOwnWeight is the share of a node's own similarity in its
// hierarchical score; the rest comes from the average of its ancestors.
const HierarchicalOwnWeight = 0.8

// Options collects every traversal modifier. Build it with Option values.
type Options struct {
	LimitToType      resource.BaseType
	ToleranceRange   *float32
	MinimumScore     *float32
	UntilDepth       *int
	Hierarchical     bool
	SyntacticTags    []string
	MetadataFilter   []resource.MetadataPair
	MetadataMode     FilterMode
	StartingPath     resource.Path
	ProximityWindow  int
	ProximityTopN    int
	Validate         func(node resource.Node, path resource.Path) bool
	IncludeEmbedding bool
}

// Option mutates Options.
type Option func(*Options)

// WithLimitToType only descends into nested resources of base type t.
func WithLimitToType(t resource.BaseType) Option {
	return func(o *Options) { o.LimitToType = t }
}

// WithToleranceRange keeps results scoring within fraction r of the top
// score. r is clamped to [0, 1].
func WithToleranceRange(r float32) Option {
	return func(o *Options) {
		r = min(max(r, 0), 1)
		o.ToleranceRange = &r
	}
}

// WithMinimumScore discards results scoring below floor.
func WithMinimumScore(floor float32) Option {
	return func(o *Options) { o.MinimumScore = &floor }
}

// WithUntilDepth stops descending below depth d. Resource nodes reached at
// that depth are returned as results themselves. Depth 0 is the top level.
func WithUntilDepth(d int) Option {
	return func(o *Options) { o.UntilDepth = &d }
}

// WithHierarchicalAverageScoring blends each content node's score with the
// average score of the resource nodes above it.
func WithHierarchicalAverageScoring() Option {
	return func(o *Options) { o.Hierarchical = true }
}

// WithSyntacticPrefilter restricts candidates to nodes tagged with any of
// tags, using each level's data tag index.
func WithSyntacticPrefilter(tags ...string) Option {
	return func(o *Options) { o.SyntacticTags = tags }
}

// WithMetadataAny keeps nodes matching at least one term.
func WithMetadataAny(pairs ...resource.MetadataPair) Option {
	return func(o *Options) {
		o.MetadataFilter = pairs
		o.MetadataMode = FilterAny
	}
}

// WithMetadataAll keeps nodes matching every term.
func WithMetadataAll(pairs ...resource.MetadataPair) Option {
	return func(o *Options) {
		o.MetadataFilter = pairs
		o.MetadataMode = FilterAll
	}
}

// WithStartingPath searches only the resource nested at p.
func WithStartingPath(p resource.Path) Option {
	return func(o *Options) { o.StartingPath = p }
}

// WithProximityResults replaces each of the topN results with the nodes
// within window positions of it in its document, keeping their order.
func WithProximityResults(window, topN int) Option {
	return func(o *Options) {
		o.ProximityWindow = window
		o.ProximityTopN = topN
	}
}

// WithValidation skips any node for which fn returns false. Skipped
// resource nodes are not descended into.
func WithValidation(fn func(node resource.Node, path resource.Path) bool) Option {
	return func(o *Options) { o.Validate = fn }
}

// WithResourceEmbeddings keeps the resource embedding in result headers.
func WithResourceEmbeddings() Option {
	return func(o *Options) { o.IncludeEmbedding = true }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *Options) metadataMatches(m resource.Metadata) bool {
	if len(o.MetadataFilter) == 0 {
		return true
	}
	if o.MetadataMode == FilterAll {
		return m.MatchesAll(o.MetadataFilter)
	}
	return m.MatchesAny(o.MetadataFilter)
}
