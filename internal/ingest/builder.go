package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/vecfs/internal/embeddings"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/secrets"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/vecfs/internal/ingest")

const (
	defaultMaxChunkSize = 400
	defaultBatchSize    = 32
	defaultConcurrency  = 4
	numKeywords         = 25
	maxDescriptionSize  = 500
)

// File is an uploaded file to ingest.
type File struct {
	Name        string
	Data        []byte
	Description string
	// Distribution is copied onto the resource and its source file entry.
	Distribution resource.DistributionInfo
}

// Config tunes chunking and embedding fan-out.
type Config struct {
	// MaxChunkSize is the largest text node, in bytes.
	MaxChunkSize int
	// BatchSize is the number of chunks per embedding request.
	BatchSize int
	// Concurrency bounds in-flight embedding requests.
	Concurrency int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = defaultMaxChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
}

// Builder parses files and embeds their text into document resources.
type Builder struct {
	provider embeddings.Provider
	counter  *resource.TokenCounter
	scrubber *secrets.Scrubber
	tags     []resource.DataTag
	config   Config
	logger   *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithScrubber redacts secrets from file text before it is chunked.
func WithScrubber(s *secrets.Scrubber) Option {
	return func(b *Builder) { b.scrubber = s }
}

// WithDataTags tags every chunk whose text matches one of tags, so
// searches can prefilter on them.
func WithDataTags(tags ...resource.DataTag) Option {
	return func(b *Builder) { b.tags = append(b.tags, tags...) }
}

// NewBuilder creates a Builder embedding with provider.
func NewBuilder(provider embeddings.Provider, counter *resource.TokenCounter, cfg Config, logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counter == nil {
		counter = resource.DefaultTokenCounter()
	}
	cfg.ApplyDefaults()
	b := &Builder{provider: provider, counter: counter, config: cfg, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provider returns the embedding provider, for embedding queries against
// resources this builder produced.
func (b *Builder) Provider() embeddings.Provider {
	return b.provider
}

// Counter returns the token counter used for built VRKai.
func (b *Builder) Counter() *resource.TokenCounter {
	return b.counter
}

// BuildResource parses f, embeds every chunk and returns the document with
// its resource embedding and keywords set.
func (b *Builder) BuildResource(ctx context.Context, f File) (*resource.DocumentResource, error) {
	doc, _, err := b.build(ctx, f)
	return doc, err
}

// build returns the document and the source file to keep with it: f with
// secrets removed, or nil when they cannot be removed from its bytes.
func (b *Builder) build(ctx context.Context, f File) (doc *resource.DocumentResource, source *File, err error) {
	ft := FileType(f.Name)
	ctx, span := tracer.Start(ctx, "ingest.build_resource", trace.WithAttributes(
		attribute.String("file", f.Name),
		attribute.Int("bytes", len(f.Data)),
	))
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		filesTotal.WithLabelValues(ft, result).Inc()
		span.End()
	}()

	source = &f
	if b.scrubber != nil && ft != "pdf" {
		res := b.scrubber.Scrub(string(f.Data))
		if res.Redacted() {
			source = &File{Name: f.Name, Data: []byte(res.Text), Description: f.Description, Distribution: f.Distribution}
			b.logFindings(f.Name, res.Findings)
		}
	}

	segs, err := Parse(source.Name, source.Data)
	if err != nil {
		return nil, nil, err
	}
	if b.scrubber != nil && ft == "pdf" {
		var findings []secrets.Finding
		for i := range segs {
			res := b.scrubber.Scrub(segs[i].Text)
			segs[i].Text = res.Text
			findings = append(findings, res.Findings...)
		}
		if len(findings) > 0 {
			// PDF bytes cannot be rewritten; drop them.
			source = nil
			b.logFindings(f.Name, findings)
		}
	}

	var (
		texts []string
		metas []resource.Metadata
	)
	for _, s := range segs {
		for _, c := range splitIntoChunks(s.Text, b.config.MaxChunkSize) {
			texts = append(texts, c)
			metas = append(metas, s.Metadata)
		}
	}
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", f.Name, ErrNoText)
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	name := strings.TrimSuffix(f.Name, "."+ft)
	desc := f.Description
	if desc == "" {
		desc = describe(texts)
	}
	doc = resource.NewDocumentResource(name, desc, resource.Source{Name: f.Name, FileType: ft}, b.provider.Model())
	for i, text := range texts {
		doc.AppendText(text, vectors[i], metas[i].Clone(), resource.MatchingTags(text, b.tags))
	}

	keywords := extractKeywords(segs, numKeywords)
	kw := resource.Keywords{List: keywords}
	if len(keywords) > 0 {
		v, err := b.provider.EmbedQuery(ctx, strings.Join(keywords, ", "))
		if err != nil {
			return nil, nil, fmt.Errorf("embedding keywords: %w", err)
		}
		kw.Embedding = &resource.Embedding{ID: "keywords", Vector: v}
	}
	doc.SetKeywords(kw)
	doc.SetDistributionInfo(f.Distribution)

	// The resource embedding stands for the whole file when the
	// filesystem ranks items, so it covers name, description and keywords.
	summary := strings.Join(append([]string{name, desc}, keywords...), " ")
	rv, err := b.provider.EmbedQuery(ctx, summary)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding resource summary: %w", err)
	}
	doc.SetResourceEmbedding(resource.Embedding{Vector: rv})
	if err := doc.UpdateMerkleRoot(); err != nil {
		return nil, nil, err
	}

	chunksPerFile.Observe(float64(len(texts)))
	span.SetAttributes(attribute.Int("nodes", len(texts)))
	b.logger.Debug("file ingested",
		zap.String("file", f.Name),
		zap.Int("nodes", len(texts)),
		zap.String("model", b.provider.Model()),
	)
	return doc, source, nil
}

// BuildVRKai ingests f and packages the resulting document together with
// the original file as its source.
func (b *Builder) BuildVRKai(ctx context.Context, f File) (*vrkai.VRKai, error) {
	doc, source, err := b.build(ctx, f)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return vrkai.New(doc, nil, b.counter), nil
	}
	sfm := resource.NewSourceFileMap()
	sfm.Insert(resource.Root(), resource.SourceFile{
		FileName:     source.Name,
		FileType:     FileType(source.Name),
		Data:         source.Data,
		Distribution: source.Distribution,
	})
	return vrkai.New(doc, sfm, b.counter), nil
}

func (b *Builder) logFindings(file string, findings []secrets.Finding) {
	rules := make([]string, len(findings))
	for i, f := range findings {
		rules[i] = f.RuleID
	}
	b.logger.Warn("secrets redacted from file",
		zap.String("file", file),
		zap.Int("count", len(findings)),
		zap.Strings("rules", rules),
	)
}

// embedAll embeds texts in batches, several batches at a time, preserving
// input order.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	for start := 0; start < len(texts); start += b.config.BatchSize {
		start := start
		end := min(start+b.config.BatchSize, len(texts))
		g.Go(func() error {
			vs, err := b.provider.EmbedDocuments(gCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(vs) != end-start {
				return fmt.Errorf("embedding chunks %d-%d: %w: got %d vectors", start, end-1, embeddings.ErrEmbeddingFailed, len(vs))
			}
			copy(out[start:end], vs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// describe joins leading chunks up to maxDescriptionSize bytes. The first
// chunk is always used, truncated when needed.
func describe(texts []string) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 && sb.Len()+len(t)+1 > maxDescriptionSize {
			break
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
	}
	desc := sb.String()
	if len(desc) > maxDescriptionSize {
		chunks := splitIntoChunks(desc, maxDescriptionSize)
		desc = chunks[0]
	}
	return desc
}
