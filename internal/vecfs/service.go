// Package vecfs is the tenant filesystem over stored vector resources.
//
// Every folder and item is one record in the kvstore filesystem topic, keyed
// by its path. Resources and source file maps live in their own topics under
// the same key. A mutating operation loads the tenant's records, stages the
// change in memory together with the recomputed hashes and timestamps of
// every ancestor, and commits everything in a single batch. Operations on
// one tenant are serialized by a per-tenant lock held by the Service, so a
// store must be shared through a single Service.
package vecfs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/vecfs/internal/vecfs")

// Service exposes filesystem operations for any tenant of one store.
type Service struct {
	store   *kvstore.Store
	logger  *zap.Logger
	counter *resource.TokenCounter
	now     func() time.Time
	locks   tenantLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenCounter sets the counter used when exporting VRKai.
func WithTokenCounter(c *resource.TokenCounter) Option {
	return func(s *Service) { s.counter = c }
}

// NewService creates a Service over store.
func NewService(store *kvstore.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.counter == nil {
		s.counter = resource.DefaultTokenCounter()
	}
	return s
}

// begin starts a span and returns the func that ends it and records
// metrics for the operation's final error.
func (s *Service) begin(ctx context.Context, op, tenant string, p resource.Path) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "vecfs."+op, trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.String("path", p.String()),
	))
	return ctx, func(errp *error) {
		err := *errp
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observe(op, start, err)
	}
}

func (s *Service) commit(ctx context.Context, snap *snapshot, b *kvstore.Batch) error {
	if err := snap.stage(b); err != nil {
		return err
	}
	if err := s.store.Commit(ctx, b); err != nil {
		s.logger.Warn("filesystem commit failed",
			zap.String("tenant", snap.tenant),
			zap.Int("ops", b.Len()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Tree returns the tenant's filesystem projection. A tenant that has never
// written anything has an empty root.
func (s *Service) Tree(ctx context.Context, tenant string) (root *Root, err error) {
	ctx, done := s.begin(ctx, "tree", tenant, resource.Root())
	defer done(&err)
	defer s.locks.read(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return snap.project(), nil
}

// Item returns the projection of the item at p.
func (s *Service) Item(ctx context.Context, tenant string, p resource.Path) (it *Item, err error) {
	ctx, done := s.begin(ctx, "item", tenant, p)
	defer done(&err)
	defer s.locks.read(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	rec, err := snap.requireItem(p)
	if err != nil {
		return nil, err
	}
	return itemFromRecord(p, rec), nil
}

// CreateFolder creates the folder name under parent and returns its path.
func (s *Service) CreateFolder(ctx context.Context, tenant string, parent resource.Path, name string) (p resource.Path, err error) {
	ctx, done := s.begin(ctx, "create_folder", tenant, parent)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return resource.Path{}, err
	}
	ts := s.now()
	p, err = snap.createFolder(parent, name, ts)
	if err != nil {
		return resource.Path{}, err
	}

	b := s.store.NewBatch(tenant)
	s.logWrite(b, p, "create_folder", ts)
	if err := s.commit(ctx, snap, b); err != nil {
		return resource.Path{}, err
	}
	s.logger.Debug("folder created", zap.String("tenant", tenant), zap.Stringer("path", p))
	return p, nil
}

// MkdirAll creates every missing folder along p. Existing folders are left
// untouched; an item anywhere along p is an error.
func (s *Service) MkdirAll(ctx context.Context, tenant string, p resource.Path) (err error) {
	ctx, done := s.begin(ctx, "mkdir_all", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return err
	}
	ts := s.now()
	b := s.store.NewBatch(tenant)
	cur := resource.Root()
	for _, seg := range p.Segments() {
		next := cur.Push(seg)
		rec, ok := snap.get(next)
		switch {
		case !ok:
			if _, err := snap.createFolder(cur, seg, ts); err != nil {
				return err
			}
			s.logWrite(b, next, "create_folder", ts)
		case rec.Kind != KindFolder:
			return fmt.Errorf("%s is a %s: %w", next, rec.Kind, ErrInvalidPathType)
		}
		cur = next
	}
	if len(snap.dirty) == 0 {
		return nil
	}
	return s.commit(ctx, snap, b)
}

func (sn *snapshot) createFolder(parent resource.Path, name string, ts time.Time) (resource.Path, error) {
	if _, err := sn.requireFolder(parent); err != nil {
		return resource.Path{}, err
	}
	id := resource.CleanSegment(name)
	if id == "" {
		return resource.Path{}, fmt.Errorf("%w: empty folder name", resource.ErrInvalidPath)
	}
	p := parent.Push(id)
	if _, ok := sn.get(p); ok {
		return resource.Path{}, fmt.Errorf("%s: %w", p, ErrPathExists)
	}
	rec := &record{
		Kind:         KindFolder,
		Name:         name,
		Created:      ts,
		LastModified: ts,
		LastWritten:  ts,
	}
	sn.put(p, rec)
	rec.MerkleHash = sn.folderHash(p)
	sn.propagate(p, ts, true)
	return p, nil
}
