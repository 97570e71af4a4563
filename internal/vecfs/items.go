package vecfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

// SaveResource stores res as an item under parent, named after the
// resource. An existing item of the same name is overwritten and keeps its
// creation time. A nil sfm removes any source files saved previously.
func (s *Service) SaveResource(ctx context.Context, tenant string, parent resource.Path, res resource.Resource, sfm *resource.SourceFileMap) (it *Item, err error) {
	ctx, done := s.begin(ctx, "save_resource", tenant, parent)
	defer done(&err)
	defer s.locks.write(tenant)()

	if parent.IsRoot() {
		return nil, fmt.Errorf("items cannot be stored at the root: %w", ErrInvalidPathType)
	}
	id := resource.CleanSegment(res.Name())
	if id == "" {
		return nil, fmt.Errorf("%w: resource has no name", resource.ErrInvalidPath)
	}

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if _, err := snap.requireFolder(parent); err != nil {
		return nil, err
	}
	p := parent.Push(id)
	existing, exists := snap.get(p)
	if exists && existing.Kind != KindItem {
		return nil, fmt.Errorf("%s is a %s: %w", p, existing.Kind, ErrInvalidPathType)
	}

	if err := res.UpdateMerkleRoot(); err != nil {
		return nil, err
	}
	data, err := resource.MarshalResource(res)
	if err != nil {
		return nil, fmt.Errorf("encoding resource %s: %w", p, err)
	}

	ts := s.now()
	header := res.Header()
	rec := &record{
		Kind:         KindItem,
		Name:         res.Name(),
		MerkleHash:   res.MerkleRoot(),
		Created:      ts,
		LastWritten:  ts,
		Header:       &header,
		ResourceSize: len(data),
	}
	if exists {
		rec.Created = existing.Created
		rec.LastRead = existing.LastRead
	}

	b := s.store.NewBatch(tenant)
	b.Put(kvstore.TopicResources, p.Key(), data)
	switch {
	case sfm != nil:
		sfmData, err := json.Marshal(sfm)
		if err != nil {
			return nil, fmt.Errorf("encoding source files %s: %w", p, err)
		}
		b.Put(kvstore.TopicSourceFiles, p.Key(), sfmData)
		saved := ts
		rec.SourceFileMapSize = sfm.Size()
		rec.SourceFileMapLastSaved = &saved
	case exists:
		b.Delete(kvstore.TopicSourceFiles, p.Key())
	}

	snap.put(p, rec)
	snap.propagate(p, ts, !exists)
	s.logWrite(b, p, "save", ts)
	if err := s.commit(ctx, snap, b); err != nil {
		return nil, err
	}

	s.logger.Debug("resource saved",
		zap.String("tenant", tenant),
		zap.Stringer("path", p),
		zap.String("merkle_hash", rec.MerkleHash),
		zap.Bool("overwrite", exists),
	)
	return itemFromRecord(p, rec), nil
}

// SaveVRKai stores the resource and source files carried by v.
func (s *Service) SaveVRKai(ctx context.Context, tenant string, parent resource.Path, v *vrkai.VRKai) (*Item, error) {
	if v.Resource.Resource == nil {
		return nil, fmt.Errorf("%w: vrkai has no resource", vrkai.ErrCodec)
	}
	return s.SaveResource(ctx, tenant, parent, v.Resource.Resource, v.SourceFileMap)
}

// RetrieveResource loads the resource stored at p and records the read.
func (s *Service) RetrieveResource(ctx context.Context, tenant string, p resource.Path) (res resource.Resource, err error) {
	ctx, done := s.begin(ctx, "retrieve_resource", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if _, err := snap.requireItem(p); err != nil {
		return nil, err
	}
	res, err = s.readResource(ctx, tenant, p)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, snap, p); err != nil {
		return nil, err
	}
	return res, nil
}

// RetrieveSourceFileMap loads the source files saved with the item at p.
func (s *Service) RetrieveSourceFileMap(ctx context.Context, tenant string, p resource.Path) (sfm *resource.SourceFileMap, err error) {
	ctx, done := s.begin(ctx, "retrieve_source_files", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if _, err := snap.requireItem(p); err != nil {
		return nil, err
	}
	sfm, err = s.readSourceFileMap(ctx, tenant, p)
	if err != nil {
		return nil, err
	}
	if sfm == nil {
		return nil, fmt.Errorf("%s has no source files: %w", p, ErrPathNotFound)
	}
	if err := s.markRead(ctx, snap, p); err != nil {
		return nil, err
	}
	return sfm, nil
}

// ExportVRKai wraps the item at p, with its source files when present, as
// a VRKai ready for encoding.
func (s *Service) ExportVRKai(ctx context.Context, tenant string, p resource.Path) (v *vrkai.VRKai, err error) {
	ctx, done := s.begin(ctx, "export_vrkai", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if _, err := snap.requireItem(p); err != nil {
		return nil, err
	}
	res, err := s.readResource(ctx, tenant, p)
	if err != nil {
		return nil, err
	}
	sfm, err := s.readSourceFileMap(ctx, tenant, p)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, snap, p); err != nil {
		return nil, err
	}
	return vrkai.New(res, sfm, s.counter), nil
}

// DeleteItem removes the item at p with its resource and source files.
func (s *Service) DeleteItem(ctx context.Context, tenant string, p resource.Path) (err error) {
	ctx, done := s.begin(ctx, "delete_item", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	snap, err := s.load(ctx, tenant)
	if err != nil {
		return err
	}
	if _, err := snap.requireItem(p); err != nil {
		return err
	}

	ts := s.now()
	b := s.store.NewBatch(tenant)
	deleteItemData(b, p)
	snap.remove(p)
	snap.propagate(p, ts, true)
	s.logWrite(b, p, "delete", ts)
	return s.commit(ctx, snap, b)
}

// DeleteFolder removes the folder at p and everything below it.
func (s *Service) DeleteFolder(ctx context.Context, tenant string, p resource.Path) (err error) {
	ctx, done := s.begin(ctx, "delete_folder", tenant, p)
	defer done(&err)
	defer s.locks.write(tenant)()

	if p.IsRoot() {
		return fmt.Errorf("the root cannot be deleted: %w", ErrInvalidPathType)
	}
	snap, err := s.load(ctx, tenant)
	if err != nil {
		return err
	}
	if _, err := snap.requireFolder(p); err != nil {
		return err
	}

	ts := s.now()
	b := s.store.NewBatch(tenant)
	for _, dp := range snap.descendants(p) {
		if rec, _ := snap.get(dp); rec.Kind == KindItem {
			deleteItemData(b, dp)
		}
		snap.remove(dp)
	}
	snap.remove(p)
	snap.propagate(p, ts, true)
	s.logWrite(b, p, "delete", ts)
	return s.commit(ctx, snap, b)
}

// MoveItem moves the item at from into the folder toParent, keeping its
// name, and returns the new path.
func (s *Service) MoveItem(ctx context.Context, tenant string, from, toParent resource.Path) (resource.Path, error) {
	return s.relocate(ctx, "move_item", tenant, from, toParent, true)
}

// CopyItem copies the item at from into the folder toParent and returns
// the path of the copy.
func (s *Service) CopyItem(ctx context.Context, tenant string, from, toParent resource.Path) (resource.Path, error) {
	return s.relocate(ctx, "copy_item", tenant, from, toParent, false)
}

func (s *Service) relocate(ctx context.Context, op, tenant string, from, toParent resource.Path, move bool) (dest resource.Path, err error) {
	ctx, done := s.begin(ctx, op, tenant, from)
	defer done(&err)
	defer s.locks.write(tenant)()

	if toParent.IsRoot() {
		return resource.Path{}, fmt.Errorf("items cannot be stored at the root: %w", ErrInvalidPathType)
	}
	snap, err := s.load(ctx, tenant)
	if err != nil {
		return resource.Path{}, err
	}
	src, err := snap.requireItem(from)
	if err != nil {
		return resource.Path{}, err
	}
	if _, err := snap.requireFolder(toParent); err != nil {
		return resource.Path{}, err
	}
	dest = toParent.Push(from.Last())
	if _, ok := snap.get(dest); ok {
		return resource.Path{}, fmt.Errorf("%s: %w", dest, ErrPathExists)
	}

	data, err := s.store.Get(ctx, kvstore.TopicResources, tenant, from.Key())
	if err != nil {
		return resource.Path{}, notFound(from, err)
	}
	sfmData, err := s.store.Get(ctx, kvstore.TopicSourceFiles, tenant, from.Key())
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return resource.Path{}, err
	}

	ts := s.now()
	rec := *src
	rec.LastWritten = ts
	if !move {
		rec.Created = ts
		rec.LastRead = time.Time{}
	}

	b := s.store.NewBatch(tenant)
	b.Put(kvstore.TopicResources, dest.Key(), data)
	if sfmData != nil {
		b.Put(kvstore.TopicSourceFiles, dest.Key(), sfmData)
	}
	snap.put(dest, &rec)
	if move {
		deleteItemData(b, from)
		snap.remove(from)
		snap.propagate(from, ts, true)
		s.logWrite(b, from, op, ts)
	}
	snap.propagate(dest, ts, true)
	s.logWrite(b, dest, op, ts)
	if err := s.commit(ctx, snap, b); err != nil {
		return resource.Path{}, err
	}
	return dest, nil
}

func deleteItemData(b *kvstore.Batch, p resource.Path) {
	b.Delete(kvstore.TopicResources, p.Key())
	b.Delete(kvstore.TopicSourceFiles, p.Key())
}

func notFound(p resource.Path, err error) error {
	if errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("%s: %w", p, ErrPathNotFound)
	}
	return err
}

func (s *Service) readResource(ctx context.Context, tenant string, p resource.Path) (resource.Resource, error) {
	data, err := s.store.Get(ctx, kvstore.TopicResources, tenant, p.Key())
	if err != nil {
		return nil, notFound(p, err)
	}
	res, err := resource.UnmarshalResource(data)
	if err != nil {
		return nil, fmt.Errorf("decoding resource %s: %w", p, err)
	}
	return res, nil
}

// readSourceFileMap returns nil without error when the item has none.
func (s *Service) readSourceFileMap(ctx context.Context, tenant string, p resource.Path) (*resource.SourceFileMap, error) {
	data, err := s.store.Get(ctx, kvstore.TopicSourceFiles, tenant, p.Key())
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sfm := resource.NewSourceFileMap()
	if err := json.Unmarshal(data, sfm); err != nil {
		return nil, fmt.Errorf("decoding source files %s: %w", p, err)
	}
	return sfm, nil
}

// markRead advances last-read along p and appends a read log entry.
func (s *Service) markRead(ctx context.Context, snap *snapshot, p resource.Path) error {
	ts := s.now()
	snap.touchRead(p, ts)
	b := s.store.NewBatch(snap.tenant)
	s.logRead(b, p, ts)
	return s.commit(ctx, snap, b)
}
