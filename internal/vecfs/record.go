package vecfs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// Kind is the type of a filesystem entry.
type Kind string

const (
	KindRoot   Kind = "root"
	KindFolder Kind = "folder"
	KindItem   Kind = "item"
)

// record is the persisted form of one entry in the filesystem topic, keyed
// by the entry's path key. The root lives at the empty key.
type record struct {
	Kind         Kind      `json:"kind"`
	Name         string    `json:"name"`
	MerkleHash   string    `json:"merkle_hash"`
	Created      time.Time `json:"created_datetime"`
	LastRead     time.Time `json:"last_read_datetime"`
	LastModified time.Time `json:"last_modified_datetime"`
	LastWritten  time.Time `json:"last_written_datetime"`

	// Item only.
	Header                 *resource.Header `json:"header,omitempty"`
	ResourceSize           int              `json:"vr_size,omitempty"`
	SourceFileMapSize      int              `json:"source_file_map_size,omitempty"`
	SourceFileMapLastSaved *time.Time       `json:"source_file_map_last_saved_datetime,omitempty"`
}

// snapshot is one tenant's filesystem loaded for a single operation.
// Mutations are staged in memory and flushed in one batch.
type snapshot struct {
	tenant  string
	records map[string]*record
	dirty   map[string]struct{}
	removed map[string]struct{}
}

func pathFromKey(key string) resource.Path {
	if key == "" {
		return resource.Root()
	}
	return resource.NewPath(strings.Split(key, "/")...)
}

func (s *Service) load(ctx context.Context, tenant string) (*snapshot, error) {
	kvs, err := s.store.List(ctx, kvstore.TopicFilesystem, tenant, "")
	if err != nil {
		return nil, err
	}
	snap := &snapshot{
		tenant:  tenant,
		records: make(map[string]*record, len(kvs)),
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
	for _, kv := range kvs {
		var rec record
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			return nil, fmt.Errorf("decoding filesystem record %q: %w", kv.Key, err)
		}
		snap.records[kv.Key] = &rec
	}
	return snap, nil
}

func (sn *snapshot) get(p resource.Path) (*record, bool) {
	rec, ok := sn.records[p.Key()]
	return rec, ok
}

// root returns the root record, creating it on first use.
func (sn *snapshot) root(ts time.Time) *record {
	if rec, ok := sn.records[""]; ok {
		return rec
	}
	rec := &record{Kind: KindRoot, Created: ts, LastWritten: ts}
	sn.put(resource.Root(), rec)
	return rec
}

func (sn *snapshot) put(p resource.Path, rec *record) {
	key := p.Key()
	sn.records[key] = rec
	sn.dirty[key] = struct{}{}
	delete(sn.removed, key)
}

func (sn *snapshot) remove(p resource.Path) {
	key := p.Key()
	delete(sn.records, key)
	delete(sn.dirty, key)
	sn.removed[key] = struct{}{}
}

func (sn *snapshot) markDirty(p resource.Path) {
	sn.dirty[p.Key()] = struct{}{}
}

// children returns the direct children of p, sorted by name.
func (sn *snapshot) children(p resource.Path) []resource.Path {
	var out []resource.Path
	for key := range sn.records {
		if key == "" {
			continue
		}
		cp := pathFromKey(key)
		if cp.Parent().Equal(p) {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Last() < out[j].Last() })
	return out
}

// descendants returns every path strictly below p, deepest first.
func (sn *snapshot) descendants(p resource.Path) []resource.Path {
	var out []resource.Path
	for key := range sn.records {
		if key == "" {
			continue
		}
		cp := pathFromKey(key)
		if p.IsAncestorOf(cp) {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth() != out[j].Depth() {
			return out[i].Depth() > out[j].Depth()
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// requireFolder resolves p to a folder or the root.
func (sn *snapshot) requireFolder(p resource.Path) (*record, error) {
	if p.IsRoot() {
		rec, ok := sn.get(p)
		if !ok {
			return &record{Kind: KindRoot}, nil
		}
		return rec, nil
	}
	rec, ok := sn.get(p)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrPathNotFound)
	}
	if rec.Kind != KindFolder {
		return nil, fmt.Errorf("%s is a %s, not a folder: %w", p, rec.Kind, ErrInvalidPathType)
	}
	return rec, nil
}

// requireItem resolves p to an item.
func (sn *snapshot) requireItem(p resource.Path) (*record, error) {
	rec, ok := sn.get(p)
	if !ok || p.IsRoot() {
		return nil, fmt.Errorf("%s: %w", p, ErrPathNotFound)
	}
	if rec.Kind != KindItem {
		return nil, fmt.Errorf("%s is a %s, not an item: %w", p, rec.Kind, ErrInvalidPathType)
	}
	return rec, nil
}

// folderHash hashes the sorted "name:hash" lines of a folder's children.
// Timestamps and metadata do not participate.
func (sn *snapshot) folderHash(p resource.Path) string {
	var b strings.Builder
	for _, cp := range sn.children(p) {
		b.WriteString(cp.Last())
		b.WriteByte(':')
		b.WriteString(sn.records[cp.Key()].MerkleHash)
		b.WriteByte('\n')
	}
	return resource.HashHex([]byte(b.String()))
}

// propagate recomputes hashes and bumps timestamps on every folder from
// p's parent up to the root. structural marks a change to the set of
// entries, which also advances last-modified.
func (sn *snapshot) propagate(p resource.Path, ts time.Time, structural bool) {
	sn.root(ts)
	cur := p
	for !cur.IsRoot() {
		cur = cur.Parent()
		rec, ok := sn.get(cur)
		if !ok {
			continue
		}
		rec.MerkleHash = sn.folderHash(cur)
		rec.LastWritten = ts
		if structural {
			rec.LastModified = ts
		}
		sn.markDirty(cur)
	}
}

// touchRead advances last-read on p and every folder above it.
func (sn *snapshot) touchRead(p resource.Path, ts time.Time) {
	for cur := p; ; cur = cur.Parent() {
		if rec, ok := sn.get(cur); ok {
			rec.LastRead = ts
			sn.markDirty(cur)
		}
		if cur.IsRoot() {
			return
		}
	}
}

// stage queues every staged record change into b.
func (sn *snapshot) stage(b *kvstore.Batch) error {
	keys := make([]string, 0, len(sn.dirty))
	for key := range sn.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		data, err := json.Marshal(sn.records[key])
		if err != nil {
			return fmt.Errorf("encoding filesystem record %q: %w", key, err)
		}
		b.Put(kvstore.TopicFilesystem, key, data)
	}
	removed := make([]string, 0, len(sn.removed))
	for key := range sn.removed {
		removed = append(removed, key)
	}
	sort.Strings(removed)
	for _, key := range removed {
		b.Delete(kvstore.TopicFilesystem, key)
	}
	return nil
}
