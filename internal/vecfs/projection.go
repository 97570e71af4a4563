package vecfs

import (
	"time"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// Root is the top of a tenant's filesystem.
type Root struct {
	Tenant      string    `json:"tenant"`
	Folders     []*Folder `json:"child_folders"`
	MerkleHash  string    `json:"merkle_hash"`
	Created     time.Time `json:"created_datetime"`
	LastWritten time.Time `json:"last_written_datetime"`
}

// Folder holds child folders and items. LastModified tracks changes to the
// set of entries below it; LastWritten tracks any write below it.
type Folder struct {
	Path         resource.Path `json:"path"`
	Name         string        `json:"name"`
	Folders      []*Folder     `json:"child_folders"`
	Items        []*Item       `json:"child_items"`
	MerkleHash   string        `json:"merkle_hash"`
	Created      time.Time     `json:"created_datetime"`
	LastRead     time.Time     `json:"last_read_datetime"`
	LastModified time.Time     `json:"last_modified_datetime"`
	LastWritten  time.Time     `json:"last_written_datetime"`
}

// Item wraps the header of one stored resource. Its merkle hash is the
// resource's merkle root.
type Item struct {
	Path                   resource.Path   `json:"path"`
	Name                   string          `json:"name"`
	Header                 resource.Header `json:"vr_header"`
	ResourceSize           int             `json:"vr_size"`
	SourceFileMapSize      int             `json:"source_file_map_size"`
	SourceFileMapLastSaved *time.Time      `json:"source_file_map_last_saved_datetime,omitempty"`
	MerkleHash             string          `json:"merkle_hash"`
	Created                time.Time       `json:"created_datetime"`
	LastRead               time.Time       `json:"last_read_datetime"`
	LastWritten            time.Time       `json:"last_written_datetime"`
}

// HasSourceFileMap reports whether source files were saved with the item.
func (i *Item) HasSourceFileMap() bool {
	return i.SourceFileMapLastSaved != nil
}

// Items returns every item below the root, depth first in name order.
func (r *Root) Items() []*Item {
	var out []*Item
	stack := make([]*Folder, 0, len(r.Folders))
	for i := len(r.Folders) - 1; i >= 0; i-- {
		stack = append(stack, r.Folders[i])
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, f.Items...)
		for i := len(f.Folders) - 1; i >= 0; i-- {
			stack = append(stack, f.Folders[i])
		}
	}
	return out
}

func itemFromRecord(p resource.Path, rec *record) *Item {
	it := &Item{
		Path:                   p,
		Name:                   rec.Name,
		ResourceSize:           rec.ResourceSize,
		SourceFileMapSize:      rec.SourceFileMapSize,
		SourceFileMapLastSaved: rec.SourceFileMapLastSaved,
		MerkleHash:             rec.MerkleHash,
		Created:                rec.Created,
		LastRead:               rec.LastRead,
		LastWritten:            rec.LastWritten,
	}
	if rec.Header != nil {
		it.Header = *rec.Header
	}
	return it
}

func (sn *snapshot) folder(p resource.Path, rec *record) *Folder {
	f := &Folder{
		Path:         p,
		Name:         rec.Name,
		Folders:      []*Folder{},
		Items:        []*Item{},
		MerkleHash:   rec.MerkleHash,
		Created:      rec.Created,
		LastRead:     rec.LastRead,
		LastModified: rec.LastModified,
		LastWritten:  rec.LastWritten,
	}
	for _, cp := range sn.children(p) {
		child := sn.records[cp.Key()]
		switch child.Kind {
		case KindFolder:
			f.Folders = append(f.Folders, sn.folder(cp, child))
		case KindItem:
			f.Items = append(f.Items, itemFromRecord(cp, child))
		}
	}
	return f
}

// project builds the read-only tree from the snapshot's records.
func (sn *snapshot) project() *Root {
	r := &Root{Tenant: sn.tenant, Folders: []*Folder{}}
	if rec, ok := sn.get(resource.Root()); ok {
		r.MerkleHash = rec.MerkleHash
		r.Created = rec.Created
		r.LastWritten = rec.LastWritten
	} else {
		r.MerkleHash = sn.folderHash(resource.Root())
	}
	for _, cp := range sn.children(resource.Root()) {
		if rec := sn.records[cp.Key()]; rec.Kind == KindFolder {
			r.Folders = append(r.Folders, sn.folder(cp, rec))
		}
	}
	return r
}

// Folder finds the folder at p in the projection.
func (r *Root) Folder(p resource.Path) (*Folder, bool) {
	if p.IsRoot() {
		return nil, false
	}
	folders := r.Folders
	var found *Folder
	for _, seg := range p.Segments() {
		found = nil
		for _, f := range folders {
			if f.Path.Last() == seg {
				found = f
				break
			}
		}
		if found == nil {
			return nil, false
		}
		folders = found.Folders
	}
	return found, true
}

// Item finds the item at p in the projection.
func (r *Root) Item(p resource.Path) (*Item, bool) {
	parent, ok := r.Folder(p.Parent())
	if !ok {
		return nil, false
	}
	for _, it := range parent.Items {
		if it.Path.Last() == p.Last() {
			return it, true
		}
	}
	return nil, false
}
