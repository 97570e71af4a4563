package resource

import "sort"

// DataTagIndex maps tag names to the IDs of the nodes carrying them, in
// insertion order. It indexes a single resource level only.
type DataTagIndex struct {
	index map[string][]string
}

func newDataTagIndex() *DataTagIndex {
	return &DataTagIndex{index: make(map[string][]string)}
}

func (d *DataTagIndex) add(n Node) {
	for _, tag := range n.DataTagNames {
		d.index[tag] = append(d.index[tag], n.ID)
	}
}

func (d *DataTagIndex) remove(id string) {
	for tag, ids := range d.index {
		ids = removeID(ids, id)
		if len(ids) == 0 {
			delete(d.index, tag)
			continue
		}
		d.index[tag] = ids
	}
}

// Names returns every indexed tag, sorted.
func (d *DataTagIndex) Names() []string {
	return sortedKeys(d.index)
}

// NodeIDs returns the IDs of nodes carrying any of tags, de-duplicated.
func (d *DataTagIndex) NodeIDs(tags []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tag := range tags {
		for _, id := range d.index[tag] {
			out[id] = struct{}{}
		}
	}
	return out
}

// MetadataIndex maps metadata keys to the IDs of the nodes carrying them.
type MetadataIndex struct {
	index map[string][]string
}

func newMetadataIndex() *MetadataIndex {
	return &MetadataIndex{index: make(map[string][]string)}
}

func (m *MetadataIndex) add(n Node) {
	for key := range n.Metadata {
		m.index[key] = append(m.index[key], n.ID)
	}
}

func (m *MetadataIndex) remove(id string) {
	for key, ids := range m.index {
		ids = removeID(ids, id)
		if len(ids) == 0 {
			delete(m.index, key)
			continue
		}
		m.index[key] = ids
	}
}

// Keys returns every indexed metadata key, sorted.
func (m *MetadataIndex) Keys() []string {
	return sortedKeys(m.index)
}

// NodeIDs returns the IDs of nodes that have key.
func (m *MetadataIndex) NodeIDs(key string) []string {
	ids := m.index[key]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
