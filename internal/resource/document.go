package resource

import (
	"fmt"
	"strconv"
)

// DocumentResource is an ordered resource. Node IDs are positions counted
// from "1" and stay dense: removing a node renumbers the ones after it.
type DocumentResource struct {
	*core
}

// NewDocumentResource creates an empty document with a fresh resource ID.
func NewDocumentResource(name, description string, source Source, model string) *DocumentResource {
	return &DocumentResource{core: newCore(BaseTypeDocument, name, description, source, model)}
}

// AppendNode adds node at the end and returns its assigned ID.
func (d *DocumentResource) AppendNode(node Node, embedding Embedding) string {
	id := strconv.Itoa(len(d.nodes) + 1)
	d.put(id, node, embedding)
	return id
}

// AppendText is AppendNode for a text chunk.
func (d *DocumentResource) AppendText(text string, vector []float32, metadata Metadata, tags []string) string {
	return d.AppendNode(NewTextNode(text, metadata, tags), Embedding{Vector: vector})
}

// InsertNode replaces the node at an existing ID, or appends when id is
// empty or the next free position.
func (d *DocumentResource) InsertNode(id string, node Node, embedding Embedding) error {
	next := strconv.Itoa(len(d.nodes) + 1)
	if id == "" || id == next {
		d.put(next, node, embedding)
		return nil
	}
	if _, ok := d.positions[id]; !ok {
		return fmt.Errorf("%w: %q is not an existing position or %s", ErrInvalidNodeID, id, next)
	}
	d.put(id, node, embedding)
	return nil
}

// RemoveNode removes the node at id and shifts later nodes down by one.
func (d *DocumentResource) RemoveNode(id string) (Node, Embedding, error) {
	i, ok := d.positions[id]
	if !ok {
		return Node{}, Embedding{}, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, d.name)
	}
	node, emb := d.removeAt(i)
	for j := i; j < len(d.nodes); j++ {
		newID := strconv.Itoa(j + 1)
		d.nodes[j].ID = newID
		d.embeddings[j].ID = newID
	}
	d.reindex()
	return node, emb, nil
}

// ProximityWindow returns the nodes within window positions of id, in
// order, including the node at id itself.
func (d *DocumentResource) ProximityWindow(id string, window int) ([]Node, error) {
	i, ok := d.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, d.name)
	}
	start := max(0, i-window)
	end := min(len(d.nodes), i+window+1)
	out := make([]Node, end-start)
	copy(out, d.nodes[start:end])
	return out, nil
}

// AppendResource nests res as the next node.
func (d *DocumentResource) AppendResource(res Resource, metadata Metadata) string {
	return d.AppendNode(NewResourceNode(res, metadata), res.ResourceEmbedding())
}
