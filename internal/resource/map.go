package resource

import "fmt"

// MapResource is keyed by caller-chosen IDs and iterates in insertion
// order. Replacing an existing key keeps its original position.
type MapResource struct {
	*core
}

// NewMapResource creates an empty map resource with a fresh resource ID.
func NewMapResource(name, description string, source Source, model string) *MapResource {
	return &MapResource{core: newCore(BaseTypeMap, name, description, source, model)}
}

// InsertNode stores node under id, replacing any node already there.
func (m *MapResource) InsertNode(id string, node Node, embedding Embedding) error {
	if id == "" {
		return fmt.Errorf("%w: map keys must be non-empty", ErrInvalidNodeID)
	}
	m.put(id, node, embedding)
	return nil
}

// InsertText is InsertNode for a text value.
func (m *MapResource) InsertText(id, text string, vector []float32, metadata Metadata, tags []string) error {
	return m.InsertNode(id, NewTextNode(text, metadata, tags), Embedding{Vector: vector})
}

// InsertResource nests res under id.
func (m *MapResource) InsertResource(id string, res Resource, metadata Metadata) error {
	return m.InsertNode(id, NewResourceNode(res, metadata), res.ResourceEmbedding())
}

// RemoveNode deletes the node at id.
func (m *MapResource) RemoveNode(id string) (Node, Embedding, error) {
	i, ok := m.positions[id]
	if !ok {
		return Node{}, Embedding{}, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, m.name)
	}
	node, emb := m.removeAt(i)
	m.reindex()
	return node, emb, nil
}
