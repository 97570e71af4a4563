// Package resource defines vector resources: named containers of nodes where
// every node carries its own embedding and may itself nest a resource.
package resource

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNodeNotFound is returned when no node exists for an ID or path.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNodeID is returned when an ID cannot be used for insertion.
	ErrInvalidNodeID = errors.New("invalid node id")

	// ErrNotAResource is returned when a path traverses a non-resource node.
	ErrNotAResource = errors.New("node does not hold a resource")
)

// Resource is the capability set shared by every resource variant.
//
// Nodes and Embeddings are returned in native order: append order for
// documents, insertion order for maps. Traversal tie-breaks rely on it.
type Resource interface {
	Name() string
	Description() string
	ResourceID() string
	BaseType() BaseType
	ResourceEmbedding() Embedding
	SetResourceEmbedding(Embedding)
	EmbeddingModelUsed() string
	SetEmbeddingModelUsed(string)
	Source() Source
	Keywords() Keywords
	SetKeywords(Keywords)
	DistributionInfo() DistributionInfo
	SetDistributionInfo(DistributionInfo)
	Created() time.Time
	LastWritten() time.Time
	SetLastWritten(time.Time)

	MerkleRoot() string
	UpdateMerkleRoot() error

	DataTagIndex() *DataTagIndex
	MetadataIndex() *MetadataIndex

	Len() int
	Nodes() []Node
	Embeddings() []Embedding
	NodeByID(id string) (Node, error)
	EmbeddingByID(id string) (Embedding, error)
	InsertNode(id string, node Node, embedding Embedding) error
	RemoveNode(id string) (Node, Embedding, error)

	Header() Header
}

// core holds the state and behavior shared by both variants. Nodes and
// embeddings are parallel slices; positions indexes them by node ID.
type core struct {
	baseType     BaseType
	name         string
	description  string
	id           string
	embedding    Embedding
	model        string
	source       Source
	keywords     Keywords
	distribution DistributionInfo
	created      time.Time
	lastWritten  time.Time
	merkleRoot   string

	nodes      []Node
	embeddings []Embedding
	positions  map[string]int
	tags       *DataTagIndex
	meta       *MetadataIndex
}

func newCore(bt BaseType, name, description string, source Source, model string) *core {
	ts := now()
	id := uuid.New().String()
	return &core{
		baseType:    bt,
		name:        name,
		description: description,
		id:          id,
		embedding:   Embedding{ID: id},
		model:       model,
		source:      source,
		created:     ts,
		lastWritten: ts,
		positions:   make(map[string]int),
		tags:        newDataTagIndex(),
		meta:        newMetadataIndex(),
	}
}

func (c *core) Name() string                   { return c.name }
func (c *core) Description() string            { return c.description }
func (c *core) ResourceID() string             { return c.id }
func (c *core) BaseType() BaseType             { return c.baseType }
func (c *core) ResourceEmbedding() Embedding   { return c.embedding }
func (c *core) EmbeddingModelUsed() string     { return c.model }
func (c *core) SetEmbeddingModelUsed(m string) { c.model = m }
func (c *core) Source() Source                 { return c.source }
func (c *core) Keywords() Keywords             { return c.keywords }
func (c *core) SetKeywords(k Keywords)         { c.keywords = k }
func (c *core) DistributionInfo() DistributionInfo {
	return c.distribution
}
func (c *core) SetDistributionInfo(d DistributionInfo) { c.distribution = d }
func (c *core) Created() time.Time                     { return c.created }
func (c *core) LastWritten() time.Time                 { return c.lastWritten }
func (c *core) SetLastWritten(t time.Time)             { c.lastWritten = t }
func (c *core) MerkleRoot() string                     { return c.merkleRoot }
func (c *core) DataTagIndex() *DataTagIndex            { return c.tags }
func (c *core) MetadataIndex() *MetadataIndex          { return c.meta }
func (c *core) Len() int                               { return len(c.nodes) }

// SetResourceEmbedding replaces the embedding describing the whole resource.
func (c *core) SetResourceEmbedding(e Embedding) {
	e.ID = c.id
	c.embedding = e
}

// Nodes returns a copy of the node list in native order.
func (c *core) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Embeddings returns a copy of the embedding list in native order.
func (c *core) Embeddings() []Embedding {
	out := make([]Embedding, len(c.embeddings))
	copy(out, c.embeddings)
	return out
}

func (c *core) NodeByID(id string) (Node, error) {
	i, ok := c.positions[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, c.name)
	}
	return c.nodes[i], nil
}

func (c *core) EmbeddingByID(id string) (Embedding, error) {
	i, ok := c.positions[id]
	if !ok {
		return Embedding{}, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, c.name)
	}
	return c.embeddings[i], nil
}

// Header describes the resource. The resource embedding is included when
// one has been set.
func (c *core) Header() Header {
	h := Header{
		Name:               c.name,
		ID:                 c.id,
		BaseType:           c.baseType,
		Source:             c.source,
		Created:            c.created,
		LastWritten:        c.lastWritten,
		EmbeddingModelUsed: c.model,
		MerkleRoot:         c.merkleRoot,
		Keywords:           c.keywords,
		DistributionInfo:   c.distribution,
		DataTagNames:       c.tags.Names(),
		MetadataIndexKeys:  c.meta.Keys(),
	}
	if !c.embedding.IsEmpty() {
		e := c.embedding
		h.Embedding = &e
	}
	return h
}

// put writes node at id, replacing in place when id already exists and
// appending otherwise.
func (c *core) put(id string, node Node, embedding Embedding) {
	node.ID = id
	embedding.ID = id
	if node.LastWritten.IsZero() {
		node.LastWritten = now()
	}
	if i, ok := c.positions[id]; ok {
		c.tags.remove(id)
		c.meta.remove(id)
		c.nodes[i] = node
		c.embeddings[i] = embedding
	} else {
		c.positions[id] = len(c.nodes)
		c.nodes = append(c.nodes, node)
		c.embeddings = append(c.embeddings, embedding)
	}
	c.tags.add(node)
	c.meta.add(node)
	c.lastWritten = now()
}

func (c *core) removeAt(i int) (Node, Embedding) {
	node, emb := c.nodes[i], c.embeddings[i]
	c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
	c.embeddings = append(c.embeddings[:i], c.embeddings[i+1:]...)
	c.lastWritten = now()
	return node, emb
}

// reindex rebuilds positions and both indexes from the node list.
func (c *core) reindex() {
	c.positions = make(map[string]int, len(c.nodes))
	c.tags = newDataTagIndex()
	c.meta = newMetadataIndex()
	for i, n := range c.nodes {
		c.positions[n.ID] = i
		c.tags.add(n)
		c.meta.add(n)
	}
}
