package resource

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentKind tags the variant held by a Node.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentResource ContentKind = "resource"
	ContentExternal ContentKind = "external"
	ContentHeader   ContentKind = "header"
)

// NodeContent is the closed set of things a Node can hold.
type NodeContent interface {
	Kind() ContentKind
	isNodeContent()
}

// TextContent is a chunk of raw text.
type TextContent struct {
	Text string `json:"text"`
}

// ResourceContent nests a whole resource.
type ResourceContent struct {
	Resource Resource
}

// ExternalContent points at content stored outside the tree.
type ExternalContent struct {
	Source Source `json:"source"`
}

// HeaderContent references another resource by its header only.
type HeaderContent struct {
	Header Header `json:"header"`
}

func (TextContent) Kind() ContentKind     { return ContentText }
func (ResourceContent) Kind() ContentKind { return ContentResource }
func (ExternalContent) Kind() ContentKind { return ContentExternal }
func (HeaderContent) Kind() ContentKind   { return ContentHeader }

func (TextContent) isNodeContent()     {}
func (ResourceContent) isNodeContent() {}
func (ExternalContent) isNodeContent() {}
func (HeaderContent) isNodeContent()   {}

// Node is the smallest addressable unit of a resource.
type Node struct {
	ID           string
	Content      NodeContent
	Metadata     Metadata
	DataTagNames []string
	LastWritten  time.Time
	MerkleHash   string
}

// NewTextNode builds an unattached text node. The ID is assigned on insert.
func NewTextNode(text string, metadata Metadata, tags []string) Node {
	return Node{
		Content:      TextContent{Text: text},
		Metadata:     metadata,
		DataTagNames: tags,
		LastWritten:  now(),
	}
}

// NewResourceNode wraps res as a node. Its tag names are the union of every
// tag used inside res so syntactic prefilters can reach nested content.
func NewResourceNode(res Resource, metadata Metadata) Node {
	return Node{
		Content:      ResourceContent{Resource: res},
		Metadata:     metadata,
		DataTagNames: res.DataTagIndex().Names(),
		LastWritten:  now(),
	}
}

// NewExternalNode builds a node pointing at external content.
func NewExternalNode(src Source, metadata Metadata) Node {
	return Node{
		Content:     ExternalContent{Source: src},
		Metadata:    metadata,
		LastWritten: now(),
	}
}

// NewHeaderNode builds a node referencing another resource.
func NewHeaderNode(h Header, metadata Metadata) Node {
	return Node{
		Content:     HeaderContent{Header: h},
		Metadata:    metadata,
		LastWritten: now(),
	}
}

// Text returns the text of a text node.
func (n Node) Text() (string, bool) {
	t, ok := n.Content.(TextContent)
	return t.Text, ok
}

// Resource returns the nested resource of a resource node.
func (n Node) Resource() (Resource, bool) {
	r, ok := n.Content.(ResourceContent)
	if !ok || r.Resource == nil {
		return nil, false
	}
	return r.Resource, true
}

// IsResource reports whether n nests a resource.
func (n Node) IsResource() bool {
	_, ok := n.Resource()
	return ok
}

type nodeWire struct {
	ID           string          `json:"id"`
	Kind         ContentKind     `json:"content_type"`
	Content      json.RawMessage `json:"content"`
	Metadata     Metadata        `json:"metadata,omitempty"`
	DataTagNames []string        `json:"data_tag_names,omitempty"`
	LastWritten  time.Time       `json:"last_written_datetime"`
	MerkleHash   string          `json:"merkle_hash,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Content == nil {
		return nil, fmt.Errorf("node %q has no content", n.ID)
	}
	raw, err := marshalContent(n.Content)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.ID, err)
	}
	return json.Marshal(nodeWire{
		ID:           n.ID,
		Kind:         n.Content.Kind(),
		Content:      raw,
		Metadata:     n.Metadata,
		DataTagNames: n.DataTagNames,
		LastWritten:  n.LastWritten,
		MerkleHash:   n.MerkleHash,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	content, err := unmarshalContent(w.Kind, w.Content)
	if err != nil {
		return fmt.Errorf("node %q: %w", w.ID, err)
	}
	*n = Node{
		ID:           w.ID,
		Content:      content,
		Metadata:     w.Metadata,
		DataTagNames: w.DataTagNames,
		LastWritten:  w.LastWritten,
		MerkleHash:   w.MerkleHash,
	}
	return nil
}

func marshalContent(c NodeContent) ([]byte, error) {
	switch v := c.(type) {
	case ResourceContent:
		return json.Marshal(Base{Resource: v.Resource})
	default:
		return json.Marshal(v)
	}
}

func unmarshalContent(kind ContentKind, raw json.RawMessage) (NodeContent, error) {
	switch kind {
	case ContentText:
		var c TextContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case ContentResource:
		var b Base
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return ResourceContent{Resource: b.Resource}, nil
	case ContentExternal:
		var c ExternalContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case ContentHeader:
		var c HeaderContent
		err := json.Unmarshal(raw, &c)
		return c, err
	default:
		return nil, fmt.Errorf("unknown content type %q", kind)
	}
}

func now() time.Time {
	return time.Now().UTC()
}
