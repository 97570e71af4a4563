package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownBaseType is returned when decoding a resource of unknown variant.
var ErrUnknownBaseType = errors.New("unknown resource base type")

// Base carries any Resource through JSON, tagged with its variant.
type Base struct {
	Resource Resource
}

type baseWire struct {
	Type     BaseType        `json:"type"`
	Resource json.RawMessage `json:"resource"`
}

// resourceWire is the serialized form shared by both variants. Indexes are
// derived and rebuilt on decode.
type resourceWire struct {
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	ResourceID         string           `json:"resource_id"`
	ResourceEmbedding  Embedding        `json:"resource_embedding"`
	EmbeddingModelUsed string           `json:"embedding_model_used"`
	Source             Source           `json:"source"`
	Keywords           Keywords         `json:"keywords"`
	DistributionInfo   DistributionInfo `json:"distribution_info"`
	Created            time.Time        `json:"created_datetime"`
	LastWritten        time.Time        `json:"last_written_datetime"`
	MerkleRoot         string           `json:"merkle_root,omitempty"`
	Nodes              []Node           `json:"nodes"`
	Embeddings         []Embedding      `json:"embeddings"`
}

// MarshalJSON implements json.Marshaler.
func (b Base) MarshalJSON() ([]byte, error) {
	if b.Resource == nil {
		return nil, errors.New("resource is nil")
	}
	inner, err := json.Marshal(toWire(b.Resource))
	if err != nil {
		return nil, err
	}
	return json.Marshal(baseWire{Type: b.Resource.BaseType(), Resource: inner})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base) UnmarshalJSON(data []byte) error {
	var bw baseWire
	if err := json.Unmarshal(data, &bw); err != nil {
		return err
	}
	var w resourceWire
	if err := json.Unmarshal(bw.Resource, &w); err != nil {
		return err
	}
	if len(w.Nodes) != len(w.Embeddings) {
		return fmt.Errorf("resource %q: %d nodes but %d embeddings", w.Name, len(w.Nodes), len(w.Embeddings))
	}

	c := fromWire(bw.Type, w)
	switch bw.Type {
	case BaseTypeDocument:
		b.Resource = &DocumentResource{core: c}
	case BaseTypeMap:
		b.Resource = &MapResource{core: c}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBaseType, bw.Type)
	}
	return nil
}

// MarshalResource encodes any resource with its variant tag.
func MarshalResource(r Resource) ([]byte, error) {
	return json.Marshal(Base{Resource: r})
}

// UnmarshalResource decodes bytes produced by MarshalResource.
func UnmarshalResource(data []byte) (Resource, error) {
	var b Base
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b.Resource, nil
}

// MarshalJSON lets a *DocumentResource be encoded directly.
func (d *DocumentResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(d))
}

// MarshalJSON lets a *MapResource be encoded directly.
func (m *MapResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(m))
}

func toWire(r Resource) resourceWire {
	return resourceWire{
		Name:               r.Name(),
		Description:        r.Description(),
		ResourceID:         r.ResourceID(),
		ResourceEmbedding:  r.ResourceEmbedding(),
		EmbeddingModelUsed: r.EmbeddingModelUsed(),
		Source:             r.Source(),
		Keywords:           r.Keywords(),
		DistributionInfo:   r.DistributionInfo(),
		Created:            r.Created(),
		LastWritten:        r.LastWritten(),
		MerkleRoot:         r.MerkleRoot(),
		Nodes:              r.Nodes(),
		Embeddings:         r.Embeddings(),
	}
}

func fromWire(bt BaseType, w resourceWire) *core {
	c := &core{
		baseType:     bt,
		name:         w.Name,
		description:  w.Description,
		id:           w.ResourceID,
		embedding:    w.ResourceEmbedding,
		model:        w.EmbeddingModelUsed,
		source:       w.Source,
		keywords:     w.Keywords,
		distribution: w.DistributionInfo,
		created:      w.Created,
		lastWritten:  w.LastWritten,
		merkleRoot:   w.MerkleRoot,
		nodes:        w.Nodes,
		embeddings:   w.Embeddings,
	}
	if c.nodes == nil {
		c.nodes = []Node{}
	}
	if c.embeddings == nil {
		c.embeddings = []Embedding{}
	}
	c.reindex()
	return c
}
