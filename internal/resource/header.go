package resource

import "time"

// BaseType tags the concrete resource variant.
type BaseType string

const (
	BaseTypeDocument BaseType = "Document"
	BaseTypeMap      BaseType = "Map"
)

// Source describes where the content of a resource came from.
type Source struct {
	Name     string `json:"name,omitempty"`
	FileType string `json:"file_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

// IsEmpty reports whether no provenance is recorded.
func (s Source) IsEmpty() bool {
	return s == Source{}
}

// DistributionInfo records where and when content was originally published.
type DistributionInfo struct {
	Origin   string     `json:"origin,omitempty"`
	Datetime *time.Time `json:"datetime,omitempty"`
}

// Keywords are extracted search terms for a resource, optionally embedded
// together as a single vector.
type Keywords struct {
	List      []string   `json:"keyword_list,omitempty"`
	Embedding *Embedding `json:"keywords_embedding,omitempty"`
}

// Header is the lightweight description of a resource. It is what the
// filesystem keeps per item and what search results carry to identify the
// resource they came from.
type Header struct {
	Name               string           `json:"resource_name"`
	ID                 string           `json:"resource_id"`
	BaseType           BaseType         `json:"resource_base_type"`
	Source             Source           `json:"resource_source"`
	Embedding          *Embedding       `json:"resource_embedding,omitempty"`
	Created            time.Time        `json:"resource_created_datetime"`
	LastWritten        time.Time        `json:"resource_last_written_datetime"`
	EmbeddingModelUsed string           `json:"resource_embedding_model_used"`
	MerkleRoot         string           `json:"resource_merkle_root,omitempty"`
	Keywords           Keywords         `json:"resource_keywords"`
	DistributionInfo   DistributionInfo `json:"resource_distribution_info"`
	DataTagNames       []string         `json:"data_tag_names,omitempty"`
	MetadataIndexKeys  []string         `json:"metadata_index_keys,omitempty"`
}

// ReferenceString is the unique "name:::id" handle of the described resource.
func (h Header) ReferenceString() string {
	return ReferenceString(h.Name, h.ID)
}

// ReferenceString formats a resource handle.
func ReferenceString(name, id string) string {
	return name + ":::" + id
}
