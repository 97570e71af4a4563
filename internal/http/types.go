package http

import (
	"time"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	EmbeddingModel string `json:"embedding_model"`
}

// VRKaiResponse describes a generated VRKai.
type VRKaiResponse struct {
	Name           string `json:"name"`
	EncodedVRKai   string `json:"encoded_vrkai"`
	MerkleRoot     string `json:"merkle_root"`
	EmbeddingModel string `json:"embedding_model"`
	NodeCount      int    `json:"node_count"`
	TokenCount     int    `json:"total_token_count"`
}

// VRPackResponse describes a generated or updated VRPack.
type VRPackResponse struct {
	Name           string         `json:"name"`
	EncodedVRPack  string         `json:"encoded_vrpack"`
	MerkleRoot     string         `json:"merkle_root"`
	VRKaiCount     int            `json:"vrkai_count"`
	FolderCount    int            `json:"folder_count"`
	EmbeddingModel map[string]int `json:"embedding_models_used"`
	Added          []string       `json:"added,omitempty"`
}

// SearchResult is one retrieved node.
type SearchResult struct {
	Path         string            `json:"path"`
	Score        float32           `json:"score"`
	Kind         string            `json:"kind"`
	Text         string            `json:"text,omitempty"`
	Metadata     resource.Metadata `json:"metadata,omitempty"`
	ResourceName string            `json:"resource_name"`
	ResourceID   string            `json:"resource_id"`
	// ProximityGroup is set when proximity results were requested.
	ProximityGroup int `json:"proximity_group,omitempty"`
}

// SearchResponse wraps ranked results.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// NodeView is one node of a viewed resource.
type NodeView struct {
	Path     string            `json:"path"`
	Kind     string            `json:"kind"`
	Text     string            `json:"text,omitempty"`
	Metadata resource.Metadata `json:"metadata,omitempty"`
}

// VRKaiView is the readable form of a VRKai file.
type VRKaiView struct {
	Header      resource.Header   `json:"header"`
	Version     string            `json:"version"`
	Metadata    map[string]string `json:"metadata"`
	TokenCount  int               `json:"total_token_count"`
	Nodes       []NodeView        `json:"nodes"`
	SourceFiles []string          `json:"source_files"`
}

// TreeResponse is the tenant's filesystem with entry totals.
type TreeResponse struct {
	Root    *vecfs.Root `json:"root"`
	Folders int         `json:"folder_count"`
	Items   int         `json:"item_count"`
}

// CreateFolderRequest is the body of POST /v2/fs/folders.
type CreateFolderRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
	// Parents creates every missing folder along Parent first.
	Parents bool `json:"parents"`
}

// PathResponse reports the path an operation produced.
type PathResponse struct {
	Path string `json:"path"`
}

// RelocateRequest is the body of the item move and copy endpoints.
type RelocateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SearchOptions are the traversal modifiers a search request may set. The
// fs search body carries them inline; the multipart search endpoints take
// them as JSON in the "options" field.
type SearchOptions struct {
	MinScore       *float32 `json:"min_score,omitempty"`
	ToleranceRange *float32 `json:"tolerance_range,omitempty"`
	UntilDepth     *int     `json:"until_depth,omitempty"`
	// LimitToType is "Document" or "Map".
	LimitToType  string   `json:"limit_to_type,omitempty"`
	Hierarchical bool     `json:"hierarchical,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	// MetadataAny and MetadataAll map keys to required values; a null
	// value only requires the key. Setting both is an error.
	MetadataAny  map[string]*string `json:"metadata_any,omitempty"`
	MetadataAll  map[string]*string `json:"metadata_all,omitempty"`
	StartingPath string             `json:"starting_path,omitempty"`
	Proximity    *ProximityOptions  `json:"proximity,omitempty"`
}

// ProximityOptions requests proximity groups around the top results.
type ProximityOptions struct {
	Window int `json:"window"`
	TopN   int `json:"top_n"`
}

// FSSearchRequest is the body of POST /v2/fs/search.
type FSSearchRequest struct {
	Query        string `json:"query"`
	Path         string `json:"path"`
	K            int    `json:"k"`
	NumResources int    `json:"num_resources"`
	Method       string `json:"method"`
	// ItemsOnly ranks items by their resource embedding without loading
	// any resource.
	ItemsOnly bool `json:"items_only"`
	SearchOptions
}

// ItemHit is an item ranked by its resource embedding.
type ItemHit struct {
	Item  *vecfs.Item `json:"item"`
	Score float32     `json:"score"`
}

// FSSearchResponse holds either node results or item results.
type FSSearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results,omitempty"`
	Items   []ItemHit      `json:"items,omitempty"`
}

// AccessLogResponse lists the reads and writes of a path.
type AccessLogResponse struct {
	Path   string            `json:"path"`
	Reads  []vecfs.AccessLog `json:"reads"`
	Writes []vecfs.AccessLog `json:"writes"`
}

// InboxResponse lists the files staged in an inbox.
type InboxResponse struct {
	Inbox string   `json:"inbox"`
	Files []string `json:"files"`
}

// IngestResponse reports the items created from an inbox.
type IngestResponse struct {
	Inbox string        `json:"inbox"`
	Items []*vecfs.Item `json:"items"`
	Took  time.Duration `json:"took_ns"`
}

// ItemResponse is an item projection, with its nodes when requested.
type ItemResponse struct {
	Item  *vecfs.Item `json:"item"`
	Nodes []NodeView  `json:"nodes,omitempty"`
}
