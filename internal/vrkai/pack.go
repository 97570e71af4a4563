package vrkai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
)

// ErrMixedModels is returned when a search spans VRKai embedded by
// different models.
var ErrMixedModels = errors.New("pack holds vrkai from more than one embedding model")

// modelKey is the node metadata key recording the embedding model of a
// packed VRKai, so counts can be rebuilt without decoding entries.
const modelKey = "embedding_model_used"

// Pack is a VRPack: a map resource holding folders and VRKai entries. Each
// entry is a text node whose content is the VRKai transfer string and whose
// embedding is the VRKai's resource embedding. Packs are not compressed at
// the top level because every entry already is.
type Pack struct {
	Name                string            `json:"name"`
	Resource            resource.Base     `json:"resource"`
	Version             Version           `json:"version"`
	VRKaiCount          int               `json:"vrkai_count"`
	FolderCount         int               `json:"folder_count"`
	EmbeddingModelsUsed map[string]int    `json:"embedding_models_used"`
	Metadata            map[string]string `json:"metadata"`
}

// Entry is an unpacked VRKai with the pack path it was stored at.
type Entry struct {
	VRKai *VRKai
	Path  resource.Path
}

// ScoredEntry is an Entry ranked against a query.
type ScoredEntry struct {
	Entry
	Score float32
}

// NewPack returns an empty pack.
func NewPack(name string) *Pack {
	return &Pack{
		Name:                name,
		Resource:            resource.Base{Resource: resource.NewMapResource("vrpack", "", resource.Source{}, "")},
		Version:             VersionV1,
		EmbeddingModelsUsed: make(map[string]int),
		Metadata:            make(map[string]string),
	}
}

func (p *Pack) root() resource.Resource {
	return p.Resource.Resource
}

// ID returns the id of the pack's root resource.
func (p *Pack) ID() string {
	return p.root().ResourceID()
}

// MerkleRoot recomputes and returns the pack's root hash.
func (p *Pack) MerkleRoot() (string, error) {
	if err := p.root().UpdateMerkleRoot(); err != nil {
		return "", err
	}
	return p.root().MerkleRoot(), nil
}

// InsertVRKai encodes v and stores it under parent, keyed by the cleaned
// resource name. An entry of the same name is replaced.
func (p *Pack) InsertVRKai(v *VRKai, parent resource.Path) (resource.Path, error) {
	res := v.Resource.Resource
	if res == nil {
		return resource.Path{}, fmt.Errorf("%w: vrkai has no resource", ErrCodec)
	}
	if err := res.UpdateMerkleRoot(); err != nil {
		return resource.Path{}, err
	}
	enc, err := v.EncodeBase64()
	if err != nil {
		return resource.Path{}, err
	}

	id := resource.CleanSegment(res.Name())
	node := resource.NewTextNode(enc, resource.Metadata{modelKey: res.EmbeddingModelUsed()}, nil)
	if err := resource.InsertNodeAtPath(p.root(), parent, id, node, res.ResourceEmbedding()); err != nil {
		return resource.Path{}, err
	}
	p.recount()
	return parent.Push(id), nil
}

// CreateFolder adds an empty folder named name under parent.
func (p *Pack) CreateFolder(name string, parent resource.Path) (resource.Path, error) {
	id := resource.CleanSegment(name)
	folder := resource.NewMapResource(name, "", resource.Source{}, "")
	if err := resource.InsertNodeAtPath(p.root(), parent, id, resource.NewResourceNode(folder, nil), resource.Embedding{}); err != nil {
		return resource.Path{}, err
	}
	p.recount()
	return parent.Push(id), nil
}

// MkdirAll creates every missing folder along path. An entry in the way
// is an error.
func (p *Pack) MkdirAll(path resource.Path) error {
	cur := resource.Root()
	for _, seg := range path.Segments() {
		next := cur.Push(seg)
		n, err := resource.NodeAtPath(p.root(), next)
		switch {
		case errors.Is(err, resource.ErrNodeNotFound):
			if _, err := p.CreateFolder(seg, cur); err != nil {
				return err
			}
		case err != nil:
			return err
		case !n.IsResource():
			return fmt.Errorf("%s: %w", next, resource.ErrNotAResource)
		}
		cur = next
	}
	return nil
}

// GetVRKai decodes the entry at path.
func (p *Pack) GetVRKai(path resource.Path) (*VRKai, error) {
	n, err := resource.NodeAtPath(p.root(), path)
	if err != nil {
		return nil, err
	}
	return nodeVRKai(n, path)
}

// FolderMerkleHash returns the merkle root of the folder at path.
func (p *Pack) FolderMerkleHash(path resource.Path) (string, error) {
	folder, err := resource.ResourceAtPath(p.root(), path)
	if err != nil {
		return "", err
	}
	if err := folder.UpdateMerkleRoot(); err != nil {
		return "", err
	}
	return folder.MerkleRoot(), nil
}

// RemoveAtPath removes an entry or a whole folder.
func (p *Pack) RemoveAtPath(path resource.Path) error {
	if _, err := resource.RemoveNodeAtPath(p.root(), path); err != nil {
		return err
	}
	p.recount()
	return nil
}

// UnpackAll decodes every entry, in pack order.
func (p *Pack) UnpackAll(ctx context.Context) ([]Entry, error) {
	nodes, err := search.RetrieveTextNodes(ctx, p.root(), resource.Root())
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(nodes))
	for _, rn := range nodes {
		v, err := nodeVRKai(rn.Node, rn.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{VRKai: v, Path: rn.Path})
	}
	return out, nil
}

// SearchVRKai ranks entries by their resource embedding and returns the
// best n.
func (p *Pack) SearchVRKai(ctx context.Context, query []float32, n int, opts ...search.Option) ([]ScoredEntry, error) {
	if err := p.checkSingleModel(); err != nil {
		return nil, err
	}
	hits, err := search.Search(ctx, p.root(), query, n, search.Exhaustive, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredEntry, 0, len(hits))
	for _, h := range hits {
		if _, ok := h.Node.Text(); !ok {
			continue
		}
		v, err := nodeVRKai(h.Node, h.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredEntry{Entry: Entry{VRKai: v, Path: h.Path}, Score: h.Score})
	}
	return out, nil
}

// VectorSearch searches inside the numVRKai best matching entries and
// returns the top k nodes across them, with paths rooted at the pack.
func (p *Pack) VectorSearch(ctx context.Context, query []float32, numVRKai, k int, method search.Method, opts ...search.Option) ([]search.RetrievedNode, error) {
	if err := p.checkSingleModel(); err != nil {
		return nil, err
	}
	entries, err := p.UnpackAll(ctx)
	if err != nil {
		return nil, err
	}
	scopes := make([]search.Scoped, len(entries))
	for i, e := range entries {
		scopes[i] = search.Scoped{Path: e.Path, Resource: e.VRKai.Resource.Resource}
	}
	return search.DeepSearch(ctx, query, scopes, numVRKai, k, method, opts...)
}

// InsertMetadata sets key to value.
func (p *Pack) InsertMetadata(key, value string) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]string)
	}
	p.Metadata[key] = value
}

// GetMetadata returns the value stored at key.
func (p *Pack) GetMetadata(key string) (string, bool) {
	value, ok := p.Metadata[key]
	return value, ok
}

// RemoveMetadata deletes key and returns its previous value.
func (p *Pack) RemoveMetadata(key string) (string, bool) {
	value, ok := p.Metadata[key]
	delete(p.Metadata, key)
	return value, ok
}

// EncodeBase64 serializes the pack as base64 JSON.
func (p *Pack) EncodeBase64() (string, error) {
	if p.Version != VersionV1 {
		err := stageErr(StageVersion, fmt.Errorf("%w: %q", ErrUnsupportedVersion, p.Version))
		observe("vrpack", "encode", err)
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		err = stageErr(StageEncode, err)
		observe("vrpack", "encode", err)
		return "", err
	}
	observe("vrpack", "encode", nil)
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeBytes returns the UTF-8 bytes of EncodeBase64.
func (p *Pack) EncodeBytes() ([]byte, error) {
	s, err := p.EncodeBase64()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// DecodePackBase64 parses a pack transfer string.
func DecodePackBase64(s string) (*Pack, error) {
	p, err := decodePack(s)
	observe("vrpack", "decode", err)
	return p, err
}

// DecodePackBytes parses the UTF-8 bytes of a pack transfer string.
func DecodePackBytes(b []byte) (*Pack, error) {
	return DecodePackBase64(string(b))
}

func decodePack(s string) (*Pack, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}
	var tag struct {
		Version Version `json:"version"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, stageErr(StageParse, err)
	}
	if tag.Version != VersionV1 {
		return nil, stageErr(StageVersion, fmt.Errorf("%w: %q", ErrUnsupportedVersion, tag.Version))
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, stageErr(StageParse, err)
	}
	if p.Resource.Resource == nil || p.Resource.Resource.BaseType() != resource.BaseTypeMap {
		return nil, stageErr(StageParse, errors.New("pack root must be a map resource"))
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]string)
	}
	if p.EmbeddingModelsUsed == nil {
		p.EmbeddingModelsUsed = make(map[string]int)
	}
	return &p, nil
}

// recount rebuilds the entry, folder and model tallies from the tree.
func (p *Pack) recount() {
	p.VRKaiCount, p.FolderCount = 0, 0
	p.EmbeddingModelsUsed = make(map[string]int)
	stack := []resource.Resource{p.root()}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range cur.Nodes() {
			if child, ok := n.Resource(); ok {
				p.FolderCount++
				stack = append(stack, child)
				continue
			}
			if _, ok := n.Text(); ok {
				p.VRKaiCount++
				p.EmbeddingModelsUsed[n.Metadata[modelKey]]++
			}
		}
	}
}

func (p *Pack) checkSingleModel() error {
	if len(p.EmbeddingModelsUsed) <= 1 {
		return nil
	}
	models := make([]string, 0, len(p.EmbeddingModelsUsed))
	for m := range p.EmbeddingModelsUsed {
		models = append(models, m)
	}
	sort.Strings(models)
	return fmt.Errorf("%w: %s", ErrMixedModels, strings.Join(models, ", "))
}

func nodeVRKai(n resource.Node, path resource.Path) (*VRKai, error) {
	text, ok := n.Text()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotVRKai)
	}
	v, err := DecodeBase64(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
