package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(t *testing.T) *DocumentResource {
	t.Helper()
	doc := NewDocumentResource("report", "quarterly report", Source{Name: "report.txt", FileType: "txt"}, "test-model")
	doc.AppendText("hello world", []float32{1, 0}, Metadata{"lang": "en"}, []string{"greeting"})
	doc.AppendText("second chunk", []float32{0, 1}, nil, nil)
	doc.AppendText("third chunk", []float32{0.5, 0.5}, nil, []string{"greeting"})
	return doc
}

func TestDocumentResource_IDsAreDense(t *testing.T) {
	doc := newTestDocument(t)

	ids := make([]string, 0, doc.Len())
	for _, n := range doc.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	removed, _, err := doc.RemoveNode("2")
	require.NoError(t, err)
	text, _ := removed.Text()
	assert.Equal(t, "second chunk", text)

	n, err := doc.NodeByID("2")
	require.NoError(t, err)
	text, _ = n.Text()
	assert.Equal(t, "third chunk", text)

	emb, err := doc.EmbeddingByID("2")
	require.NoError(t, err)
	assert.Equal(t, "2", emb.ID)
	assert.Equal(t, []float32{0.5, 0.5}, emb.Vector)

	_, err = doc.NodeByID("3")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ElementsMatch(t, []string{"1", "2"}, keysOf(doc.DataTagIndex().NodeIDs([]string{"greeting"})))
}

func TestDocumentResource_InsertNode(t *testing.T) {
	doc := newTestDocument(t)

	require.NoError(t, doc.InsertNode("2", NewTextNode("replaced", nil, nil), Embedding{Vector: []float32{1, 1}}))
	n, err := doc.NodeByID("2")
	require.NoError(t, err)
	text, _ := n.Text()
	assert.Equal(t, "replaced", text)
	assert.Equal(t, 3, doc.Len())

	require.NoError(t, doc.InsertNode("", NewTextNode("appended", nil, nil), Embedding{}))
	assert.Equal(t, 4, doc.Len())

	err = doc.InsertNode("9", NewTextNode("gap", nil, nil), Embedding{})
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestDocumentResource_ProximityWindow(t *testing.T) {
	doc := newTestDocument(t)
	nodes, err := doc.ProximityWindow("1", 1)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "1", nodes[0].ID)
	assert.Equal(t, "2", nodes[1].ID)
}

func TestMapResource_InsertionOrder(t *testing.T) {
	m := NewMapResource("tools", "", Source{}, "test-model")
	require.NoError(t, m.InsertText("zeta", "z", []float32{1}, nil, nil))
	require.NoError(t, m.InsertText("alpha", "a", []float32{1}, nil, nil))
	require.NoError(t, m.InsertText("zeta", "z2", []float32{1}, nil, nil))

	var ids []string
	for _, n := range m.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"zeta", "alpha"}, ids)

	_, _, err := m.RemoveNode("zeta")
	require.NoError(t, err)
	n, err := m.NodeByID("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", n.ID)

	assert.ErrorIs(t, m.InsertText("", "x", nil, nil, nil), ErrInvalidNodeID)
}

func TestNestedResource_TagsPropagate(t *testing.T) {
	inner := newTestDocument(t)
	outer := NewMapResource("outer", "", Source{}, "test-model")
	require.NoError(t, outer.InsertResource("inner", inner, nil))

	assert.Equal(t, []string{"greeting"}, outer.DataTagIndex().Names())

	require.NoError(t, InsertNodeAtPath(outer, MustParsePath("/inner"), "", NewTextNode("tagged", nil, []string{"fresh"}), Embedding{Vector: []float32{1, 0}}))
	assert.Equal(t, []string{"fresh", "greeting"}, outer.DataTagIndex().Names())

	n, err := NodeAtPath(outer, MustParsePath("/inner/4"))
	require.NoError(t, err)
	text, _ := n.Text()
	assert.Equal(t, "tagged", text)

	_, err = RemoveNodeAtPath(outer, MustParsePath("/inner/4"))
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting"}, outer.DataTagIndex().Names())

	_, err = ResourceAtPath(outer, MustParsePath("/inner/1"))
	assert.ErrorIs(t, err, ErrNotAResource)
	_, err = NodeAtPath(outer, MustParsePath("/missing"))
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestResourceJSON_RoundTrip(t *testing.T) {
	inner := newTestDocument(t)
	outer := NewMapResource("outer", "holds things", Source{URL: "https://example.com"}, "test-model")
	require.NoError(t, outer.InsertResource("inner", inner, Metadata{"kind": "doc"}))
	require.NoError(t, outer.InsertNode("ext", NewExternalNode(Source{Name: "a.pdf"}, nil), Embedding{Vector: []float32{0, 1}}))
	require.NoError(t, outer.InsertNode("hdr", NewHeaderNode(inner.Header(), nil), Embedding{Vector: []float32{1, 1}}))
	require.NoError(t, outer.UpdateMerkleRoot())

	raw, err := MarshalResource(outer)
	require.NoError(t, err)

	back, err := UnmarshalResource(raw)
	require.NoError(t, err)
	assert.Equal(t, BaseTypeMap, back.BaseType())
	assert.Equal(t, outer.ResourceID(), back.ResourceID())
	assert.Equal(t, outer.MerkleRoot(), back.MerkleRoot())

	again, err := MarshalResource(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))

	nested, err := ResourceAtPath(back, MustParsePath("/inner"))
	require.NoError(t, err)
	assert.Equal(t, BaseTypeDocument, nested.BaseType())
	assert.Equal(t, []string{"greeting"}, nested.DataTagIndex().Names())
}

func TestUnmarshalResource_UnknownType(t *testing.T) {
	_, err := UnmarshalResource([]byte(`{"type":"Graph","resource":{"name":"x","nodes":[],"embeddings":[]}}`))
	assert.ErrorIs(t, err, ErrUnknownBaseType)

	var n Node
	err = json.Unmarshal([]byte(`{"id":"1","content_type":"video","content":{}}`), &n)
	assert.Error(t, err)
}

func TestMerkleRoot_Idempotent(t *testing.T) {
	doc := newTestDocument(t)
	require.NoError(t, doc.UpdateMerkleRoot())
	first := doc.MerkleRoot()
	require.NoError(t, doc.UpdateMerkleRoot())
	assert.Equal(t, first, doc.MerkleRoot())
	assert.Len(t, first, 64)

	twin := newTestDocument(t)
	require.NoError(t, twin.UpdateMerkleRoot())
	assert.Equal(t, first, twin.MerkleRoot(), "hash depends on content only")

	doc.AppendText("more", []float32{1, 0}, nil, nil)
	require.NoError(t, doc.UpdateMerkleRoot())
	assert.NotEqual(t, first, doc.MerkleRoot())
}

func TestMerkleRoot_NestedChangePropagates(t *testing.T) {
	inner := newTestDocument(t)
	outer := NewMapResource("outer", "", Source{}, "m")
	require.NoError(t, outer.InsertResource("inner", inner, nil))
	require.NoError(t, outer.UpdateMerkleRoot())
	before := outer.MerkleRoot()

	inner.AppendText("deep change", []float32{1, 0}, nil, nil)
	require.NoError(t, outer.UpdateMerkleRoot())
	assert.NotEqual(t, before, outer.MerkleRoot())

	n, err := outer.NodeByID("inner")
	require.NoError(t, err)
	assert.Equal(t, inner.MerkleRoot(), n.MerkleHash)
}

func TestHeader(t *testing.T) {
	doc := newTestDocument(t)
	doc.SetResourceEmbedding(Embedding{Vector: []float32{1, 0}})
	h := doc.Header()

	assert.Equal(t, "report", h.Name)
	assert.Equal(t, BaseTypeDocument, h.BaseType)
	require.NotNil(t, h.Embedding)
	assert.Equal(t, doc.ResourceID(), h.Embedding.ID)
	assert.Equal(t, "report:::"+doc.ResourceID(), h.ReferenceString())
	assert.Equal(t, []string{"lang"}, h.MetadataIndexKeys)
}

func TestCountResourceTokens(t *testing.T) {
	counter := &TokenCounter{}
	inner := newTestDocument(t)
	outer := NewMapResource("outer", "", Source{}, "m")
	require.NoError(t, outer.InsertResource("inner", inner, nil))
	require.NoError(t, outer.InsertText("note", "abcdefgh", nil, nil, nil))

	// Estimate mode: ceil(len/4) per text node.
	want := counter.Count("hello world") + counter.Count("second chunk") + counter.Count("third chunk") + 2
	assert.Equal(t, want, CountResourceTokens(outer, counter))
	assert.Equal(t, 0, counter.Count(""))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 0}))

	scores := ScoreEmbeddings([]float32{1, 0}, []Embedding{
		{ID: "a", Vector: []float32{0, 1}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{1, 0}},
	}, 2)
	require.Len(t, scores, 2)
	assert.Equal(t, "b", scores[0].ID)
	assert.Equal(t, "c", scores[1].ID, "ties keep native order")
}

func keysOf(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
