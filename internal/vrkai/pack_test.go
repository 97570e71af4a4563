package vrkai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
)

func newTestPack(t *testing.T) *Pack {
	t.Helper()
	p := NewPack("bundle")
	_, err := p.InsertVRKai(newTestVRKai(t, "alpha", []float32{1, 0, 0}), resource.Root())
	require.NoError(t, err)
	folder, err := p.CreateFolder("archive", resource.Root())
	require.NoError(t, err)
	_, err = p.InsertVRKai(newTestVRKai(t, "beta", []float32{0, 1, 0}), folder)
	require.NoError(t, err)
	return p
}

func TestPack_InsertAndGet(t *testing.T) {
	p := newTestPack(t)

	assert.Equal(t, 2, p.VRKaiCount)
	assert.Equal(t, 1, p.FolderCount)
	assert.Equal(t, map[string]int{"test-model": 2}, p.EmbeddingModelsUsed)

	v, err := p.GetVRKai(resource.MustParsePath("/archive/beta"))
	require.NoError(t, err)
	assert.Equal(t, "beta", v.Name())

	_, err = p.GetVRKai(resource.MustParsePath("/archive"))
	assert.ErrorIs(t, err, ErrNotVRKai)

	_, err = p.GetVRKai(resource.MustParsePath("/missing"))
	assert.ErrorIs(t, err, resource.ErrNodeNotFound)

	_, err = p.InsertVRKai(newTestVRKai(t, "gamma", []float32{0, 0, 1}), resource.MustParsePath("/alpha"))
	assert.ErrorIs(t, err, resource.ErrNotAResource, "entries cannot hold entries")
}

func TestPack_UnpackAll(t *testing.T) {
	p := newTestPack(t)

	entries, err := p.UnpackAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/alpha", entries[0].Path.String())
	assert.Equal(t, "alpha", entries[0].VRKai.Name())
	assert.Equal(t, "/archive/beta", entries[1].Path.String())
}

func TestPack_RemoveAtPath(t *testing.T) {
	p := newTestPack(t)

	require.NoError(t, p.RemoveAtPath(resource.MustParsePath("/archive")))
	assert.Equal(t, 1, p.VRKaiCount)
	assert.Equal(t, 0, p.FolderCount)

	require.NoError(t, p.RemoveAtPath(resource.MustParsePath("/alpha")))
	assert.Equal(t, 0, p.VRKaiCount)
	assert.Empty(t, p.EmbeddingModelsUsed)

	assert.ErrorIs(t, p.RemoveAtPath(resource.MustParsePath("/alpha")), resource.ErrNodeNotFound)
}

func TestPack_EncodeDecode(t *testing.T) {
	p := newTestPack(t)
	p.InsertMetadata("purpose", "test")
	rootBefore, err := p.MerkleRoot()
	require.NoError(t, err)

	enc, err := p.EncodeBase64()
	require.NoError(t, err)
	b, err := p.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, enc, string(b))

	got, err := DecodePackBytes(b)
	require.NoError(t, err)
	assert.Equal(t, "bundle", got.Name)
	assert.Equal(t, p.ID(), got.ID())
	assert.Equal(t, 2, got.VRKaiCount)
	purpose, ok := got.GetMetadata("purpose")
	assert.True(t, ok)
	assert.Equal(t, "test", purpose)

	rootAfter, err := got.MerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, rootBefore, rootAfter)

	v, err := got.GetVRKai(resource.MustParsePath("/archive/beta"))
	require.NoError(t, err)
	assert.Equal(t, "beta", v.Name())
}

func TestPack_DecodeErrors(t *testing.T) {
	_, err := DecodePackBase64("%%%")
	assert.Equal(t, StageDecode, decodeErr(t, err).Stage)

	p := NewPack("x")
	p.Version = "V7"
	_, err = p.EncodeBase64()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPack_FolderMerkleHashTracksContent(t *testing.T) {
	p := newTestPack(t)
	folder := resource.MustParsePath("/archive")

	h1, err := p.FolderMerkleHash(folder)
	require.NoError(t, err)
	h2, err := p.FolderMerkleHash(folder)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = p.InsertVRKai(newTestVRKai(t, "gamma", []float32{0, 0, 1}), folder)
	require.NoError(t, err)
	h3, err := p.FolderMerkleHash(folder)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	_, err = p.FolderMerkleHash(resource.MustParsePath("/alpha"))
	assert.ErrorIs(t, err, resource.ErrNotAResource)
}

func TestPack_Search(t *testing.T) {
	p := newTestPack(t)
	ctx := context.Background()

	ranked, err := p.SearchVRKai(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "beta", ranked[0].VRKai.Name())
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-6)

	hits, err := p.VectorSearch(ctx, []float32{1, 0, 0}, 1, 2, search.Exhaustive)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "/alpha/1", hits[0].Path.String())
	text, _ := hits[0].Node.Text()
	assert.Equal(t, "hello world", text)
	for _, h := range hits {
		assert.True(t, resource.MustParsePath("/alpha").IsAncestorOf(h.Path), "only the best entry is searched")
	}
}

func TestPack_SearchRejectsMixedModels(t *testing.T) {
	p := newTestPack(t)
	other := newTestVRKai(t, "delta", []float32{1, 1, 0})
	other.Resource.Resource.SetEmbeddingModelUsed("other-model")
	_, err := p.InsertVRKai(other, resource.Root())
	require.NoError(t, err)

	_, err = p.SearchVRKai(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrMixedModels)
	_, err = p.VectorSearch(context.Background(), []float32{1, 0, 0}, 1, 1, search.Exhaustive)
	assert.ErrorIs(t, err, ErrMixedModels)
}

func TestPack_MkdirAll(t *testing.T) {
	p := newTestPack(t)

	require.NoError(t, p.MkdirAll(resource.MustParsePath("/archive/2024/q1")))
	assert.Equal(t, 3, p.FolderCount)

	require.NoError(t, p.MkdirAll(resource.MustParsePath("/archive/2024")), "existing folders are kept")
	assert.Equal(t, 3, p.FolderCount)

	_, err := p.InsertVRKai(newTestVRKai(t, "gamma", []float32{0, 0, 1}), resource.MustParsePath("/archive/2024/q1"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.VRKaiCount)

	err = p.MkdirAll(resource.MustParsePath("/alpha/sub"))
	assert.ErrorIs(t, err, resource.ErrNotAResource)
}
