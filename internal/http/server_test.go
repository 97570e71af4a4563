package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/embeddings"
	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

const (
	badgerNotes = "# Storage\nBadger is an embedded key value store written in Go.\n\n# Compaction\nThe value log is garbage collected in the background.\n"
	searchNotes = "Vectors are compared by cosine similarity.\n\nThe best nodes are returned first.\n"
)

type upload struct {
	field, name string
	data        string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	store, err := kvstore.Open(kvstore.Config{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h, err := embeddings.NewHashEmbedder(32)
	require.NoError(t, err)
	counter := &resource.TokenCounter{}
	builder := ingest.NewBuilder(h, counter, ingest.Config{}, zap.NewNop())
	fs := vecfs.NewService(store, zap.NewNop(), vecfs.WithTokenCounter(counter))

	s, err := NewServer(fs, store, builder, zap.NewNop(), cfg)
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func postMultipart(t *testing.T, s *Server, target, tenantID string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ct)
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}
	return serve(s, req)
}

func sendJSON(t *testing.T, s *Server, method, target, tenantID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}
	return serve(s, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func generateVRKai(t *testing.T, s *Server, name, text string) string {
	t.Helper()
	rec := postMultipart(t, s, "/v2/vrkai/generate", "", nil, upload{"file", name, text})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[VRKaiResponse](t, rec).EncodedVRKai
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, nil, nil, zap.NewNop(), nil)
	require.Error(t, err)

	s := newTestServer(t, nil)
	_, err = NewServer(s.fs, s.store, nil, zap.NewNop(), nil)
	require.Error(t, err)

	_, err = NewServer(s.fs, s.store, s.builder, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")

	assert.Equal(t, "200M", s.config.BodyLimit)
	assert.Equal(t, 10, s.config.DefaultK)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, embeddings.HashModel, resp.EmbeddingModel)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestVRKai_GenerateViewSearch(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postMultipart(t, s, "/v2/vrkai/generate", "", map[string]string{"description": "storage notes"},
		upload{"file", "badger.md", badgerNotes})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen := decode[VRKaiResponse](t, rec)
	assert.Equal(t, "badger", gen.Name)
	assert.Equal(t, embeddings.HashModel, gen.EmbeddingModel)
	assert.Equal(t, 2, gen.NodeCount)
	assert.NotEmpty(t, gen.MerkleRoot)

	v, err := vrkai.DecodeBase64(gen.EncodedVRKai)
	require.NoError(t, err)
	assert.Equal(t, "storage notes", v.Resource.Resource.Description())

	rec = postMultipart(t, s, "/v2/vrkai/view", "", nil, upload{"file", "badger.vrkai", gen.EncodedVRKai})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[VRKaiView](t, rec)
	assert.Equal(t, "badger", view.Header.Name)
	assert.Equal(t, "V1", view.Version)
	require.Len(t, view.Nodes, 2)
	assert.Equal(t, "text", view.Nodes[0].Kind)
	assert.Equal(t, "Storage", view.Nodes[0].Metadata["heading"])
	assert.Equal(t, []string{"badger.md"}, view.SourceFiles)

	rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{"query": "garbage collected value log", "k": "1"},
		upload{"file", "badger.vrkai", gen.EncodedVRKai})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[SearchResponse](t, rec)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "The value log is garbage collected in the background.", res.Results[0].Text)
	assert.Equal(t, "badger", res.Results[0].ResourceName)
}

func TestVRKai_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postMultipart(t, s, "/v2/vrkai/generate", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMultipart(t, s, "/v2/vrkai/generate", "", nil, upload{"file", "image.png", "\x89PNG"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMultipart(t, s, "/v2/vrkai/view", "", nil, upload{"file", "broken.vrkai", "not base64!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "decode stage")

	enc := generateVRKai(t, s, "badger.md", badgerNotes)
	rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{"k": "1"}, upload{"file", "b.vrkai", enc})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "query is required")

	rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{"query": "x", "k": "zero"}, upload{"file", "b.vrkai", enc})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{"query": "x", "method": "random"}, upload{"file", "b.vrkai", enc})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVRPack_GenerateAddSearch(t *testing.T) {
	s := newTestServer(t, nil)
	searchVRKai := generateVRKai(t, s, "search.txt", searchNotes)

	rec := postMultipart(t, s, "/v2/vrpack/generate", "", map[string]string{"name": "notes"},
		upload{"files", "badger.md", badgerNotes},
		upload{"files", "search.vrkai", searchVRKai},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen := decode[VRPackResponse](t, rec)
	assert.Equal(t, "notes", gen.Name)
	assert.Equal(t, 2, gen.VRKaiCount)
	assert.Equal(t, []string{"/badger", "/search"}, gen.Added)
	assert.Equal(t, map[string]int{embeddings.HashModel: 2}, gen.EmbeddingModel)

	rec = postMultipart(t, s, "/v2/vrpack/add", "", map[string]string{"folder": "/archive/2024"},
		upload{"vrpack", "notes.vrpack", gen.EncodedVRPack},
		upload{"files", "more.txt", "Another file about merkle hashes."},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	added := decode[VRPackResponse](t, rec)
	assert.Equal(t, 3, added.VRKaiCount)
	assert.Equal(t, 2, added.FolderCount)
	assert.Equal(t, []string{"/archive/2024/more"}, added.Added)
	assert.NotEqual(t, gen.MerkleRoot, added.MerkleRoot)

	p, err := vrkai.DecodePackBase64(added.EncodedVRPack)
	require.NoError(t, err)
	_, err = p.GetVRKai(resource.MustParsePath("/archive/2024/more"))
	require.NoError(t, err)

	rec = postMultipart(t, s, "/v2/vrpack/search", "", map[string]string{"query": "cosine similarity of vectors", "k": "2", "entries": "true"},
		upload{"vrpack", "notes.vrpack", added.EncodedVRPack})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[SearchResponse](t, rec)
	require.NotEmpty(t, entries.Results)
	assert.LessOrEqual(t, len(entries.Results), 2)
	for _, r := range entries.Results {
		assert.Equal(t, "vrkai", r.Kind)
	}

	rec = postMultipart(t, s, "/v2/vrpack/search", "", map[string]string{"query": "cosine similarity of vectors", "k": "3"},
		upload{"vrpack", "notes.vrpack", added.EncodedVRPack})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nodes := decode[SearchResponse](t, rec)
	require.NotEmpty(t, nodes.Results)
	assert.LessOrEqual(t, len(nodes.Results), 3)
	for _, r := range nodes.Results {
		assert.Equal(t, "text", r.Kind)
	}
}

func TestVRPack_GenerateRequiresName(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postMultipart(t, s, "/v2/vrpack/generate", "", nil, upload{"files", "a.txt", "text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFS_RequiresTenant(t *testing.T) {
	s := newTestServer(t, nil)

	rec := sendJSON(t, s, http.MethodGet, "/v2/fs/tree", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, TenantHeader)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/tree", "bad tenant!", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	withDefault := newTestServer(t, &Config{DefaultTenant: "local"})
	rec = sendJSON(t, withDefault, http.MethodGet, "/v2/fs/tree", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "local", decode[TreeResponse](t, rec).Root.Tenant)
}

func TestFS_Lifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	const alice = "alice"

	rec := sendJSON(t, s, http.MethodPost, "/v2/fs/folders", alice, CreateFolderRequest{Parent: "/projects", Name: "db", Parents: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/projects/db", decode[PathResponse](t, rec).Path)

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/folders", alice, CreateFolderRequest{Parent: "/projects", Name: "db"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postMultipart(t, s, "/v2/fs/items", alice, map[string]string{"parent": "/projects/db"}, upload{"file", "badger.md", badgerNotes})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[ItemResponse](t, rec)
	assert.Equal(t, "/projects/db/badger", saved.Item.Path.String())
	assert.NotEmpty(t, saved.Item.MerkleHash)

	enc := generateVRKai(t, s, "search.txt", searchNotes)
	rec = postMultipart(t, s, "/v2/fs/items", alice, map[string]string{"parent": "/inbox/today", "parents": "true"}, upload{"file", "search.vrkai", enc})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/tree", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode[TreeResponse](t, rec)
	assert.Equal(t, 4, tree.Folders)
	assert.Equal(t, 2, tree.Items)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/items?path=/projects/db/badger&content=true", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decode[ItemResponse](t, rec)
	assert.Equal(t, "badger", item.Item.Name)
	require.Len(t, item.Nodes, 2)
	assert.Contains(t, item.Nodes[0].Text, "Badger")

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{Query: "cosine similarity of vectors", K: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	found := decode[FSSearchResponse](t, rec)
	require.NotEmpty(t, found.Results)
	assert.LessOrEqual(t, len(found.Results), 2)

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{Query: "badger key value store", K: 5, ItemsOnly: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ranked := decode[FSSearchResponse](t, rec)
	assert.Len(t, ranked.Items, 2)

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/items/copy", alice, RelocateRequest{From: "/projects/db/badger", To: "/inbox/today"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/inbox/today/badger", decode[PathResponse](t, rec).Path)

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/items/move", alice, RelocateRequest{From: "/inbox/today/search", To: "/projects"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/projects/search", decode[PathResponse](t, rec).Path)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/export?path=/projects/db/badger", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="badger.vrkai"`)
	exported, err := vrkai.DecodeBase64(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, saved.Item.MerkleHash, exported.Resource.Resource.MerkleRoot())
	require.NotNil(t, exported.SourceFileMap)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/access?path=/projects/db/badger", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[AccessLogResponse](t, rec)
	assert.NotEmpty(t, logs.Reads)
	assert.NotEmpty(t, logs.Writes)

	rec = sendJSON(t, s, http.MethodDelete, "/v2/fs/items?path=/projects/db/badger", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/items?path=/projects/db/badger", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = sendJSON(t, s, http.MethodDelete, "/v2/fs/folders?path=/inbox", alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/tree", alice, nil)
	tree = decode[TreeResponse](t, rec)
	assert.Equal(t, 2, tree.Folders)
	assert.Equal(t, 1, tree.Items)
}

func TestFS_TenantIsolation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := sendJSON(t, s, http.MethodPost, "/v2/fs/folders", "alice", CreateFolderRequest{Name: "private"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = postMultipart(t, s, "/v2/fs/items", "alice", map[string]string{"parent": "/private"}, upload{"file", "badger.md", badgerNotes})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/items?path=/private/badger", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/export?path=/private/badger", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/tree", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode[TreeResponse](t, rec)
	assert.Zero(t, tree.Folders)
	assert.Zero(t, tree.Items)
}

func TestFS_PathErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postMultipart(t, s, "/v2/fs/items", "alice", map[string]string{"parent": "/"}, upload{"file", "a.txt", "text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "items cannot live at the root")

	rec = postMultipart(t, s, "/v2/fs/items", "alice", map[string]string{"parent": "relative"}, upload{"file", "a.txt", "text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = sendJSON(t, s, http.MethodDelete, "/v2/fs/folders?path=/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInbox_UploadAndIngest(t *testing.T) {
	s := newTestServer(t, nil)
	const bob = "bob"

	rec := postMultipart(t, s, "/v2/inbox/job-1/files", bob, nil,
		upload{"files", "badger.md", badgerNotes},
		upload{"files", "search.txt", searchNotes},
		upload{"files", "photo.jpg", "\xff\xd8"},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"badger.md", "photo.jpg", "search.txt"}, decode[InboxResponse](t, rec).Files)

	rec = sendJSON(t, s, http.MethodGet, "/v2/inbox/job-1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "inboxes are per tenant")

	rec = sendJSON(t, s, http.MethodPost, "/v2/inbox/job-1/ingest?parent=/uploads/job-1", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ingested := decode[IngestResponse](t, rec)
	require.Len(t, ingested.Items, 2)
	assert.Equal(t, "/uploads/job-1/badger", ingested.Items[0].Path.String())

	rec = sendJSON(t, s, http.MethodGet, "/v2/inbox/job-1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = sendJSON(t, s, http.MethodGet, "/v2/fs/items?path=/uploads/job-1/search", bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInbox_Delete(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postMultipart(t, s, "/v2/inbox/tmp/files", "bob", nil, upload{"files", "a.txt", "text"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = sendJSON(t, s, http.MethodDelete, "/v2/inbox/tmp", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = sendJSON(t, s, http.MethodGet, "/v2/inbox/tmp", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, &Config{BodyLimit: "1K"})
	rec := postMultipart(t, s, "/v2/vrkai/generate", "", nil, upload{"file", "big.txt", strings.Repeat("a ", 2048)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestVRKai_SearchOptions(t *testing.T) {
	s := newTestServer(t, nil)
	enc := generateVRKai(t, s, "badger.md", badgerNotes)

	rec := postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{
		"query":   "badger key value store",
		"k":       "2",
		"options": `{"proximity":{"window":1,"top_n":1}}`,
	}, upload{"file", "b.vrkai", enc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[SearchResponse](t, rec)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.Equal(t, 1, r.ProximityGroup, r.Path)
	}

	rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{
		"query":   "badger key value store",
		"k":       "5",
		"options": `{"metadata_all":{"heading":"Compaction"}}`,
	}, upload{"file", "b.vrkai", enc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[SearchResponse](t, rec)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Compaction", res.Results[0].Metadata["heading"])
	assert.Zero(t, res.Results[0].ProximityGroup)

	for name, raw := range map[string]string{
		"not json":       `{`,
		"unknown type":   `{"limit_to_type":"Graph"}`,
		"both metadata":  `{"metadata_any":{"a":null},"metadata_all":{"b":null}}`,
		"empty window":   `{"proximity":{"window":0,"top_n":1}}`,
		"negative depth": `{"until_depth":-1}`,
		"relative path":  `{"starting_path":"docs"}`,
	} {
		rec = postMultipart(t, s, "/v2/vrkai/search", "", map[string]string{"query": "x", "options": raw},
			upload{"file", "b.vrkai", enc})
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestFS_SearchOptions(t *testing.T) {
	s := newTestServer(t, nil)
	const alice = "alice"

	rec := postMultipart(t, s, "/v2/fs/items", alice, map[string]string{"parent": "/docs", "parents": "true"},
		upload{"file", "badger.md", badgerNotes})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{Query: "badger key value store", K: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[FSSearchResponse](t, rec).Results, 2)

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{
		Query:         "badger key value store",
		K:             5,
		SearchOptions: SearchOptions{Tags: []string{"absent"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[FSSearchResponse](t, rec).Results)

	heading := "Storage"
	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{
		Query:         "garbage collection",
		K:             5,
		SearchOptions: SearchOptions{MetadataAny: map[string]*string{"heading": &heading}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	found := decode[FSSearchResponse](t, rec).Results
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Text, "embedded key value store")

	rec = sendJSON(t, s, http.MethodPost, "/v2/fs/search", alice, FSSearchRequest{
		Query:         "badger",
		SearchOptions: SearchOptions{LimitToType: "Graph"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
