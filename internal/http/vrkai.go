package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

// handleVRKaiGenerate embeds an uploaded document into a VRKai.
func (s *Server) handleVRKaiGenerate(c echo.Context) error {
	f, err := formFile(c, "file")
	if err != nil {
		return err
	}
	f.Description = c.FormValue("description")
	ctx := c.Request().Context()

	v, err := s.builder.BuildVRKai(ctx, f)
	if err != nil {
		return err
	}
	enc, err := v.EncodeBase64()
	if err != nil {
		return err
	}
	res := v.Resource.Resource
	s.logger.Debug(ctx, "vrkai generated",
		zap.String("file", f.Name),
		zap.Int("nodes", res.Len()),
		zap.Int("tokens", v.TotalTokenCount),
	)
	return c.JSON(http.StatusOK, VRKaiResponse{
		Name:           v.Name(),
		EncodedVRKai:   enc,
		MerkleRoot:     res.MerkleRoot(),
		EmbeddingModel: res.EmbeddingModelUsed(),
		NodeCount:      res.Len(),
		TokenCount:     v.TotalTokenCount,
	})
}

// handleVRKaiSearch runs a vector search inside an uploaded VRKai.
func (s *Server) handleVRKaiSearch(c echo.Context) error {
	f, err := formFile(c, "file")
	if err != nil {
		return err
	}
	k, err := s.parseK(c.FormValue("k"))
	if err != nil {
		return err
	}
	method, err := parseMethod(c.FormValue("method"))
	if err != nil {
		return err
	}
	opts, err := formOptions(c)
	if err != nil {
		return err
	}
	v, err := vrkai.DecodeBytes(f.Data)
	if err != nil {
		return err
	}
	res := v.Resource.Resource
	if err := s.checkModel(res.EmbeddingModelUsed()); err != nil {
		return err
	}

	ctx := c.Request().Context()
	query := c.FormValue("query")
	q, err := s.embedQuery(ctx, query)
	if err != nil {
		return err
	}
	hits, err := search.Search(ctx, res, q, k, method, opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Results: toResults(hits)})
}

// handleVRKaiView returns the readable contents of an uploaded VRKai.
func (s *Server) handleVRKaiView(c echo.Context) error {
	f, err := formFile(c, "file")
	if err != nil {
		return err
	}
	v, err := vrkai.DecodeBytes(f.Data)
	if err != nil {
		return err
	}
	res := v.Resource.Resource
	nodes, err := search.RetrieveAllNodes(c.Request().Context(), res, resource.Root())
	if err != nil {
		return err
	}

	view := VRKaiView{
		Header:      res.Header(),
		Version:     string(v.Version),
		Metadata:    v.Metadata,
		TokenCount:  v.TotalTokenCount,
		Nodes:       make([]NodeView, len(nodes)),
		SourceFiles: []string{},
	}
	for i, n := range nodes {
		view.Nodes[i] = NodeView{
			Path:     n.Path.String(),
			Kind:     string(n.Node.Content.Kind()),
			Metadata: n.Node.Metadata,
		}
		if text, ok := n.Node.Text(); ok {
			view.Nodes[i].Text = text
		}
	}
	if v.SourceFileMap != nil {
		for _, p := range v.SourceFileMap.Paths() {
			sf, _ := v.SourceFileMap.Get(p)
			view.SourceFiles = append(view.SourceFiles, sf.FileName)
		}
	}
	return c.JSON(http.StatusOK, view)
}
