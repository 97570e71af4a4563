package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

func packResponse(p *vrkai.Pack, added []string) (VRPackResponse, error) {
	root, err := p.MerkleRoot()
	if err != nil {
		return VRPackResponse{}, err
	}
	enc, err := p.EncodeBase64()
	if err != nil {
		return VRPackResponse{}, err
	}
	return VRPackResponse{
		Name:           p.Name,
		EncodedVRPack:  enc,
		MerkleRoot:     root,
		VRKaiCount:     p.VRKaiCount,
		FolderCount:    p.FolderCount,
		EmbeddingModel: p.EmbeddingModelsUsed,
		Added:          added,
	}, nil
}

// handleVRPackGenerate bundles uploaded documents or VRKai into a new pack.
func (s *Server) handleVRPackGenerate(c echo.Context) error {
	name := c.FormValue("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	files, err := formFiles(c, "files")
	if err != nil {
		return err
	}
	folder, err := parsePath(c.FormValue("folder"))
	if err != nil {
		return err
	}

	p := vrkai.NewPack(name)
	added, err := s.addToPack(c.Request().Context(), p, files, folder)
	if err != nil {
		return err
	}
	resp, err := packResponse(p, added)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// handleVRPackAdd adds files to an uploaded pack, under folder when given.
func (s *Server) handleVRPackAdd(c echo.Context) error {
	packFile, err := formFile(c, "vrpack")
	if err != nil {
		return err
	}
	files, err := formFiles(c, "files")
	if err != nil {
		return err
	}
	folder, err := parsePath(c.FormValue("folder"))
	if err != nil {
		return err
	}
	p, err := vrkai.DecodePackBytes(packFile.Data)
	if err != nil {
		return err
	}

	added, err := s.addToPack(c.Request().Context(), p, files, folder)
	if err != nil {
		return err
	}
	resp, err := packResponse(p, added)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) addToPack(ctx context.Context, p *vrkai.Pack, files []ingest.File, dest resource.Path) ([]string, error) {
	if err := p.MkdirAll(dest); err != nil {
		return nil, err
	}
	added := make([]string, 0, len(files))
	for _, f := range files {
		v, err := s.toVRKai(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		path, err := p.InsertVRKai(v, dest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		added = append(added, path.String())
	}
	return added, nil
}

// handleVRPackSearch searches inside the best matching VRKai of a pack.
// With entries=true it ranks the entries themselves instead.
func (s *Server) handleVRPackSearch(c echo.Context) error {
	packFile, err := formFile(c, "vrpack")
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
	p, err := vrkai.DecodePackBytes(packFile.Data)
	if err != nil {
		return err
	}
	models := make([]string, 0, len(p.EmbeddingModelsUsed))
	for m := range p.EmbeddingModelsUsed {
		models = append(models, m)
	}
	sort.Strings(models)
	if len(models) == 1 {
		if err := s.checkModel(models[0]); err != nil {
			return err
		}
	}

	ctx := c.Request().Context()
	query := c.FormValue("query")
	q, err := s.embedQuery(ctx, query)
	if err != nil {
		return err
	}
	if c.FormValue("entries") == "true" {
		entries, err := p.SearchVRKai(ctx, q, k)
		if err != nil {
			return err
		}
		results := make([]SearchResult, len(entries))
		for i, e := range entries {
			h := e.VRKai.Resource.Resource.Header()
			results[i] = SearchResult{
				Path:         e.Path.String(),
				Score:        e.Score,
				Kind:         "vrkai",
				ResourceName: h.Name,
				ResourceID:   h.ID,
			}
		}
		return c.JSON(http.StatusOK, SearchResponse{Query: query, Results: results})
	}
	hits, err := p.VectorSearch(ctx, q, s.config.NumResources, k, method, opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Results: toResults(hits)})
}
