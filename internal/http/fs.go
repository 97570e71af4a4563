package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
)

func (s *Server) handleTree(c echo.Context) error {
	root, err := s.fs.Tree(c.Request().Context(), tenantFrom(c))
	if err != nil {
		return err
	}
	folders, items := countTree(root)
	return c.JSON(http.StatusOK, TreeResponse{Root: root, Folders: folders, Items: items})
}

func (s *Server) handleCreateFolder(c echo.Context) error {
	var req CreateFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	parent, err := parsePath(req.Parent)
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)
	if req.Parents {
		if err := s.fs.MkdirAll(ctx, id, parent); err != nil {
			return err
		}
	}
	p, err := s.fs.CreateFolder(ctx, id, parent, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, PathResponse{Path: p.String()})
}

func (s *Server) handleDeleteFolder(c echo.Context) error {
	p, err := resource.ParsePath(c.QueryParam("path"))
	if err != nil {
		return err
	}
	if err := s.fs.DeleteFolder(c.Request().Context(), tenantFrom(c), p); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleSaveItem stores an uploaded VRKai, or a document embedded on the
// fly, under the folder in the parent field.
func (s *Server) handleSaveItem(c echo.Context) error {
	f, err := formFile(c, "file")
	if err != nil {
		return err
	}
	f.Description = c.FormValue("description")
	parent, err := resource.ParsePath(c.FormValue("parent"))
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)

	v, err := s.toVRKai(ctx, f)
	if err != nil {
		return err
	}
	if c.FormValue("parents") == "true" {
		if err := s.fs.MkdirAll(ctx, id, parent); err != nil {
			return err
		}
	}
	it, err := s.fs.SaveVRKai(ctx, id, parent, v)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "item saved", zap.Stringer("path", it.Path), zap.String("merkle_hash", it.MerkleHash))
	return c.JSON(http.StatusCreated, ItemResponse{Item: it})
}

// handleGetItem returns an item; content=true also loads its nodes, which
// counts as a read.
func (s *Server) handleGetItem(c echo.Context) error {
	p, err := resource.ParsePath(c.QueryParam("path"))
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)
	it, err := s.fs.Item(ctx, id, p)
	if err != nil {
		return err
	}
	resp := ItemResponse{Item: it}
	if c.QueryParam("content") == "true" {
		res, err := s.fs.RetrieveResource(ctx, id, p)
		if err != nil {
			return err
		}
		nodes, err := search.RetrieveAllNodes(ctx, res, resource.Root())
		if err != nil {
			return err
		}
		resp.Nodes = make([]NodeView, len(nodes))
		for i, n := range nodes {
			resp.Nodes[i] = NodeView{
				Path:     n.Path.String(),
				Kind:     string(n.Node.Content.Kind()),
				Metadata: n.Node.Metadata,
			}
			if text, ok := n.Node.Text(); ok {
				resp.Nodes[i].Text = text
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteItem(c echo.Context) error {
	p, err := resource.ParsePath(c.QueryParam("path"))
	if err != nil {
		return err
	}
	if err := s.fs.DeleteItem(c.Request().Context(), tenantFrom(c), p); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMoveItem(c echo.Context) error {
	return s.relocate(c, true)
}

func (s *Server) handleCopyItem(c echo.Context) error {
	return s.relocate(c, false)
}

func (s *Server) relocate(c echo.Context, move bool) error {
	var req RelocateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	from, err := resource.ParsePath(req.From)
	if err != nil {
		return err
	}
	to, err := resource.ParsePath(req.To)
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)
	var dest resource.Path
	if move {
		dest, err = s.fs.MoveItem(ctx, id, from, to)
	} else {
		dest, err = s.fs.CopyItem(ctx, id, from, to)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PathResponse{Path: dest.String()})
}

func (s *Server) handleAccessLogs(c echo.Context) error {
	p, err := resource.ParsePath(c.QueryParam("path"))
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)
	reads, err := s.fs.ReadAccessLogs(ctx, id, p)
	if err != nil {
		return err
	}
	writes, err := s.fs.WriteAccessLogs(ctx, id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AccessLogResponse{Path: p.String(), Reads: reads, Writes: writes})
}

// handleFSSearch searches the tenant's items below path.
func (s *Server) handleFSSearch(c echo.Context) error {
	var req FSSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	under, err := parsePath(req.Path)
	if err != nil {
		return err
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return err
	}
	opts, err := req.options()
	if err != nil {
		return err
	}
	k := s.clampK(req.K)
	numResources := req.NumResources
	if numResources <= 0 {
		numResources = s.config.NumResources
	}

	ctx, id := c.Request().Context(), tenantFrom(c)
	q, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return err
	}

	if req.ItemsOnly {
		ranked, err := s.fs.SearchItems(ctx, id, under, q, k)
		if err != nil {
			return err
		}
		items := make([]ItemHit, len(ranked))
		for i, r := range ranked {
			items[i] = ItemHit{Item: r.Item, Score: r.Score}
		}
		return c.JSON(http.StatusOK, FSSearchResponse{Query: req.Query, Items: items})
	}

	hits, err := s.fs.DeepSearch(ctx, id, under, q, numResources, k, method, opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FSSearchResponse{Query: req.Query, Results: toResults(hits)})
}

// handleExport streams the item at path as a VRKai transfer string.
func (s *Server) handleExport(c echo.Context) error {
	p, err := resource.ParsePath(c.QueryParam("path"))
	if err != nil {
		return err
	}
	v, err := s.fs.ExportVRKai(c.Request().Context(), tenantFrom(c), p)
	if err != nil {
		return err
	}
	enc, err := v.EncodeBase64()
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", resource.CleanSegment(v.Name())+".vrkai"))
	return c.String(http.StatusOK, enc)
}
