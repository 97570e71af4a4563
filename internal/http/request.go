package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
	"github.com/fyrsmithlabs/vecfs/internal/tenant"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

func readUpload(fh *multipart.FileHeader) (ingest.File, error) {
	f, err := fh.Open()
	if err != nil {
		return ingest.File{}, fmt.Errorf("opening upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.File{}, fmt.Errorf("reading upload %q: %w", fh.Filename, err)
	}
	return ingest.File{Name: fh.Filename, Data: data}, nil
}

func formFile(c echo.Context, field string) (ingest.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return ingest.File{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("multipart field %q is required", field))
	}
	return readUpload(fh)
}

func formFiles(c echo.Context, field string) ([]ingest.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("multipart field %q needs at least one file", field))
	}
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// parsePath treats an empty value as the root.
func parsePath(raw string) (resource.Path, error) {
	if raw == "" {
		return resource.Root(), nil
	}
	return resource.ParsePath(raw)
}

func (s *Server) parseK(raw string) (int, error) {
	if raw == "" {
		return s.config.DefaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("k must be a positive integer, got %q", raw))
	}
	return s.clampK(k), nil
}

func (s *Server) clampK(k int) int {
	switch {
	case k <= 0:
		return s.config.DefaultK
	case k > s.config.MaxK:
		return s.config.MaxK
	default:
		return k
	}
}

func parseMethod(raw string) (search.Method, error) {
	m, ok := search.ParseMethod(raw)
	if !ok {
		return m, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown search method %q", raw))
	}
	return m, nil
}

func (s *Server) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return s.builder.Provider().EmbedQuery(ctx, query)
}

// checkModel rejects searching resources embedded by another model.
func (s *Server) checkModel(model string) error {
	if model == "" {
		return nil
	}
	if want := s.builder.Provider().Model(); model != want {
		return fmt.Errorf("%w: resources use %q, queries use %q", ErrModelMismatch, model, want)
	}
	return nil
}

// toVRKai builds a VRKai from an uploaded document, or decodes it when the
// upload already is one.
func (s *Server) toVRKai(ctx context.Context, f ingest.File) (*vrkai.VRKai, error) {
	if ingest.FileType(f.Name) == "vrkai" {
		return vrkai.DecodeBytes(f.Data)
	}
	return s.builder.BuildVRKai(ctx, f)
}

func tenantFrom(c echo.Context) string {
	id, _ := tenant.FromContext(c.Request().Context())
	return id
}

func toResults(hits []search.RetrievedNode) []SearchResult {
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{
			Path:         h.Path.String(),
			Score:        h.Score,
			Kind:         string(h.Node.Content.Kind()),
			Metadata:     h.Node.Metadata,
			ResourceName: h.Header.Name,
			ResourceID:   h.Header.ID,

			ProximityGroup: h.ProximityGroup,
		}
		if text, ok := h.Node.Text(); ok {
			out[i].Text = text
		}
	}
	return out
}
