package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/embeddings"
	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/tenant"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

// ErrModelMismatch is returned when a query would be embedded by a
// different model than the one the searched resources were embedded with.
var ErrModelMismatch = errors.New("embedding model mismatch")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto status codes. Unknown errors are 500.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, vecfs.ErrPathExists):
		return http.StatusConflict
	case errors.Is(err, kvstore.ErrNotFound),
		errors.Is(err, resource.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, kvstore.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, embeddings.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, vrkai.ErrCodec),
		errors.Is(err, vrkai.ErrNotVRKai),
		errors.Is(err, vrkai.ErrMixedModels),
		errors.Is(err, ErrModelMismatch),
		errors.Is(err, vecfs.ErrInvalidPathType),
		errors.Is(err, resource.ErrInvalidPath),
		errors.Is(err, resource.ErrNotAResource),
		errors.Is(err, resource.ErrInvalidNodeID),
		errors.Is(err, ingest.ErrUnsupportedFileType),
		errors.Is(err, ingest.ErrNoText),
		errors.Is(err, embeddings.ErrEmptyInput),
		errors.Is(err, tenant.ErrInvalidTenantID),
		errors.Is(err, kvstore.ErrInvalidTenant),
		errors.Is(err, kvstore.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := statusFor(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
			if code == http.StatusInternalServerError {
				msg = http.StatusText(code)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, ErrorResponse{Error: msg})
		}
		if err != nil {
			logger.Warn("writing error response", zap.Error(err))
		}
	}
}
