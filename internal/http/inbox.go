package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
)

// handleInboxUpload stages uploaded files in an inbox.
func (s *Server) handleInboxUpload(c echo.Context) error {
	inbox := c.Param("inbox")
	files, err := formFiles(c, "files")
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)
	for _, f := range files {
		if err := s.store.AddFileToInbox(ctx, id, inbox, f.Name, f.Data); err != nil {
			return err
		}
	}
	names, err := s.store.InboxFilenames(ctx, id, inbox)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, InboxResponse{Inbox: inbox, Files: names})
}

func (s *Server) handleInboxList(c echo.Context) error {
	inbox := c.Param("inbox")
	names, err := s.store.InboxFilenames(c.Request().Context(), tenantFrom(c), inbox)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, InboxResponse{Inbox: inbox, Files: names})
}

func (s *Server) handleInboxDelete(c echo.Context) error {
	if err := s.store.RemoveInbox(c.Request().Context(), tenantFrom(c), c.Param("inbox")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleInboxIngest turns every staged file into an item under parent and
// removes the inbox once all of them are saved.
func (s *Server) handleInboxIngest(c echo.Context) error {
	start := time.Now()
	inbox := c.Param("inbox")
	parent, err := resource.ParsePath(c.QueryParam("parent"))
	if err != nil {
		return err
	}
	ctx, id := c.Request().Context(), tenantFrom(c)

	staged, err := s.store.InboxFiles(ctx, id, inbox)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(ctx, id, parent); err != nil {
		return err
	}
	items := make([]*vecfs.Item, 0, len(staged))
	for _, f := range staged {
		v, err := s.toVRKai(ctx, ingest.File{Name: f.Name, Data: f.Data})
		if errors.Is(err, ingest.ErrUnsupportedFileType) {
			s.logger.Warn(ctx, "skipping unsupported inbox file", zap.String("file", f.Name))
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		it, err := s.fs.SaveVRKai(ctx, id, parent, v)
		if err != nil {
			return err
		}
		items = append(items, it)
	}
	if err := s.store.RemoveInbox(ctx, id, inbox); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, IngestResponse{Inbox: inbox, Items: items, Took: time.Since(start)})
}
