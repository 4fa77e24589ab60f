// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/proposal-drafter/internal/export"
	"github.com/pdiddy/proposal-drafter/internal/pipeline"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// DraftResponse is the body of a successful POST /v1/drafts.
type DraftResponse struct {
	RequestID   string           `json:"request_id"`
	PromptID    string           `json:"prompt_id"`
	Backend     string           `json:"backend"`
	BriefFormat string           `json:"brief_format"`
	Exemplars   []types.Exemplar `json:"exemplars"`
	Draft       string           `json:"draft"`
}

// ExportRequest is the body of POST /v1/exports.
type ExportRequest struct {
	Draft  string `json:"draft"`
	Format string `json:"format" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) createDraft(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			s.respondStatus(c, http.StatusBadRequest, "bad_request", fmt.Errorf("expected multipart/form-data: %w", err))
			return
		}
		s.respondError(c, fmt.Errorf("reading upload: %w", err))
		return
	}

	req := pipeline.Request{}
	for _, fh := range form.File["decks"] {
		up, err := readUpload(fh)
		if err != nil {
			s.respondError(c, err)
			return
		}
		req.Decks = append(req.Decks, up)
	}
	briefs := form.File["brief"]
	if len(briefs) > 1 {
		s.respondStatus(c, http.StatusBadRequest, "bad_request", fmt.Errorf("exactly one brief is required, got %d", len(briefs)))
		return
	}
	if len(briefs) == 1 {
		up, err := readUpload(briefs[0])
		if err != nil {
			s.respondError(c, err)
			return
		}
		req.Brief = &up
	}

	res, err := s.drafter.Run(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	exemplars := res.Exemplars
	if exemplars == nil {
		exemplars = []types.Exemplar{}
	}
	c.JSON(http.StatusOK, DraftResponse{
		RequestID:   c.GetString(requestIDKey),
		PromptID:    res.Prompt.ID,
		Backend:     res.Backend,
		BriefFormat: string(res.Brief.Format),
		Exemplars:   exemplars,
		Draft:       res.Draft,
	})
}

func (s *Server) createExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, err)
			return
		}
		s.respondStatus(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		s.respondStatus(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	out, err := export.Export(req.Draft, format)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Data(http.StatusOK, out.MIMEType, out.Data)
}

func readUpload(fh *multipart.FileHeader) (types.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return types.Upload{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return types.Upload{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return types.Upload{Name: fh.Filename, Data: data}, nil
}
