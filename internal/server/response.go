// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// APIError is the body of every error response. Message is the error text,
// unchanged.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
}

// classify maps an error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	var (
		missing     *types.MissingInputError
		parse       *types.ParseError
		decode      *types.DecodeError
		unsupported *types.UnsupportedFormatError
		generation  *types.GenerationError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, "missing_input"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.As(err, &parse):
		return http.StatusUnprocessableEntity, "parse_error"
	case errors.As(err, &decode):
		return http.StatusUnprocessableEntity, "decode_error"
	case errors.As(err, &generation):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "generation_timeout"
		}
		return http.StatusBadGateway, "generation_failed"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	s.respondStatus(c, status, code, err)
}

func (s *Server) respondStatus(c *gin.Context, status int, code string, err error) {
	id := c.GetString(requestIDKey)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", requestIDKey, id, "code", code, "error", err)
	} else {
		s.log.Warn("request rejected", requestIDKey, id, "code", code, "error", err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{
		Error:     APIError{Message: err.Error(), Code: code},
		RequestID: id,
	})
}
