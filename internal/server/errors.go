// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/internal/generate"
	"github.com/pdiddy/assessment-engine/internal/session"
)

// Error codes in the JSON error body.
const (
	codeNoDocument          = "no_document"
	codeDocumentTooLarge    = "document_too_large"
	codeInvalidRequest      = "invalid_request"
	codeEmptyDocument       = "empty_document"
	codeInsufficientContent = "insufficient_content"
	codeUnsupportedFormat   = "unsupported_format"
	codeExtractionFailure   = "extraction_failure"
	codeNotFound            = "not_found"
	codeAnswerUnavailable   = "answer_unavailable"
	codeCancelled           = "request_cancelled"
	codeTimeout             = "timeout"
	codeInternal            = "internal"
)

// statusClientClosedRequest is the non-standard status for a client that
// went away before the response was ready.
const statusClientClosedRequest = 499

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: msg})
}

// classify maps a pipeline error onto a status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, generate.ErrInvalidRequest):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, convert.ErrEmptyDocument):
		return http.StatusBadRequest, codeEmptyDocument
	case errors.Is(err, convert.ErrInsufficientContent):
		return http.StatusBadRequest, codeInsufficientContent
	case errors.Is(err, convert.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, codeUnsupportedFormat
	case errors.Is(err, convert.ErrExtractionFailure):
		return http.StatusUnprocessableEntity, codeExtractionFailure
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, generate.ErrAnswerUnavailable):
		return http.StatusServiceUnavailable, codeAnswerUnavailable
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, codeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("http.internal_error", "error", msg, "request_id", c.GetString(requestIDKey))
		msg = "internal error"
	}
	respondError(c, status, code, msg)
}
