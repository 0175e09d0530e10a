// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/internal/session"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// createAssessment handles a multipart upload: a "document" file plus the
// mode, count, difficulty, and conversationId form fields.
func (s *Server) createAssessment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	fh, err := c.FormFile("document")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, codeDocumentTooLarge,
				fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		respondError(c, http.StatusBadRequest, codeNoDocument, "a document file is required in the \"document\" field")
		return
	}

	req, err := requestFromForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, fmt.Errorf("reading upload: %w", err))
		return
	}

	kind, err := convert.DetectKind(fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		s.fail(c, err)
		return
	}

	doc := types.SourceDocument{Name: fh.Filename, Kind: kind, Data: data}
	p, err := s.coord.Run(c.Request.Context(), doc, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func requestFromForm(c *gin.Context) (types.AssessmentRequest, error) {
	req := types.AssessmentRequest{
		Mode:           types.Mode(c.PostForm("mode")),
		Difficulty:     types.Difficulty(c.PostForm("difficulty")),
		ConversationID: strings.TrimSpace(c.PostForm("conversationId")),
	}
	if raw := strings.TrimSpace(c.PostForm("count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return req, fmt.Errorf("count must be a positive integer, got %q", raw)
		}
		req.Count = n
	}
	return req.Normalize()
}

type batchRequest struct {
	Prompts []string `json:"prompts" binding:"required"`
}

type batchSlot struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) batch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "body must be {\"prompts\": [...]}")
		return
	}
	if len(body.Prompts) == 0 {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "prompts must not be empty")
		return
	}

	results := s.coord.Batch(c.Request.Context(), body.Prompts)
	slots := make([]batchSlot, len(results))
	for i, r := range results {
		if r.OK() {
			slots[i] = batchSlot{OK: true, Text: r.Text}
		} else {
			slots[i] = batchSlot{Error: string(r.Failure)}
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": slots})
}

func (s *Server) store() (session.Store, error) {
	if st := s.coord.Store(); st != nil {
		return st, nil
	}
	return nil, session.ErrNotFound
}

func (s *Server) createConversation(c *gin.Context) {
	st, err := s.store()
	if err != nil {
		s.fail(c, err)
		return
	}
	conv, err := st.Create(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) conversationHistory(c *gin.Context) {
	st, err := s.store()
	if err != nil {
		s.fail(c, err)
		return
	}
	msgs, err := st.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) ask(c *gin.Context) {
	var body askRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, codeInvalidRequest, "body must be {\"question\": \"...\"}")
		return
	}
	answer, err := s.coord.Ask(c.Request.Context(), c.Param("id"), body.Question)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) closeConversation(c *gin.Context) {
	st, err := s.store()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := st.Close(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
