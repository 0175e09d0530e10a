// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/internal/generate"
	"github.com/pdiddy/assessment-engine/internal/model"
	"github.com/pdiddy/assessment-engine/internal/session"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const lectureText = "Supply and demand determine prices in a competitive market. " +
	"When demand rises and supply is fixed, the equilibrium price increases.\n\n" +
	"Price ceilings set below equilibrium create persistent shortages of the good. " +
	"Price floors set above equilibrium create surpluses that must be absorbed."

type textConverter struct {
	text string
	err  error
}

func (t textConverter) Convert(context.Context, []byte) (string, error) { return t.text, t.err }

// replyBackend answers every prompt with fn.
type replyBackend struct {
	fn func(prompt string) (string, error)
}

func (b replyBackend) Name() string { return "test" }

func (b replyBackend) Generate(_ context.Context, prompt string) (string, error) { return b.fn(prompt) }

func constant(reply string) replyBackend {
	return replyBackend{fn: func(string) (string, error) { return reply, nil }}
}

func newTestRouter(t *testing.T, conv convert.Converter, backend model.Backend) (*gin.Engine, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(session.Options{})
	extractor := convert.NewExtractor(conv, conv, convert.DefaultMinContentChars)
	coord := generate.New(extractor, model.NewClient(backend, model.ClientOptions{}), generate.Options{Store: store})
	return New(coord, types.ServerConfig{MaxUploadBytes: 1 << 20}, nil).Router(), store
}

type upload struct {
	filename string
	data     []byte
	fields   map[string]string
}

func postAssessment(t *testing.T, r http.Handler, u *upload) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if u.filename != "" {
		fw, err := mw.CreateFormFile("document", u.filename)
		require.NoError(t, err)
		_, err = fw.Write(u.data)
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var pdfBytes = []byte("%PDF-1.7 fake body")

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, textConverter{text: lectureText}, constant("x"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDPropagates(t *testing.T) {
	r, _ := newTestRouter(t, textConverter{text: lectureText}, constant("x"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestCreateAssessmentQuiz(t *testing.T) {
	reply := `[{"question":"What do price ceilings below equilibrium cause?","options":["Surpluses","Shortages","Inflation","Nothing"],"correctAnswer":1,"explanation":"The text says shortages."}]`
	r, _ := newTestRouter(t, textConverter{text: lectureText}, constant(reply))

	w := postAssessment(t, r, &upload{
		filename: "econ.pdf",
		data:     pdfBytes,
		fields:   map[string]string{"mode": "quiz", "count": "1", "difficulty": "easy"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Questions []types.QuizItem `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Questions, 1)
	assert.Equal(t, 1, body.Questions[0].CorrectAnswerIndex)
	assert.NotContains(t, w.Body.String(), "fallback", "source is not serialized")
}

func TestCreateAssessmentFallbackShapes(t *testing.T) {
	r, _ := newTestRouter(t, textConverter{text: lectureText}, replyBackend{fn: func(string) (string, error) {
		return "", errors.New("model offline")
	}})

	tests := []struct {
		mode    string
		wantKey string
	}{
		{mode: "quiz", wantKey: "questions"},
		{mode: "theory", wantKey: "theoryQuestions"},
		{mode: "questions", wantKey: "questions"},
		{mode: "summary", wantKey: "summary"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			w := postAssessment(t, r, &upload{filename: "econ.pdf", data: pdfBytes, fields: map[string]string{"mode": tt.mode}})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, tt.wantKey)
			if tt.mode == "summary" {
				assert.Contains(t, body, "extractedTextPreview")
			}
		})
	}
}

func TestCreateAssessmentErrors(t *testing.T) {
	tests := []struct {
		name       string
		conv       textConverter
		upload     *upload
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no document",
			conv:       textConverter{text: lectureText},
			upload:     &upload{fields: map[string]string{"mode": "quiz"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeNoDocument,
		},
		{
			name:       "unknown mode",
			conv:       textConverter{text: lectureText},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "essay"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequest,
		},
		{
			name:       "bad count",
			conv:       textConverter{text: lectureText},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "quiz", "count": "many"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequest,
		},
		{
			name:       "unsupported format",
			conv:       textConverter{text: lectureText},
			upload:     &upload{filename: "notes.txt", data: []byte("plain text"), fields: map[string]string{"mode": "quiz"}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   codeUnsupportedFormat,
		},
		{
			name:       "empty document",
			conv:       textConverter{text: ""},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "quiz"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeEmptyDocument,
		},
		{
			name:       "insufficient content",
			conv:       textConverter{text: strings.Repeat("a", 50)},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "summary"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInsufficientContent,
		},
		{
			name:       "extraction failure",
			conv:       textConverter{err: errors.New("encrypted")},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "quiz"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeExtractionFailure,
		},
		{
			name:       "unknown conversation",
			conv:       textConverter{text: lectureText},
			upload:     &upload{filename: "a.pdf", data: pdfBytes, fields: map[string]string{"mode": "summary", "conversationId": "nope"}},
			wantStatus: http.StatusNotFound,
			wantCode:   codeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.conv, constant("[]"))
			w := postAssessment(t, r, tt.upload)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestBatch(t *testing.T) {
	r, _ := newTestRouter(t, textConverter{text: lectureText}, replyBackend{fn: func(p string) (string, error) {
		if p == "second" {
			return "", &model.CallError{Kind: model.FailureAuth, Err: errors.New("denied")}
		}
		return "re: " + p, nil
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", strings.NewReader(`{"prompts":["first","second","third"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[
		{"ok":true,"text":"re: first"},
		{"ok":false,"error":"auth"},
		{"ok":true,"text":"re: third"}
	]}`, w.Body.String())

	for _, bad := range []string{`{}`, `{"prompts":[]}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/batch", strings.NewReader(bad))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestConversationLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, textConverter{text: lectureText}, replyBackend{fn: func(p string) (string, error) {
		if strings.HasSuffix(p, "assistant:") {
			return "Shortages.", nil
		}
		return "Markets set prices.", nil
	}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/conversations", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var conv types.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)

	sw := postAssessment(t, r, &upload{filename: "econ.pdf", data: pdfBytes, fields: map[string]string{"mode": "summary", "conversationId": conv.ID}})
	require.Equal(t, http.StatusOK, sw.Code, sw.Body.String())

	ask := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", strings.NewReader(`{"question":"What do ceilings cause?"}`))
	ask.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, ask)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"answer":"Shortages."}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Messages []types.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Len(t, hist.Messages, 4)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	ask = httptest.NewRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", strings.NewReader(`{"question":"Still there?"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, ask)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskModelFailure(t *testing.T) {
	r, store := newTestRouter(t, textConverter{text: lectureText}, replyBackend{fn: func(string) (string, error) {
		return "", errors.New("offline")
	}})
	conv, err := store.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", strings.NewReader(`{"question":"Hello?"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, codeAnswerUnavailable, decodeError(t, w).Error)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "unexpected", err: errors.New("surprise"), wantStatus: http.StatusInternalServerError, wantCode: codeInternal},
		{name: "extraction", err: convert.ErrExtractionFailure, wantStatus: http.StatusUnprocessableEntity, wantCode: codeExtractionFailure},
		{
			name:       "client went away",
			err:        fmt.Errorf("extracting deck.pptx: %w", context.Canceled),
			wantStatus: statusClientClosedRequest,
			wantCode:   codeCancelled,
		},
		{name: "deadline", err: fmt.Errorf("extracting: %w", context.DeadlineExceeded), wantStatus: http.StatusGatewayTimeout, wantCode: codeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
