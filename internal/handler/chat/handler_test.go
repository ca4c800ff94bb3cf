package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	resp, err := responder.New(context.Background(), 0)
	if err != nil {
		t.Fatalf("build responder: %v", err)
	}
	handler := New(resp, transcript.NewService(), persona.NewMemoryStore(persona.Seed()))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postChat(r http.Handler, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatReturnsResponse(t *testing.T) {
	r := setupRouter(t)

	resp := postChat(r, map[string]string{"message": "hi there", "session_id": "abc"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["session_id"] != "abc" {
		t.Fatalf("unexpected session id %q", body["session_id"])
	}
	if !strings.Contains(body["response"], "hi there") {
		t.Fatalf("unexpected response %q", body["response"])
	}
}

func TestChatMissingMessage(t *testing.T) {
	r := setupRouter(t)

	resp := postChat(r, map[string]string{"session_id": "abc"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatInvalidBody(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{"))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTranscriptAfterChat(t *testing.T) {
	r := setupRouter(t)
	postChat(r, map[string]string{"message": "one", "session_id": "t1"})
	postChat(r, map[string]string{"message": "two", "session_id": "t1"})

	req := httptest.NewRequest(http.MethodGet, "/sessions/t1/transcript", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Messages []transcript.Entry `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Messages) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(body.Messages))
	}
}

func TestTranscriptUnknownSession(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/transcript", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
