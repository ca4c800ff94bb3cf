package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
	recordstream "github.com/genzchat/genzchat/internal/stream"
)

func setupRouter(t *testing.T) (*chi.Mux, *transcript.Service) {
	t.Helper()
	resp, err := responder.New(context.Background(), 0)
	if err != nil {
		t.Fatalf("build responder: %v", err)
	}
	transcripts := transcript.NewService()
	store := persona.NewMemoryStore(persona.Seed())
	handler := New(resp, transcripts, store)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, transcripts
}

func postStream(r http.Handler, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func parseRecords(t *testing.T, body string) []recordstream.Record {
	t.Helper()
	var records []recordstream.Record
	for _, line := range strings.Split(body, "\n") {
		rec, ok, err := recordstream.ParseLine([]byte(line))
		if err != nil {
			t.Fatalf("malformed record %q: %v", line, err)
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records
}

func TestStreamSendsChunksThenDone(t *testing.T) {
	r, transcripts := setupRouter(t)

	resp := postStream(r, chat.StreamRequest{Message: "hello", SessionID: "s1", Personality: "study_buddy"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	records := parseRecords(t, resp.Body.String())
	if len(records) < 2 {
		t.Fatalf("expected chunk and done records, got %d", len(records))
	}

	var joined strings.Builder
	for _, rec := range records[:len(records)-1] {
		if rec.Done {
			t.Fatalf("done record before the end: %+v", rec)
		}
		joined.WriteString(rec.Chunk)
	}

	last := records[len(records)-1]
	if !last.Done || last.Chunk != "" {
		t.Fatalf("unexpected final record: %+v", last)
	}
	if last.FullResponse != joined.String() {
		t.Fatalf("full response %q does not match chunks %q", last.FullResponse, joined.String())
	}

	entries, err := transcripts.LoadTranscript(context.Background(), "s1")
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(entries) != 2 || entries[1].Role != chat.RoleAssistant {
		t.Fatalf("expected user and assistant entries, got %+v", entries)
	}
}

func TestStreamMissingMessage(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postStream(r, chat.StreamRequest{Message: "   "})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Message is required" {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestStreamFailureSendsErrorRecord(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postStream(r, chat.StreamRequest{Message: "!error quota exceeded"})

	records := parseRecords(t, resp.Body.String())
	if len(records) != 1 {
		t.Fatalf("expected a single record, got %d", len(records))
	}
	if records[0].Error != "quota exceeded" || !records[0].Done {
		t.Fatalf("unexpected error record: %+v", records[0])
	}
}

func TestStreamDefaultsSessionID(t *testing.T) {
	r, transcripts := setupRouter(t)

	postStream(r, map[string]string{"message": "yo"})

	session, err := transcripts.GetSession(context.Background(), DefaultSessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if session.Personality != persona.DefaultKey {
		t.Fatalf("expected default personality, got %s", session.Personality)
	}
}

func TestBeginKeepsBoundPersonality(t *testing.T) {
	transcripts := transcript.NewService()
	store := persona.NewMemoryStore(persona.Seed())
	ctx := context.Background()

	first, turn, err := Begin(ctx, transcripts, store, chat.StreamRequest{Message: "a", SessionID: "s", Personality: "therapist_friend"})
	if err != nil {
		t.Fatalf("Begin err: %v", err)
	}
	if first.Key != "therapist_friend" || turn != 1 {
		t.Fatalf("unexpected first turn: %s %d", first.Key, turn)
	}

	second, turn, err := Begin(ctx, transcripts, store, chat.StreamRequest{Message: "b", SessionID: "s", Personality: "study_buddy"})
	if err != nil {
		t.Fatalf("Begin err: %v", err)
	}
	if second.Key != "therapist_friend" || turn != 2 {
		t.Fatalf("expected bound personality on turn 2, got %s %d", second.Key, turn)
	}
}
