package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/genzchat/genzchat/internal/model/persona"
)

func TestListPersonalities(t *testing.T) {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed())).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/personalities", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Personalities []persona.Personality `json:"personalities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Personalities) != len(persona.Seed()) {
		t.Fatalf("expected %d personalities, got %d", len(persona.Seed()), len(body.Personalities))
	}
	if body.Personalities[0].Key != persona.DefaultKey || body.Personalities[0].Greeting == "" {
		t.Fatalf("unexpected first personality: %+v", body.Personalities[0])
	}
}
