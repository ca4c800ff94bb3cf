package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/genzchat/genzchat/internal/handler/chat"
	"github.com/genzchat/genzchat/internal/handler/persona"
	"github.com/genzchat/genzchat/internal/handler/stream"
	middlewarePkg "github.com/genzchat/genzchat/internal/middleware"
	personaModel "github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
	"github.com/genzchat/genzchat/pkg/utils"
)

// NewRouter wires the chat endpoint routes to the stub services.
func NewRouter(personas personaModel.Store, transcripts *transcript.Service, resp *responder.Responder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := persona.New(personas)
	streamHandler := stream.New(resp, transcripts, personas)
	chatHandler := chat.New(resp, transcripts, personas)

	r.Get("/", handleIndex)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Gen-Z chat dev server is running",
		"endpoints": map[string]string{
			"chat":          "POST /api/chat",
			"stream":        "POST /api/chat/stream",
			"personalities": "GET /api/personalities",
			"transcript":    "GET /api/sessions/{sessionID}/transcript",
			"health":        "GET /api/health",
		},
	})
}
