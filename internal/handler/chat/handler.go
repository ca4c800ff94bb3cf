package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/handler/stream"
	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
	"github.com/genzchat/genzchat/pkg/utils"
)

// Handler 非流式聊天接口的HTTP处理器
type Handler struct {
	responder   *responder.Responder
	transcripts *transcript.Service
	personas    persona.Store
}

// New 创建聊天处理器
func New(resp *responder.Responder, transcripts *transcript.Service, personas persona.Store) *Handler {
	return &Handler{
		responder:   resp,
		transcripts: transcripts,
		personas:    personas,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/sessions/{sessionID}/transcript", h.handleTranscript)
}

// handleChat answers in one JSON body: {response, session_id}.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := stream.DecodeRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx := r.Context()
	p, turn, err := stream.Begin(ctx, h.transcripts, h.personas, req)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := h.responder.Reply(ctx, p, turn, req.Message)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := h.transcripts.Append(ctx, req.SessionID, chat.RoleAssistant, reply); err != nil {
		log.Warn().Err(err).Str("component", "devserver").Msg("failed to save assistant message")
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"response":   reply,
		"session_id": req.SessionID,
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	session, err := h.transcripts.GetSession(ctx, sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transcript.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	entries, err := h.transcripts.LoadTranscript(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": entries,
	})
}
