package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
	recordstream "github.com/genzchat/genzchat/internal/stream"
	"github.com/genzchat/genzchat/pkg/utils"
)

// DefaultSessionID is used when a request carries no session id.
const DefaultSessionID = "default"

// Handler streams replies as `data: <json>` records.
type Handler struct {
	responder   *responder.Responder
	transcripts *transcript.Service
	personas    persona.Store
	logger      zerolog.Logger
}

// New creates a stream handler.
func New(resp *responder.Responder, transcripts *transcript.Service, personas persona.Store) *Handler {
	return &Handler{
		responder:   resp,
		transcripts: transcripts,
		personas:    personas,
		logger:      log.With().Str("component", "devserver").Logger(),
	}
}

// RegisterRoutes registers the streaming chat route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

// DecodeRequest reads a chat request body and fills in the default session.
func DecodeRequest(r *http.Request) (chat.StreamRequest, error) {
	var req chat.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chat.StreamRequest{}, errors.Wrap(err, "decode chat request")
	}
	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}
	return req, nil
}

// Begin binds the request to its transcript and records the user message.
// It returns the personality the session is bound to and the turn number.
func Begin(ctx context.Context, transcripts *transcript.Service, personas persona.Store, req chat.StreamRequest) (persona.Personality, int, error) {
	p, ok := personas.FindByKey(req.Personality)
	if !ok {
		p, _ = persona.Resolve(personas, persona.DefaultKey)
	}

	session, _, err := transcripts.Ensure(ctx, req.SessionID, p.Key)
	if err != nil {
		return persona.Personality{}, 0, err
	}
	if session.Personality != p.Key {
		if bound, ok := personas.FindByKey(session.Personality); ok {
			p = bound
		}
	}

	if _, err := transcripts.Append(ctx, session.ID, chat.RoleUser, req.Message); err != nil {
		return persona.Personality{}, 0, err
	}
	return p, transcripts.Turns(ctx, session.ID), nil
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, err := DecodeRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx := r.Context()
	p, turn, err := Begin(ctx, h.transcripts, h.personas, req)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to start turn")
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	sr, err := h.responder.Stream(ctx, p, turn, req.Message)
	if err != nil {
		h.sendError(w, flusher, req.SessionID, err)
		return
	}
	defer sr.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := sr.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			if ctx.Err() != nil {
				h.logger.Debug().Str("session_id", req.SessionID).Msg("client left mid-stream")
				return
			}
			h.sendError(w, flusher, req.SessionID, recvErr)
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		chunks = append(chunks, chunk)
		if err := utils.SendEvent(w, flusher, recordstream.ChunkRecord(chunk.Content)); err != nil {
			h.logger.Debug().Err(err).Str("session_id", req.SessionID).Msg("stream write failed")
			return
		}
	}

	full := ""
	if len(chunks) > 0 {
		reply, err := schema.ConcatMessages(chunks)
		if err != nil {
			h.sendError(w, flusher, req.SessionID, err)
			return
		}
		full = reply.Content
	}

	if err := utils.SendEvent(w, flusher, recordstream.DoneRecord(full)); err != nil {
		h.logger.Debug().Err(err).Str("session_id", req.SessionID).Msg("stream write failed")
		return
	}

	if _, err := h.transcripts.Append(ctx, req.SessionID, chat.RoleAssistant, full); err != nil {
		h.logger.Warn().Err(err).Msg("failed to save assistant message")
	}

	h.logger.Info().
		Str("session_id", req.SessionID).
		Str("personality", p.Key).
		Int("turn", turn).
		Msg("completed streamed reply")
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, sessionID string, cause error) {
	h.logger.Warn().Err(cause).Str("session_id", sessionID).Msg("reply failed")
	if err := utils.SendEvent(w, flusher, recordstream.ErrorRecord(cause.Error())); err != nil {
		h.logger.Debug().Err(err).Msg("failed to send error record")
	}
}
