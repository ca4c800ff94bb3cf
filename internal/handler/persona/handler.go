package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/pkg/utils"
)

// Handler 人格列表的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建人格处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册人格相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personalities", h.handleListPersonalities)
}

func (h *Handler) handleListPersonalities(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"personalities": h.personas.List(),
	})
}
