package http

import (
	"encoding/json"
	"net/http"

	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/config"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	Matchmaker *service.Matchmaker
	Config     config.Config
}

func NewHandler(mm *service.Matchmaker, cfg config.Config) *Handler {
	return &Handler{
		Matchmaker: mm,
		Config:     cfg,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/ws", h.ServeWS)

	return r
}

// Health reports process liveness plus current client and room counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	clients, rooms := h.Matchmaker.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clients,
		"rooms":   rooms,
	})
}
