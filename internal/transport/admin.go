package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"canvassync/internal/canvas"
	"canvassync/internal/session"
)

// AdminAPI exposes read-only introspection plus the administrative
// canvas clear operation.
type AdminAPI struct {
	registry *canvas.Registry
	sessions *session.Manager
}

func NewAdminAPI(registry *canvas.Registry, sessions *session.Manager) *AdminAPI {
	return &AdminAPI{registry: registry, sessions: sessions}
}

func (a *AdminAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /api/canvases", a.handleListCanvases)
	mux.HandleFunc("DELETE /api/canvases/{id}", a.handleClearCanvas)
}

func (a *AdminAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"canvases": a.registry.Count(),
		"sessions": a.sessions.Count(),
	})
}

type canvasInfo struct {
	ID       string          `json:"id"`
	Users    []string        `json:"users"`
	Segments int             `json:"segments"`
	Drawing  map[string]bool `json:"drawing,omitempty"`
}

func (a *AdminAPI) handleListCanvases(w http.ResponseWriter, r *http.Request) {
	ids := a.registry.CanvasIDs()
	infos := make([]canvasInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, canvasInfo{
			ID:       id,
			Users:    a.registry.MembersOf(id),
			Segments: len(a.registry.HistoryOf(id)),
			Drawing:  a.registry.DrawingUsers(id),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (a *AdminAPI) handleClearCanvas(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a.registry.Clear(id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
