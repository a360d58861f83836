package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/plugin"
)

// pluginView is a registry entry as seen by API clients.
type pluginView struct {
	plugin.Entry
	Identity plugin.Identity         `json:"identity"`
	Ready    bool                    `json:"ready"`
	Provides []plugin.CapabilityType `json:"provides"`
}

func (s *Server) view(e plugin.Entry) pluginView {
	v := pluginView{Entry: e, Ready: s.registry.IsReady(e.ID)}
	if e.Plugin != nil {
		v.Identity = e.Plugin.Identity()
		v.Provides = plugin.Capabilities(e.Plugin)
	}
	return v
}

func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	var entries []plugin.Entry
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := plugin.ParseCapabilityType(raw)
		if err != nil {
			writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid type filter"))
			return
		}
		entries = s.registry.ByType(t)
	} else {
		entries = s.registry.Entries()
	}
	views := make([]pluginView, 0, len(entries))
	for _, e := range entries {
		views = append(views, s.view(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Summary())
}

func (s *Server) handleGetPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, ok := s.registry.Get(id)
	if !ok {
		writeError(w, xerrors.Newf(xerrors.CodeNotFound, "plugin %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.view(e))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.registry.Activate)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.registry.Deactivate)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func(string) error) {
	id := mux.Vars(r)["id"]
	if err := op(id); err != nil {
		writeError(w, err)
		return
	}
	e, _ := s.registry.Get(id)
	writeJSON(w, http.StatusOK, s.view(e))
}

type initializeRequest struct {
	Config map[string]string `json:"config"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req initializeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.registry.Initialize(r.Context(), id, req.Config); err != nil {
		writeError(w, err)
		return
	}
	e, _ := s.registry.Get(id)
	writeJSON(w, http.StatusOK, s.view(e))
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.registry.Unregister(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, xerrors.New(xerrors.CodeNotFound, "registry history is not recorded"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	snapshots, err := s.history.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.Presets().List())
}
