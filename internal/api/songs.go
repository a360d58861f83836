package api

import (
	"context"
	"net/http"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
)

// songResponse wraps a song; per-part failures are reported in its facets.
type songResponse struct {
	Song *studio.Song `json:"song"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req studio.SongRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	song, err := s.studio.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if !song.Complete() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, songResponse{Song: song})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.songOp(w, r, s.studio.Analyze)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	s.songOp(w, r, s.studio.Evaluate)
}

func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	s.songOp(w, r, func(_ context.Context, song *studio.Song) error {
		return s.studio.ApplySuggestion(song)
	})
}

type editImageRequest struct {
	Song   *studio.Song `json:"song"`
	Prompt string       `json:"prompt"`
}

func (s *Server) handleEditImage(w http.ResponseWriter, r *http.Request) {
	var req editImageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Song == nil {
		writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "song is required"))
		return
	}
	if err := s.studio.EditImage(r.Context(), req.Song, req.Prompt); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songResponse{Song: req.Song})
}

// songOp decodes a song, runs op on it and returns the updated song.
func (s *Server) songOp(w http.ResponseWriter, r *http.Request, op func(context.Context, *studio.Song) error) {
	var song studio.Song
	if err := decode(r, &song); err != nil {
		writeError(w, err)
		return
	}
	if err := op(r.Context(), &song); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songResponse{Song: &song})
}
