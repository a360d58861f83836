package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/task"
)

func (s *Server) requireJobs(w http.ResponseWriter) bool {
	if s.jobs == nil {
		writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "job service is not configured"))
		return false
	}
	return true
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if !s.requireJobs(w) {
		return
	}
	var req task.SubmitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.jobs.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if !s.requireJobs(w) {
		return
	}
	job, err := s.jobs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if !s.requireJobs(w) {
		return
	}
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jobs, err := s.jobs.List(r.Context(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*task.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireJobs(w) {
		return
	}
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := s.jobs.Stats(r.Context(), opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// listOptionsFromQuery reads status, limit, offset, order, q, hasResult,
// since and until (RFC 3339) query parameters.
func listOptionsFromQuery(r *http.Request) ([]task.ListOption, error) {
	q := r.URL.Query()
	var opts []task.ListOption

	if raw := q.Get("status"); raw != "" {
		var statuses []task.Status
		for _, part := range strings.Split(raw, ",") {
			st := task.Status(strings.TrimSpace(part))
			if !task.IsValidStatus(st) {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "unknown status %q", part)
			}
			statuses = append(statuses, st)
		}
		opts = append(opts, task.WithStatuses(statuses...))
	}
	for key, apply := range map[string]func(int) task.ListOption{
		"limit":  task.WithLimit,
		"offset": task.WithOffset,
	} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%s must be an integer", key)
			}
			opts = append(opts, apply(n))
		}
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		opts = append(opts, task.WithSortOrder(task.SortByUpdatedAsc))
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "order must be asc or desc")
	}
	if raw := q.Get("hasResult"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "hasResult must be a boolean")
		}
		opts = append(opts, task.WithResultPresence(b))
	}
	for key, apply := range map[string]func(time.Time) task.ListOption{
		"since": task.WithUpdatedSince,
		"until": task.WithUpdatedUntil,
	} {
		if raw := q.Get(key); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%s must be RFC 3339", key)
			}
			opts = append(opts, apply(ts))
		}
	}
	if query := q.Get("q"); query != "" {
		opts = append(opts, task.WithQuery(query))
	}
	return opts, nil
}
