package task

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SortOrder orders listed jobs by their last update.
type SortOrder int

const (
	// SortByUpdatedDesc lists the most recently updated jobs first.
	SortByUpdatedDesc SortOrder = iota
	// SortByUpdatedAsc lists the oldest updates first.
	SortByUpdatedAsc
)

// ListOptions selects generation jobs. Query is a case-insensitive substring
// matched against the job id, the requested preset, the generated song title
// and the last error, in that order.
type ListOptions struct {
	Limit      int
	Offset     int
	Statuses   []Status
	UpdatedGTE int64
	UpdatedLTE int64
	HasResult  *bool
	Order      SortOrder
	Query      string
}

// ListOption mutates ListOptions.
type ListOption func(*ListOptions)

// BuildListOptions applies opts and normalizes the result.
func BuildListOptions(opts []ListOption) ListOptions {
	var options ListOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	options.applyDefaults()
	return options
}

func WithLimit(limit int) ListOption   { return func(o *ListOptions) { o.Limit = limit } }
func WithOffset(offset int) ListOption { return func(o *ListOptions) { o.Offset = offset } }

// WithStatuses keeps jobs in any of statuses. Unknown values are dropped.
func WithStatuses(statuses ...Status) ListOption {
	return func(o *ListOptions) { o.Statuses = slices.Clone(statuses) }
}

// WithUpdatedSince keeps jobs updated at or after ts. A zero ts clears the bound.
func WithUpdatedSince(ts time.Time) ListOption {
	return func(o *ListOptions) { o.UpdatedGTE = unixOrZero(ts) }
}

// WithUpdatedUntil keeps jobs updated at or before ts. A zero ts clears the bound.
func WithUpdatedUntil(ts time.Time) ListOption {
	return func(o *ListOptions) { o.UpdatedLTE = unixOrZero(ts) }
}

// WithResultPresence keeps jobs with (or without) a stored song.
func WithResultPresence(hasResult bool) ListOption {
	return func(o *ListOptions) { o.HasResult = &hasResult }
}

func WithSortOrder(order SortOrder) ListOption {
	return func(o *ListOptions) { o.Order = order }
}

// WithQuery searches the id, preset, song title and last error.
func WithQuery(query string) ListOption {
	return func(o *ListOptions) { o.Query = query }
}

func unixOrZero(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.Unix()
}

func (o *ListOptions) applyDefaults() {
	switch {
	case o.Limit <= 0:
		o.Limit = defaultListLimit
	case o.Limit > maxListLimit:
		o.Limit = maxListLimit
	}
	o.Offset = max(o.Offset, 0)
	if o.Order != SortByUpdatedAsc {
		o.Order = SortByUpdatedDesc
	}
	o.Query = strings.TrimSpace(o.Query)

	var statuses []Status
	for _, s := range o.Statuses {
		if IsValidStatus(s) && !slices.Contains(statuses, s) {
			statuses = append(statuses, s)
		}
	}
	o.Statuses = statuses
}

// searchable lists the job text Query is matched against. The SQL columns in
// searchColumns follow the same order.
func searchable(job *Job) []string {
	return []string{job.ID, job.Request.PresetID, job.Title(), job.LastError}
}

var searchColumns = []string{"id", "preset_id", "title", "last_error"}

// Matches reports whether job passes every filter. Paging is not applied.
func (o ListOptions) Matches(job *Job) bool {
	if len(o.Statuses) > 0 && !slices.Contains(o.Statuses, job.Status) {
		return false
	}
	if o.UpdatedGTE > 0 && job.UpdatedAt < o.UpdatedGTE {
		return false
	}
	if o.UpdatedLTE > 0 && job.UpdatedAt > o.UpdatedLTE {
		return false
	}
	if o.HasResult != nil && (job.Result != nil) != *o.HasResult {
		return false
	}
	if o.Query == "" {
		return true
	}
	q := strings.ToLower(o.Query)
	return slices.ContainsFunc(searchable(job), func(field string) bool {
		return strings.Contains(strings.ToLower(field), q)
	})
}

// before orders a ahead of b: by update time, then creation time, then id.
func (o ListOptions) before(a, b *Job) bool {
	if o.Order == SortByUpdatedAsc {
		a, b = b, a
	}
	if a.UpdatedAt != b.UpdatedAt {
		return a.UpdatedAt > b.UpdatedAt
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// page sorts jobs and cuts the requested window out of them.
func (o ListOptions) page(jobs []*Job) []*Job {
	slices.SortFunc(jobs, func(a, b *Job) int {
		switch {
		case o.before(a, b):
			return -1
		case o.before(b, a):
			return 1
		}
		return 0
	})
	if o.Offset >= len(jobs) {
		return []*Job{}
	}
	jobs = jobs[o.Offset:]
	return jobs[:min(len(jobs), o.Limit)]
}

// where renders the filters as a SQL condition over song_jobs.
func (o ListOptions) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(o.Statuses) > 0 {
		conds = append(conds, "status IN ("+strings.TrimSuffix(strings.Repeat("?,", len(o.Statuses)), ",")+")")
		for _, s := range o.Statuses {
			args = append(args, string(s))
		}
	}
	if o.UpdatedGTE > 0 {
		conds = append(conds, "updated_at >= ?")
		args = append(args, o.UpdatedGTE)
	}
	if o.UpdatedLTE > 0 {
		conds = append(conds, "updated_at <= ?")
		args = append(args, o.UpdatedLTE)
	}
	if o.HasResult != nil {
		if *o.HasResult {
			conds = append(conds, "result IS NOT NULL")
		} else {
			conds = append(conds, "result IS NULL")
		}
	}
	if o.Query != "" {
		likes := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			likes[i] = col + " LIKE ?"
			args = append(args, "%"+o.Query+"%")
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}
	return strings.Join(conds, " AND "), args
}

func (o ListOptions) orderBy() string {
	dir := "DESC"
	if o.Order == SortByUpdatedAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY updated_at %[1]s, created_at %[1]s, id %[1]s", dir)
}
