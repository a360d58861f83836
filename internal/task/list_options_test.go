package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SongForge/internal/studio"
)

func TestBuildListOptionsNormalizes(t *testing.T) {
	opts := BuildListOptions([]ListOption{
		WithLimit(500),
		WithOffset(-3),
		WithStatuses(StatusFailed, "bogus", StatusFailed, StatusPending),
		WithSortOrder(SortOrder(7)),
		WithQuery("  neon "),
		nil,
	})
	assert.Equal(t, maxListLimit, opts.Limit)
	assert.Equal(t, 0, opts.Offset)
	assert.Equal(t, []Status{StatusFailed, StatusPending}, opts.Statuses)
	assert.Equal(t, SortByUpdatedDesc, opts.Order)
	assert.Equal(t, "neon", opts.Query)

	assert.Equal(t, defaultListLimit, BuildListOptions(nil).Limit)
	assert.Nil(t, BuildListOptions([]ListOption{WithStatuses("bogus")}).Statuses)
	assert.Zero(t, BuildListOptions([]ListOption{WithUpdatedSince(time.Time{})}).UpdatedGTE)
}

func TestListOptionsMatchesSongFields(t *testing.T) {
	job := &Job{
		ID:        "job-42",
		Request:   studio.SongRequest{PresetID: "midnight-drive-synthwave"},
		Status:    StatusSucceeded,
		Result:    &studio.Song{Title: "Neon Rain"},
		UpdatedAt: 100,
	}

	cases := map[string]struct {
		opts []ListOption
		want bool
	}{
		"id":             {[]ListOption{WithQuery("JOB-4")}, true},
		"preset":         {[]ListOption{WithQuery("synthwave")}, true},
		"title":          {[]ListOption{WithQuery("neon rain")}, true},
		"no field":       {[]ListOption{WithQuery("ballad")}, false},
		"status":         {[]ListOption{WithStatuses(StatusFailed)}, false},
		"updated window": {[]ListOption{WithUpdatedSince(time.Unix(50, 0)), WithUpdatedUntil(time.Unix(150, 0))}, true},
		"too old":        {[]ListOption{WithUpdatedSince(time.Unix(101, 0))}, false},
		"without result": {[]ListOption{WithResultPresence(false)}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildListOptions(tc.opts).Matches(job))
		})
	}

	pending := &Job{ID: "job-43", Status: StatusPending, LastError: "gemini timeout"}
	assert.True(t, BuildListOptions([]ListOption{WithQuery("timeout")}).Matches(pending))
	assert.False(t, BuildListOptions([]ListOption{WithQuery("neon")}).Matches(pending))
}

func TestListOptionsPageOrdersAndSlices(t *testing.T) {
	jobs := func() []*Job {
		return []*Job{
			{ID: "b", UpdatedAt: 10, CreatedAt: 1},
			{ID: "a", UpdatedAt: 10, CreatedAt: 1},
			{ID: "c", UpdatedAt: 30},
			{ID: "d", UpdatedAt: 20},
		}
	}
	ids := func(js []*Job) []string {
		out := make([]string, len(js))
		for i, j := range js {
			out[i] = j.ID
		}
		return out
	}

	desc := BuildListOptions(nil).page(jobs())
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids(desc))

	asc := BuildListOptions([]ListOption{WithSortOrder(SortByUpdatedAsc), WithOffset(1), WithLimit(2)}).page(jobs())
	assert.Equal(t, []string{"b", "d"}, ids(asc))

	assert.Empty(t, BuildListOptions([]ListOption{WithOffset(9)}).page(jobs()))
}

func TestListOptionsWhere(t *testing.T) {
	clause, args := BuildListOptions(nil).where()
	assert.Empty(t, clause)
	assert.Empty(t, args)

	opts := BuildListOptions([]ListOption{
		WithStatuses(StatusPending, StatusRunning),
		WithUpdatedSince(time.Unix(5, 0)),
		WithResultPresence(true),
		WithQuery("rain"),
	})
	clause, args = opts.where()
	require.Equal(t,
		"status IN (?,?) AND updated_at >= ? AND result IS NOT NULL AND (id LIKE ? OR preset_id LIKE ? OR title LIKE ? OR last_error LIKE ?)",
		clause)
	assert.Equal(t, []any{"pending", "running", int64(5), "%rain%", "%rain%", "%rain%", "%rain%"}, args)
	assert.Equal(t, " ORDER BY updated_at DESC, created_at DESC, id DESC", opts.orderBy())
}
