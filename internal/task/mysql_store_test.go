package task

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
)

var fixedNow = time.Unix(1717000000, 0)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewMySQLStore(db)
	require.NoError(t, err)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "request", "metadata", "status", "attempts", "max_retries",
		"last_error", "error_code", "result", "created_at", "updated_at"})
}

func TestMySQLStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)
	job := &Job{ID: "job-1", Request: studio.SongRequest{PresetID: "indie-dreamscape"}, Status: StatusPending, MaxRetries: 3}
	request, _ := json.Marshal(job.Request)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO song_jobs")).
		WithArgs("job-1", string(request), "indie-dreamscape", nil, "pending", 0, 3, fixedNow.Unix(), fixedNow.Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Create(context.Background(), job))
	assert.Equal(t, fixedNow.Unix(), job.CreatedAt)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO song_jobs")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	err := store.Create(context.Background(), &Job{ID: "job-1"})
	assert.True(t, IsJobError(err, CodeJobConflict))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreGetDecodesJSON(t *testing.T) {
	store, mock := newMockStore(t)
	song, _ := json.Marshal(studio.Song{Title: "Neon Rain", Lyrics: "[Chorus]\nla"})

	mock.ExpectQuery(regexp.QuoteMeta("FROM song_jobs WHERE id = ?")).
		WithArgs("job-1").
		WillReturnRows(jobRows().AddRow("job-1", `{"presetId":"city-nights-rb"}`, `{"origin":"cli"}`, "succeeded",
			1, 3, "", "", string(song), int64(10), int64(20)))

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, job.Status)
	assert.Equal(t, "city-nights-rb", job.Request.PresetID)
	assert.Equal(t, "cli", job.Metadata["origin"])
	assert.Equal(t, "Neon Rain", job.Title())

	mock.ExpectQuery(regexp.QuoteMeta("FROM song_jobs WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(jobRows())
	_, err = store.Get(context.Background(), "missing")
	assert.True(t, IsJobError(err, CodeJobNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreClaimCompleted(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE song_jobs SET status = ?, attempts = attempts + 1")).
		WithArgs("running", fixedNow.Unix(), "job-1", "pending", "failed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM song_jobs WHERE id = ?")).
		WithArgs("job-1").
		WillReturnRows(jobRows().AddRow("job-1", `{}`, nil, "succeeded", 1, 3, "", "", nil, int64(1), int64(2)))

	_, err := store.Claim(context.Background(), "job-1")
	assert.True(t, IsJobError(err, CodeJobCompleted))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreMarkFailedNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE song_jobs SET status = ?, last_error = ?")).
		WithArgs("failed", "boom", string(xerrors.CodeBackendFailure), fixedNow.Unix(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkFailed(context.Background(), "gone", xerrors.CodeBackendFailure, "boom")
	assert.True(t, IsJobError(err, CodeJobNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreListAndStatsFilters(t *testing.T) {
	store, mock := newMockStore(t)
	opts := BuildListOptions([]ListOption{WithStatuses(StatusFailed), WithResultPresence(false), WithQuery("neon"), WithLimit(5)})

	mock.ExpectQuery(regexp.QuoteMeta("FROM song_jobs WHERE status IN (?) AND result IS NULL AND (id LIKE ? OR preset_id LIKE ? OR title LIKE ? OR last_error LIKE ?) ORDER BY updated_at DESC")).
		WithArgs("failed", "%neon%", "%neon%", "%neon%", "%neon%", 5, 0).
		WillReturnRows(jobRows().AddRow("a", `{"presetId":"neon"}`, nil, "failed", 3, 3, "boom", "BACKEND_FAILURE", nil, int64(1), int64(2)))

	jobs, err := store.List(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].Result)
	assert.Equal(t, "BACKEND_FAILURE", jobs[0].ErrorCode)

	statsArgs := []driver.Value{"pending", "running", "succeeded", "failed", "failed", "%neon%", "%neon%", "%neon%", "%neon%"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM song_jobs WHERE status IN (?)")).
		WithArgs(statsArgs...).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "running", "succeeded", "failed", "oldest", "newest"}).
			AddRow(1, 0, 0, 0, 1, int64(2), int64(2)))

	stats, err := store.Stats(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Failed: 1, OldestUpdatedAt: 2, NewestUpdatedAt: 2}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}
