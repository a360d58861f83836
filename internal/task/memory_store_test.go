package task

import (
	"context"
	"testing"
	"time"

	"SongForge/internal/studio"
)

func seedStore(t *testing.T, ids ...string) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	for _, id := range ids {
		job := &Job{ID: id, Request: studio.SongRequest{PresetID: "preset-" + id}, Status: StatusPending, MaxRetries: 3}
		if err := store.Create(context.Background(), job); err != nil {
			t.Fatalf("create job %s: %v", id, err)
		}
	}
	return store
}

func TestMemoryStoreListWithFilters(t *testing.T) {
	store := seedStore(t, "t1", "t2", "t3")
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Minute)

	if err := store.MarkFailed(ctx, "t2", CodeJobProcessing, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkSucceeded(ctx, "t3", &studio.Song{Title: "Neon Rain"}); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	store.mu.Lock()
	store.jobs["t1"].UpdatedAt = base.Unix()
	store.jobs["t2"].UpdatedAt = base.Add(30 * time.Second).Unix()
	store.jobs["t3"].UpdatedAt = base.Add(60 * time.Second).Unix()
	store.mu.Unlock()

	all, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "t3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	asc, _ := store.List(ctx, BuildListOptions([]ListOption{WithSortOrder(SortByUpdatedAsc), WithLimit(2)}))
	if len(asc) != 2 || asc[0].ID != "t1" {
		t.Fatalf("unexpected ascending page: %+v", asc)
	}

	page, _ := store.List(ctx, BuildListOptions([]ListOption{WithOffset(5)}))
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}

	failed, _ := store.List(ctx, BuildListOptions([]ListOption{WithStatuses(StatusFailed, "bogus")}))
	if len(failed) != 1 || failed[0].ID != "t2" {
		t.Fatalf("unexpected failed list: %+v", failed)
	}

	withSong, _ := store.List(ctx, BuildListOptions([]ListOption{WithResultPresence(true)}))
	if len(withSong) != 1 || withSong[0].Title() != "Neon Rain" {
		t.Fatalf("unexpected result list: %+v", withSong)
	}

	recent, _ := store.List(ctx, BuildListOptions([]ListOption{WithUpdatedSince(base.Add(15 * time.Second))}))
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent jobs, got %d", len(recent))
	}

	byTitle, _ := store.List(ctx, BuildListOptions([]ListOption{WithQuery("neon")}))
	if len(byTitle) != 1 || byTitle[0].ID != "t3" {
		t.Fatalf("unexpected query result: %+v", byTitle)
	}
	byPreset, _ := store.List(ctx, BuildListOptions([]ListOption{WithQuery("preset-t1")}))
	if len(byPreset) != 1 {
		t.Fatalf("expected preset match, got %d", len(byPreset))
	}
}

func TestMemoryStoreStats(t *testing.T) {
	store := seedStore(t, "a", "b", "c")
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Minute)

	_ = store.MarkFailed(ctx, "b", CodeJobProcessing, "boom")
	_ = store.MarkSucceeded(ctx, "c", &studio.Song{Title: "ok"})

	store.mu.Lock()
	store.jobs["a"].UpdatedAt = base.Unix()
	store.jobs["b"].UpdatedAt = base.Add(30 * time.Second).Unix()
	store.jobs["c"].UpdatedAt = base.Add(2 * time.Minute).Unix()
	store.mu.Unlock()

	stats, err := store.Stats(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Failed != 1 || stats.Succeeded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.OldestUpdatedAt != base.Unix() || stats.NewestUpdatedAt != base.Add(2*time.Minute).Unix() {
		t.Fatalf("unexpected range: %+v", stats)
	}

	without, _ := store.Stats(ctx, BuildListOptions([]ListOption{WithResultPresence(false)}))
	if without.Total != 2 || without.Pending != 1 || without.Failed != 1 {
		t.Fatalf("unexpected stats without result: %+v", without)
	}

	empty, _ := store.Stats(ctx, BuildListOptions([]ListOption{WithStatuses(StatusRunning)}))
	if empty.Total != 0 || empty.OldestUpdatedAt != 0 {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}

func TestMemoryStoreClaimTransitions(t *testing.T) {
	store := seedStore(t, "j")
	ctx := context.Background()

	job, err := store.Claim(ctx, "j")
	if err != nil || job.Status != StatusRunning || job.Attempts != 1 {
		t.Fatalf("first claim: %+v %v", job, err)
	}
	if _, err := store.Claim(ctx, "j"); !IsJobError(err, CodeJobConflict) {
		t.Fatalf("expected conflict while running, got %v", err)
	}

	for i := 0; i < 2; i++ {
		_ = store.MarkFailed(ctx, "j", CodeJobProcessing, "boom")
		if _, err := store.Claim(ctx, "j"); err != nil {
			t.Fatalf("reclaim %d: %v", i, err)
		}
	}
	_ = store.MarkFailed(ctx, "j", CodeJobProcessing, "boom")
	if _, err := store.Claim(ctx, "j"); !IsJobError(err, CodeJobExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}

	if _, err := store.Claim(ctx, "missing"); !IsJobError(err, CodeJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Create(ctx, &Job{ID: "j"}); !IsJobError(err, CodeJobConflict) {
		t.Fatalf("expected duplicate create conflict, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := &Job{ID: "c", Metadata: map[string]string{"k": "v"}, MaxRetries: 1}
	if err := store.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Metadata["k"] = "mutated"

	got, _ := store.Get(ctx, "c")
	got.Metadata["k"] = "also mutated"
	again, _ := store.Get(ctx, "c")
	if again.Metadata["k"] != "v" {
		t.Fatalf("store leaked internal state: %v", again.Metadata)
	}
}
