package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	tu "github.com/desertthunder/ytsync/internal/testing"
)

func TestLocalStore(t *testing.T) {
	t.Run("Track and Load", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		for _, kind := range []models.Kind{models.KindChannel, models.KindPlaylist, models.KindVideo} {
			res, err := store.Track(kind, "id-"+kind.String(), true)
			if err != nil {
				t.Fatalf("failed to track %s: %v", kind, err)
			}
			loaded, err := store.Load(kind, "id-"+kind.String())
			if err != nil {
				t.Fatalf("failed to load %s: %v", kind, err)
			}
			if loaded.Kind() != kind || loaded.RemoteInfo().ID != res.RemoteInfo().ID || !loaded.IsSyncEnabled() {
				t.Errorf("unexpected %s: %+v", kind, loaded)
			}
		}

		all, err := store.LoadAll()
		if err != nil {
			t.Fatalf("failed to load all: %v", err)
		}
		if len(all) != 3 || all[0].Kind() != models.KindChannel || all[2].Kind() != models.KindVideo {
			t.Errorf("expected channel, playlist, video; got %d resources", len(all))
		}
	})

	t.Run("Track rejects empty id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewLocalStore(db).Track(models.KindChannel, "", true)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("SetSyncEnabled", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		if _, err := store.Track(models.KindPlaylist, "PL1", true); err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		if err := store.SetSyncEnabled(models.KindPlaylist, "PL1", false); err != nil {
			t.Fatalf("failed to toggle: %v", err)
		}
		res, err := store.Load(models.KindPlaylist, "PL1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if res.IsSyncEnabled() {
			t.Error("expected sync to be disabled")
		}
	})

	t.Run("SetVideoSyncEnabled", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		res, err := store.Track(models.KindChannel, "UC1", true)
		if err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		owner := res.(*models.Channel)
		v := &models.Video{YouTubeID: "v1", SyncEnabled: true, OwnerKind: models.KindChannel, OwnerID: owner.ID}
		if err := store.Videos.Create(v); err != nil {
			t.Fatalf("failed to create video: %v", err)
		}

		if err := store.SetVideoSyncEnabled(models.KindChannel, "UC1", "v1", false); err != nil {
			t.Fatalf("failed to toggle video: %v", err)
		}
		got, err := store.Videos.Get(v.ID)
		if err != nil {
			t.Fatalf("failed to get video: %v", err)
		}
		if got.SyncEnabled {
			t.Error("expected video sync to be disabled")
		}

		err = store.SetVideoSyncEnabled(models.KindChannel, "UC1", "missing", false)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Untrack", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		res, err := store.Track(models.KindChannel, "UC1", true)
		if err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		ch := res.(*models.Channel)
		if err := store.Videos.Create(&models.Video{YouTubeID: "a", OwnerKind: models.KindChannel, OwnerID: ch.ID}); err != nil {
			t.Fatalf("failed to create video: %v", err)
		}

		if err := store.Untrack(models.KindChannel, "UC1"); err != nil {
			t.Fatalf("failed to untrack: %v", err)
		}
		if _, err := store.Load(models.KindChannel, "UC1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after untrack, got %v", err)
		}
		videos, err := store.Videos.ListByOwner(models.KindChannel, ch.ID)
		if err != nil {
			t.Fatalf("failed to list videos: %v", err)
		}
		if len(videos) != 0 {
			t.Errorf("expected owned videos to be removed, got %d", len(videos))
		}
	})
}

// syncAndApply runs one engine sync against f and persists the result.
func syncAndApply(t *testing.T, store *LocalStore, f tasks.Fetcher, kind models.Kind, id string, opts tasks.EngineOpts) *tasks.SyncResult {
	t.Helper()

	res, err := store.Load(kind, id)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	result, err := tasks.NewEngine(f, opts).Sync(context.Background(), nil, res)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if err := store.Apply(res, result); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	return result
}

func TestLocalStore_Apply(t *testing.T) {
	t.Run("collection round trip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		if _, err := store.Track(models.KindPlaylist, "PL1", true); err != nil {
			t.Fatalf("failed to track: %v", err)
		}

		f := tu.NewMockFetcher()
		f.Full["PL1"] = &models.RemoteSnapshot{
			Kind: models.KindPlaylist, ID: "PL1", ETag: "pl-1", Title: "Mix",
			Videos: []models.Video{{YouTubeID: "a", ETag: "1", Title: "A"}, {YouTubeID: "b", ETag: "1", Title: "B"}},
		}

		first := syncAndApply(t, store, f, models.KindPlaylist, "PL1", tasks.EngineOpts{})
		if first.Videos.Count(models.OutcomeAdded) != 2 {
			t.Fatalf("expected 2 added videos, got %+v", first.Videos.Entries)
		}

		loaded, err := store.Load(models.KindPlaylist, "PL1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		pl := loaded.(*models.Playlist)
		if pl.Title != "Mix" || pl.ETag != "pl-1" || pl.SyncedAt.IsZero() {
			t.Errorf("expected metadata and sync time to be applied, got %+v", pl)
		}
		if len(pl.Videos) != 2 || pl.Videos[0].ID == "" || !pl.Videos[0].SyncEnabled {
			t.Fatalf("expected 2 persisted sync-enabled videos, got %+v", pl.Videos)
		}

		// b changes, a disappears, c is new; a full fetch follows the empty incremental
		f.Full["PL1"].Videos = []models.Video{{YouTubeID: "b", ETag: "2", Title: "B2"}, {YouTubeID: "c", ETag: "1", Title: "C"}}
		second := syncAndApply(t, store, f, models.KindPlaylist, "PL1", tasks.EngineOpts{})
		if !second.FullFetch {
			t.Fatal("expected fallback to full fetch")
		}

		loaded, err = store.Load(models.KindPlaylist, "PL1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		titles := map[string]string{}
		for _, v := range loaded.(*models.Playlist).Videos {
			titles[v.YouTubeID] = v.Title
		}
		if len(titles) != 2 || titles["b"] != "B2" || titles["c"] != "C" {
			t.Errorf("expected {b:B2 c:C}, got %v", titles)
		}
	})

	t.Run("incremental results never delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		if _, err := store.Track(models.KindChannel, "UC1", true); err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		f := tu.NewMockFetcher()
		f.Full["UC1"] = &models.RemoteSnapshot{Kind: models.KindChannel, ID: "UC1", Videos: []models.Video{{YouTubeID: "old", ETag: "1"}}}
		syncAndApply(t, store, f, models.KindChannel, "UC1", tasks.EngineOpts{})

		f.Incremental["UC1"] = &models.RemoteSnapshot{Kind: models.KindChannel, ID: "UC1", Videos: []models.Video{{YouTubeID: "new", ETag: "1"}}}
		result := syncAndApply(t, store, f, models.KindChannel, "UC1", tasks.EngineOpts{})
		if result.FullFetch || len(result.Removed) != 0 {
			t.Fatalf("expected incremental result with no removals, got full=%v removed=%d", result.FullFetch, len(result.Removed))
		}

		run, err := store.RecordRun(&models.Channel{YouTubeID: "UC1"}, result, nil)
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.VideosRemoved != 0 {
			t.Errorf("expected run to record 0 removed, got %d", run.VideosRemoved)
		}

		loaded, err := store.Load(models.KindChannel, "UC1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(loaded.(*models.Channel).Videos) != 2 {
			t.Errorf("expected old and new videos to be kept, got %+v", loaded.(*models.Channel).Videos)
		}
	})

	t.Run("truncated full results never delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		if _, err := store.Track(models.KindPlaylist, "PL1", true); err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		f := tu.NewMockFetcher()
		f.Full["PL1"] = &models.RemoteSnapshot{
			Kind: models.KindPlaylist, ID: "PL1",
			Videos: []models.Video{{YouTubeID: "a", ETag: "1"}, {YouTubeID: "b", ETag: "1"}, {YouTubeID: "c", ETag: "1"}},
		}
		syncAndApply(t, store, f, models.KindPlaylist, "PL1", tasks.EngineOpts{})

		// Only the first page came back before the page cap
		f.Full["PL1"] = &models.RemoteSnapshot{
			Kind: models.KindPlaylist, ID: "PL1", Truncated: true,
			Videos: []models.Video{{YouTubeID: "a", ETag: "1"}},
		}
		result := syncAndApply(t, store, f, models.KindPlaylist, "PL1", tasks.EngineOpts{})
		if !result.FullFetch || result.Authoritative() {
			t.Fatalf("expected non-authoritative full fetch, got full=%v authoritative=%v", result.FullFetch, result.Authoritative())
		}
		if len(result.Removed) != 0 {
			t.Errorf("expected no removals from a truncated list, got %+v", result.Removed)
		}

		run, err := store.RecordRun(&models.Playlist{YouTubeID: "PL1"}, result, nil)
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.VideosRemoved != 0 {
			t.Errorf("expected run to record 0 removed, got %d", run.VideosRemoved)
		}

		loaded, err := store.Load(models.KindPlaylist, "PL1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got := len(loaded.(*models.Playlist).Videos); got != 3 {
			t.Errorf("expected all 3 videos to be kept, got %d", got)
		}
	})

	t.Run("single video", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewLocalStore(db)

		if _, err := store.Track(models.KindVideo, "v1", true); err != nil {
			t.Fatalf("failed to track: %v", err)
		}
		f := tu.NewMockFetcher()
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "2", Title: "Fresh"}

		result := syncAndApply(t, store, f, models.KindVideo, "v1", tasks.EngineOpts{})
		if result.Unchanged {
			t.Fatal("expected changed video")
		}

		loaded, err := store.Load(models.KindVideo, "v1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		v := loaded.(*models.Video)
		if v.Title != "Fresh" || v.ETag != "2" || v.SyncedAt.IsZero() {
			t.Errorf("expected remote video applied, got %+v", v)
		}

		again := syncAndApply(t, store, f, models.KindVideo, "v1", tasks.EngineOpts{})
		if !again.Unchanged {
			t.Error("expected second sync to be unchanged")
		}
	})

	t.Run("nil result", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewLocalStore(db).Apply(&models.Channel{YouTubeID: "UC1"}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLocalStore_RecordRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewLocalStore(db)

	t.Run("collection", func(t *testing.T) {
		result := &tasks.SyncResult{Kind: models.KindChannel, FullFetch: true}
		result.Videos.Append(models.Video{YouTubeID: "a"}, models.OutcomeAdded)
		result.Videos.Append(models.Video{YouTubeID: "b"}, models.OutcomeSkipped)
		result.Removed = []models.Video{{YouTubeID: "c"}}

		run, err := store.RecordRun(&models.Channel{YouTubeID: "UC1"}, result, nil)
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.Status != models.RunCompleted || run.VideosTotal != 2 || run.VideosAdded != 1 || run.VideosSkipped != 1 || run.VideosRemoved != 1 || !run.FullFetch {
			t.Errorf("unexpected run: %+v", run)
		}
	})

	t.Run("unchanged video", func(t *testing.T) {
		run, err := store.RecordRun(&models.Video{YouTubeID: "v1"}, &tasks.SyncResult{Kind: models.KindVideo, Unchanged: true}, nil)
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.Status != models.RunUnchanged || run.VideosUpdated != 0 {
			t.Errorf("unexpected run: %+v", run)
		}
	})

	t.Run("failure", func(t *testing.T) {
		run, err := store.RecordRun(&models.Playlist{YouTubeID: "PL1"}, nil, errors.New("quota exceeded"))
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
		if run.Status != models.RunFailed || run.ErrorMessage != "quota exceeded" {
			t.Errorf("unexpected run: %+v", run)
		}
	})

	runs, err := store.Runs.List(nil)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 recorded runs, got %d", len(runs))
	}
}
