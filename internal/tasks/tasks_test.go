package tasks

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	tu "github.com/desertthunder/ytsync/internal/testing"
)

// wrapped satisfies models.Resource through embedding but is none of the known variants.
type wrapped struct{ *models.Channel }

var syncedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fullSnapshot(kind models.Kind, id string, videos ...models.Video) *models.RemoteSnapshot {
	return &models.RemoteSnapshot{Kind: kind, ID: id, ETag: "snap-" + id, Title: id, Videos: videos}
}

func TestEngine_Sync(t *testing.T) {
	t.Run("routes each kind to its fetch path", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1")
		f.Full["PL1"] = fullSnapshot(models.KindPlaylist, "PL1")
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "1"}

		tests := []struct {
			res  models.Resource
			want models.Kind
			id   string
		}{
			{&models.Channel{YouTubeID: "UC1"}, models.KindChannel, "UC1"},
			{&models.Playlist{YouTubeID: "PL1"}, models.KindPlaylist, "PL1"},
			{&models.Video{YouTubeID: "v1", ETag: "1"}, models.KindVideo, "v1"},
		}

		for _, tt := range tests {
			t.Run(tt.want.String(), func(t *testing.T) {
				before := len(f.Calls())
				if _, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, tt.res); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				calls := f.Calls()[before:]
				if len(calls) == 0 {
					t.Fatal("expected at least one fetch")
				}
				for _, c := range calls {
					if c.Kind != tt.want || c.ID != tt.id {
						t.Errorf("expected only %s %s fetches, got %+v", tt.want, tt.id, c)
					}
				}
			})
		}
	})

	t.Run("never synced goes straight to full fetch", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1", models.Video{YouTubeID: "a", ETag: "1"})

		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		calls := f.Calls()
		if len(calls) != 1 || calls[0].Since != "" {
			t.Errorf("expected a single full fetch, got %+v", calls)
		}
		if !result.FullFetch || result.Fetches != 1 {
			t.Errorf("expected FullFetch with 1 fetch, got FullFetch=%v Fetches=%d", result.FullFetch, result.Fetches)
		}
	})

	t.Run("incremental result is used when non-empty", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Incremental["PL1"] = fullSnapshot(models.KindPlaylist, "PL1", models.Video{YouTubeID: "new", ETag: "1"})
		f.Full["PL1"] = fullSnapshot(models.KindPlaylist, "PL1")

		res := &models.Playlist{YouTubeID: "PL1", SyncedAt: syncedAt}
		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		calls := f.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 fetch, got %d", len(calls))
		}
		if calls[0].Since != "2024-03-01T12:00:00+00:00" {
			t.Errorf("expected ISO-8601 since with offset, got %q", calls[0].Since)
		}
		if result.FullFetch {
			t.Error("expected incremental result to be used")
		}
		if result.Videos.Len() != 1 || result.Videos.Entries[0].Video.YouTubeID != "new" {
			t.Errorf("expected incremental video, got %+v", result.Videos.Videos())
		}
	})

	t.Run("empty incremental falls back to exactly one full fetch", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1",
			models.Video{YouTubeID: "a", ETag: "2"},
			models.Video{YouTubeID: "b", ETag: "1"},
		)

		res := &models.Channel{
			YouTubeID: "UC1",
			SyncedAt:  syncedAt,
			Videos:    []models.Video{{YouTubeID: "a", ETag: "1", SyncEnabled: true}},
		}
		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		calls := f.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 fetches, got %d: %+v", len(calls), calls)
		}
		if calls[0].Since == "" || calls[1].Since != "" {
			t.Errorf("expected incremental then full, got %+v", calls)
		}
		if !result.FullFetch || result.Fetches != 2 {
			t.Errorf("expected FullFetch with 2 fetches, got FullFetch=%v Fetches=%d", result.FullFetch, result.Fetches)
		}
		if result.Videos.Count(models.OutcomeUpdated) != 1 || result.Videos.Count(models.OutcomeAdded) != 1 {
			t.Errorf("unexpected outcomes: %+v", result.Videos.Entries)
		}
	})

	t.Run("empty full fetch yields empty result", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1")

		res := &models.Channel{
			YouTubeID: "UC1",
			SyncedAt:  syncedAt,
			Videos:    []models.Video{{YouTubeID: "a", ETag: "1"}},
		}
		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.CallCount("UC1") != 2 {
			t.Errorf("expected 2 fetches, got %d", f.CallCount("UC1"))
		}
		if result.Videos.Len() != 0 || len(result.Removed) != 1 {
			t.Errorf("expected no videos and 1 removed, got %d and %d", result.Videos.Len(), len(result.Removed))
		}
	})

	t.Run("incremental results report no removals", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Incremental["UC1"] = fullSnapshot(models.KindChannel, "UC1", models.Video{YouTubeID: "new", ETag: "1"})

		res := &models.Channel{
			YouTubeID: "UC1",
			SyncedAt:  syncedAt,
			Videos:    []models.Video{{YouTubeID: "old", ETag: "1"}},
		}
		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FullFetch || result.Authoritative() {
			t.Errorf("expected non-authoritative incremental result, got FullFetch=%v", result.FullFetch)
		}
		if len(result.Removed) != 0 {
			t.Errorf("expected no removals, got %+v", result.Removed)
		}
	})

	t.Run("truncated full fetch reports no removals", func(t *testing.T) {
		f := tu.NewMockFetcher()
		snap := fullSnapshot(models.KindPlaylist, "PL1", models.Video{YouTubeID: "a", ETag: "1"})
		snap.Truncated = true
		f.Full["PL1"] = snap

		res := &models.Playlist{
			YouTubeID: "PL1",
			Videos:    []models.Video{{YouTubeID: "a", ETag: "1"}, {YouTubeID: "b", ETag: "1"}},
		}
		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.FullFetch || result.Authoritative() {
			t.Errorf("expected non-authoritative full result, got FullFetch=%v Authoritative=%v", result.FullFetch, result.Authoritative())
		}
		if !result.Snapshot.Truncated {
			t.Error("expected truncated flag to be carried on the snapshot")
		}
		if len(result.Removed) != 0 {
			t.Errorf("expected no removals, got %+v", result.Removed)
		}
	})

	t.Run("transport errors propagate unchanged", func(t *testing.T) {
		boom := errors.New("connection reset")
		f := tu.NewMockFetcher()
		f.Errs["UC1"] = boom

		_, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC1", SyncedAt: syncedAt})
		if err != boom {
			t.Errorf("expected transport error unchanged, got %v", err)
		}
		if f.CallCount("UC1") != 1 {
			t.Errorf("expected no retry, got %d calls", f.CallCount("UC1"))
		}
	})

	t.Run("snapshot kind mismatch is incompatible", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["PL1"] = fullSnapshot(models.KindChannel, "PL1")

		_, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Playlist{YouTubeID: "PL1"})

		var incompatible *IncompatibleResourceError
		if !errors.As(err, &incompatible) {
			t.Fatalf("expected IncompatibleResourceError, got %v", err)
		}
		if !errors.Is(err, shared.ErrIncompatibleResource) {
			t.Error("expected error to match ErrIncompatibleResource")
		}
	})

	t.Run("nil snapshot is incompatible", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = nil

		_, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC1"})
		if !errors.Is(err, shared.ErrIncompatibleResource) {
			t.Errorf("expected ErrIncompatibleResource, got %v", err)
		}
	})

	t.Run("unknown resource is incompatible and keeps state", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1", models.Video{YouTubeID: "a", ETag: "1"})

		engine := NewEngine(f, EngineOpts{})
		if _, err := engine.Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		before := engine.Snapshot()
		calls := len(f.Calls())

		for _, res := range []models.Resource{nil, wrapped{&models.Channel{YouTubeID: "UC1"}}, (*models.Video)(nil)} {
			_, err := engine.Sync(context.Background(), nil, res)
			var incompatible *IncompatibleResourceError
			if !errors.As(err, &incompatible) {
				t.Errorf("%T: expected IncompatibleResourceError, got %v", res, err)
			}
		}

		if !reflect.DeepEqual(engine.Snapshot(), before) {
			t.Error("expected held snapshot to be unchanged")
		}
		if len(f.Calls()) != calls {
			t.Error("expected no fetches for incompatible resources")
		}
	})

	t.Run("failed sync keeps held state", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1")

		engine := NewEngine(f, EngineOpts{})
		if _, err := engine.Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.Errs["UC2"] = errors.New("timeout")

		if _, err := engine.Sync(context.Background(), nil, &models.Channel{YouTubeID: "UC2"}); err == nil {
			t.Fatal("expected error")
		}
		if engine.RemoteID() != "UC1" {
			t.Errorf("expected held remote ID UC1, got %q", engine.RemoteID())
		}
	})

	t.Run("held snapshot carries merged videos", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["PL1"] = fullSnapshot(models.KindPlaylist, "PL1", models.Video{YouTubeID: "a", ETag: "2", Title: "remote"})

		engine := NewEngine(f, EngineOpts{})
		if engine.Snapshot() != nil || engine.RemoteID() != "" {
			t.Fatal("expected no held state before first sync")
		}

		res := &models.Playlist{YouTubeID: "PL1", Videos: []models.Video{{YouTubeID: "a", ETag: "1", Title: "local"}}}
		result, err := engine.Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		held := engine.Snapshot()
		if held.ID != "PL1" || result.RemoteID() != "PL1" {
			t.Errorf("expected PL1, got held=%s result=%s", held.ID, result.RemoteID())
		}
		if len(held.Videos) != 1 || held.Videos[0].Title != "local" {
			t.Errorf("expected merged (skipped local) video in held snapshot, got %+v", held.Videos)
		}

		held.Videos[0].Title = "mutated"
		if engine.Snapshot().Videos[0].Title != "local" {
			t.Error("expected Snapshot to return a copy")
		}
	})

	t.Run("idempotent without remote changes", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1",
			models.Video{YouTubeID: "a", ETag: "2"},
			models.Video{YouTubeID: "b", ETag: "1"},
		)
		res := &models.Channel{YouTubeID: "UC1", Videos: []models.Video{{YouTubeID: "a", ETag: "1", SyncEnabled: true}}}
		engine := NewEngine(f, EngineOpts{})

		first, err := engine.Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := engine.Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(first.Videos, second.Videos) || !reflect.DeepEqual(first.Removed, second.Removed) {
			t.Errorf("expected identical results, got %+v and %+v", first.Videos, second.Videos)
		}
	})

	t.Run("retain policy", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1", models.Video{YouTubeID: "b", ETag: "1"})
		res := &models.Channel{YouTubeID: "UC1", Videos: []models.Video{{YouTubeID: "a", ETag: "1"}}}

		result, err := NewEngine(f, EngineOpts{Policy: RetainUnmatched}).Sync(context.Background(), nil, res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Videos.Len() != 2 || result.Videos.Count(models.OutcomeRetained) != 1 {
			t.Errorf("expected local-only video retained, got %+v", result.Videos.Entries)
		}
	})

	t.Run("nil fetcher", func(t *testing.T) {
		_, err := NewEngine(nil, EngineOpts{}).Sync(context.Background(), nil, &models.Video{YouTubeID: "v"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("nil resource is rejected before the fetcher is checked", func(t *testing.T) {
		_, err := NewEngine(nil, EngineOpts{}).Sync(context.Background(), nil, nil)
		var incompatible *IncompatibleResourceError
		if !errors.As(err, &incompatible) {
			t.Fatalf("expected IncompatibleResourceError, got %v", err)
		}
		if errors.Is(err, shared.ErrServiceUnavailable) {
			t.Error("expected resource error, not service error")
		}
	})
}

func TestEngine_SyncVideo(t *testing.T) {
	t.Run("equal etags are unchanged", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "1", Title: "remote"}

		engine := NewEngine(f, EngineOpts{})
		result, err := engine.Sync(context.Background(), nil, &models.Video{YouTubeID: "v1", ETag: "1", SyncEnabled: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Unchanged || result.Video != nil {
			t.Errorf("expected unchanged result, got %+v", result)
		}
		if engine.Snapshot() != nil {
			t.Error("expected held state untouched")
		}
	})

	t.Run("sync disabled is unchanged", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "2"}

		result, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Video{YouTubeID: "v1", ETag: "1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Unchanged {
			t.Error("expected unchanged result for sync-disabled video")
		}
	})

	t.Run("changed etag returns remote", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "2", Title: "new"}

		engine := NewEngine(f, EngineOpts{})
		local := &models.Video{ID: "row-1", YouTubeID: "v1", ETag: "1", Title: "old", SyncEnabled: true, OwnerKind: models.KindVideo}
		result, err := engine.Sync(context.Background(), nil, local)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Unchanged || result.Video == nil {
			t.Fatalf("expected updated video, got %+v", result)
		}
		if result.Video.Title != "new" || result.Video.ID != "row-1" {
			t.Errorf("expected remote content with local ID, got %+v", result.Video)
		}
		if engine.RemoteID() != "v1" {
			t.Errorf("expected held remote ID v1, got %q", engine.RemoteID())
		}
	})

	t.Run("different video is incompatible", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Videos["v1"] = &models.Video{YouTubeID: "other", ETag: "2"}

		_, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Video{YouTubeID: "v1"})
		if !errors.Is(err, shared.ErrIncompatibleResource) {
			t.Errorf("expected ErrIncompatibleResource, got %v", err)
		}
	})

	t.Run("nil video is incompatible", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Videos["v1"] = nil

		_, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), nil, &models.Video{YouTubeID: "v1"})
		if !errors.Is(err, shared.ErrIncompatibleResource) {
			t.Errorf("expected ErrIncompatibleResource, got %v", err)
		}
	})
}

func TestEngine_Progress(t *testing.T) {
	f := tu.NewMockFetcher()
	f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1", models.Video{YouTubeID: "a", ETag: "1"})

	progress := make(chan ProgressUpdate, 10)
	res := &models.Channel{YouTubeID: "UC1", SyncedAt: syncedAt}
	if _, err := NewEngine(f, EngineOpts{}).Sync(context.Background(), progress, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progress)

	var phases []Phase
	var last ProgressUpdate
	for u := range progress {
		phases = append(phases, u.Phase)
		last = u
	}

	want := []Phase{FetchIncremental, FetchFull, MergeVideos, SyncComplete}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("expected phases %v, got %v", want, phases)
	}
	if !strings.Contains(last.Message, "1 added") {
		t.Errorf("expected completion summary, got %q", last.Message)
	}
	if _, ok := last.Data.(*SyncResult); !ok {
		t.Errorf("expected SyncResult data, got %T", last.Data)
	}

	t.Run("unbuffered channel never blocks", func(t *testing.T) {
		blocked := make(chan ProgressUpdate)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = NewEngine(f, EngineOpts{}).Sync(context.Background(), blocked, res)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("sync blocked on progress channel")
		}
	})
}

func TestIncompatibleResourceError(t *testing.T) {
	err := &IncompatibleResourceError{Want: "playlist", Got: "channel", Reason: "snapshot kind mismatch"}
	msg := err.Error()
	for _, s := range []string{"incompatible", "want playlist", "got channel"} {
		if !strings.Contains(msg, s) {
			t.Errorf("expected %q in %q", s, msg)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		res  models.Resource
		want string
	}{
		{&models.Channel{YouTubeID: "UC1"}, "channel UC1"},
		{&models.Playlist{YouTubeID: "PL1"}, "playlist PL1"},
		{&models.Video{YouTubeID: "v1"}, "video v1"},
		{nil, "<nil>"},
		{(*models.Channel)(nil), "<nil>"},
	}
	for _, tt := range tests {
		if got := describe(tt.res); got != tt.want {
			t.Errorf("describe(%T) = %q, want %q", tt.res, got, tt.want)
		}
	}
}
