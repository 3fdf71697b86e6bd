package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	tu "github.com/desertthunder/ytsync/internal/testing"
)

func TestSyncAll(t *testing.T) {
	t.Run("keeps input order and isolates failures", func(t *testing.T) {
		f := tu.NewMockFetcher()
		var resources []models.Resource
		for i := range 6 {
			id := fmt.Sprintf("PL%d", i)
			f.Full[id] = fullSnapshot(models.KindPlaylist, id, models.Video{YouTubeID: "v" + id, ETag: "1"})
			resources = append(resources, &models.Playlist{YouTubeID: id})
		}
		f.Errs["PL3"] = errors.New("quota exceeded")
		f.Videos["v1"] = &models.Video{YouTubeID: "v1", ETag: "1"}
		resources = append(resources, &models.Video{YouTubeID: "v1", ETag: "1"})

		progress := make(chan ProgressUpdate, 20)
		result, err := SyncAll(context.Background(), progress, f, resources, BulkSyncOpts{NumWorkers: 3, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		if result.Total != 7 || result.Succeeded != 6 || result.Failed != 1 {
			t.Errorf("expected 7/6/1, got %d/%d/%d", result.Total, result.Succeeded, result.Failed)
		}
		for i, r := range result.Results {
			if r.Resource != resources[i] {
				t.Errorf("result %d: expected resource in input order", i)
			}
			if i == 3 {
				if r.Err == nil || r.Result != nil {
					t.Errorf("expected PL3 to fail, got %+v", r)
				}
				continue
			}
			if r.Err != nil || r.Result == nil {
				t.Errorf("result %d: unexpected failure %v", i, r.Err)
			}
		}

		updates := 0
		for u := range progress {
			if u.Phase == BulkSync {
				updates++
			}
		}
		if updates != 8 {
			t.Errorf("expected start plus 7 per-resource updates, got %d", updates)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		result, err := SyncAll(context.Background(), nil, tu.NewMockFetcher(), nil, BulkSyncOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 0 || len(result.Results) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		f := tu.NewMockFetcher()
		f.Full["UC1"] = fullSnapshot(models.KindChannel, "UC1")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resources := []models.Resource{&models.Channel{YouTubeID: "UC1"}, &models.Channel{YouTubeID: "UC1"}}
		result, err := SyncAll(ctx, nil, f, resources, BulkSyncOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Failed != 2 {
			t.Errorf("expected both resources to fail, got %d", result.Failed)
		}
		for i, r := range result.Results {
			if r.Resource != resources[i] || r.Err == nil {
				t.Errorf("result %d: expected canceled entry for the input resource, got %+v", i, r)
			}
		}
	})

	t.Run("nil fetcher", func(t *testing.T) {
		_, err := SyncAll(context.Background(), nil, nil, nil, BulkSyncOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
