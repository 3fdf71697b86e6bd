package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

type fetchFunc func(ctx context.Context, id, since string) (*models.RemoteSnapshot, error)

// fetchCollection obtains a snapshot for a channel or playlist.
//
// A resource that has been synced before is first fetched incrementally; an empty incremental list
// is treated as ambiguous and triggers exactly one full fetch. A never-synced resource is fetched in full.
// Returns the snapshot, the number of requests issued and whether the full snapshot was used.
func (e *Engine) fetchCollection(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
	kind models.Kind,
	id string,
	syncedAt time.Time,
) (*models.RemoteSnapshot, int, bool, error) {
	var fetch fetchFunc
	switch kind {
	case models.KindChannel:
		fetch = e.fetcher.FetchChannel
	case models.KindPlaylist:
		fetch = e.fetcher.FetchPlaylist
	default:
		return nil, 0, false, &IncompatibleResourceError{Got: kind.String(), Reason: "not a collection"}
	}

	fetches := 0
	since := shared.FormatSince(syncedAt)
	if since != "" {
		sendProgress(progress, fetchIncrementalUpdate(kind, id, since))
		logger.Debug("incremental fetch", "since", since)

		snap, err := fetch(ctx, id, since)
		fetches++
		if err != nil {
			return nil, fetches, false, err
		}
		if err := checkSnapshot(kind, id, snap); err != nil {
			return nil, fetches, false, err
		}
		if len(snap.Videos) > 0 {
			return snap, fetches, false, nil
		}
		logger.Debug("incremental fetch returned no videos, falling back to full fetch")
	}

	sendProgress(progress, fetchFullUpdate(kind, id, since != ""))
	logger.Debug("full fetch")

	snap, err := fetch(ctx, id, "")
	fetches++
	if err != nil {
		return nil, fetches, true, err
	}
	if err := checkSnapshot(kind, id, snap); err != nil {
		return nil, fetches, true, err
	}
	return snap, fetches, true, nil
}

// checkSnapshot rejects nil snapshots and snapshots of another kind or resource.
func checkSnapshot(kind models.Kind, id string, snap *models.RemoteSnapshot) error {
	if snap == nil {
		return &IncompatibleResourceError{Want: kind.String(), Got: "nil snapshot", Reason: "empty response"}
	}
	if snap.Kind != kind {
		return &IncompatibleResourceError{Want: kind.String(), Got: snap.Kind.String(), Reason: "snapshot kind mismatch"}
	}
	if snap.ID != "" && snap.ID != id {
		return &IncompatibleResourceError{
			Want:   id,
			Got:    snap.ID,
			Reason: fmt.Sprintf("snapshot is for another %s", kind),
		}
	}
	return nil
}
