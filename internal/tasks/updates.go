package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchIncremental Phase = iota
	FetchFull
	FetchVideo
	MergeVideos
	SyncComplete
	BulkSync
)

func (p Phase) String() string {
	switch p {
	case FetchIncremental:
		return "fetch_incremental"
	case FetchFull:
		return "fetch_full"
	case FetchVideo:
		return "fetch_video"
	case MergeVideos:
		return "merge_videos"
	case SyncComplete:
		return "sync_complete"
	case BulkSync:
		return "bulk_sync"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchIncrementalUpdate(kind models.Kind, id, since string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchIncremental,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Fetching %s %s changes since %s...", kind, id, since),
	}
}

func fetchFullUpdate(kind models.Kind, id string, fallback bool) ProgressUpdate {
	msg := fmt.Sprintf("Fetching full %s %s...", kind, id)
	if fallback {
		msg = fmt.Sprintf("No incremental changes for %s %s, fetching full snapshot...", kind, id)
	}
	return ProgressUpdate{
		Phase:   FetchFull,
		Step:    2,
		Total:   2,
		Message: msg,
	}
}

func fetchVideoUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchVideo,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching video %s...", id),
	}
}

func mergeVideosUpdate(local, remote int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeVideos,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merging %d local and %d remote videos...", local, remote),
	}
}

func syncCompleteUpdate(res *SyncResult) ProgressUpdate {
	var msg string
	switch {
	case res.Kind == models.KindVideo && res.Unchanged:
		msg = fmt.Sprintf("✓ Video %s unchanged", res.RemoteID())
	case res.Kind == models.KindVideo:
		msg = fmt.Sprintf("✓ Video %s updated", res.RemoteID())
	default:
		msg = fmt.Sprintf("✓ %s %s: %d videos (%d added, %d updated, %d skipped, %d removed)",
			res.Kind, res.RemoteID(), res.Videos.Len(),
			res.Videos.Count(models.OutcomeAdded),
			res.Videos.Count(models.OutcomeUpdated),
			res.Videos.Count(models.OutcomeSkipped),
			len(res.Removed),
		)
	}
	return ProgressUpdate{
		Phase:   SyncComplete,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func bulkSyncStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkSync,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Syncing %d resources...", total),
	}
}

func bulkSyncedUpdate(step, total int, r ResourceResult) ProgressUpdate {
	name := describe(r.Resource)
	if r.Err != nil {
		return ProgressUpdate{
			Phase:   BulkSync,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, r.Err),
			Data:    r,
		}
	}
	return ProgressUpdate{
		Phase:   BulkSync,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, name),
		Data:    r,
	}
}
