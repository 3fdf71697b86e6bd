package tasks

import "github.com/desertthunder/ytsync/internal/models"

// MergeOpts configures [Merge].
type MergeOpts struct {
	Policy            RetentionPolicy
	NewVideosDisabled bool
}

// Merge reconciles local videos against remote videos, keyed by YouTube ID.
//
// Each remote video appears exactly once in the result, in remote order. Local videos with no remote
// counterpart are returned as removed and, under [RetainUnmatched], appended after the remote videos.
// Local collections are assumed to be identity-unique; for duplicates the first occurrence is used.
func Merge(local, remote []models.Video, opts MergeOpts) (models.VideoCollection, []models.Video) {
	index := make(map[string]int, len(local))
	for i, v := range local {
		if _, ok := index[v.YouTubeID]; !ok {
			index[v.YouTubeID] = i
		}
	}

	seen := make(map[string]bool, len(remote))
	result := models.VideoCollection{Entries: make([]models.MergedVideo, 0, len(remote))}

	for _, rv := range remote {
		seen[rv.YouTubeID] = true

		i, ok := index[rv.YouTubeID]
		if !ok {
			rv.SyncEnabled = !opts.NewVideosDisabled
			result.Append(rv, models.OutcomeAdded)
			continue
		}

		lv := local[i]
		switch {
		case tokensEqual(lv.ETag, rv.ETag):
			result.Append(lv, models.OutcomeUnchanged)
		case lv.SyncEnabled:
			result.Append(adopt(rv, lv), models.OutcomeUpdated)
		default:
			result.Append(lv, models.OutcomeSkipped)
		}
	}

	var removed []models.Video
	for _, lv := range local {
		if seen[lv.YouTubeID] {
			continue
		}
		removed = append(removed, lv)
		if opts.Policy == RetainUnmatched {
			result.Append(lv, models.OutcomeRetained)
		}
	}

	return result, removed
}

// adopt returns remote carrying local's bookkeeping (row ID, owner, sync flag and last sync time).
// Content fields come from remote.
func adopt(remote, local models.Video) models.Video {
	remote.ID = local.ID
	remote.OwnerKind = local.OwnerKind
	remote.OwnerID = local.OwnerID
	remote.SyncEnabled = local.SyncEnabled
	remote.SyncedAt = local.SyncedAt
	if remote.ChannelID == "" {
		remote.ChannelID = local.ChannelID
	}
	return remote
}
