package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
)

// LocalStore loads tracked resources with their videos and applies sync results back to the database.
type LocalStore struct {
	Channels  *ChannelRepository
	Playlists *PlaylistRepository
	Videos    *VideoRepository
	Runs      *SyncRunRepository
}

// NewLocalStore creates a LocalStore over db. Migrations must already be applied.
func NewLocalStore(db *sql.DB) *LocalStore {
	return &LocalStore{
		Channels:  NewChannelRepository(db),
		Playlists: NewPlaylistRepository(db),
		Videos:    NewVideoRepository(db),
		Runs:      NewSyncRunRepository(db),
	}
}

// Track starts tracking the resource identified by kind and youtubeID. Metadata is filled in by the first sync.
func (s *LocalStore) Track(kind models.Kind, youtubeID string, syncEnabled bool) (models.Resource, error) {
	if youtubeID == "" {
		return nil, fmt.Errorf("%w: youtube id", shared.ErrMissingArgument)
	}

	switch kind {
	case models.KindChannel:
		c := &models.Channel{YouTubeID: youtubeID, SyncEnabled: syncEnabled}
		if err := s.Channels.Create(c); err != nil {
			return nil, err
		}
		return c, nil
	case models.KindPlaylist:
		p := &models.Playlist{YouTubeID: youtubeID, SyncEnabled: syncEnabled}
		if err := s.Playlists.Create(p); err != nil {
			return nil, err
		}
		return p, nil
	case models.KindVideo:
		v := &models.Video{YouTubeID: youtubeID, SyncEnabled: syncEnabled, OwnerKind: models.KindVideo}
		if err := s.Videos.Create(v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: kind %s", shared.ErrInvalidArgument, kind)
	}
}

// Load returns the tracked resource with its videos.
func (s *LocalStore) Load(kind models.Kind, youtubeID string) (models.Resource, error) {
	switch kind {
	case models.KindChannel:
		c, err := s.Channels.GetByYouTubeID(youtubeID)
		if err != nil {
			return nil, err
		}
		if c.Videos, err = s.Videos.ListByOwner(models.KindChannel, c.ID); err != nil {
			return nil, err
		}
		return c, nil
	case models.KindPlaylist:
		p, err := s.Playlists.GetByYouTubeID(youtubeID)
		if err != nil {
			return nil, err
		}
		if p.Videos, err = s.Videos.ListByOwner(models.KindPlaylist, p.ID); err != nil {
			return nil, err
		}
		return p, nil
	case models.KindVideo:
		return s.Videos.GetStandalone(youtubeID)
	default:
		return nil, fmt.Errorf("%w: kind %s", shared.ErrInvalidArgument, kind)
	}
}

// LoadAll returns every tracked resource: channels, then playlists, then standalone videos.
func (s *LocalStore) LoadAll() ([]models.Resource, error) {
	var resources []models.Resource

	channels, err := s.Channels.List(nil)
	if err != nil {
		return nil, err
	}
	for _, c := range channels {
		if c.Videos, err = s.Videos.ListByOwner(models.KindChannel, c.ID); err != nil {
			return nil, err
		}
		resources = append(resources, c)
	}

	playlists, err := s.Playlists.List(nil)
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if p.Videos, err = s.Videos.ListByOwner(models.KindPlaylist, p.ID); err != nil {
			return nil, err
		}
		resources = append(resources, p)
	}

	videos, err := s.Videos.List(map[string]any{"owner_kind": models.KindVideo})
	if err != nil {
		return nil, err
	}
	for i := range videos {
		resources = append(resources, &videos[i])
	}

	return resources, nil
}

// SetSyncEnabled flips the sync flag of a tracked resource.
func (s *LocalStore) SetSyncEnabled(kind models.Kind, youtubeID string, enabled bool) error {
	res, err := s.Load(kind, youtubeID)
	if err != nil {
		return err
	}

	switch r := res.(type) {
	case *models.Channel:
		r.SyncEnabled = enabled
		return s.Channels.Update(r)
	case *models.Playlist:
		r.SyncEnabled = enabled
		return s.Playlists.Update(r)
	case *models.Video:
		r.SyncEnabled = enabled
		return s.Videos.Update(r)
	default:
		return &tasks.IncompatibleResourceError{Got: fmt.Sprintf("%T", res), Reason: "unsupported resource type"}
	}
}

// SetVideoSyncEnabled flips the sync flag of one video owned by the channel or playlist collectionID.
func (s *LocalStore) SetVideoSyncEnabled(kind models.Kind, collectionID, videoID string, enabled bool) error {
	if kind == models.KindVideo {
		return s.SetSyncEnabled(kind, videoID, enabled)
	}

	res, err := s.Load(kind, collectionID)
	if err != nil {
		return err
	}
	c, ok := res.(models.Collection)
	if !ok {
		return &tasks.IncompatibleResourceError{Want: "collection", Got: fmt.Sprintf("%T", res), Reason: "not a collection"}
	}

	for _, v := range c.LocalVideos() {
		if v.YouTubeID == videoID {
			v.SyncEnabled = enabled
			return s.Videos.Update(&v)
		}
	}
	return fmt.Errorf("%w: video %s in %s %s", shared.ErrNotFound, videoID, kind, collectionID)
}

// Untrack soft-deletes a tracked resource and the videos it owns.
func (s *LocalStore) Untrack(kind models.Kind, youtubeID string) error {
	res, err := s.Load(kind, youtubeID)
	if err != nil {
		return err
	}

	switch r := res.(type) {
	case *models.Channel:
		if _, err := s.Videos.DeleteByOwner(models.KindChannel, r.ID); err != nil {
			return err
		}
		return s.Channels.Delete(r.ID)
	case *models.Playlist:
		if _, err := s.Videos.DeleteByOwner(models.KindPlaylist, r.ID); err != nil {
			return err
		}
		return s.Playlists.Delete(r.ID)
	case *models.Video:
		return s.Videos.Delete(r.ID)
	default:
		return &tasks.IncompatibleResourceError{Got: fmt.Sprintf("%T", res), Reason: "unsupported resource type"}
	}
}

// Apply persists a sync result for res.
//
// Added videos are inserted and updated videos rewritten. Removed videos are soft-deleted only when the
// result came from a full fetch, since an incremental snapshot lists new videos alone.
// Retained videos are left as they are. The resource's metadata and sync time are refreshed.
func (s *LocalStore) Apply(res models.Resource, result *tasks.SyncResult) error {
	if result == nil {
		return fmt.Errorf("%w: nil sync result", shared.ErrInvalidArgument)
	}
	now := time.Now()

	switch r := res.(type) {
	case *models.Channel:
		if err := s.applyVideos(models.KindChannel, r.ID, result, now); err != nil {
			return err
		}
		applySnapshot(&r.ETag, &r.Title, &r.Description, result.Snapshot)
		r.SyncedAt = now
		return s.Channels.Update(r)
	case *models.Playlist:
		if err := s.applyVideos(models.KindPlaylist, r.ID, result, now); err != nil {
			return err
		}
		applySnapshot(&r.ETag, &r.Title, &r.Description, result.Snapshot)
		r.SyncedAt = now
		return s.Playlists.Update(r)
	case *models.Video:
		if result.Video != nil {
			updated := *result.Video
			updated.ID = r.ID
			updated.OwnerKind = models.KindVideo
			updated.SyncedAt = now
			if err := s.Videos.Update(&updated); err != nil {
				return err
			}
			*r = updated
			return nil
		}
		r.SyncedAt = now
		return s.Videos.Update(r)
	default:
		return &tasks.IncompatibleResourceError{Got: fmt.Sprintf("%T", res), Reason: "unsupported resource type"}
	}
}

func (s *LocalStore) applyVideos(kind models.Kind, ownerID string, result *tasks.SyncResult, now time.Time) error {
	for _, entry := range result.Videos.Entries {
		v := entry.Video
		switch entry.Outcome {
		case models.OutcomeAdded:
			v.OwnerKind = kind
			v.OwnerID = ownerID
			v.SyncedAt = now
			if err := s.Videos.Create(&v); err != nil {
				return fmt.Errorf("failed to add video %s: %w", v.YouTubeID, err)
			}
		case models.OutcomeUpdated:
			v.SyncedAt = now
			if err := s.Videos.Update(&v); err != nil {
				return fmt.Errorf("failed to update video %s: %w", v.YouTubeID, err)
			}
		}
	}

	if !result.Authoritative() {
		return nil
	}

	retained := map[string]bool{}
	for _, entry := range result.Videos.Entries {
		if entry.Outcome == models.OutcomeRetained {
			retained[entry.Video.ID] = true
		}
	}
	for _, v := range result.Removed {
		if v.ID == "" || retained[v.ID] {
			continue
		}
		if err := s.Videos.Delete(v.ID); err != nil {
			return fmt.Errorf("failed to remove video %s: %w", v.YouTubeID, err)
		}
	}
	return nil
}

func applySnapshot(etag, title, description *string, snap *models.RemoteSnapshot) {
	if snap == nil {
		return
	}
	if snap.ETag != "" {
		*etag = snap.ETag
	}
	if snap.Title != "" {
		*title = snap.Title
	}
	if snap.Description != "" {
		*description = snap.Description
	}
}

// RecordRun stores the outcome of one sync of res. syncErr, when set, marks the run failed.
func (s *LocalStore) RecordRun(res models.Resource, result *tasks.SyncResult, syncErr error) (*models.SyncRun, error) {
	info := res.RemoteInfo()
	run := models.NewSyncRun(res.Kind(), info.ID)

	switch {
	case syncErr != nil:
		run.Fail(syncErr)
	case result == nil:
		run.Fail(fmt.Errorf("no result"))
	default:
		run.StartedAt = run.StartedAt.Add(-result.Duration)
		run.FullFetch = result.FullFetch
		run.VideosTotal = result.Videos.Len()
		run.VideosAdded = result.Videos.Count(models.OutcomeAdded)
		run.VideosUpdated = result.Videos.Count(models.OutcomeUpdated)
		run.VideosSkipped = result.Videos.Count(models.OutcomeSkipped)
		run.VideosRemoved = len(result.Removed)

		if res.Kind() == models.KindVideo {
			run.VideosTotal = 1
			if result.Unchanged {
				run.Complete(models.RunUnchanged)
				break
			}
			run.VideosUpdated = 1
		}
		run.Complete(models.RunCompleted)
	}

	if err := s.Runs.Create(run); err != nil {
		return nil, err
	}
	return run, nil
}
