package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

// Fetcher is the API client capability the engine depends on.
//
// An empty since requests the full snapshot. Implementations must return an empty video list,
// not a nil snapshot, for a deleted collection, and every returned video must carry a YouTube ID and etag.
type Fetcher interface {
	FetchChannel(ctx context.Context, id, since string) (*models.RemoteSnapshot, error)
	FetchPlaylist(ctx context.Context, id, since string) (*models.RemoteSnapshot, error)
	FetchVideo(ctx context.Context, id string) (*models.Video, error)
}

// Syncer reconciles one resource per call and reports the identity of the last snapshot it holds.
type Syncer interface {
	Sync(ctx context.Context, progress chan<- ProgressUpdate, res models.Resource) (*SyncResult, error)
	RemoteID() string
}

var _ Syncer = (*Engine)(nil)

// IncompatibleResourceError reports a resource that matches none of the known kinds
// or a snapshot that cannot be reconciled against the resource it was fetched for.
type IncompatibleResourceError struct {
	Want   string // Expected kind, empty when the resource kind itself is unknown
	Got    string // What was supplied or returned
	Reason string
}

func (e *IncompatibleResourceError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("%v: %s (%s)", shared.ErrIncompatibleResource, e.Reason, e.Got)
	}
	return fmt.Sprintf("%v: %s (want %s, got %s)", shared.ErrIncompatibleResource, e.Reason, e.Want, e.Got)
}

// Unwrap lets errors.Is match [shared.ErrIncompatibleResource].
func (e *IncompatibleResourceError) Unwrap() error {
	return shared.ErrIncompatibleResource
}

// RetentionPolicy decides what happens to local videos that are absent from the remote snapshot.
type RetentionPolicy int

const (
	DropUnmatched   RetentionPolicy = iota // drop from the result, report as removed
	RetainUnmatched                        // keep in the result with [models.OutcomeRetained]
)

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Policy RetentionPolicy
	// NewVideosDisabled turns sync off for videos first seen in a remote snapshot.
	NewVideosDisabled bool
	Logger            *log.Logger
}

// SyncResult is the outcome of one [Engine.Sync] call.
type SyncResult struct {
	Kind     models.Kind
	Snapshot *models.RemoteSnapshot // Fetched snapshot; for collections its videos are the merged result
	Videos   models.VideoCollection // Merged videos (collections only)
	Removed  []models.Video         // Local videos absent from a complete remote list (collections only)
	Video    *models.Video          // Remote video to apply (single video, nil when unchanged)

	Unchanged bool // Single video: nothing to apply
	FullFetch bool // Collections: the full snapshot was used
	Fetches   int  // Number of remote requests issued
	Duration  time.Duration
}

// Authoritative reports whether the remote video list was complete, so absences count as removals.
//
// Incremental snapshots and truncated full snapshots are never authoritative.
func (r *SyncResult) Authoritative() bool {
	return r.FullFetch && (r.Snapshot == nil || !r.Snapshot.Truncated)
}

// RemoteID returns the YouTube ID of the result's snapshot.
func (r *SyncResult) RemoteID() string {
	if r == nil || r.Snapshot == nil {
		return ""
	}
	return r.Snapshot.ID
}

// Engine reconciles local resources against remote snapshots obtained from a [Fetcher].
type Engine struct {
	fetcher Fetcher
	opts    EngineOpts
	logger  *log.Logger
	data    *models.RemoteSnapshot
}

// NewEngine creates a new Engine that fetches through f.
func NewEngine(f Fetcher, opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{fetcher: f, opts: opts, logger: logger}
}

// Snapshot returns a copy of the most recent successfully processed snapshot, or nil before the first sync.
func (e *Engine) Snapshot() *models.RemoteSnapshot {
	return cloneSnapshot(e.data)
}

// RemoteID returns the YouTube ID of the held snapshot, or "" before the first sync.
func (e *Engine) RemoteID() string {
	if e.data == nil {
		return ""
	}
	return e.data.ID
}

var errNoFetcher = fmt.Errorf("%w: fetcher not initialized", shared.ErrServiceUnavailable)

// Sync reconciles res against its remote counterpart.
//
// Channels and playlists go through the incremental/full fetch strategy and [Merge]; videos go through the single-video differ.
// On error the held snapshot is left as it was.
func (e *Engine) Sync(ctx context.Context, progress chan<- ProgressUpdate, res models.Resource) (*SyncResult, error) {
	start := time.Now()
	var (
		result *SyncResult
		err    error
	)

	switch r := res.(type) {
	case *models.Channel:
		if r == nil {
			return nil, &IncompatibleResourceError{Got: "nil *models.Channel", Reason: "missing resource"}
		}
		if e.fetcher == nil {
			return nil, errNoFetcher
		}
		result, err = e.syncCollection(ctx, progress, r)
	case *models.Playlist:
		if r == nil {
			return nil, &IncompatibleResourceError{Got: "nil *models.Playlist", Reason: "missing resource"}
		}
		if e.fetcher == nil {
			return nil, errNoFetcher
		}
		result, err = e.syncCollection(ctx, progress, r)
	case *models.Video:
		if r == nil {
			return nil, &IncompatibleResourceError{Got: "nil *models.Video", Reason: "missing resource"}
		}
		if e.fetcher == nil {
			return nil, errNoFetcher
		}
		result, err = e.syncVideo(ctx, progress, r)
	default:
		return nil, &IncompatibleResourceError{Got: fmt.Sprintf("%T", res), Reason: "unsupported resource type"}
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	sendProgress(progress, syncCompleteUpdate(result))
	return result, nil
}

func (e *Engine) syncCollection(ctx context.Context, progress chan<- ProgressUpdate, c models.Collection) (*SyncResult, error) {
	info := c.RemoteInfo()
	logger := e.logger.With("kind", c.Kind(), "id", info.ID)

	snap, fetches, full, err := e.fetchCollection(ctx, progress, logger, c.Kind(), info.ID, c.LastSyncedAt())
	if err != nil {
		return nil, err
	}

	local := c.LocalVideos()
	sendProgress(progress, mergeVideosUpdate(len(local), len(snap.Videos)))

	merged, removed := Merge(local, snap.Videos, MergeOpts{
		Policy:            e.opts.Policy,
		NewVideosDisabled: e.opts.NewVideosDisabled,
	})

	if !full || snap.Truncated {
		if len(removed) > 0 {
			logger.Debug("remote list incomplete, not reporting removals", "absent", len(removed), "truncated", snap.Truncated)
		}
		removed = nil
	}

	held := cloneSnapshot(snap)
	held.Videos = merged.Videos()
	e.data = held

	logger.Debug("merged videos",
		"total", merged.Len(),
		"added", merged.Count(models.OutcomeAdded),
		"updated", merged.Count(models.OutcomeUpdated),
		"skipped", merged.Count(models.OutcomeSkipped),
		"removed", len(removed),
	)

	return &SyncResult{
		Kind:      c.Kind(),
		Snapshot:  cloneSnapshot(held),
		Videos:    merged,
		Removed:   removed,
		FullFetch: full,
		Fetches:   fetches,
	}, nil
}

func (e *Engine) syncVideo(ctx context.Context, progress chan<- ProgressUpdate, v *models.Video) (*SyncResult, error) {
	logger := e.logger.With("kind", models.KindVideo, "id", v.YouTubeID)
	sendProgress(progress, fetchVideoUpdate(v.YouTubeID))

	remote, err := e.fetcher.FetchVideo(ctx, v.YouTubeID)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, &IncompatibleResourceError{Want: models.KindVideo.String(), Got: "nil video", Reason: "empty response"}
	}
	if remote.YouTubeID != v.YouTubeID {
		return nil, &IncompatibleResourceError{
			Want:   v.YouTubeID,
			Got:    remote.YouTubeID,
			Reason: "remote returned a different video",
		}
	}

	result := &SyncResult{
		Kind:     models.KindVideo,
		Snapshot: videoSnapshot(remote),
		Fetches:  1,
	}

	switch {
	case !v.SyncEnabled:
		logger.Debug("sync disabled, keeping local video")
		result.Unchanged = true
	case tokensEqual(v.ETag, remote.ETag):
		logger.Debug("etag unchanged")
		result.Unchanged = true
	default:
		logger.Debug("etag changed", "local", v.ETag, "remote", remote.ETag)
		updated := adopt(*remote, *v)
		result.Video = &updated
		e.data = videoSnapshot(&updated)
	}

	return result, nil
}

// tokensEqual reports whether two change tokens describe the same content.
func tokensEqual(local, remote string) bool {
	return local == remote
}

func videoSnapshot(v *models.Video) *models.RemoteSnapshot {
	return &models.RemoteSnapshot{
		Kind:        models.KindVideo,
		ID:          v.YouTubeID,
		ETag:        v.ETag,
		Title:       v.Title,
		Description: v.Description,
		Videos:      []models.Video{*v},
		FetchedAt:   time.Now(),
	}
}

func cloneSnapshot(s *models.RemoteSnapshot) *models.RemoteSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Videos != nil {
		c.Videos = make([]models.Video, len(s.Videos))
		copy(c.Videos, s.Videos)
	}
	return &c
}

// describe renders "kind id" for log and progress messages, tolerating nil resources.
func describe(res models.Resource) string {
	switch r := res.(type) {
	case *models.Channel:
		if r != nil {
			return "channel " + r.YouTubeID
		}
	case *models.Playlist:
		if r != nil {
			return "playlist " + r.YouTubeID
		}
	case *models.Video:
		if r != nil {
			return "video " + r.YouTubeID
		}
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", res)
	}
	return "<nil>"
}
