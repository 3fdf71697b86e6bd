// package models defines the data model for the ytsync reconciliation engine
package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies which of the three resource variants a value is.
type Kind int

const (
	KindChannel Kind = iota
	KindPlaylist
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindPlaylist:
		return "playlist"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts "channel", "playlist" or "video" (case-insensitive) into a [Kind].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel":
		return KindChannel, nil
	case "playlist":
		return KindPlaylist, nil
	case "video":
		return KindVideo, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q", s)
	}
}

// YouTubeInfo holds the remote identity of a resource.
type YouTubeInfo struct {
	ID   string
	ETag string
}

// Resource is anything with a remote identifier, a last-synced timestamp and a sync-enabled flag.
//
// Implemented only by [*Channel], [*Playlist] and [*Video].
type Resource interface {
	Kind() Kind
	RemoteInfo() YouTubeInfo
	LastSyncedAt() time.Time
	IsSyncEnabled() bool

	resource()
}

// Collection is a [Resource] that owns an ordered list of videos.
type Collection interface {
	Resource
	LocalVideos() []Video
}

var (
	_ Collection = (*Channel)(nil)
	_ Collection = (*Playlist)(nil)
	_ Resource   = (*Video)(nil)
)

// Video is a single YouTube video as stored locally or parsed from the API.
type Video struct {
	ID          string     `json:"id,omitempty"` // Local UUID, empty for remote-only videos
	YouTubeID   string     `json:"youtube_id"`
	ETag        string     `json:"etag"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ChannelID   string     `json:"channel_id,omitempty"` // YouTube channel that published the video
	PublishedAt time.Time  `json:"published_at,omitzero"`
	SyncEnabled bool       `json:"sync_enabled"`
	SyncedAt    time.Time  `json:"synced_at,omitzero"`
	OwnerKind   Kind       `json:"-"`
	OwnerID     string     `json:"-"` // Local ID of the owning channel or playlist
	DeletedAt   *time.Time `json:"-"`
}

func (v *Video) Kind() Kind              { return KindVideo }
func (v *Video) RemoteInfo() YouTubeInfo { return YouTubeInfo{ID: v.YouTubeID, ETag: v.ETag} }
func (v *Video) LastSyncedAt() time.Time { return v.SyncedAt }
func (v *Video) IsSyncEnabled() bool     { return v.SyncEnabled }
func (v *Video) resource()               {}

// Validate checks the fields required to persist a video.
func (v *Video) Validate() error {
	if v.YouTubeID == "" {
		return fmt.Errorf("video youtube_id is required")
	}
	if v.OwnerKind != KindVideo && v.OwnerID == "" {
		return fmt.Errorf("video %s: owner_id is required for %s-owned videos", v.YouTubeID, v.OwnerKind)
	}
	return nil
}

// Channel is a tracked YouTube channel together with its known videos.
type Channel struct {
	ID          string     `json:"id,omitempty"`
	Sequence    int        `json:"-"`
	YouTubeID   string     `json:"youtube_id"`
	ETag        string     `json:"etag"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	SyncEnabled bool       `json:"sync_enabled"`
	SyncedAt    time.Time  `json:"synced_at,omitzero"`
	Videos      []Video    `json:"videos"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
	DeletedAt   *time.Time `json:"-"`
}

func (c *Channel) Kind() Kind              { return KindChannel }
func (c *Channel) RemoteInfo() YouTubeInfo { return YouTubeInfo{ID: c.YouTubeID, ETag: c.ETag} }
func (c *Channel) LastSyncedAt() time.Time { return c.SyncedAt }
func (c *Channel) IsSyncEnabled() bool     { return c.SyncEnabled }
func (c *Channel) LocalVideos() []Video    { return c.Videos }
func (c *Channel) resource()               {}

// Validate checks the fields required to persist a channel.
func (c *Channel) Validate() error {
	if c.YouTubeID == "" {
		return fmt.Errorf("channel youtube_id is required")
	}
	return nil
}

// Playlist is a tracked YouTube playlist together with its known videos.
type Playlist struct {
	ID          string     `json:"id,omitempty"`
	Sequence    int        `json:"-"`
	YouTubeID   string     `json:"youtube_id"`
	ChannelID   string     `json:"channel_id,omitempty"`
	ETag        string     `json:"etag"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	SyncEnabled bool       `json:"sync_enabled"`
	SyncedAt    time.Time  `json:"synced_at,omitzero"`
	Videos      []Video    `json:"videos"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
	DeletedAt   *time.Time `json:"-"`
}

func (p *Playlist) Kind() Kind              { return KindPlaylist }
func (p *Playlist) RemoteInfo() YouTubeInfo { return YouTubeInfo{ID: p.YouTubeID, ETag: p.ETag} }
func (p *Playlist) LastSyncedAt() time.Time { return p.SyncedAt }
func (p *Playlist) IsSyncEnabled() bool     { return p.SyncEnabled }
func (p *Playlist) LocalVideos() []Video    { return p.Videos }
func (p *Playlist) resource()               {}

// Validate checks the fields required to persist a playlist.
func (p *Playlist) Validate() error {
	if p.YouTubeID == "" {
		return fmt.Errorf("playlist youtube_id is required")
	}
	return nil
}

// RemoteSnapshot is the parsed API response for one resource.
//
// Collections carry their ordered remote videos; video snapshots carry exactly one entry.
// A deleted collection arrives as a snapshot with no videos, never as nil.
type RemoteSnapshot struct {
	Kind        Kind      `json:"kind"`
	ID          string    `json:"id"`
	ETag        string    `json:"etag"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Videos      []Video   `json:"videos"`
	FetchedAt   time.Time `json:"fetched_at"`
	Truncated   bool      `json:"truncated,omitempty"` // Video list stopped early; absence proves nothing
}

// Outcome records which side won for one video in a merge.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota // tokens equal, local kept
	OutcomeUpdated                  // tokens differ and sync enabled, remote kept
	OutcomeSkipped                  // tokens differ but sync disabled, local kept
	OutcomeAdded                    // no local match, remote kept
	OutcomeRetained                 // local only, kept by retention policy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAdded:
		return "added"
	case OutcomeRetained:
		return "retained"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler so outcomes appear as words in JSON exports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	for c := OutcomeUnchanged; c <= OutcomeRetained; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// MergedVideo pairs a merged video with the outcome that produced it.
type MergedVideo struct {
	Video   Video   `json:"video"`
	Outcome Outcome `json:"outcome"`
}

// VideoCollection is the ordered, append-only result of a merge.
//
// Insertion order is processing order and carries no meaning for callers.
type VideoCollection struct {
	Entries []MergedVideo `json:"entries"`
}

// Append adds v with outcome o to the end of the collection.
func (c *VideoCollection) Append(v Video, o Outcome) {
	c.Entries = append(c.Entries, MergedVideo{Video: v, Outcome: o})
}

// Len returns the number of merged videos.
func (c VideoCollection) Len() int { return len(c.Entries) }

// Videos returns the merged videos without outcomes.
func (c VideoCollection) Videos() []Video {
	videos := make([]Video, len(c.Entries))
	for i, e := range c.Entries {
		videos[i] = e.Video
	}
	return videos
}

// Count returns how many entries have outcome o.
func (c VideoCollection) Count(o Outcome) int {
	n := 0
	for _, e := range c.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}
