// YouTube Data API v3 implementation of [tasks.Fetcher]
//
// Response types based on https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	googleAuthURL    = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	youtubeReadScope = "https://www.googleapis.com/auth/youtube.readonly"

	maxResults      = 50 // API maximum for list calls and the videos id filter
	defaultMaxPages = 4
)

var _ tasks.Fetcher = (*YouTubeService)(nil)

type ytSnippet struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelID   string `json:"channelId"`
	PublishedAt string `json:"publishedAt"`
}

type ytResource struct {
	ID      string    `json:"id"`
	ETag    string    `json:"etag"`
	Snippet ytSnippet `json:"snippet"`
}

type ytListResponse struct {
	ETag          string       `json:"etag"`
	NextPageToken string       `json:"nextPageToken"`
	Items         []ytResource `json:"items"`
}

type ytSearchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytPlaylistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			PublishedAt string `json:"publishedAt"` // when the item was added to the playlist
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// YouTubeOpts tunes a [YouTubeService].
type YouTubeOpts struct {
	HTTPClient *http.Client // Base client; wrapped with OAuth2 when a refresh token is configured
	RateLimit  float64      // Requests per second (default: 5)
	MaxPages   int          // Page tokens followed per list call (default: 4)
	Logger     *log.Logger
}

// YouTubeService fetches channels, playlists and videos from the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	logger     *log.Logger
}

// NewGoogleOAuthConfig builds the [oauth2.Config] for the read-only YouTube scope.
func NewGoogleOAuthConfig(cfg shared.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{youtubeReadScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}
}

// NewYouTubeService creates a YouTube Data API client.
//
// An OAuth2 refresh token takes precedence over an API key. Returns [shared.ErrMissingCredentials] when neither is set.
func NewYouTubeService(ctx context.Context, cfg shared.YouTubeConfig, opts YouTubeOpts) (*YouTubeService, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	s := &YouTubeService{
		baseURL:  baseURL,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		maxPages: opts.MaxPages,
		logger:   opts.Logger,
	}

	switch {
	case cfg.HasOAuth():
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		s.httpClient = NewGoogleOAuthConfig(cfg).Client(ctx, token)
	case cfg.APIKey != "":
		s.apiKey = cfg.APIKey
		s.httpClient = client
	default:
		return nil, fmt.Errorf("%w: youtube api_key or client_id/client_secret/refresh_token", shared.ErrMissingCredentials)
	}

	return s, nil
}

// FetchChannel returns the channel's metadata and its uploaded videos, newest first.
//
// With since set, only videos published after since are listed.
func (y *YouTubeService) FetchChannel(ctx context.Context, id, since string) (*models.RemoteSnapshot, error) {
	var channels ytListResponse
	if err := y.get(ctx, "/channels", url.Values{"part": {"snippet"}, "id": {id}}, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		y.logger.Warn("channel not found, returning empty snapshot", "id", id)
		return emptySnapshot(models.KindChannel, id), nil
	}

	params := url.Values{
		"part":       {"id"},
		"channelId":  {id},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {fmt.Sprint(maxResults)},
	}
	if since != "" {
		params.Set("publishedAfter", since)
	}

	var ids []string
	token := ""
	for page := 0; page < y.maxPages; page++ {
		if page > 0 {
			params.Set("pageToken", token)
		}
		var search ytSearchResponse
		if err := y.get(ctx, "/search", params, &search); err != nil {
			return nil, err
		}
		for _, item := range search.Items {
			if item.ID.VideoID != "" {
				ids = append(ids, item.ID.VideoID)
			}
		}
		if token = search.NextPageToken; token == "" {
			break
		}
	}

	videos, err := y.videosByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	snap := toSnapshot(models.KindChannel, channels.Items[0], videos)
	snap.Truncated = y.truncated(models.KindChannel, id, token)
	return snap, nil
}

// FetchPlaylist returns the playlist's metadata and its items in playlist order.
//
// With since set, items added to the playlist at or before since are dropped. The item's own
// added date is used, not the video's upload date, so old videos added recently are kept.
func (y *YouTubeService) FetchPlaylist(ctx context.Context, id, since string) (*models.RemoteSnapshot, error) {
	var cutoff time.Time
	if since != "" {
		t, err := time.Parse(shared.SinceLayout, since)
		if err != nil {
			return nil, fmt.Errorf("%w: since %q: %v", shared.ErrInvalidArgument, since, err)
		}
		cutoff = t
	}

	var playlists ytListResponse
	if err := y.get(ctx, "/playlists", url.Values{"part": {"snippet"}, "id": {id}}, &playlists); err != nil {
		return nil, err
	}
	if len(playlists.Items) == 0 {
		y.logger.Warn("playlist not found, returning empty snapshot", "id", id)
		return emptySnapshot(models.KindPlaylist, id), nil
	}

	params := url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {id},
		"maxResults": {fmt.Sprint(maxResults)},
	}

	var ids []string
	token := ""
	for page := 0; page < y.maxPages; page++ {
		if page > 0 {
			params.Set("pageToken", token)
		}
		var items ytPlaylistItemsResponse
		if err := y.get(ctx, "/playlistItems", params, &items); err != nil {
			return nil, err
		}
		for _, item := range items.Items {
			cd := item.ContentDetails
			if cd.VideoID == "" {
				continue
			}
			if !cutoff.IsZero() {
				added, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
				if err != nil || !added.After(cutoff) {
					continue
				}
			}
			ids = append(ids, cd.VideoID)
		}
		if token = items.NextPageToken; token == "" {
			break
		}
	}

	videos, err := y.videosByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	snap := toSnapshot(models.KindPlaylist, playlists.Items[0], videos)
	snap.Truncated = y.truncated(models.KindPlaylist, id, token)
	return snap, nil
}

// truncated reports whether a page loop stopped at the page cap with pages left.
func (y *YouTubeService) truncated(kind models.Kind, id, nextToken string) bool {
	if nextToken == "" {
		return false
	}
	y.logger.Warn("video list truncated at page limit, removals will not be applied",
		"kind", kind, "id", id, "max_pages", y.maxPages)
	return true
}

// FetchVideo returns a single video. Unknown IDs yield [shared.ErrVideoNotFound].
func (y *YouTubeService) FetchVideo(ctx context.Context, id string) (*models.Video, error) {
	videos, err := y.videosByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, id)
	}
	return &videos[0], nil
}

// videosByID looks up videos in batches of 50, preserving the order of ids.
// IDs the API does not return (private or deleted videos) are omitted.
func (y *YouTubeService) videosByID(ctx context.Context, ids []string) ([]models.Video, error) {
	found := make(map[string]models.Video, len(ids))
	for start := 0; start < len(ids); start += maxResults {
		end := min(start+maxResults, len(ids))

		var resp ytListResponse
		params := url.Values{"part": {"snippet"}, "id": {strings.Join(ids[start:end], ",")}}
		if err := y.get(ctx, "/videos", params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			found[item.ID] = toVideo(item)
		}
	}

	videos := make([]models.Video, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		v, ok := found[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		videos = append(videos, v)
	}
	return videos, nil
}

// get performs a rate-limited GET against the API and decodes the JSON body into result.
func (y *YouTubeService) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if y.apiKey != "" {
		q.Set("key", y.apiKey)
	}
	apiURL := y.baseURL + endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	y.logger.Debug("youtube request", "endpoint", endpoint, "id", params.Get("id"), "page", params.Get("pageToken"))

	resp, err := y.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: token refresh: %v", shared.ErrAuthFailed, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ytErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%w: youtube API error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("%w: youtube API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func emptySnapshot(kind models.Kind, id string) *models.RemoteSnapshot {
	return &models.RemoteSnapshot{Kind: kind, ID: id, Videos: []models.Video{}, FetchedAt: time.Now()}
}

func toSnapshot(kind models.Kind, r ytResource, videos []models.Video) *models.RemoteSnapshot {
	return &models.RemoteSnapshot{
		Kind:        kind,
		ID:          r.ID,
		ETag:        r.ETag,
		Title:       r.Snippet.Title,
		Description: r.Snippet.Description,
		Videos:      videos,
		FetchedAt:   time.Now(),
	}
}

func toVideo(r ytResource) models.Video {
	v := models.Video{
		YouTubeID:   r.ID,
		ETag:        r.ETag,
		Title:       r.Snippet.Title,
		Description: r.Snippet.Description,
		ChannelID:   r.Snippet.ChannelID,
	}
	if t, err := time.Parse(time.RFC3339, r.Snippet.PublishedAt); err == nil {
		v.PublishedAt = t
	}
	return v
}
