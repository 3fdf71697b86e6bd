// Package services implements the remote side of reconciliation against the YouTube Data API v3.
//
// # YouTube Implementation
//
// [YouTubeService] implements [tasks.Fetcher]:
//   - FetchChannel: /channels for metadata, /search (ordered by date, publishedAfter when incremental) for video IDs
//   - FetchPlaylist: /playlists for metadata, /playlistItems for video IDs, filtered client-side when incremental
//   - FetchVideo: /videos
//
// Video IDs are resolved through /videos in batches of 50 so that every returned video carries its etag.
// A channel or playlist the API does not know yields an empty snapshot, not an error.
// List calls follow nextPageToken up to a configurable page count.
//
// # Authentication
//
// Requests are authorized either with an API key query parameter or with an OAuth2 refresh token.
// [NewGoogleOAuthConfig] builds the [oauth2.Config] used both here and by the `auth youtube` command.
// The [oauth2] transport refreshes access tokens automatically.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : neither API key nor OAuth settings configured
//   - [shared.ErrAuthFailed] : token refresh failed
//   - [shared.ErrAPIRequest] : non-2xx status, with Google's error message when present
//   - [shared.ErrVideoNotFound] : FetchVideo on an unknown ID
//
// # Raw Requests
//
// [APIService] issues unparsed GETs for the `api get` debugging command.
package services
