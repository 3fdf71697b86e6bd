// Package server runs the short-lived local HTTP server used to authorize ytsync against the YouTube Data API.
//
// # Router
//
// [BasicRouter] registers method-qualified patterns on an [http.ServeMux] and wraps each handler in the
// [Middleware] stack at registration time. [RequestLogger] is the only middleware shipped.
//
// # OAuth Callback
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code and delivers a single
// [OAuthResult]. [Authorize] wires the handler to a loopback listener, opens the consent page and blocks until
// the callback arrives or the wait is abandoned.
//
// The CLI's `auth youtube` command stores the resulting refresh token in config.toml.
package server
