package services

import (
	"context"

	"github.com/desertthunder/ytsync/internal/tasks"
)

// Service is a remote video provider the sync engine can reconcile against.
type Service interface {
	tasks.Fetcher

	// Name returns the name of the provider (e.g., "YouTube")
	Name() string
}

// Requester performs raw, unparsed API requests. Used by the `api get` debugging command.
type Requester interface {
	Get(ctx context.Context, path string) (*APIResponse, error)
}

var (
	_ Service   = (*YouTubeService)(nil)
	_ Requester = (*APIService)(nil)
)

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}
