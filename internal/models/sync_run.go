package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunUnchanged RunStatus = "unchanged"
	RunFailed    RunStatus = "failed"
)

// SyncRun is the persisted record of one reconciliation of one resource.
type SyncRun struct {
	ID            string
	Sequence      int
	ResourceKind  Kind
	YouTubeID     string
	Status        RunStatus
	FullFetch     bool
	VideosTotal   int
	VideosAdded   int
	VideosUpdated int
	VideosSkipped int
	VideosRemoved int
	ErrorMessage  string
	StartedAt     time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// NewSyncRun creates a pending run for the resource identified by kind and youtubeID.
func NewSyncRun(kind Kind, youtubeID string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		ResourceKind: kind,
		YouTubeID:    youtubeID,
		Status:       RunPending,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Complete marks the run finished with status, stamping CompletedAt.
func (r *SyncRun) Complete(status RunStatus) {
	now := time.Now()
	r.Status = status
	r.CompletedAt = &now
}

// Fail marks the run failed with err's message.
func (r *SyncRun) Fail(err error) {
	r.Complete(RunFailed)
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Duration reports how long the run took, or zero while still pending.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Validate checks the run's fields before persistence.
func (r *SyncRun) Validate() error {
	if r.YouTubeID == "" {
		return fmt.Errorf("sync run youtube_id is required")
	}
	switch r.Status {
	case RunPending, RunCompleted, RunUnchanged, RunFailed:
	default:
		return fmt.Errorf("invalid sync run status: %q", r.Status)
	}
	if r.Status == RunFailed && r.ErrorMessage == "" {
		return fmt.Errorf("failed sync run requires an error message")
	}
	if r.VideosTotal < 0 || r.VideosAdded < 0 || r.VideosUpdated < 0 || r.VideosSkipped < 0 || r.VideosRemoved < 0 {
		return fmt.Errorf("sync run counts must be non-negative")
	}
	return nil
}
