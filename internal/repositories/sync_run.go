package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const syncRunColumns = `
	id, sequence, resource_kind, youtube_id, status, full_fetch,
	videos_total, videos_added, videos_updated, videos_skipped, videos_removed,
	error_message, started_at, completed_at, created_at, updated_at, deleted_at
`

// SyncRunRepository records the history of reconciliation runs.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new sync run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.ID = shared.GenerateID()
	run.Sequence = sequence

	query := `
		INSERT INTO sync_runs (
			id, sequence, resource_kind, youtube_id, status, full_fetch,
			videos_total, videos_added, videos_updated, videos_skipped, videos_removed,
			error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID,
		run.Sequence,
		run.ResourceKind.String(),
		run.YouTubeID,
		string(run.Status),
		run.FullFetch,
		run.VideosTotal,
		run.VideosAdded,
		run.VideosUpdated,
		run.VideosSkipped,
		run.VideosRemoved,
		nullableString(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a sync run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// Update modifies an existing sync run in the database
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	run.UpdatedAt = time.Now()

	query := `
		UPDATE sync_runs
		SET status = ?, full_fetch = ?, videos_total = ?, videos_added = ?, videos_updated = ?,
			videos_skipped = ?, videos_removed = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status),
		run.FullFetch,
		run.VideosTotal,
		run.VideosAdded,
		run.VideosUpdated,
		run.VideosSkipped,
		run.VideosRemoved,
		nullableString(run.ErrorMessage),
		run.CompletedAt,
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, run.ID))
}

// Delete soft-deletes a sync run by ID
func (r *SyncRunRepository) Delete(id string) error {
	query := `UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id))
}

// List retrieves sync runs newest first.
//
// Supported criteria: "resource_kind" ([models.Kind]), "youtube_id" (string), "status" ([models.RunStatus]), "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["resource_kind"].(models.Kind); ok {
		query += " AND resource_kind = ?"
		args = append(args, kind.String())
	}

	if youtubeID, ok := criteria["youtube_id"].(string); ok && youtubeID != "" {
		query += " AND youtube_id = ?"
		args = append(args, youtubeID)
	}

	if status, ok := criteria["status"].(models.RunStatus); ok && status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *SyncRunRepository) scan(s scanner, key string) (*models.SyncRun, error) {
	var (
		run          models.SyncRun
		kind         string
		status       string
		errorMessage sql.NullString
		completedAt  sql.NullTime
		deletedAt    sql.NullTime
	)

	err := s.Scan(
		&run.ID, &run.Sequence, &kind, &run.YouTubeID, &status, &run.FullFetch,
		&run.VideosTotal, &run.VideosAdded, &run.VideosUpdated, &run.VideosSkipped, &run.VideosRemoved,
		&errorMessage, &run.StartedAt, &completedAt, &run.CreatedAt, &run.UpdatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	parsed, err := models.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run %s: %w", run.ID, err)
	}
	run.ResourceKind = parsed
	run.Status = models.RunStatus(status)
	run.ErrorMessage = errorMessage.String
	run.CompletedAt = timePtr(completedAt)
	run.DeletedAt = timePtr(deletedAt)
	return &run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
