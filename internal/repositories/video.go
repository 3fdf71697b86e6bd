package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const videoColumns = `id, youtube_id, owner_kind, owner_id, channel_id, etag, title, description, sync_enabled, published_at, synced_at, deleted_at`

// VideoRepository persists videos, both standalone (owner kind video) and those belonging to a channel or playlist.
//
// The same YouTube video may appear once per owner.
type VideoRepository struct {
	db *sql.DB
}

// NewVideoRepository creates a new VideoRepository with the given database connection
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new video into the database with generated ID and sequence
func (r *VideoRepository) Create(video *models.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := NextSequence(r.db, "videos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	video.ID = shared.GenerateID()
	now := time.Now()

	query := `
		INSERT INTO videos (
			id, sequence, youtube_id, owner_kind, owner_id, channel_id, etag, title, description,
			sync_enabled, published_at, synced_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		video.ID,
		sequence,
		video.YouTubeID,
		video.OwnerKind.String(),
		video.OwnerID,
		video.ChannelID,
		video.ETag,
		video.Title,
		video.Description,
		video.SyncEnabled,
		nullableTime(video.PublishedAt),
		nullableTime(video.SyncedAt),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}

	return nil
}

// Get retrieves a video by ID, excluding soft-deleted videos
func (r *VideoRepository) Get(id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetStandalone retrieves a standalone tracked video by its YouTube video ID
func (r *VideoRepository) GetStandalone(youtubeID string) (*models.Video, error) {
	query := `
		SELECT ` + videoColumns + ` FROM videos
		WHERE youtube_id = ? AND owner_kind = ? AND deleted_at IS NULL
		ORDER BY sequence ASC LIMIT 1
	`
	return r.scan(r.db.QueryRow(query, youtubeID, models.KindVideo.String()), youtubeID)
}

// Update modifies an existing video in the database. Owner fields are immutable.
func (r *VideoRepository) Update(video *models.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	query := `
		UPDATE videos
		SET channel_id = ?, etag = ?, title = ?, description = ?, sync_enabled = ?,
			published_at = ?, synced_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		video.ChannelID,
		video.ETag,
		video.Title,
		video.Description,
		video.SyncEnabled,
		nullableTime(video.PublishedAt),
		nullableTime(video.SyncedAt),
		time.Now(),
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: video %s", shared.ErrNotFound, video.ID))
}

// Delete soft-deletes a video by ID
func (r *VideoRepository) Delete(id string) error {
	query := `UPDATE videos SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: video %s", shared.ErrNotFound, id))
}

// DeleteByOwner soft-deletes every video belonging to the given channel or playlist.
func (r *VideoRepository) DeleteByOwner(kind models.Kind, ownerID string) (int64, error) {
	query := `UPDATE videos SET deleted_at = ? WHERE owner_kind = ? AND owner_id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), kind.String(), ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete videos: %w", err)
	}
	return result.RowsAffected()
}

// ListByOwner retrieves the videos of a channel or playlist in insertion order
func (r *VideoRepository) ListByOwner(kind models.Kind, ownerID string) ([]models.Video, error) {
	return r.List(map[string]any{"owner_kind": kind, "owner_id": ownerID})
}

// List retrieves all videos matching the given criteria, excluding soft-deleted videos
//
// Supported criteria: "owner_kind" ([models.Kind]), "owner_id" (string), "sync_enabled" (bool).
func (r *VideoRepository) List(criteria map[string]any) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["owner_kind"].(models.Kind); ok {
		query += " AND owner_kind = ?"
		args = append(args, kind.String())
	}

	if ownerID, ok := criteria["owner_id"].(string); ok {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	if enabled, ok := criteria["sync_enabled"].(bool); ok {
		query += " AND sync_enabled = ?"
		args = append(args, enabled)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return videos, nil
}

func (r *VideoRepository) scan(s scanner, key string) (*models.Video, error) {
	var (
		video       models.Video
		ownerKind   string
		publishedAt sql.NullTime
		syncedAt    sql.NullTime
		deletedAt   sql.NullTime
	)

	err := s.Scan(
		&video.ID, &video.YouTubeID, &ownerKind, &video.OwnerID, &video.ChannelID, &video.ETag, &video.Title,
		&video.Description, &video.SyncEnabled, &publishedAt, &syncedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: video %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	kind, err := models.ParseKind(ownerKind)
	if err != nil {
		return nil, fmt.Errorf("failed to scan video %s: %w", video.ID, err)
	}
	video.OwnerKind = kind

	if publishedAt.Valid {
		video.PublishedAt = publishedAt.Time
	}
	if syncedAt.Valid {
		video.SyncedAt = syncedAt.Time
	}
	video.DeletedAt = timePtr(deletedAt)
	return &video, nil
}
