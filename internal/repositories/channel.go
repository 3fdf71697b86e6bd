package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const channelColumns = `id, sequence, youtube_id, etag, title, description, sync_enabled, synced_at, created_at, updated_at, deleted_at`

// ChannelRepository persists tracked channels. Videos are stored separately by [VideoRepository].
type ChannelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new ChannelRepository with the given database connection
func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a new channel into the database with generated ID and sequence
func (r *ChannelRepository) Create(channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := NextSequence(r.db, "channels")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now()
	channel.ID = shared.GenerateID()
	channel.Sequence = sequence
	channel.CreatedAt = now
	channel.UpdatedAt = now

	query := `
		INSERT INTO channels (id, sequence, youtube_id, etag, title, description, sync_enabled, synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		channel.ID,
		channel.Sequence,
		channel.YouTubeID,
		channel.ETag,
		channel.Title,
		channel.Description,
		channel.SyncEnabled,
		nullableTime(channel.SyncedAt),
		channel.CreatedAt,
		channel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	return nil
}

// Get retrieves a channel by ID, excluding soft-deleted channels
func (r *ChannelRepository) Get(id string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetByYouTubeID retrieves a tracked channel by its YouTube channel ID
func (r *ChannelRepository) GetByYouTubeID(youtubeID string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE youtube_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, youtubeID), youtubeID)
}

// Update modifies an existing channel in the database
func (r *ChannelRepository) Update(channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	channel.UpdatedAt = time.Now()

	query := `
		UPDATE channels
		SET etag = ?, title = ?, description = ?, sync_enabled = ?, synced_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		channel.ETag,
		channel.Title,
		channel.Description,
		channel.SyncEnabled,
		nullableTime(channel.SyncedAt),
		channel.UpdatedAt,
		channel.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: channel %s", shared.ErrNotFound, channel.ID))
}

// Delete soft-deletes a channel by ID
func (r *ChannelRepository) Delete(id string) error {
	query := `UPDATE channels SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: channel %s", shared.ErrNotFound, id))
}

// List retrieves all channels matching the given criteria, excluding soft-deleted channels
//
// Supported criteria: "sync_enabled" (bool).
func (r *ChannelRepository) List(criteria map[string]any) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE deleted_at IS NULL`
	args := []any{}

	if enabled, ok := criteria["sync_enabled"].(bool); ok {
		query += " AND sync_enabled = ?"
		args = append(args, enabled)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return channels, nil
}

func (r *ChannelRepository) scan(s scanner, key string) (*models.Channel, error) {
	var (
		channel   models.Channel
		syncedAt  sql.NullTime
		deletedAt sql.NullTime
	)

	err := s.Scan(
		&channel.ID, &channel.Sequence, &channel.YouTubeID, &channel.ETag, &channel.Title, &channel.Description,
		&channel.SyncEnabled, &syncedAt, &channel.CreatedAt, &channel.UpdatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: channel %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}

	if syncedAt.Valid {
		channel.SyncedAt = syncedAt.Time
	}
	channel.DeletedAt = timePtr(deletedAt)
	return &channel, nil
}
