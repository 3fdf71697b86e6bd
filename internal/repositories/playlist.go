package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const playlistColumns = `id, sequence, youtube_id, channel_id, etag, title, description, sync_enabled, synced_at, created_at, updated_at, deleted_at`

// PlaylistRepository persists tracked playlists. Videos are stored separately by [VideoRepository].
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now()
	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	query := `
		INSERT INTO playlists (id, sequence, youtube_id, channel_id, etag, title, description, sync_enabled, synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID,
		playlist.Sequence,
		playlist.YouTubeID,
		playlist.ChannelID,
		playlist.ETag,
		playlist.Title,
		playlist.Description,
		playlist.SyncEnabled,
		nullableTime(playlist.SyncedAt),
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetByYouTubeID retrieves a tracked playlist by its YouTube playlist ID
func (r *PlaylistRepository) GetByYouTubeID(youtubeID string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE youtube_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, youtubeID), youtubeID)
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	playlist.UpdatedAt = time.Now()

	query := `
		UPDATE playlists
		SET channel_id = ?, etag = ?, title = ?, description = ?, sync_enabled = ?, synced_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.ChannelID,
		playlist.ETag,
		playlist.Title,
		playlist.Description,
		playlist.SyncEnabled,
		nullableTime(playlist.SyncedAt),
		playlist.UpdatedAt,
		playlist.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlist.ID))
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id))
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
//
// Supported criteria: "sync_enabled" (bool), "channel_id" (string).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if enabled, ok := criteria["sync_enabled"].(bool); ok {
		query += " AND sync_enabled = ?"
		args = append(args, enabled)
	}

	if channelID, ok := criteria["channel_id"].(string); ok && channelID != "" {
		query += " AND channel_id = ?"
		args = append(args, channelID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) scan(s scanner, key string) (*models.Playlist, error) {
	var (
		playlist   models.Playlist
		syncedAt  sql.NullTime
		deletedAt sql.NullTime
	)

	err := s.Scan(
		&playlist.ID, &playlist.Sequence, &playlist.YouTubeID, &playlist.ChannelID, &playlist.ETag, &playlist.Title, &playlist.Description,
		&playlist.SyncEnabled, &syncedAt, &playlist.CreatedAt, &playlist.UpdatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if syncedAt.Valid {
		playlist.SyncedAt = syncedAt.Time
	}
	playlist.DeletedAt = timePtr(deletedAt)
	return &playlist, nil
}
