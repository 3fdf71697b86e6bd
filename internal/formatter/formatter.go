// package formatter provides functions to export reconciled videos to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
)

// Format names accepted by [ParseFormat].
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat maps a user-supplied format name onto a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (use json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Export is the flattened view of one resource and its videos that every format renders.
type Export struct {
	Kind        models.Kind          `json:"kind"`
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	SyncEnabled bool                 `json:"sync_enabled"`
	SyncedAt    time.Time            `json:"synced_at,omitzero"`
	Videos      []models.MergedVideo `json:"videos"`
	Removed     []models.Video       `json:"removed,omitempty"`
}

// FromResource builds an Export from a locally stored resource. Every video is reported as unchanged.
func FromResource(res models.Resource) *Export {
	if res == nil {
		return &Export{Videos: []models.MergedVideo{}}
	}

	e := &Export{
		Kind:        res.Kind(),
		ID:          res.RemoteInfo().ID,
		SyncEnabled: res.IsSyncEnabled(),
		SyncedAt:    res.LastSyncedAt(),
		Videos:      []models.MergedVideo{},
	}

	switch r := res.(type) {
	case *models.Channel:
		e.Title, e.Description = r.Title, r.Description
	case *models.Playlist:
		e.Title, e.Description = r.Title, r.Description
	case *models.Video:
		e.Title, e.Description = r.Title, r.Description
		e.Videos = append(e.Videos, models.MergedVideo{Video: *r, Outcome: models.OutcomeUnchanged})
		return e
	}

	if c, ok := res.(models.Collection); ok {
		for _, v := range c.LocalVideos() {
			e.Videos = append(e.Videos, models.MergedVideo{Video: v, Outcome: models.OutcomeUnchanged})
		}
	}
	return e
}

// FromResult builds an Export from a sync result, keeping per-video outcomes.
func FromResult(res models.Resource, result *tasks.SyncResult) *Export {
	e := FromResource(res)
	if result == nil {
		return e
	}

	if snap := result.Snapshot; snap != nil {
		if snap.Title != "" {
			e.Title = snap.Title
		}
		if snap.Description != "" {
			e.Description = snap.Description
		}
	}

	if result.Kind == models.KindVideo {
		if result.Video != nil && !result.Unchanged {
			e.Videos = []models.MergedVideo{{Video: *result.Video, Outcome: models.OutcomeUpdated}}
		}
		return e
	}

	e.Videos = append([]models.MergedVideo{}, result.Videos.Entries...)
	e.Removed = result.Removed
	return e
}

// Render encodes e in format f.
func Render(e *Export, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportToJSON(e)
	case FormatCSV:
		return ExportToCSV(e)
	case FormatMarkdown:
		return ExportToMarkdown(e)
	case FormatText:
		return ExportToText(e)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToJSON renders e as indented JSON.
func ExportToJSON(e *Export) ([]byte, error) {
	return shared.MarshalJSON(e, true)
}

// ExportToCSV converts an Export to CSV format with columns: YouTube ID, Title, ETag, Outcome, Published, Sync
func ExportToCSV(e *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"YouTube ID", "Title", "ETag", "Outcome", "Published", "Sync"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range e.Videos {
		if err := writer.Write(csvRecord(entry.Video, entry.Outcome.String())); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	for _, v := range e.Removed {
		if err := writer.Write(csvRecord(v, "removed")); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func csvRecord(v models.Video, outcome string) []string {
	published := ""
	if !v.PublishedAt.IsZero() {
		published = v.PublishedAt.UTC().Format(time.RFC3339)
	}
	return []string{v.YouTubeID, v.Title, v.ETag, outcome, published, shared.VisibilityString(v.SyncEnabled)}
}

// ExportToMarkdown converts an Export to Markdown with a video list and outcome summary
func ExportToMarkdown(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	title := e.Title
	if title == "" {
		title = e.ID
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if e.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", e.Description))
	}

	buf.WriteString(fmt.Sprintf("**%s**: `%s`\n", titleCase(e.Kind.String()), e.ID))
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", len(e.Videos)))
	buf.WriteString(fmt.Sprintf("**Sync**: %s\n", shared.VisibilityString(e.SyncEnabled)))
	if !e.SyncedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Last synced**: %s\n", shared.FormatSince(e.SyncedAt)))
	}
	buf.WriteString("\n## Videos\n\n")

	for i, entry := range e.Videos {
		buf.WriteString(fmt.Sprintf("%d. [%s](https://www.youtube.com/watch?v=%s) _%s_\n",
			i+1, videoTitle(entry.Video), entry.Video.YouTubeID, entry.Outcome))
	}

	if len(e.Removed) > 0 {
		buf.WriteString("\n## Removed\n\n")
		for _, v := range e.Removed {
			buf.WriteString(fmt.Sprintf("- %s (`%s`)\n", videoTitle(v), v.YouTubeID))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Export to plain text format
func ExportToText(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s: %s (%s)\n", titleCase(e.Kind.String()), e.Title, e.ID))
	if e.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", e.Description))
	}
	buf.WriteString(fmt.Sprintf("Videos: %d\n\n", len(e.Videos)))

	for i, entry := range e.Videos {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, entry.Outcome, videoTitle(entry.Video)))
	}
	for _, v := range e.Removed {
		buf.WriteString(fmt.Sprintf("-  [removed] %s\n", videoTitle(v)))
	}

	return buf.Bytes(), nil
}

// WriteExport renders e in format f and writes it to path.
//
// Defaults to {id}_videos.{ext} as the filename.
func WriteExport(e *Export, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_videos.%s", e.ID, f.Extension())
	}

	data, err := Render(e, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func videoTitle(v models.Video) string {
	if v.Title == "" {
		return v.YouTubeID
	}
	return v.Title
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
