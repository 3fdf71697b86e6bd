package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// resourceRow is the JSON shape of one tracked resource in `list`.
type resourceRow struct {
	Kind        models.Kind `json:"kind"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Videos      int         `json:"videos"`
	SyncEnabled bool        `json:"sync_enabled"`
	SyncedAt    string      `json:"synced_at,omitempty"`
}

func parseKind(cmd *cli.Command) (models.Kind, error) {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return kind, nil
}

// Track starts tracking the resource named by the subcommand (channel, playlist or video).
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	id := cmd.String("id")

	store, err := r.localStore()
	if err != nil {
		return err
	}

	res, err := store.Track(kind, id, !cmd.Bool("disabled"))
	if err != nil {
		return err
	}

	r.logger.Info("tracking resource", "kind", kind, "id", id)
	return r.writePlain("✓ Tracking %s %s (sync %s)\n", kind, id, shared.VisibilityString(res.IsSyncEnabled()))
}

// Untrack forgets a tracked resource and the videos it owns.
func (r *Runner) Untrack(ctx context.Context, cmd *cli.Command) error {
	kind, err := parseKind(cmd)
	if err != nil {
		return err
	}
	id := cmd.String("id")

	store, err := r.localStore()
	if err != nil {
		return err
	}
	if err := store.Untrack(kind, id); err != nil {
		return err
	}

	r.logger.Info("untracked resource", "kind", kind, "id", id)
	return r.writePlain("✓ Untracked %s %s\n", kind, id)
}

// List prints every tracked resource, optionally filtered by --kind.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	var filter *models.Kind
	if cmd.String("kind") != "" {
		kind, err := parseKind(cmd)
		if err != nil {
			return err
		}
		filter = &kind
	}

	store, err := r.localStore()
	if err != nil {
		return err
	}
	resources, err := store.LoadAll()
	if err != nil {
		return err
	}

	rows := []resourceRow{}
	for _, res := range resources {
		if filter != nil && res.Kind() != *filter {
			continue
		}
		e := formatter.FromResource(res)
		row := resourceRow{Kind: e.Kind, ID: e.ID, Title: e.Title, Videos: len(e.Videos), SyncEnabled: e.SyncEnabled}
		if res.Kind() == models.KindVideo {
			row.Videos = 0
		}
		row.SyncedAt = shared.FormatSince(e.SyncedAt)
		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(rows) == 0 {
		return r.writePlain("No tracked resources. Use `ytsync track` to add one.\n")
	}

	for _, row := range rows {
		title := row.Title
		if title == "" {
			title = "(not synced yet)"
		}
		synced := row.SyncedAt
		if synced == "" {
			synced = "never"
		}
		r.writePlain("%-8s %-26s %-40s sync %-8s synced %s", row.Kind, row.ID, shared.Truncate(title, 40), shared.VisibilityString(row.SyncEnabled), synced)
		if row.Kind != models.KindVideo {
			r.writePlain("  (%d videos)", row.Videos)
		}
		r.writePlain("\n")
	}
	return nil
}

// Toggle enables or disables sync for a resource, or with --video for one video inside it.
func (r *Runner) Toggle(ctx context.Context, cmd *cli.Command) error {
	kind, err := parseKind(cmd)
	if err != nil {
		return err
	}
	id := cmd.String("id")
	enabled := !cmd.Bool("disable")

	store, err := r.localStore()
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s %s", kind, id)
	if video := cmd.String("video"); video != "" {
		err = store.SetVideoSyncEnabled(kind, id, video, enabled)
		target = fmt.Sprintf("video %s in %s", video, target)
	} else {
		err = store.SetSyncEnabled(kind, id, enabled)
	}
	if err != nil {
		return err
	}

	r.logger.Info("sync toggled", "target", target, "enabled", enabled)
	return r.writePlain("✓ Sync %s for %s\n", shared.VisibilityString(enabled), target)
}

// History prints recorded sync runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if cmd.String("kind") != "" {
		kind, err := parseKind(cmd)
		if err != nil {
			return err
		}
		criteria["resource_kind"] = kind
	}
	if id := cmd.String("id"); id != "" {
		criteria["youtube_id"] = id
	}

	store, err := r.localStore()
	if err != nil {
		return err
	}
	runs, err := store.Runs.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if runs == nil {
			runs = []*models.SyncRun{}
		}
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded.\n")
	}

	for _, run := range runs {
		mode := "incremental"
		if run.FullFetch {
			mode = "full"
		}
		r.writePlain("%s  %-8s %-26s %-9s %-11s +%d ~%d =%d -%d  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.ResourceKind, run.YouTubeID, run.Status, mode,
			run.VideosAdded, run.VideosUpdated, run.VideosSkipped, run.VideosRemoved,
			run.Duration().Round(time.Millisecond),
		)
		if run.ErrorMessage != "" {
			r.writePlain("    error: %s\n", run.ErrorMessage)
		}
	}
	return nil
}

// Export writes a tracked resource and its stored videos in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	kind, err := parseKind(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.localStore()
	if err != nil {
		return err
	}
	res, err := store.Load(kind, cmd.String("id"))
	if err != nil {
		return err
	}
	export := formatter.FromResource(res)

	if cmd.Bool("stdout") {
		data, err := formatter.Render(export, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", strings.TrimRight(string(data), "\n"))
	}

	path, err := formatter.WriteExport(export, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Infof("%s exported to %v with %v videos", kind, path, len(export.Videos))
	r.writePlain("✓ %s exported to %s\n", strings.ToUpper(kind.String()[:1])+kind.String()[1:], path)
	r.writePlain("  Videos: %d\n", len(export.Videos))
	return nil
}
