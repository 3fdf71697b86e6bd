package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// syncReport is the JSON shape of `sync` output.
type syncReport struct {
	Kind      models.Kind          `json:"kind"`
	ID        string               `json:"id"`
	DryRun    bool                 `json:"dry_run"`
	FullFetch bool                 `json:"full_fetch"`
	Fetches   int                  `json:"fetches"`
	Unchanged bool                 `json:"unchanged,omitempty"`
	Duration  string               `json:"duration"`
	Videos    []models.MergedVideo `json:"videos"`
	Removed   []models.Video       `json:"removed,omitempty"`
	Error     string               `json:"error,omitempty"`
}

func newSyncReport(res models.Resource, result *tasks.SyncResult, err error, dryRun bool) syncReport {
	report := syncReport{Kind: res.Kind(), ID: res.RemoteInfo().ID, DryRun: dryRun, Videos: []models.MergedVideo{}}
	if err != nil {
		report.Error = err.Error()
		return report
	}

	e := formatter.FromResult(res, result)
	report.FullFetch = result.FullFetch
	report.Fetches = result.Fetches
	report.Unchanged = result.Unchanged
	report.Duration = result.Duration.Round(time.Millisecond).String()
	report.Removed = e.Removed
	if result.Kind != models.KindVideo {
		report.Videos = e.Videos
	} else if result.Video != nil && !result.Unchanged {
		report.Videos = e.Videos
	}
	return report
}

// printProgress writes progress messages until ch is closed. The returned channel closes once all are written.
func (r *Runner) printProgress(ch <-chan tasks.ProgressUpdate, quiet bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			if quiet {
				r.logger.Debug(update.Message, "phase", update.Phase)
				continue
			}
			switch update.Phase {
			case tasks.FetchIncremental, tasks.FetchFull, tasks.FetchVideo:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.MergeVideos:
				r.writePlain("🔀 %s\n", update.Message)
			case tasks.BulkSync:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()
	return done
}

// persist applies a successful result unless dryRun is set, then records the run.
func (r *Runner) persist(res models.Resource, result *tasks.SyncResult, syncErr error, dryRun bool) error {
	if dryRun {
		return syncErr
	}

	store, err := r.localStore()
	if err != nil {
		return err
	}

	if syncErr == nil {
		if err := store.Apply(res, result); err != nil {
			syncErr = fmt.Errorf("failed to save sync result: %w", err)
		}
	}
	if _, err := store.RecordRun(res, result, syncErr); err != nil {
		r.logger.Warn("failed to record sync run", "id", res.RemoteInfo().ID, "error", err)
	}
	return syncErr
}

// Sync reconciles one tracked resource named by the subcommand and --id.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	dryRun := cmd.Bool("dry-run")
	useJSON := cmd.Bool("json")

	store, err := r.localStore()
	if err != nil {
		return err
	}
	res, err := store.Load(kind, cmd.String("id"))
	if err != nil {
		return err
	}

	fetcher, err := r.fetcher(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	printed := r.printProgress(progress, useJSON)

	engine := tasks.NewEngine(fetcher, r.engineOpts())
	result, syncErr := engine.Sync(ctx, progress, res)
	close(progress)
	<-printed

	if syncErr != nil {
		r.persist(res, nil, syncErr, dryRun)
		return syncErr
	}

	report := newSyncReport(res, result, nil, dryRun)
	if err := r.persist(res, result, nil, dryRun); err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}
	r.printSyncSummary(report, result)
	return nil
}

func (r *Runner) printSyncSummary(report syncReport, result *tasks.SyncResult) {
	title := fmt.Sprintf("Sync complete: %s %s", report.Kind, report.ID)
	if report.DryRun {
		title += " (dry run)"
	}
	r.writePlain("\n")
	r.writePlainHeader(title)

	if report.Kind == models.KindVideo {
		if report.Unchanged {
			r.writePlain("Video unchanged\n")
		} else {
			r.writePlain("Video updated: %s\n", result.Video.Title)
		}
		return
	}

	mode := "incremental"
	if report.FullFetch {
		mode = "full"
	}
	r.writePlain("Fetch: %s (%d requests) in %s\n", mode, report.Fetches, report.Duration)
	r.writePlain("Videos: %d (%d added, %d updated, %d skipped, %d retained)\n",
		result.Videos.Len(),
		result.Videos.Count(models.OutcomeAdded),
		result.Videos.Count(models.OutcomeUpdated),
		result.Videos.Count(models.OutcomeSkipped),
		result.Videos.Count(models.OutcomeRetained),
	)
	if n := len(report.Removed); n > 0 {
		r.writePlain("Removed: %d\n", n)
		for _, v := range report.Removed {
			r.writePlain("  - %s %s\n", v.YouTubeID, v.Title)
		}
	}
}

// SyncAll reconciles every tracked resource with the bulk worker pool.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run")
	useJSON := cmd.Bool("json")

	store, err := r.localStore()
	if err != nil {
		return err
	}
	resources, err := store.LoadAll()
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return r.writePlain("No tracked resources. Use `ytsync track` to add one.\n")
	}

	fetcher, err := r.fetcher(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	printed := r.printProgress(progress, useJSON)

	bulk, bulkErr := tasks.SyncAll(ctx, progress, fetcher, resources, r.bulkOpts(cmd.Int("workers")))
	close(progress)
	<-printed

	if bulk == nil {
		return bulkErr
	}

	reports := make([]syncReport, 0, len(bulk.Results))
	failed := 0
	for _, rr := range bulk.Results {
		err := r.persist(rr.Resource, rr.Result, rr.Err, dryRun)
		if err != nil {
			failed++
		}
		reports = append(reports, newSyncReport(rr.Resource, rr.Result, err, dryRun))
	}

	if useJSON {
		if err := r.writeJSON(reports, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		r.writePlainHeader("Bulk Sync Complete")
		r.writePlain("Total: %d\n", bulk.Total)
		r.writePlain("Succeeded: %d\n", len(reports)-failed)
		r.writePlain("Failed: %d\n", failed)
		r.writePlain("Duration: %s\n", bulk.Duration.Round(time.Millisecond))
		if failed > 0 {
			r.writePlain("\nFailed resources:\n")
			for _, rep := range reports {
				if rep.Error != "" {
					r.writePlain("  ✗ %s %s: %s\n", rep.Kind, rep.ID, rep.Error)
				}
			}
		}
	}

	return bulkErr
}
