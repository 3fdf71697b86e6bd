package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/desertthunder/ytsync/internal/server"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Authorizer runs an interactive OAuth flow. Swapped out in tests.
type Authorizer func(ctx context.Context, config *oauth2.Config, opts server.AuthorizeOpts) (*oauth2.Token, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	youtube    tasks.Fetcher
	api        services.Requester
	store      *repositories.LocalStore
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	authorize  Authorizer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil YouTube, API and Store fields are built from the loaded config on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	YouTube    tasks.Fetcher
	API        services.Requester
	Store      *repositories.LocalStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Authorize  Authorizer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Authorize == nil {
		opts.Authorize = server.Authorize
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		youtube:    opts.YouTube,
		api:        opts.API,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		authorize:  opts.Authorize,
	}
}

// Before loads the config named by --config and applies logging flags. It runs ahead of every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	applied, err := shared.ApplyEnv(r.config, cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	if len(applied) > 0 {
		r.logger.Debug("applied environment overrides", "vars", applied)
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database handle if the runner opened one.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.store = nil, nil
	return err
}

// localStore opens the configured database and applies pending migrations on first use.
func (r *Runner) localStore() (*repositories.LocalStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.store = repositories.NewLocalStore(db)
	return r.store, nil
}

// fetcher builds the YouTube Data API client from the loaded credentials on first use.
func (r *Runner) fetcher(ctx context.Context) (tasks.Fetcher, error) {
	if r.youtube != nil {
		return r.youtube, nil
	}

	yt, err := services.NewYouTubeService(ctx, r.config.Credentials.YouTube, services.YouTubeOpts{
		HTTPClient: r.httpClient,
		RateLimit:  r.config.Sync.RateLimit,
		MaxPages:   r.config.Sync.MaxPages,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v (set api_key or run `ytsync auth youtube`)", shared.ErrServiceUnavailable, err)
	}

	var svc services.Service = yt

	r.logger.Debug("youtube client ready", "service", svc.Name())
	r.youtube = svc
	return svc, nil
}

// apiService returns the raw requester used by `api get`.
func (r *Runner) apiService() services.Requester {
	if r.api == nil {
		yt := r.config.Credentials.YouTube
		r.api = services.NewAPIService(yt.BaseURL, yt.APIKey, r.httpClient)
	}
	return r.api
}

// engineOpts maps the [sync] config section onto engine options.
func (r *Runner) engineOpts() tasks.EngineOpts {
	opts := tasks.EngineOpts{
		Policy:            tasks.DropUnmatched,
		NewVideosDisabled: !r.config.Sync.DefaultSyncEnabled,
		Logger:            r.logger,
	}
	if r.config.Sync.KeepUnmatchedLocal {
		opts.Policy = tasks.RetainUnmatched
	}
	return opts
}

func (r *Runner) bulkOpts(workers int) tasks.BulkSyncOpts {
	if workers <= 0 {
		workers = r.config.Sync.Workers
	}
	return tasks.BulkSyncOpts{
		NumWorkers: workers,
		RateLimit:  r.config.Sync.RateLimit,
		Engine:     r.engineOpts(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, trackCommand, untrackCommand, listCommand, toggleCommand,
		syncCommand, historyCommand, exportCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
