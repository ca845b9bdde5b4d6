package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/tunelark/crossfade/internal/automation"
	"github.com/tunelark/crossfade/internal/dataset"
	"github.com/tunelark/crossfade/internal/engine"
	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	tokenPath string

	// clients, when set, overrides client construction (used by tests).
	clients map[platform.Platform]platform.Client
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	TokenPath string
	Clients   []platform.Client
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
	if opts.TokenPath == "" {
		opts.TokenPath = shared.DefaultTokenPath()
	}

	var clients map[platform.Platform]platform.Client
	if len(opts.Clients) > 0 {
		clients = make(map[platform.Platform]platform.Client, len(opts.Clients))
		for _, c := range opts.Clients {
			clients[c.Platform()] = c
		}
	}

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		tokenPath: opts.TokenPath,
		clients:   clients,
	}
}

// SetLogger swaps the Runner's logger, used when an interactive surface owns
// the terminal.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

// buildClient constructs the platform client for one platform from config.
func (r *Runner) buildClient(ctx context.Context, p platform.Platform) (platform.Client, error) {
	if c, ok := r.clients[p]; ok {
		return c, nil
	}

	if err := r.config.Validate(string(p)); err != nil {
		return nil, err
	}

	switch p {
	case platform.Spotify:
		token, err := shared.LoadToken(r.tokenPath)
		if err != nil {
			return nil, err
		}
		return platform.NewSpotifyClient(ctx, r.config.Credentials.Spotify, token)
	case platform.YouTube:
		return platform.NewYouTubeClient(r.config.Credentials.YouTube), nil
	case platform.Amazon:
		session := automation.NewChromeSession(r.config.Automation.Headless)
		return platform.NewAmazonClient(session, r.config.Credentials.Amazon, r.config.Automation, r.logger)
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, p)
	}
}

// buildEngine constructs a reconciliation engine over the given platforms.
func (r *Runner) buildEngine(ctx context.Context, platforms []platform.Platform) (*engine.Engine, error) {
	clients := make([]platform.Client, 0, len(platforms))
	for _, p := range platforms {
		c, err := r.buildClient(ctx, p)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	matcher := match.NewMatcher(r.scorer(), r.config.Matcher.Confidence)
	return engine.NewEngine(clients, matcher, r.logger, r.output)
}

// scorer loads the configured weights file or falls back to the bundled model.
func (r *Runner) scorer() match.NameScorer {
	if path := r.config.Matcher.ModelPath; path != "" {
		scorer, err := match.LoadScorer(path)
		if err == nil {
			return scorer
		}
		r.logger.Warn("failed to load model, using bundled weights", "path", path, "error", err)
	}
	return match.DefaultScorer()
}

// openStore opens the migrated pair database and wraps it in a store.
func (r *Runner) openStore() (*sql.DB, *dataset.Store, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, dataset.NewStore(db), nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
