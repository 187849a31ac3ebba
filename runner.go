package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/app"
	"github.com/llehouerou/soundshow/internal/auth"
	"github.com/llehouerou/soundshow/internal/config"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/engine"
	"github.com/llehouerou/soundshow/internal/lastfm"
	"github.com/llehouerou/soundshow/internal/logging"
	"github.com/llehouerou/soundshow/internal/mpris"
	"github.com/llehouerou/soundshow/internal/notify"
	"github.com/llehouerou/soundshow/internal/state"
)

// Runner holds the resources opened by a command and the output it writes to.
// Resources are opened on first use so that commands which only read the
// catalog never start the audio engine or D-Bus integrations.
type Runner struct {
	output io.Writer

	cfg     *config.Config
	logger  *log.Logger
	logFile *os.File
	store   *docstore.Store
	state   *state.Manager
	auth    *auth.Local
	app     *app.App
	mpris   *mpris.Adapter
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Output io.Writer
}

// NewRunner creates a Runner writing to opts.Output (stdout by default).
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{output: opts.Output}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		tracksCommand, topCommand, searchCommand, playCommand, playlistsCommand,
		signUpCommand, signInCommand, signOutCommand, whoamiCommand, profileCommand,
		lastfmAuthCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// setup loads config, opens the log destination, the store, persisted
// client state and the auth provider.
func (r *Runner) setup(ctx context.Context, cmd *cli.Command) error {
	if r.store != nil {
		return nil
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if db := cmd.String("db"); db != "" {
		cfg.DatabasePath = db
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	r.cfg = cfg

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		r.logFile = f
		w = f
	}
	r.logger = logging.New(w, logging.ParseLevel(cfg.LogLevel()))

	path, err := cfg.DBPath()
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	store, err := docstore.Open(path, docstore.WithLogger(logging.Component(r.logger, "docstore")))
	if err != nil {
		return fmt.Errorf("open store %s: %w", path, err)
	}
	r.store = store
	r.logger.Debug("store opened", "path", path)

	r.state = state.New(store, state.WithLogger(logging.Component(r.logger, "state")))

	provider, err := auth.NewLocal(ctx, store, logging.Component(r.logger, "auth"))
	if err != nil {
		return err
	}
	r.auth = provider
	return nil
}

// openApp wires the full application. With integrations, desktop
// notifications, MPRIS and scrobbling are started as configured.
func (r *Runner) openApp(ctx context.Context, cmd *cli.Command, integrations bool) (*app.App, error) {
	if err := r.setup(ctx, cmd); err != nil {
		return nil, err
	}
	if r.app != nil {
		return r.app, nil
	}

	ec := r.cfg.GetEngineConfig()
	opts := app.Options{
		Store: r.store,
		Auth:  r.auth,
		Engine: engine.NewBeep(engine.BeepConfig{
			HTTPTimeout:    ec.HTTPTimeout,
			StatusInterval: ec.StatusInterval,
			MaxStreamBytes: ec.MaxStreamBytes,
			Logger:         logging.Component(r.logger, "engine"),
		}),
		State:  r.state,
		Logger: r.logger,
	}

	if integrations {
		if r.cfg.NotificationsEnabled() {
			n, err := notify.New(
				notify.WithArtwork(notify.NewArtwork("", notify.DefaultArtworkTimeout)),
				notify.WithLogger(logging.Component(r.logger, "notify")))
			if err != nil {
				r.logger.Warn("desktop notifications unavailable", "err", err)
			} else {
				opts.Notifier = n
			}
		}
		if s := r.scrobbler(ctx); s != nil {
			opts.Scrobbler = s
		}
	}

	a, err := app.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.app = a

	if integrations && r.cfg.MPRISEnabled() {
		adapter, err := mpris.New(a.Playback)
		if err != nil {
			r.logger.Warn("MPRIS unavailable", "err", err)
		} else {
			r.mpris = adapter
		}
	}
	return a, nil
}

// scrobbler returns a Last.fm scrobbler when API credentials and a session
// key (configured or linked with lastfm-auth) are available.
func (r *Runner) scrobbler(ctx context.Context) *lastfm.Scrobbler {
	if !r.cfg.HasLastfmConfig() {
		return nil
	}
	key := r.cfg.Lastfm.SessionKey
	if key == "" {
		sess, err := r.state.GetLastfmSession(ctx)
		if err != nil {
			r.logger.Warn("load Last.fm session failed", "err", err)
			return nil
		}
		if sess == nil {
			r.logger.Debug("Last.fm configured but not linked")
			return nil
		}
		key = sess.SessionKey
	}
	client := lastfm.New(r.cfg.Lastfm.APIKey, r.cfg.Lastfm.APISecret)
	client.SetSessionKey(key)
	return lastfm.NewScrobbler(client, logging.Component(r.logger, "lastfm"))
}

// Close releases everything opened by setup and openApp. It is safe to
// call more than once.
func (r *Runner) Close() {
	ctx := context.Background()
	if r.mpris != nil {
		_ = r.mpris.Close()
		r.mpris = nil
	}
	if r.app != nil {
		// The app flushes and closes the state manager.
		if err := r.app.Close(ctx); err != nil {
			r.logger.Warn("close app", "err", err)
		}
		r.app = nil
		r.state = nil
	}
	if r.state != nil {
		if err := r.state.Close(); err != nil {
			r.logger.Warn("close state", "err", err)
		}
		r.state = nil
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("close store", "err", err)
		}
		r.store = nil
	}
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
