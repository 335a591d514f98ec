// Package app wires the journal's components together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/activity"
	"github.com/emrekiziltepe/binge-log/internal/goals"
	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
	appsync "github.com/emrekiziltepe/binge-log/internal/sync"
	"github.com/emrekiziltepe/binge-log/internal/theme"
)

// App holds the long-lived components of one process.
type App struct {
	Config   *model.AppConfig
	Log      zerolog.Logger
	Store    *store.SQLiteStore
	Remote   remote.Store
	Identity identity.Provider
	Goals    *goals.Store
	Queue    *appsync.Queue
	Sync     *appsync.Orchestrator
	Prefs    *store.Preferences
	History  *activity.History

	// Session is set when the identity comes from the keyring.
	Session *identity.KeyringProvider

	now     func() time.Time
	closers []func()
}

// Options override parts of the wiring. Zero values select the configured
// behavior.
type Options struct {
	// Identity replaces the keyring-backed provider.
	Identity identity.Provider
	// Keyring replaces the OS keyring used for the session token.
	Keyring keyring.Keyring
	// Remote replaces the configured remote driver.
	Remote remote.Store
	Now    func() time.Time
}

// New opens the local store, connects the configured remote and assembles
// the services. Close releases what New opened.
func New(ctx context.Context, cfg *model.AppConfig, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log, now: opts.Now}
	if a.now == nil {
		a.now = time.Now
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	a.Store = db
	a.closers = append(a.closers, func() { _ = db.Close() })

	a.Remote = opts.Remote
	if a.Remote == nil {
		a.Remote, err = a.openRemote(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Identity = opts.Identity
	if a.Identity == nil {
		ring := opts.Keyring
		if ring == nil {
			ring, err = identity.OpenKeyring(cfg.Auth.KeyringDir)
			if err != nil {
				a.Close()
				return nil, err
			}
		}
		a.Session = identity.NewKeyringProvider(ring, cfg.Auth.JWTSecret, log)
		a.Identity = a.Session
	}

	a.Queue = appsync.NewQueue(db, log)
	a.Sync = appsync.New(appsync.Options{
		KV:       db,
		Remote:   a.Remote,
		Identity: a.Identity,
		Queue:    a.Queue,
		Logger:   log,
		Now:      a.now,
	})
	a.closers = append(a.closers, a.Sync.Stop)

	a.Goals = goals.NewStore(goals.Deps{
		KV:       db,
		Remote:   a.Remote,
		Identity: a.Identity,
		Logger:   log,
		Now:      a.now,
	})
	a.closers = append(a.closers, a.Goals.Wait)

	a.Prefs = store.NewPreferences(db)
	a.History = activity.NewHistory(a.deps())
	return a, nil
}

func (a *App) openRemote(ctx context.Context) (remote.Store, error) {
	switch a.Config.Remote.Driver {
	case model.RemoteDriverMemory:
		return remote.NewMemory(), nil
	case model.RemoteDriverPostgres:
		if a.Config.Remote.PostgresDSN == "" {
			return nil, errors.New("remote.postgres_dsn is required for the postgres driver")
		}
		pg, err := remote.OpenPostgres(ctx, a.Config.Remote.PostgresDSN, a.Log)
		if err != nil {
			// The journal works offline; keep going without a remote.
			a.Log.Warn().Err(err).Msg("remote store unreachable, running local-only")
			return remote.Unavailable{}, nil
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	default:
		return remote.Unavailable{}, nil
	}
}

func (a *App) deps() activity.Deps {
	return activity.Deps{
		KV:       a.Store,
		Remote:   a.Remote,
		Identity: a.Identity,
		Queue:    a.Queue,
		Logger:   a.Log,
		Now:      a.now,
	}
}

// Today returns the current local date as YYYY-MM-DD.
func (a *App) Today() string {
	return model.FormatDate(a.now())
}

// Now returns the app clock's current time.
func (a *App) Now() time.Time {
	return a.now()
}

// ActivitiesFor returns a service for the given date's records, loaded.
func (a *App) ActivitiesFor(ctx context.Context, date string) (*activity.Service, error) {
	svc := activity.NewService(date, a.deps())
	if _, err := svc.Load(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// Theme returns the stored theme preference.
func (a *App) Theme(ctx context.Context) theme.Theme {
	name, err := a.Prefs.Theme(ctx)
	if err != nil {
		a.Log.Warn().Err(err).Msg("reading theme preference failed")
	}
	return theme.ForName(name)
}

// Connectivity returns the configured reachability source, or nil when no
// probe URL is set. A non-nil prober must be started with Run.
func (a *App) Connectivity() *appsync.Prober {
	url := a.Config.Connectivity.ProbeURL
	if url == "" {
		return nil
	}
	return appsync.NewProber(appsync.ProberConfig{
		URL:      url,
		Interval: time.Duration(a.Config.Connectivity.IntervalSec) * time.Second,
	}, a.Log)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
