package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alexanderramin/feedlog/internal/auth"
	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/backend/local"
	"github.com/alexanderramin/feedlog/internal/backend/mongostore"
	"github.com/alexanderramin/feedlog/internal/backend/rest"
	"github.com/alexanderramin/feedlog/internal/config"
	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/repository"
	"github.com/alexanderramin/feedlog/internal/store"
)

// App holds everything the commands need: the configured backend, the
// auth manager and the session store, all built once per process.
type App struct {
	Config  config.Config
	StateDB *sql.DB
	Backend *backend.Service
	Auth    *auth.Manager
	Store   *store.Store

	Now      func() time.Time
	Location *time.Location
	// IsInteractive reports whether forms and the live view may be shown.
	IsInteractive func() bool
	Logger        *slog.Logger

	logOutput io.Writer
}

// AppOption configures NewApp.
type AppOption func(*App)

func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.Now = now }
}

func WithLocation(loc *time.Location) AppOption {
	return func(a *App) { a.Location = loc }
}

func WithInteractive(fn func() bool) AppOption {
	return func(a *App) { a.IsInteractive = fn }
}

// WithLogOutput sends debug and use case logs to w instead of stderr.
func WithLogOutput(w io.Writer) AppOption {
	return func(a *App) { a.logOutput = w }
}

// NewApp wires the auth manager and store over an opened state database
// and backend. Call Start before executing commands.
func NewApp(cfg config.Config, conn *sql.DB, svc *backend.Service, opts ...AppOption) *App {
	a := &App{
		Config:        cfg,
		StateDB:       conn,
		Backend:       svc,
		Now:           time.Now,
		Location:      time.Local,
		IsInteractive: func() bool { return false },
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		logOutput:     os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	debug := cfg.Debug || logLevel(cfg) == slog.LevelDebug
	if debug {
		a.Logger = slog.New(slog.NewTextHandler(a.logOutput, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	a.Auth = auth.NewManager(svc, repository.NewSQLiteAuthSessionRepo(conn),
		auth.WithClock(a.Now), auth.WithLogger(a.Logger))

	var observer store.UseCaseObserver = store.NoopUseCaseObserver{}
	if debug {
		observer = store.NewLogUseCaseObserver(a.logOutput, slog.LevelDebug)
	}
	a.Store = store.New(svc.Sessions, repository.NewSQLiteLiveSessionRepo(conn), a.Auth,
		store.WithClock(a.Now),
		store.WithWeekStart(cfg.WeekStart),
		store.WithObserver(observer),
	)
	return a
}

// Open builds an App from configuration: the state database, the selected
// backend, then the auth manager and store.
func Open(ctx context.Context, cfg config.Config, opts ...AppOption) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	var client *rest.Client
	var svc *backend.Service
	switch backend.Kind(cfg.Backend) {
	case backend.KindLocal:
		svc = local.New(conn)
	case backend.KindREST:
		var observer rest.Observer = rest.NoopObserver{}
		if cfg.Debug {
			observer = rest.NewLogObserver(os.Stderr)
		}
		client, err = rest.New(rest.Config{URL: cfg.REST.URL, AnonKey: cfg.REST.AnonKey, Timeout: cfg.REST.Timeout}, observer)
		if err != nil {
			conn.Close()
			return nil, err
		}
		svc = client.Service()
	case backend.KindMongo:
		ms, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, Timeout: cfg.REST.Timeout})
		if err != nil {
			conn.Close()
			return nil, err
		}
		svc = ms.Service()
	}

	a := NewApp(cfg, conn, svc, opts...)
	if client != nil {
		client.UseTokens(a.Auth)
	}
	if err := a.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Start restores the persisted sign-in.
func (a *App) Start(ctx context.Context) error {
	return a.Auth.Start(ctx)
}

// Close stops the store and releases the backend and state database.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Backend != nil && a.Backend.Close != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.Backend.Close(ctx))
		cancel()
	}
	if a.StateDB != nil {
		errs = append(errs, a.StateDB.Close())
	}
	return errors.Join(errs...)
}

// ready loads the owner's sessions into the store, retrying a load that
// failed before.
func (a *App) ready(ctx context.Context) error {
	if a.Auth.Current() == nil {
		return fmt.Errorf("%w: run 'feedlog auth signin' first", domain.ErrUnauthenticated)
	}
	return a.Store.Init(ctx)
}

func (a *App) now() time.Time {
	return a.Now().In(a.Location)
}

func logLevel(cfg config.Config) slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
