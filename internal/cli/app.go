// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of config, logging, storage, transport and rendering.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/flybuddy/internal/config"
	"github.com/jeranaias/flybuddy/internal/conversation"
	"github.com/jeranaias/flybuddy/internal/logging"
	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/offline"
	"github.com/jeranaias/flybuddy/internal/render"
	"github.com/jeranaias/flybuddy/internal/session"
	"github.com/jeranaias/flybuddy/internal/storage"
	"github.com/jeranaias/flybuddy/internal/transport"
)

// IO bundles the streams a command reads and writes.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive enables liner line editing; false reads plain lines.
	Interactive bool

	// Profile forces a color profile; nil detects it from the terminal.
	Profile *termenv.Profile
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: render.IsTTY() && render.IsStdoutTTY(),
	}
}

// App holds everything one flybuddy invocation needs.
type App struct {
	Args       Args
	IO         IO
	ConfigPath string

	Log      *logging.Logger
	Client   *transport.Client
	Renderer *render.Renderer

	// Set by openSession.
	Store   storage.Store
	Prefs   *storage.Prefs
	Conv    *conversation.Manager
	Session *session.Controller

	mu     sync.Mutex
	config *config.Config
}

// NewApp loads the configuration and builds the logger, chat client and
// renderer. Failures here are startup failures: the command cannot run.
func NewApp(args Args, stdio IO) (*App, error) {
	cfgPath := args.ConfigPath
	if cfgPath == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, &StartupError{Stage: "config", Err: err}
		}
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, &StartupError{Stage: "config", Err: err}
	}
	if err := applyFlags(cfg, args); err != nil {
		return nil, &StartupError{Stage: "config", Err: err}
	}

	if args.Offline || cfg.Endpoint.Offline {
		offline.SetOfflineMode(true)
	}

	log, err := logging.FromConfig(cfg)
	if err != nil {
		return nil, &StartupError{Stage: "logging", Err: err}
	}

	app := &App{
		Args:       args,
		IO:         stdio,
		ConfigPath: cfgPath,
		Log:        log,
		config:     cfg,
	}

	app.Client = transport.NewClient(cfg.Endpoint.URL).
		WithTimeout(cfg.Endpoint.Timeout()).
		WithRateLimit(rate.Limit(cfg.Endpoint.RateLimit), cfg.Endpoint.Burst).
		WithLogger(log.Logger)

	theme := render.ResolveTheme(cfg.UI.Theme)
	if t, ok := model.ParseTheme(args.Theme); ok {
		theme = t
	}
	app.Renderer = render.New(render.Options{
		Output:   stdio.Out,
		Profile:  stdio.Profile,
		Theme:    theme,
		Width:    cfg.UI.Width,
		Markdown: cfg.UI.Markdown,
	})

	log.Debug("flybuddy started",
		zap.String("config", cfgPath),
		zap.String("endpoint", cfg.Endpoint.URL),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("offline", offline.IsOfflineMode()))
	return app, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// applyFlags layers command line overrides over the loaded config.
func applyFlags(cfg *config.Config, args Args) error {
	if args.Endpoint != "" {
		cfg.Endpoint.URL = args.Endpoint
	}
	if args.Storage != "" {
		cfg.Storage.Backend = args.Storage
	}
	if args.Ephemeral {
		cfg.Storage.Backend = string(storage.BackendMemory)
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	if args.Theme != "" {
		if _, ok := model.ParseTheme(args.Theme); !ok {
			return fmt.Errorf("invalid theme %q (want light or dark)", args.Theme)
		}
	}
	return cfg.Validate()
}

// openSession opens the store and builds the conversation manager and
// session controller on top of it. The renderer switches to the stored
// theme unless --theme was given.
func (a *App) openSession() error {
	cfg := a.Config()
	backend, err := storage.ParseBackend(cfg.Storage.Backend)
	if err != nil {
		return &StartupError{Stage: "storage", Err: err}
	}
	dir, err := cfg.DataDir()
	if err != nil {
		return &StartupError{Stage: "storage", Err: err}
	}
	store, err := storage.Open(storage.Options{
		Backend:    backend,
		Dir:        dir,
		QuotaBytes: cfg.Storage.QuotaBytes,
	})
	if err != nil {
		return &StartupError{Stage: "storage", Err: fmt.Errorf("open %s store in %s: %w", backend, dir, err)}
	}

	a.Store = store
	a.Prefs = storage.NewPrefs(store, a.Log.Logger,
		storage.WithDefaultTheme(render.ResolveTheme(cfg.UI.Theme)))
	a.Conv = conversation.NewManager(a.Prefs, conversation.WithLogger(a.Log.Logger))
	a.Session = session.NewController(a.Conv, a.Client, a.Prefs, session.Config{
		AutoSaveInterval: time.Duration(cfg.Session.AutoSaveSecs) * time.Second,
		SendFeedback:     cfg.Session.SendFeedback,
	}).WithLogger(a.Log.Logger)

	if a.Args.Theme == "" {
		a.Renderer.SetTheme(a.Prefs.Theme())
	}
	a.Log.Debug("storage opened", zap.String("backend", string(backend)), zap.String("dir", dir))
	return nil
}

// Close flushes the session and releases the store and logger.
func (a *App) Close() error {
	var errs []error
	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("save session: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.Log != nil {
		a.Log.Close()
	}
	return errors.Join(errs...)
}

// =============================================================================
// CONFIG HOT RELOAD
// =============================================================================

// applyConfig pushes a reloaded configuration into the running components.
// Storage settings need a restart and are left alone.
func (a *App) applyConfig(old, updated *config.Config) {
	// Command line flags keep precedence over the file.
	if a.Args.Endpoint != "" {
		updated.Endpoint.URL = a.Args.Endpoint
	}
	if a.Args.Verbose {
		updated.Log.Level = "debug"
	}

	if updated.Endpoint.URL != old.Endpoint.URL {
		a.Client.WithBaseURL(updated.Endpoint.URL)
	}
	if updated.Endpoint.TimeoutSecs != old.Endpoint.TimeoutSecs {
		a.Client.WithTimeout(updated.Endpoint.Timeout())
	}
	if updated.Endpoint.RateLimit != old.Endpoint.RateLimit || updated.Endpoint.Burst != old.Endpoint.Burst {
		a.Client.WithRateLimit(rate.Limit(updated.Endpoint.RateLimit), updated.Endpoint.Burst)
	}
	if updated.Log.Level != old.Log.Level {
		a.Log.SetLevel(updated.Log.Level)
	}
	offline.SetOfflineMode(a.Args.Offline || updated.Endpoint.Offline)
	if updated.Storage != old.Storage {
		a.Log.Info("storage settings change on next start")
	}
	a.mu.Lock()
	a.config = updated
	a.mu.Unlock()
	a.Log.Info("applied reloaded configuration",
		zap.String("endpoint", updated.Endpoint.URL),
		zap.Duration("timeout", updated.Endpoint.Timeout()),
		zap.String("log_level", updated.Log.Level))
}

// =============================================================================
// LOOKUPS
// =============================================================================

// findConversation resolves a target typed by the user: a 1-based list
// number, a full id or a unique id prefix. An empty target means the
// current conversation.
func (a *App) findConversation(target string) (model.Conversation, error) {
	target = strings.TrimSpace(strings.TrimPrefix(target, "#"))
	if target == "" {
		if cur, ok := a.Conv.Current(); ok {
			return cur, nil
		}
		return model.Conversation{}, NewNotFoundError("conversation", "current")
	}

	list := a.Conv.Conversations()
	if n, err := strconv.Atoi(target); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1], nil
		}
		return model.Conversation{}, NewNotFoundError("conversation", "#"+target)
	}

	var match *model.Conversation
	for i := range list {
		if list[i].ID == target {
			return list[i], nil
		}
		if strings.HasPrefix(list[i].ID, target) {
			if match != nil {
				return model.Conversation{}, &UsageError{Message: fmt.Sprintf("id prefix %q is ambiguous", target)}
			}
			match = &list[i]
		}
	}
	if match != nil {
		return *match, nil
	}
	if cur, ok := a.Conv.Current(); ok && cur.ID == target {
		return cur, nil
	}
	return model.Conversation{}, NewNotFoundError("conversation", target)
}

// currentID returns the id of the current conversation, or "".
func (a *App) currentID() string {
	if cur, ok := a.Conv.Current(); ok {
		return cur.ID
	}
	return ""
}

