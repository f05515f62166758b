// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - One-shot flybuddy commands and the top-level dispatcher.
package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/config"
	"github.com/jeranaias/flybuddy/internal/export"
	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/offline"
	"github.com/jeranaias/flybuddy/internal/server"
	"github.com/jeranaias/flybuddy/internal/session"
)

// shutdownTimeout bounds the graceful stop of `flybuddy serve`.
const shutdownTimeout = 5 * time.Second

// =============================================================================
// DISPATCH
// =============================================================================

// needsSession reports whether cmd reads or writes stored conversations.
func needsSession(cmd Command) bool {
	switch cmd {
	case CmdChat, CmdAsk, CmdList, CmdShow, CmdExport, CmdTheme, CmdSettings:
		return true
	}
	return false
}

// Run parses argv, runs the command and returns the process exit code.
func Run(ctx context.Context, argv []string, stdio IO) int {
	cmd, args, err := Parse(argv)
	if err != nil {
		DisplayError(stdio.Err, nil, err, args.JSON)
		if !args.JSON {
			fmt.Fprintln(stdio.Err, "Run 'flybuddy help' for usage.")
		}
		return GetExitCode(err)
	}

	switch cmd {
	case CmdHelp:
		PrintUsage(stdio.Out)
		return ExitSuccess
	case CmdVersion:
		PrintVersion(stdio.Out)
		return ExitSuccess
	}

	app, err := NewApp(args, stdio)
	if err != nil {
		DisplayError(stdio.Err, nil, err, args.JSON)
		return GetExitCode(err)
	}
	if needsSession(cmd) {
		if err := app.openSession(); err != nil {
			DisplayError(stdio.Err, app.Renderer, err, args.JSON)
			app.Close()
			return GetExitCode(err)
		}
	}

	err = Execute(ctx, cmd, app)
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		app.Log.Debug("command failed", zap.String("command", cmd.String()), zap.Error(err))
		DisplayError(stdio.Err, app.Renderer, err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// Execute runs cmd against an initialized app.
func Execute(ctx context.Context, cmd Command, app *App) error {
	switch cmd {
	case CmdChat:
		return HandleChatCommand(ctx, app)
	case CmdAsk:
		return HandleAskCommand(ctx, app)
	case CmdList:
		return HandleListCommand(app)
	case CmdShow:
		return HandleShowCommand(app)
	case CmdExport:
		return HandleExportCommand(app)
	case CmdTheme:
		return HandleThemeCommand(app)
	case CmdSettings:
		return HandleSettingsCommand(app)
	case CmdHealth:
		return HandleHealthCommand(ctx, app)
	case CmdServe:
		return HandleServeCommand(ctx, app)
	case CmdConfig:
		return HandleConfigCommand(app)
	case CmdVersion:
		PrintVersion(app.IO.Out)
		return nil
	default:
		PrintUsage(app.IO.Out)
		return nil
	}
}

func (a *App) println(s string) {
	fmt.Fprintln(a.IO.Out, s)
}

func (a *App) printJSON(command string, data interface{}) error {
	return NewJSONResponse(command, data).Print(a.IO.Out)
}

// =============================================================================
// ASK
// =============================================================================

// HandleAskCommand sends one message in the current conversation (or a new
// one with --new) and prints the reply. A fallback reply is printed and
// recorded like in the REPL, but the command then fails so scripts notice.
func HandleAskCommand(ctx context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if app.Args.NewChat {
		app.Conv.StartNew()
	}
	res, err := app.Session.Submit(ctx, app.Args.Query)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	var transportErr error
	var notices []string
	for _, n := range res.Notices {
		notices = append(notices, n.Message)
		if res.Fallback && transportErr == nil && n.Kind != session.NoticeStorage {
			transportErr = n.Err
		}
	}

	if app.Args.JSON {
		if err := app.printJSON("ask", AskData{
			ConversationID: app.currentID(),
			Reply:          res.Reply,
			Suggestions:    res.Suggestions,
			Fallback:       res.Fallback,
			Notices:        notices,
		}); err != nil {
			return err
		}
	} else {
		for _, n := range notices {
			fmt.Fprintln(app.IO.Err, app.Renderer.Warning(n))
		}
		app.println(app.Renderer.Message(res.Reply))
		if !app.Args.Quiet && len(res.Suggestions) > 0 {
			app.println(app.Renderer.Suggestions(res.Suggestions))
		}
	}

	if transportErr != nil {
		return fmt.Errorf("chat service unavailable: %w", transportErr)
	}
	return nil
}

// =============================================================================
// LIST / SHOW / EXPORT
// =============================================================================

// HandleListCommand prints saved conversations, optionally filtered.
func HandleListCommand(app *App) error {
	list := app.Conv.Conversations()
	if app.Args.Query != "" {
		list = app.Conv.Search(app.Args.Query)
	}
	if app.Args.JSON {
		return app.printJSON("list", summarize(list, app.currentID()))
	}
	if len(list) == 0 {
		if app.Args.Query != "" {
			app.println(app.Renderer.Info(fmt.Sprintf("No conversations match %q.", app.Args.Query)))
		} else {
			app.println(app.Renderer.Info("No saved conversations yet. Start one with: flybuddy chat"))
		}
		return nil
	}
	app.println(app.Renderer.ConversationList(list, app.currentID()))
	return nil
}

// HandleShowCommand prints one conversation.
func HandleShowCommand(app *App) error {
	conv, err := app.findConversation(app.Args.Target)
	if err != nil {
		return err
	}
	if app.Args.JSON {
		return app.printJSON("show", conv)
	}
	app.println(app.Renderer.Conversation(conv))
	return nil
}

// HandleExportCommand writes one conversation to a file.
func HandleExportCommand(app *App) error {
	conv, err := app.findConversation(app.Args.Target)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(app.Args.Format)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	opts := export.DefaultOptions()
	if app.Args.OutputDir != "" {
		opts.OutputDir = app.Args.OutputDir
	}

	path, err := export.ExportFormat(&conv, format, opts)
	if err != nil {
		return NewCommandError("export", "write", "could not export conversation", err)
	}
	if app.Args.JSON {
		return app.printJSON("export", map[string]string{
			"path":            path,
			"format":          string(format),
			"conversation_id": conv.ID,
		})
	}
	app.println(app.Renderer.Success("Exported to " + path))
	return nil
}

// =============================================================================
// THEME / SETTINGS
// =============================================================================

// HandleThemeCommand shows or changes the stored theme.
func HandleThemeCommand(app *App) error {
	current, stored := app.Prefs.StoredTheme()

	var next model.Theme
	switch sub := app.Args.Subcommand; sub {
	case "", "show":
		if app.Args.JSON {
			return app.printJSON("theme", ThemeData{Theme: current, Stored: stored})
		}
		origin := "detected"
		if stored {
			origin = "saved"
		}
		app.println(app.Renderer.KeyValue("Theme", fmt.Sprintf("%s (%s)", current, origin), 7))
		return nil
	case "toggle":
		next = current.Toggle()
	default:
		t, ok := model.ParseTheme(sub)
		if !ok {
			return &UsageError{Message: fmt.Sprintf("unknown theme %q (want light, dark or toggle)", sub)}
		}
		next = t
	}

	if err := app.Prefs.SetTheme(next); err != nil {
		return NewCommandError("theme", "save", "could not save theme", err)
	}
	app.Renderer.SetTheme(next)
	if app.Args.JSON {
		return app.printJSON("theme", ThemeData{Theme: next, Stored: true})
	}
	app.println(app.Renderer.Success("Theme set to " + string(next)))
	return nil
}

// HandleSettingsCommand shows settings or changes one.
func HandleSettingsCommand(app *App) error {
	s := app.Session.Settings()
	if app.Args.ConfigKey != "" {
		if !s.Set(app.Args.ConfigKey, app.Args.ConfigVal) {
			return &UsageError{Message: fmt.Sprintf("cannot set %s to %q", app.Args.ConfigKey, app.Args.ConfigVal)}
		}
		if err := app.Session.UpdateSettings(s); err != nil {
			return NewCommandError("settings", "save", "could not save settings", err)
		}
	}
	if app.Args.JSON {
		return app.printJSON("settings", s)
	}
	if app.Args.ConfigKey != "" {
		app.println(app.Renderer.Success(fmt.Sprintf("%s = %s", app.Args.ConfigKey, app.Args.ConfigVal)))
		return nil
	}
	app.println(renderSettings(app, s))
	return nil
}

func renderSettings(app *App, s model.Settings) string {
	rd := app.Renderer
	lines := []string{
		rd.Title("Settings"),
		rd.KeyValue("notifications", onOff(s.Notifications), 15),
		rd.KeyValue("soundEnabled", onOff(s.SoundEnabled), 15),
		rd.KeyValue("autoSave", onOff(s.AutoSave), 15),
		rd.KeyValue("language", string(s.Language), 15),
	}
	return strings.Join(lines, "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// =============================================================================
// HEALTH
// =============================================================================

// HandleHealthCommand checks the chat service health endpoint.
func HandleHealthCommand(ctx context.Context, app *App) error {
	ctx, cancel := context.WithTimeout(ctx, app.Client.Timeout())
	defer cancel()

	start := time.Now()
	status, err := app.Client.Health(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	data := HealthData{
		Endpoint:         app.Client.BaseURL(),
		Status:           status.Status,
		Healthy:          status.Healthy(),
		BackendAvailable: status.BackendAvailable,
		Environment:      status.Environment,
		LatencyMs:        float64(elapsed.Microseconds()) / 1000,
		Offline:          offline.IsOfflineMode(),
	}
	if app.Args.JSON {
		return app.printJSON("health", data)
	}

	rd := app.Renderer
	if data.Healthy {
		app.println(rd.Success("Chat service is healthy"))
	} else {
		app.println(rd.Warning("Chat service reported status " + data.Status))
	}
	app.println(rd.KeyValue("Endpoint", data.Endpoint, 13))
	app.println(rd.KeyValue("Latency", elapsed.Round(time.Millisecond).String(), 13))
	app.println(rd.KeyValue("Environment", data.Environment, 13))
	app.println(rd.KeyValue("Backend", onOff(data.BackendAvailable), 13))
	if data.Offline {
		app.println(rd.KeyValue("Mode", offline.StatusBadge(), 13))
	}
	return nil
}

// =============================================================================
// SERVE
// =============================================================================

// HandleServeCommand runs the mock chat service until interrupted.
func HandleServeCommand(ctx context.Context, app *App) error {
	cfg := app.Config()
	opts := server.Options{
		Addr:           cfg.Server.Addr,
		Environment:    cfg.Server.Environment,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Latency:        time.Duration(cfg.Server.LatencyMs) * time.Millisecond,
	}
	if app.Args.Addr != "" {
		opts.Addr = app.Args.Addr
	}
	if lat := app.Args.Options["latency"]; lat != "" {
		d, err := time.ParseDuration(lat)
		if err != nil || d < 0 {
			return &UsageError{Message: fmt.Sprintf("invalid --latency %q (e.g. 500ms)", lat)}
		}
		opts.Latency = d
	}

	srv := server.New(opts, app.Log.Logger)
	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return NewCommandError("serve", "listen", "could not listen on "+srv.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if !app.Args.Quiet {
		app.println(app.Renderer.Success("Mock chat service listening on http://" + ln.Addr().String()))
		app.println(app.Renderer.Muted("Point the client at it with: flybuddy --endpoint http://" + ln.Addr().String() + " chat"))
		app.println(app.Renderer.Muted("Press Ctrl+C to stop."))
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("serve", "shutdown", "server did not stop cleanly", err)
	}
	if err := <-errCh; err != nil {
		return err
	}
	if !app.Args.Quiet {
		stats := srv.Stats()
		app.println(app.Renderer.Info(fmt.Sprintf("Stopped after %d chat requests.", stats.ChatRequests)))
	}
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfigCommand inspects or edits the config file.
func HandleConfigCommand(app *App) error {
	switch app.Args.Subcommand {
	case "show", "list":
		return showConfig(app)

	case "path":
		if app.Args.JSON {
			return app.printJSON("config", map[string]string{"path": app.ConfigPath})
		}
		app.println(app.ConfigPath)
		return nil

	case "get":
		if app.Args.ConfigKey == "" {
			return &UsageError{Message: "usage: flybuddy config get <key>"}
		}
		v, err := app.Config().Get(app.Args.ConfigKey)
		if err != nil {
			return &UsageError{Message: err.Error()}
		}
		if app.Args.JSON {
			return app.printJSON("config", map[string]interface{}{app.Args.ConfigKey: v})
		}
		app.println(formatConfigValue(v))
		return nil

	case "set":
		if app.Args.ConfigKey == "" || app.Args.ConfigVal == "" {
			return &UsageError{Message: "usage: flybuddy config set <key> <value>"}
		}
		return setConfig(app)

	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q (want show, get, set or path)", app.Args.Subcommand)}
	}
}

func showConfig(app *App) error {
	cfg := app.Config()
	if app.Args.JSON {
		return app.printJSON("config", cfg)
	}
	keys := config.GetAllKeys()
	sort.Strings(keys)
	app.println(app.Renderer.Title("Configuration") + " " + app.Renderer.Muted(app.ConfigPath))
	for _, key := range keys {
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		app.println(app.Renderer.KeyValue(key, formatConfigValue(v), 26))
	}
	return nil
}

// setConfig edits the file itself, so environment and flag overrides of
// this run are not written back.
func setConfig(app *App) error {
	cfg := config.Default()
	if _, err := os.Stat(app.ConfigPath); err == nil {
		if err := config.LoadTOML(cfg, app.ConfigPath); err != nil {
			return &StartupError{Stage: "config", Err: err}
		}
	}
	if err := cfg.Set(app.Args.ConfigKey, app.Args.ConfigVal); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(app.ConfigPath), 0700); err != nil {
		return NewCommandError("config", "set", "could not create config directory", err)
	}
	if err := config.SaveTOML(cfg, app.ConfigPath); err != nil {
		return NewCommandError("config", "set", "could not save config", err)
	}
	if app.Args.JSON {
		return app.printJSON("config", map[string]string{app.Args.ConfigKey: app.Args.ConfigVal})
	}
	app.println(app.Renderer.Success(fmt.Sprintf("%s = %s", app.Args.ConfigKey, app.Args.ConfigVal)))
	return nil
}

func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case string:
		if val == "" {
			return `""`
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}
