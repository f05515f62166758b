// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for flybuddy.
//
// Command: chat (default when no command is given)
//
// Interactive commands:
//   /new                 Start a new conversation
//   /list                List saved conversations
//   /load <#|id>         Switch to a saved conversation
//   /like [#]            Like or unlike a reply (default: the last one)
//   /clear               Clear the messages of the current conversation
//   /draft [text]        Show or save a draft for the current conversation
//   /search <query>      Search titles and messages
//   /export [txt|md|json] [dir]
//                        Export the current conversation
//   /theme [light|dark]  Show or switch the color theme
//   /settings [key val]  Show or change settings
//   /status              Show session statistics
//   /help, /?            Show available commands
//   /quit, /q            Exit chat
//   Ctrl+C               Cancel the request in flight
//   Ctrl+D               Exit chat
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/config"
	"github.com/jeranaias/flybuddy/internal/util"
)

const promptText = "you> "

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of user input at a time. Prompt returns io.EOF
// when input ends.
type lineReader interface {
	Prompt(prompt, prefill string) (string, error)
	AppendHistory(line string)
	Close() error
}

// errInterrupted is returned by Prompt when the user presses Ctrl+C at an
// empty prompt.
var errInterrupted = errors.New("interrupted")

// linerReader provides history and line editing on a terminal.
// USABILITY: Supports arrow keys for history navigation and line editing.
type linerReader struct {
	line        *liner.State
	historyFile string
	log         *zap.Logger
}

func newLinerReader(historyFile string, log *zap.Logger) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &linerReader{line: line, historyFile: historyFile, log: log}
	if f, err := os.Open(historyFile); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			log.Debug("could not read input history", zap.Error(err))
		}
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt, prefill string) (string, error) {
	var (
		input string
		err   error
	)
	if prefill != "" {
		input, err = r.line.PromptWithSuggestion(prompt, prefill, -1)
	} else {
		input, err = r.line.Prompt(prompt)
	}
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errInterrupted
	}
	return input, err
}

func (r *linerReader) AppendHistory(line string) {
	r.line.AppendHistory(line)
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	defer r.line.Close()
	if r.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), util.DefaultDirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.line.WriteHistory(f)
	return err
}

// scanReader reads plain lines, for piped input and tests.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{scanner: s}
}

func (r *scanReader) Prompt(string, string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) AppendHistory(string) {}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// REPL is an interactive chat session.
type REPL struct {
	app   *App
	input lineReader
	out   io.Writer

	sent      int
	startTime time.Time
}

// newREPL creates a REPL reading from the app's input.
func newREPL(app *App) *REPL {
	var input lineReader
	if app.IO.Interactive {
		historyFile, err := app.Config().HistoryPath()
		if err != nil {
			app.Log.Debug("input history disabled", zap.Error(err))
		}
		input = newLinerReader(historyFile, app.Log.Logger)
	} else {
		input = newScanReader(app.IO.In)
	}
	return &REPL{app: app, input: input, out: app.IO.Out, startTime: time.Now()}
}

// HandleChatCommand runs the interactive chat until /quit or end of input.
func HandleChatCommand(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	autosaveDone := make(chan struct{})
	go func() {
		defer close(autosaveDone)
		app.Session.Run(ctx)
	}()

	if w := startConfigWatcher(app); w != nil {
		defer w.Close()
	}

	repl := newREPL(app)
	err := repl.Run(ctx)

	cancel()
	<-autosaveDone
	if closeErr := repl.input.Close(); closeErr != nil {
		app.Log.Debug("could not save input history", zap.Error(closeErr))
	}
	return err
}

// startConfigWatcher reloads the config file while the chat runs. The chat
// works without it when the file cannot be watched.
func startConfigWatcher(app *App) *config.Watcher {
	w, err := config.NewWatcher(app.ConfigPath, app.Config(), app.Log.Logger)
	if err != nil {
		app.Log.Debug("config hot reload disabled", zap.Error(err))
		return nil
	}
	w.OnChange(app.applyConfig)
	return w
}

// Run reads and handles lines until the user quits or input ends.
func (r *REPL) Run(ctx context.Context) error {
	if !r.app.Args.Quiet {
		r.printWelcome()
	}

	for {
		if ctx.Err() != nil {
			break
		}
		line, err := r.input.Prompt(promptText, r.draft())
		if errors.Is(err, errInterrupted) {
			fmt.Fprintln(r.out, r.app.Renderer.Muted("(type /quit or press Ctrl+D to exit)"))
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.input.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			keepGoing, cmdErr := r.dispatch(line)
			if cmdErr != nil {
				fmt.Fprintln(r.out, r.app.Renderer.Error(cmdErr.Error()))
			}
			if !keepGoing {
				break
			}
			continue
		}
		r.send(ctx, line)
	}

	if !r.app.Args.Quiet {
		r.printExitSummary()
	}
	return nil
}

// draft returns the saved draft to prefill the prompt with.
func (r *REPL) draft() string {
	if cur, ok := r.app.Conv.Current(); ok {
		return cur.Draft
	}
	return ""
}

// send submits one message. Ctrl+C cancels the request in flight.
func (r *REPL) send(ctx context.Context, text string) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := r.app.Session.Submit(sendCtx, text)
	if err != nil {
		fmt.Fprintln(r.out, r.app.Renderer.Error(err.Error()))
		return
	}
	r.sent++

	for _, n := range res.Notices {
		fmt.Fprintln(r.out, r.app.Renderer.Warning(n.Message))
	}
	fmt.Fprintln(r.out, r.app.Renderer.Message(res.Reply))
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(r.out, r.app.Renderer.Suggestions(res.Suggestions))
	}
}

func (r *REPL) printWelcome() {
	rd := r.app.Renderer
	fmt.Fprintln(r.out, rd.Title("FlyBuddy")+" "+rd.Muted("v"+Version))
	fmt.Fprintln(r.out, rd.Info("Ask about flights, hotels or destinations. Type /help for commands."))
	if cur, ok := r.app.Conv.Current(); ok && !cur.IsEmpty() {
		fmt.Fprintln(r.out, rd.Muted(fmt.Sprintf("Resuming %q (%d messages). /new starts over.", cur.Title, len(cur.Messages))))
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) printExitSummary() {
	duration := time.Since(r.startTime).Round(time.Second)
	fmt.Fprintln(r.out, r.app.Renderer.Muted(fmt.Sprintf("Goodbye. %d messages sent in %s.", r.sent, duration)))
}

// dispatch runs a slash command. It returns false when the REPL should exit.
func (r *REPL) dispatch(line string) (bool, error) {
	parts := strings.Fields(line)
	name := strings.ToLower(parts[0])
	cmd, ok := lookupCommand(name)
	if !ok {
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	return cmd.run(r, parts[1:], strings.TrimSpace(strings.TrimPrefix(line, parts[0])))
}
