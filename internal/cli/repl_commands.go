// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/flybuddy/internal/export"
	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/session"
)

// slashCommand is one entry of the REPL command table. run returns false
// when the REPL should exit; rest is the argument text after the name.
type slashCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(r *REPL, args []string, rest string) (bool, error)
}

// commandTable lists the REPL commands in the order /help shows them.
var commandTable []slashCommand

func init() {
	commandTable = []slashCommand{
		{name: "/new", aliases: []string{"/n"}, usage: "/new", help: "Start a new conversation", run: (*REPL).cmdNew},
		{name: "/list", aliases: []string{"/ls"}, usage: "/list", help: "List saved conversations", run: (*REPL).cmdList},
		{name: "/load", aliases: []string{"/open"}, usage: "/load <#|id>", help: "Switch to a saved conversation", run: (*REPL).cmdLoad},
		{name: "/like", usage: "/like [#]", help: "Like or unlike a reply (default: the last one)", run: (*REPL).cmdLike},
		{name: "/clear", aliases: []string{"/c"}, usage: "/clear", help: "Clear the messages of the current conversation", run: (*REPL).cmdClear},
		{name: "/draft", usage: "/draft [text|--clear]", help: "Show, save or clear the draft of the current conversation", run: (*REPL).cmdDraft},
		{name: "/search", aliases: []string{"/find"}, usage: "/search <query>", help: "Search conversation titles and messages", run: (*REPL).cmdSearch},
		{name: "/export", usage: "/export [txt|md|json] [dir]", help: "Export the current conversation", run: (*REPL).cmdExport},
		{name: "/theme", usage: "/theme [light|dark]", help: "Switch the color theme (no argument toggles)", run: (*REPL).cmdTheme},
		{name: "/settings", aliases: []string{"/set"}, usage: "/settings [key value]", help: "Show or change settings", run: (*REPL).cmdSettings},
		{name: "/status", aliases: []string{"/s"}, usage: "/status", help: "Show session statistics", run: (*REPL).cmdStatus},
		{name: "/help", aliases: []string{"/h", "/?", "/"}, usage: "/help", help: "Show available commands", run: (*REPL).cmdHelp},
		{name: "/quit", aliases: []string{"/q", "/exit"}, usage: "/quit", help: "Exit chat", run: (*REPL).cmdQuit},
	}
}

// lookupCommand finds a command by name or alias.
func lookupCommand(name string) (*slashCommand, bool) {
	for i := range commandTable {
		cmd := &commandTable[i]
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return nil, false
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (r *REPL) cmdNew(args []string, rest string) (bool, error) {
	conv := r.app.Conv.StartNew()
	r.app.Session.RecordActivity()
	r.println(r.app.Renderer.Success("Started a new conversation " + shortID(conv.ID)))
	return true, nil
}

func (r *REPL) cmdList(args []string, rest string) (bool, error) {
	list := r.app.Conv.Conversations()
	if len(list) == 0 {
		r.println(r.app.Renderer.Info("No saved conversations yet."))
		return true, nil
	}
	r.println(r.app.Renderer.ConversationList(list, r.app.currentID()))
	return true, nil
}

func (r *REPL) cmdLoad(args []string, rest string) (bool, error) {
	if len(args) == 0 {
		return true, &UsageError{Message: "usage: /load <#|id>"}
	}
	target, err := r.app.findConversation(args[0])
	if err != nil {
		return true, err
	}
	conv, ok := r.app.Conv.LoadByID(target.ID)
	if !ok {
		return true, NewNotFoundError("conversation", args[0])
	}
	r.app.Session.RecordActivity()
	r.println(r.app.Renderer.Conversation(conv))
	return true, nil
}

func (r *REPL) cmdClear(args []string, rest string) (bool, error) {
	if !r.app.Conv.ClearMessages() {
		r.println(r.app.Renderer.Info("Nothing to clear."))
		return true, nil
	}
	r.app.Session.MarkDirty()
	r.println(r.app.Renderer.Success("Conversation cleared"))
	return true, nil
}

func (r *REPL) cmdDraft(args []string, rest string) (bool, error) {
	cur, ok := r.app.Conv.Current()
	switch {
	case rest == "":
		if !ok || cur.Draft == "" {
			r.println(r.app.Renderer.Info("No draft saved."))
		} else {
			r.println(r.app.Renderer.KeyValue("Draft", cur.Draft, 6))
		}
		return true, nil
	case rest == "--clear":
		r.app.Conv.SetDraft("")
		r.println(r.app.Renderer.Success("Draft cleared"))
	default:
		r.app.Conv.SetDraft(rest)
		r.println(r.app.Renderer.Success("Draft saved; it will be filled in at the next prompt"))
	}
	r.app.Session.MarkDirty()
	return true, nil
}

func (r *REPL) cmdSearch(args []string, rest string) (bool, error) {
	if rest == "" {
		return true, &UsageError{Message: "usage: /search <query>"}
	}
	found := r.app.Conv.Search(rest)
	if len(found) == 0 {
		r.println(r.app.Renderer.Info(fmt.Sprintf("No conversations match %q.", rest)))
		return true, nil
	}
	r.println(r.app.Renderer.ConversationList(found, r.app.currentID()))
	return true, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// cmdLike toggles the like on the n-th assistant reply, numbered as
// Renderer.Conversation numbers them.
func (r *REPL) cmdLike(args []string, rest string) (bool, error) {
	cur, ok := r.app.Conv.Current()
	if !ok {
		return true, NewNotFoundError("conversation", "current")
	}
	replies := assistantReplies(cur)
	if len(replies) == 0 {
		return true, fmt.Errorf("no replies to like yet")
	}

	n := len(replies)
	if len(args) > 0 {
		v, err := ParseIntWithValidation(strings.TrimPrefix(args[0], "#"), "reply number")
		if err != nil {
			return true, &UsageError{Message: err.Error()}
		}
		if v > len(replies) {
			return true, NewNotFoundError("reply", "#"+strconv.Itoa(v))
		}
		n = v
	}

	msg := replies[n-1]
	liked, ok := r.app.Session.ToggleLike(msg.ID)
	if !ok {
		return true, NewNotFoundError("reply", "#"+strconv.Itoa(n))
	}
	if liked {
		r.println(r.app.Renderer.Success(fmt.Sprintf("Liked reply #%d", n)))
	} else {
		r.println(r.app.Renderer.Info(fmt.Sprintf("Removed like from reply #%d", n)))
	}
	return true, nil
}

func assistantReplies(conv model.Conversation) []model.Message {
	var out []model.Message
	for _, m := range conv.Messages {
		if m.Sender == model.SenderAssistant {
			out = append(out, m)
		}
	}
	return out
}

func (r *REPL) cmdExport(args []string, rest string) (bool, error) {
	cur, ok := r.app.Conv.Current()
	if !ok {
		return true, NewNotFoundError("conversation", "current")
	}
	formatName := "md"
	if len(args) > 0 {
		formatName = args[0]
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return true, &UsageError{Message: err.Error()}
	}
	opts := export.DefaultOptions()
	if len(args) > 1 {
		opts.OutputDir = args[1]
	}
	path, err := export.ExportFormat(&cur, format, opts)
	if err != nil {
		return true, NewCommandError("export", "write", "could not export conversation", err)
	}
	r.println(r.app.Renderer.Success("Exported to " + path))
	return true, nil
}

// =============================================================================
// PREFERENCES
// =============================================================================

func (r *REPL) cmdTheme(args []string, rest string) (bool, error) {
	next := r.app.Renderer.Theme().Toggle()
	if len(args) > 0 {
		t, ok := model.ParseTheme(args[0])
		if !ok {
			return true, &UsageError{Message: "usage: /theme [light|dark]"}
		}
		next = t
	}
	r.app.Renderer.SetTheme(next)
	if err := r.app.Prefs.SetTheme(next); err != nil {
		r.println(r.app.Renderer.Warning("Theme applied but could not be saved: " + err.Error()))
		return true, nil
	}
	r.println(r.app.Renderer.Success("Theme set to " + string(next)))
	return true, nil
}

func (r *REPL) cmdSettings(args []string, rest string) (bool, error) {
	if len(args) == 0 {
		r.println(renderSettings(r.app, r.app.Session.Settings()))
		return true, nil
	}
	if len(args) < 2 {
		return true, &UsageError{Message: "usage: /settings <key> <value>"}
	}
	s := r.app.Session.Settings()
	if !s.Set(args[0], args[1]) {
		return true, &UsageError{Message: fmt.Sprintf("cannot set %s to %q", args[0], args[1])}
	}
	if err := r.app.Session.UpdateSettings(s); err != nil {
		r.println(r.app.Renderer.Warning("Setting applied but could not be saved: " + err.Error()))
		return true, nil
	}
	r.println(r.app.Renderer.Success(fmt.Sprintf("%s = %s", args[0], args[1])))
	return true, nil
}

// =============================================================================
// SESSION
// =============================================================================

func (r *REPL) cmdStatus(args []string, rest string) (bool, error) {
	st := r.app.Session.GetStatus()
	rd := r.app.Renderer
	cfg := r.app.Config()

	r.println(rd.Title("Session"))
	r.println(rd.KeyValue("Session", st.SessionID, 14))
	r.println(rd.KeyValue("Duration", session.FormatDuration(st.Duration), 14))
	r.println(rd.KeyValue("Messages sent", strconv.Itoa(r.sent), 14))
	r.println(rd.KeyValue("Endpoint", r.app.Client.BaseURL(), 14))
	r.println(rd.KeyValue("Storage", cfg.Storage.Backend, 14))
	if cur, ok := r.app.Conv.Current(); ok {
		r.println(rd.KeyValue("Conversation", fmt.Sprintf("%s (%d messages)", cur.Title, len(cur.Messages)), 14))
	}
	if st.IsDirty {
		r.println(rd.KeyValue("Autosave", "pending", 14))
	}
	return true, nil
}

func (r *REPL) cmdHelp(args []string, rest string) (bool, error) {
	rd := r.app.Renderer
	r.println(rd.Title("Commands"))
	for _, cmd := range commandTable {
		r.println(rd.KeyValue(cmd.usage, cmd.help, 28))
	}
	r.println(rd.Muted("Anything else is sent to FlyBuddy. Ctrl+C cancels a request, Ctrl+D exits."))
	return true, nil
}

func (r *REPL) cmdQuit(args []string, rest string) (bool, error) {
	return false, nil
}

// shortID abbreviates an id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
