// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing for flybuddy.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdList
	CmdShow
	CmdExport
	CmdTheme
	CmdSettings
	CmdHealth
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdChat:     "chat",
	CmdAsk:      "ask",
	CmdList:     "list",
	CmdShow:     "show",
	CmdExport:   "export",
	CmdTheme:    "theme",
	CmdSettings: "settings",
	CmdHealth:   "health",
	CmdServe:    "serve",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: alternate config file
	Endpoint   string // --endpoint: chat service URL for this run
	Storage    string // --storage: file, sqlite or memory
	Theme      string // --theme: light or dark for this run
	Offline    bool   // --offline: only localhost endpoints
	Ephemeral  bool   // --ephemeral: keep history in memory only
	JSON       bool   // --json: machine-readable output
	Quiet      bool
	Verbose    bool

	// Command-specific
	Subcommand string
	Query      string // ask: the message; list: --search
	Target     string // show/export: conversation id or list number
	Format     string // export: txt, md or json
	OutputDir  string // export: destination directory
	NewChat    bool   // ask: start a fresh conversation first
	ConfigKey  string
	ConfigVal  string
	Addr       string // serve: listen address

	// Options holds command-specific named options
	Options map[string]string
}

// UsageError reports a command line that cannot be run.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

const usageText = `flybuddy - travel assistant for the terminal

Usage:
  flybuddy                        Start an interactive chat (default)
  flybuddy chat                   Start an interactive chat
  flybuddy ask "question"         Send one message and print the reply
  flybuddy list [--search Q]      List saved conversations
  flybuddy show [ID|#]            Print a conversation (default: current)
  flybuddy export [ID|#]          Export a conversation to a file
  flybuddy theme [light|dark|toggle]
                                  Show or change the color theme
  flybuddy settings [KEY VALUE]   Show or change settings
  flybuddy health                 Check the chat service
  flybuddy serve [--addr ADDR]    Run a local mock chat service
  flybuddy config [show|get|set|path]
                                  Inspect or edit the config file
  flybuddy version                Show version information
  flybuddy help                   Show this help

Global flags:
  --config PATH         Use an alternate config file
  --endpoint URL        Chat service base URL
  --storage BACKEND     Storage backend: file, sqlite or memory
  --ephemeral           Keep conversations in memory only
  --offline             Allow only localhost endpoints
  --theme light|dark    Theme for this run
  --json                JSON output for list, show, settings, health, config
  -q, --quiet           Minimal output
  -v, --verbose         Debug logging

Command flags:
  ask --new             Start a new conversation before asking
  export -f, --format   txt, md or json (default: md)
  export -o, --output   Output directory (default: .)
  serve --latency DUR   Delay every mock reply (e.g. 500ms)

Settings keys:
  notifications, soundEnabled, autoSave (on|off), language (en|es|fr|de|pt)

Version: %s
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "flybuddy version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// commandBoolFlags lists the value-less flags each command accepts.
var commandBoolFlags = []string{"new", "n", "json"}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args, error) {
	remaining, parsedArgs, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, parsedArgs, err
	}

	if len(remaining) == 0 {
		return CmdChat, parsedArgs, nil
	}

	cmd := remaining[0]
	if !strings.HasPrefix(cmd, "-") {
		cmd = strings.ToLower(cmd)
	}
	remaining = remaining[1:]
	p := NewArgParser(remaining, commandBoolFlags...)
	if p.BoolFlag("json") {
		parsedArgs.JSON = true
	}

	switch cmd {
	case "chat", "repl":
		return CmdChat, parsedArgs, nil

	case "ask", "a":
		parsedArgs.NewChat = p.BoolFlag("new", "n")
		parsedArgs.Query = JoinPositionalArgs(p, 0)
		if strings.TrimSpace(parsedArgs.Query) == "" {
			return CmdAsk, parsedArgs, &UsageError{Message: "ask requires a message, e.g. flybuddy ask \"flights to Lisbon\""}
		}
		return CmdAsk, parsedArgs, nil

	case "list", "ls":
		parsedArgs.Query = p.FlagAny("search", "s")
		return CmdList, parsedArgs, nil

	case "show":
		parsedArgs.Target = p.Positional(0)
		return CmdShow, parsedArgs, nil

	case "export":
		parsedArgs.Target = p.Positional(0)
		parsedArgs.Format = p.FlagAny("format", "f")
		if parsedArgs.Format == "" {
			parsedArgs.Format = "md"
		}
		parsedArgs.OutputDir = p.FlagAny("output", "o")
		return CmdExport, parsedArgs, nil

	case "theme":
		parsedArgs.Subcommand = strings.ToLower(p.Positional(0))
		return CmdTheme, parsedArgs, nil

	case "settings":
		parsedArgs.ConfigKey = p.Positional(0)
		parsedArgs.ConfigVal = p.Positional(1)
		if parsedArgs.ConfigKey != "" && parsedArgs.ConfigVal == "" {
			return CmdSettings, parsedArgs, &UsageError{Message: "settings requires a value, e.g. flybuddy settings language es"}
		}
		return CmdSettings, parsedArgs, nil

	case "health", "status":
		return CmdHealth, parsedArgs, nil

	case "serve", "server":
		parsedArgs.Addr = p.Flag("addr")
		if lat := p.Flag("latency"); lat != "" {
			parsedArgs.Options["latency"] = lat
		}
		return CmdServe, parsedArgs, nil

	case "config":
		parsedArgs.Subcommand = strings.ToLower(p.Positional(0))
		if parsedArgs.Subcommand == "" {
			parsedArgs.Subcommand = "show"
		}
		parsedArgs.ConfigKey = p.Positional(1)
		parsedArgs.ConfigVal = JoinPositionalArgs(p, 2)
		return CmdConfig, parsedArgs, nil

	case "version", "--version", "-V":
		return CmdVersion, parsedArgs, nil

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs, nil

	default:
		return CmdHelp, parsedArgs, &UsageError{Message: fmt.Sprintf("unknown command: %s (run flybuddy help)", cmd)}
	}
}

// parseGlobalFlags extracts flags valid for every command.
func parseGlobalFlags(args []string) ([]string, Args, error) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	valueFlags := map[string]*string{
		"--config":   &parsedArgs.ConfigPath,
		"--endpoint": &parsedArgs.Endpoint,
		"--storage":  &parsedArgs.Storage,
		"--theme":    &parsedArgs.Theme,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--offline":
			parsedArgs.Offline = true
			continue
		case "--ephemeral":
			parsedArgs.Ephemeral = true
			continue
		case "-q", "--quiet":
			parsedArgs.Quiet = true
			continue
		case "-v", "--verbose":
			parsedArgs.Verbose = true
			continue
		case "--json":
			parsedArgs.JSON = true
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		dst, ok := valueFlags[name]
		if !ok {
			remaining = append(remaining, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, parsedArgs, &UsageError{Message: fmt.Sprintf("flag %s requires a value", name)}
			}
			i++
			value = args[i]
		}
		*dst = value
	}

	return remaining, parsedArgs, nil
}
