// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/config"
	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/server"
	"github.com/jeranaias/flybuddy/internal/transport"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"export", "--format", "json"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "json", p.Flag("format"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--output=/tmp/out"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "/tmp/out", p.Flag("output"))
			},
		},
		{
			name:    "boolean flag at end",
			args:    []string{"list", "--json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("json"))
			},
		},
		{
			name:    "known boolean flag does not consume the next arg",
			args:    []string{"--new", "flights", "to", "Lisbon"},
			bools:   []string{"new"},
			wantSub: "flights",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("new"))
				assert.Equal(t, "flights to Lisbon", JoinPositionalArgs(p, 0))
			},
		},
		{
			name:    "unknown flag consumes the next arg",
			args:    []string{"--new", "flights"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "flights", p.Flag("new"))
				assert.False(t, p.BoolFlag("new"))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "--not-a-flag", "text"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 2, p.PositionalCount())
			},
		},
		{
			name:    "negative number is positional",
			args:    []string{"like", "-1"},
			wantSub: "like",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "-1", p.Positional(1))
			},
		},
		{
			name:    "short alias lookup",
			args:    []string{"export", "-f", "txt"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "txt", p.FlagAny("format", "f"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--width", "100", "--bad", "abc"})
	assert.Equal(t, 100, p.FlagIntOrDefault("width", 80))
	assert.Equal(t, 80, p.FlagIntOrDefault("bad", 80))
	assert.Equal(t, 80, p.FlagIntOrDefault("missing", 80))
}

func TestArgParser_ExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--new=yes"}, "new", "json")
	assert.False(t, p.BoolFlag("json"))
	assert.True(t, p.BoolFlag("new"))
	assert.True(t, p.HasFlag("json"))
}

func TestParseBoolString(t *testing.T) {
	for _, in := range []string{"true", "YES", "y", "1", "on"} {
		v, err := ParseBoolString(in)
		require.NoError(t, err, in)
		assert.True(t, v, in)
	}
	for _, in := range []string{"false", "No", "n", "0", "off"} {
		v, err := ParseBoolString(in)
		require.NoError(t, err, in)
		assert.False(t, v, in)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParseIntWithValidation(t *testing.T) {
	v, err := ParseIntWithValidation("3", "reply number")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	for _, in := range []string{"", "x", "0", "-2"} {
		_, err := ParseIntWithValidation(in, "reply number")
		assert.Error(t, err, in)
	}
}

// =============================================================================
// COMMAND PARSING TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		wantErr bool
		check   func(*testing.T, Args)
	}{
		{name: "no args starts chat", argv: nil, wantCmd: CmdChat},
		{name: "upper-case V is version", argv: []string{"-V"}, wantCmd: CmdVersion},
		{name: "commands are case-insensitive", argv: []string{"LIST"}, wantCmd: CmdList},
		{
			name:    "ask joins words",
			argv:    []string{"ask", "hotels", "in", "Rome"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "hotels in Rome", a.Query)
				assert.False(t, a.NewChat)
			},
		},
		{
			name:    "ask with --new",
			argv:    []string{"ask", "--new", "hello"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.NewChat)
				assert.Equal(t, "hello", a.Query)
			},
		},
		{name: "ask without message", argv: []string{"ask"}, wantCmd: CmdAsk, wantErr: true},
		{
			name:    "global flags anywhere",
			argv:    []string{"list", "--endpoint", "http://localhost:9000", "--json", "--offline"},
			wantCmd: CmdList,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "http://localhost:9000", a.Endpoint)
				assert.True(t, a.JSON)
				assert.True(t, a.Offline)
			},
		},
		{
			name:    "global flag with equals",
			argv:    []string{"--storage=sqlite", "show", "2"},
			wantCmd: CmdShow,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "sqlite", a.Storage)
				assert.Equal(t, "2", a.Target)
			},
		},
		{name: "global flag missing value", argv: []string{"--config"}, wantCmd: CmdHelp, wantErr: true},
		{
			name:    "export defaults to markdown",
			argv:    []string{"export"},
			wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "md", a.Format)
				assert.Empty(t, a.Target)
			},
		},
		{
			name:    "export flags",
			argv:    []string{"export", "abc123", "-f", "txt", "-o", "out"},
			wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "abc123", a.Target)
				assert.Equal(t, "txt", a.Format)
				assert.Equal(t, "out", a.OutputDir)
			},
		},
		{
			name:    "settings pair",
			argv:    []string{"settings", "language", "fr"},
			wantCmd: CmdSettings,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "language", a.ConfigKey)
				assert.Equal(t, "fr", a.ConfigVal)
			},
		},
		{name: "settings key without value", argv: []string{"settings", "language"}, wantCmd: CmdSettings, wantErr: true},
		{
			name:    "serve options",
			argv:    []string{"serve", "--addr", "127.0.0.1:0", "--latency", "10ms"},
			wantCmd: CmdServe,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "127.0.0.1:0", a.Addr)
				assert.Equal(t, "10ms", a.Options["latency"])
			},
		},
		{
			name:    "config defaults to show",
			argv:    []string{"config"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "show", a.Subcommand)
			},
		},
		{
			name:    "config set",
			argv:    []string{"config", "set", "endpoint.url", "http://localhost:8080"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, "endpoint.url", a.ConfigKey)
				assert.Equal(t, "http://localhost:8080", a.ConfigVal)
			},
		},
		{name: "version", argv: []string{"version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "unknown command", argv: []string{"fly"}, wantCmd: CmdHelp, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.wantErr {
				var usage *UsageError
				assert.True(t, errors.As(err, &usage), "want UsageError, got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{&UsageError{Message: "bad"}, ExitUsageError},
		{NewNotFoundError("conversation", "x"), ExitNotFoundError},
		{&StartupError{Stage: "storage", Err: errors.New("boom")}, ExitConfigError},
		{fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "f", Message: "m"}}), ExitConfigError},
		{fmt.Errorf("send: %w", transport.ErrTimeout), ExitTimeoutError},
		{&transport.NetworkError{Err: errors.New("refused")}, ExitNetworkError},
		{&transport.RemoteError{Status: 500, Message: "down"}, ExitNetworkError},
		{errors.New("other"), ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestCommandTable(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range commandTable {
		require.NotNil(t, cmd.run, cmd.name)
		for _, name := range append([]string{cmd.name}, cmd.aliases...) {
			assert.False(t, seen[name], "duplicate command name %s", name)
			seen[name] = true
		}
	}
	for _, name := range []string{"/new", "/list", "/load", "/like", "/clear", "/draft", "/search", "/export", "/theme", "/settings", "/help", "/quit"} {
		_, ok := lookupCommand(name)
		assert.True(t, ok, name)
	}
	_, ok := lookupCommand("/nope")
	assert.False(t, ok)
}

// =============================================================================
// END TO END
// =============================================================================

type testEnv struct {
	home     string
	endpoint string
}

// newTestEnv isolates FLYBUDDY_HOME, writes a config with Markdown off and
// starts the mock chat service.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"FLYBUDDY_ENDPOINT", "FLYBUDDY_TIMEOUT", "FLYBUDDY_OFFLINE",
		"FLYBUDDY_STORAGE", "FLYBUDDY_DATA_DIR", "FLYBUDDY_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	home := t.TempDir()
	t.Setenv("FLYBUDDY_HOME", home)
	t.Setenv("NO_COLOR", "1")

	srv := httptest.NewServer(server.New(server.Options{}, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.UI.Markdown = false
	cfg.UI.Width = 100
	require.NoError(t, config.SaveTOML(cfg, filepath.Join(home, "config.toml")))

	return &testEnv{home: home, endpoint: srv.URL}
}

func (e *testEnv) run(t *testing.T, stdin string, argv ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	profile := termenv.Ascii
	argv = append([]string{"--endpoint", e.endpoint}, argv...)
	code := Run(context.Background(), argv, IO{
		In:      strings.NewReader(stdin),
		Out:     &out,
		Err:     &errOut,
		Profile: &profile,
	})
	return code, out.String(), errOut.String()
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.True(t, resp.Success, raw)
	return resp.Data
}

func TestChatSessionEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	input := strings.Join([]string{
		"find flights to Paris",
		"/like",
		"/draft pack sunscreen",
		"/theme light",
		"/settings language es",
		"/status",
		"/new",
		"/list",
		"/bogus",
		"/quit",
	}, "\n") + "\n"

	code, out, _ := env.run(t, input, "chat")
	require.Equal(t, ExitSuccess, code, out)

	assert.Contains(t, out, "FlyBuddy")
	assert.Contains(t, out, "Delta Airlines")
	assert.Contains(t, out, "Liked reply #1")
	assert.Contains(t, out, "Draft saved")
	assert.Contains(t, out, "Theme set to light")
	assert.Contains(t, out, "language = es")
	assert.Contains(t, out, "Started a new conversation")
	assert.Contains(t, out, "find flights to Paris")
	assert.Contains(t, out, "unknown command: /bogus")
	assert.Contains(t, out, "Goodbye. 1 messages sent")

	// The conversation survives the process.
	code, out, _ = env.run(t, "", "list", "--json")
	require.Equal(t, ExitSuccess, code)
	list := decodeJSON[[]ConversationSummary](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, "find flights to Paris", list[0].Title)
	assert.Equal(t, 2, list[0].Messages)
	assert.False(t, list[0].Current, "/new made a fresh conversation current")

	code, out, _ = env.run(t, "", "show", "1", "--json")
	require.Equal(t, ExitSuccess, code)
	conv := decodeJSON[model.Conversation](t, out)
	require.Len(t, conv.Messages, 2)
	assert.True(t, conv.Messages[1].IsLiked())
	assert.Equal(t, "pack sunscreen", conv.Draft)
	require.NotNil(t, conv.Messages[1].Data)
	assert.True(t, conv.Messages[1].Data.HasFlights())

	code, out, _ = env.run(t, "", "theme", "--json")
	require.Equal(t, ExitSuccess, code)
	theme := decodeJSON[ThemeData](t, out)
	assert.Equal(t, model.ThemeLight, theme.Theme)
	assert.True(t, theme.Stored)

	code, out, _ = env.run(t, "", "settings", "--json")
	require.Equal(t, ExitSuccess, code)
	settings := decodeJSON[model.Settings](t, out)
	assert.Equal(t, model.Language("es"), settings.Language)
}

func TestChatLoadAndSearch(t *testing.T) {
	env := newTestEnv(t)

	code, _, _ := env.run(t, "", "ask", "hotels in Rome")
	require.Equal(t, ExitSuccess, code)

	input := "/new\n/search rome\n/load 1\n/clear\n/quit\n"
	code, out, _ := env.run(t, input, "--quiet", "chat")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "hotels in Rome")
	assert.Contains(t, out, "Grand Plaza Hotel")
	assert.Contains(t, out, "Conversation cleared")
	assert.NotContains(t, out, "Goodbye")

	code, out, _ = env.run(t, "", "show", "--json")
	require.Equal(t, ExitSuccess, code)
	conv := decodeJSON[model.Conversation](t, out)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, model.DefaultTitle, conv.Title)
}

func TestAskJSON(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run(t, "", "ask", "--json", "recommend a destination for spring")
	require.Equal(t, ExitSuccess, code, out)
	data := decodeJSON[AskData](t, out)
	assert.NotEmpty(t, data.ConversationID)
	assert.Equal(t, model.SenderAssistant, data.Reply.Sender)
	assert.NotEmpty(t, data.Reply.Content)
	assert.False(t, data.Fallback)
	assert.Len(t, data.Suggestions, 3)
}

func TestAskFallbackWhenServiceDown(t *testing.T) {
	env := newTestEnv(t)
	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	var out, errOut bytes.Buffer
	profile := termenv.Ascii
	code := Run(context.Background(), []string{"--endpoint", deadURL, "ask", "--json", "hello"}, IO{
		In: strings.NewReader(""), Out: &out, Err: &errOut, Profile: &profile,
	})
	assert.Equal(t, ExitNetworkError, code)

	// The JSON reply comes first; the error object follows on stderr.
	dec := json.NewDecoder(strings.NewReader(out.String()))
	var resp struct {
		Data AskData `json:"data"`
	}
	require.NoError(t, dec.Decode(&resp))
	assert.True(t, resp.Data.Fallback)
	assert.Contains(t, transport.FallbackReplies(), resp.Data.Reply.Content)
	assert.Contains(t, errOut.String(), "chat service unavailable")

	// The exchange was still recorded.
	code, listOut, _ := env.run(t, "", "list", "--json")
	require.Equal(t, ExitSuccess, code)
	list := decodeJSON[[]ConversationSummary](t, listOut)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Messages)
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	outDir := filepath.Join(t.TempDir(), "exports")

	code, _, _ := env.run(t, "", "ask", "flights to Tokyo")
	require.Equal(t, ExitSuccess, code)

	code, out, errOut := env.run(t, "", "export", "1", "--format", "json", "-o", outDir)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "Exported to")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	raw, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	require.NoError(t, err)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(raw, &conv))
	assert.Equal(t, "flights to Tokyo", conv.Title)

	code, _, errOut = env.run(t, "", "export", "--format", "pdf")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "unsupported export format")

	code, _, _ = env.run(t, "", "show", "9")
	assert.Equal(t, ExitNotFoundError, code)
}

func TestSettingsRejectsBadValue(t *testing.T) {
	env := newTestEnv(t)
	code, _, errOut := env.run(t, "", "settings", "language", "xx")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "cannot set language")
}

func TestHealthCommand(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run(t, "", "health")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Chat service is healthy")
	assert.Contains(t, out, env.endpoint)

	code, out, _ = env.run(t, "", "health", "--json")
	require.Equal(t, ExitSuccess, code)
	data := decodeJSON[HealthData](t, out)
	assert.True(t, data.Healthy)
	assert.Equal(t, "development", data.Environment)
}

func TestConfigSetAndGet(t *testing.T) {
	env := newTestEnv(t)

	code, _, errOut := env.run(t, "", "config", "set", "endpoint.timeout_secs", "45")
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, _ := env.run(t, "", "config", "get", "endpoint.timeout_secs")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "45", strings.TrimSpace(out))

	// Markdown=false written by the test setup is preserved.
	cfg, err := config.LoadFromPath(filepath.Join(env.home, "config.toml"))
	require.NoError(t, err)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, 45, cfg.Endpoint.TimeoutSecs)

	code, _, _ = env.run(t, "", "config", "set", "endpoint.timeout_secs", "-1")
	assert.Equal(t, ExitConfigError, code)

	code, _, _ = env.run(t, "", "config", "get", "no.such.key")
	assert.Equal(t, ExitUsageError, code)
}

func TestUnknownCommandAndVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := IO{In: strings.NewReader(""), Out: &out, Err: &errOut}

	assert.Equal(t, ExitUsageError, Run(context.Background(), []string{"teleport"}, stdio))
	assert.Contains(t, errOut.String(), "unknown command: teleport")

	out.Reset()
	assert.Equal(t, ExitSuccess, Run(context.Background(), []string{"version"}, stdio))
	assert.Contains(t, out.String(), "flybuddy version "+Version)
}

func TestStartupFailureOnBadConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.home, "config.toml"), []byte("[storage]\nbackend = \"floppy\"\n"), 0600))

	code, _, errOut := env.run(t, "", "list")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, errOut, "config")
}
