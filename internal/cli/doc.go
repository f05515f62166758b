// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the flybuddy command line.
//
// Run parses the arguments, builds an App (config, logger, chat client,
// renderer and, for commands that touch history, the store and session
// controller) and executes one command:
//
//	chat      interactive REPL with slash commands (the default)
//	ask       one message, reply printed
//	list      saved conversations
//	show      one conversation
//	export    one conversation to a txt, md or json file
//	theme     show or change the color theme
//	settings  show or change user settings
//	health    check the chat service
//	serve     run the local mock chat service
//	config    inspect or edit config.toml
//
// Commands return errors; Run displays them once and maps them to exit
// codes (see GetExitCode). With --json every command writes a JSONResponse.
package cli
