// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local mock of the FlyBuddy chat service.
//
// It answers with keyword-driven canned replies so the client can be run
// and tested without the real travel backend.
//
// Endpoints:
//   - POST /api/chat     - chat message, returns a reply with optional travel data
//   - GET  /api/health   - health check
//   - POST /api/feedback - like/unlike feedback, logged only
//
// # Usage
//
//	srv := server.New(server.Options{Addr: "127.0.0.1:5000"}, logger)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
