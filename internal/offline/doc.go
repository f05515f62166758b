// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline implements the process-wide offline switch.
//
// In offline mode the chat transport may only reach loopback endpoints, so a
// locally running `flybuddy serve` keeps working while remote services are
// blocked. URL scheme validation applies in both modes.
package offline
