// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the in-memory working copy of the current
// conversation and keeps it reconciled with the durable conversation list.
//
// Manager is the only component that mutates conversations. Every mutation
// is persisted immediately: the current conversation is merged into the list
// (replaced in place when its id is already listed, prepended otherwise), the
// list is written, and the current-conversation pointer is written.
//
// Persistence failures never roll back in-memory state. They are logged by
// the storage layer and exposed through LastError so the presentation layer
// can tell the user that history may not have been saved.
package conversation
