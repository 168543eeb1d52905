// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the chat engine.
//
// # Key Types
//
//   - Message: one user or assistant turn, immutable once created
//   - Conversation: the ordered, append-only local message buffer
//   - Credential: access token plus the user record it was issued for
//   - ModelDescriptor: one selectable inference model
//   - HistoryEntry: a server-committed past exchange (never built locally)
//
// Conversations are keyed by an identity string derived from the
// authenticated user (username, else email, else "guest"); see
// Credential.Identity.
package model
