// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kvstore provides durable client-side key/value persistence.
//
// This is the single storage collaborator for the whole engine: session
// credentials, the language preference, and the per-identity conversation
// buffers all live here under namespaced keys.
//
// # Key Types
//
//   - Store: the persistence contract
//   - SQLiteStore: durable implementation backed by a local SQLite file
//   - MemoryStore: in-memory implementation for tests
//
// # Contract
//
// Get never fails: a missing key or a backend error both report absence.
// RemoveMatching enumerates keys before mutating, so the predicate sees a
// stable snapshot.
//
// # Storage Location
//
// The SQLite database lives at ~/.chatterm/state.db by default.
package kvstore
