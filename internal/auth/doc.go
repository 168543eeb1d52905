// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the authentication session: the stored token, the
// stored user record, and the teardown that runs when the server rejects a
// credential.
//
// The gate is the single source of truth for "am I logged in". Every other
// component asks it rather than reading the key-value store directly, so
// session invalidation has exactly one code path.
package auth
