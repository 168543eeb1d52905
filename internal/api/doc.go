// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP JSON transport to the remote chat service.
//
// The client covers every endpoint the engine consumes: auth, model
// listing, chat completion, history listing/deletion, bulk export, and the
// user profile operations. Requests are bearer-token authenticated through
// an injected TokenSource except for the public endpoints (login, signup,
// models).
//
// Authentication failure is handled uniformly at this layer: any response
// with status 401 fires the injected OnUnauthorized hook before the error
// is returned, so every caller observes the same global teardown.
//
// # Usage
//
//	client := api.NewClient(baseURL).
//		WithTokenSource(gate.Token).
//		WithOnUnauthorized(gate.OnUnauthorized)
//	reply, err := client.Chat(ctx, "hello", "grok-beta")
package api
