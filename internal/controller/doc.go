// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller drives the conversation loop as a small state
// machine.
//
// The controller is Idle, Sending, or Errored. Submissions are
// single-flight: one exchange is in the air at a time and concurrent
// submissions bounce with ErrBusy. A submission appends and persists the
// user message before any network traffic, so the local record survives a
// crash mid-send. Completions arrive asynchronously through a Notifier.
//
// Errored is transient. It holds the failure until the frontend consumes
// it, then the controller is Idle again; a new submission also clears it.
// Failed exchanges are never retried here, the user resubmits if they
// want another attempt.
package controller
