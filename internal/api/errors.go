// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// Error variables for common transport errors.
var (
	// ErrAuthExpired indicates the server rejected the credential (401).
	// By the time a caller sees it the global logout has already fired.
	ErrAuthExpired = errors.New("authentication expired")
)

// APIError represents an error response from the chat service.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (HTTP %d)", e.Status)
}

// ServerMessage extracts the server-provided error message from err, if
// any. Callers use it to surface the server's wording and fall back to a
// generic network-error notice otherwise.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
