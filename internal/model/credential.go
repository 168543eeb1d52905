// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// GuestIdentity is the namespacing key used when no user can be resolved.
const GuestIdentity = "guest"

// =============================================================================
// USER AND CREDENTIAL TYPES
// =============================================================================

// User is the user record returned by the auth endpoints.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

// Credential is the session credential: the bearer token plus the user it
// was issued for. It is created from a login or signup response and
// destroyed on logout or on any 401 from an authenticated call.
type Credential struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Identity derives the conversation-namespacing key for this credential:
// username, falling back to email, falling back to GuestIdentity.
func (c *Credential) Identity() string {
	if c == nil {
		return GuestIdentity
	}
	if c.User.Username != "" {
		return c.User.Username
	}
	if c.User.Email != "" {
		return c.User.Email
	}
	return GuestIdentity
}
