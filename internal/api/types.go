// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/jeranaias/chatterm/internal/model"
)

// =============================================================================
// AUTH TYPES
// =============================================================================

// SignupRequest is the payload for POST /api/auth/signup/.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
}

// loginRequest is the payload for POST /api/auth/login/.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is the shared response shape of the login and signup
// endpoints: a token pair plus the user record.
type authResponse struct {
	Refresh string     `json:"refresh"`
	Access  string     `json:"access"`
	User    model.User `json:"user"`
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// chatRequest is the payload for POST /api/chat/.
type chatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// chatResponse is the response of POST /api/chat/.
type chatResponse struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// modelsResponse is the response of GET /api/models/.
type modelsResponse struct {
	Models []model.ModelDescriptor `json:"models"`
	Count  int                     `json:"count"`
}

// =============================================================================
// EXPORT TYPES
// =============================================================================

// ExportRecord is one exchange in the bulk export payload. The server may
// omit fields; absent fields stay empty strings through to the renderers.
type ExportRecord struct {
	Date        string `json:"date"`
	Model       string `json:"model"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Language    string `json:"language,omitempty"`
}

// ExportPayload is the response of GET /api/chat/export/.
type ExportPayload struct {
	User       string         `json:"user"`
	ExportDate string         `json:"export_date"`
	TotalChats int            `json:"total_chats"`
	Chats      []ExportRecord `json:"chats"`
}

// =============================================================================
// PROFILE TYPES
// =============================================================================

// Profile is the response of GET /api/user/profile/.
type Profile struct {
	ID                 int        `json:"id"`
	User               model.User `json:"user"`
	LanguagePreference string     `json:"language_preference"`
	AISummary          string     `json:"ai_summary"`
	SummaryUpdatedAt   *time.Time `json:"summary_updated_at"`
	CreatedAt          time.Time  `json:"created_at"`
	TotalChats         int        `json:"total_chats"`
}

// SummaryResponse is the response of POST /api/user/profile/generate-summary/.
type SummaryResponse struct {
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// languageRequest is the payload for PUT /api/user/language/.
type languageRequest struct {
	Language string `json:"language"`
}

// apiErrorResponse is the error envelope the service uses on all endpoints.
type apiErrorResponse struct {
	Error string `json:"error"`
}
