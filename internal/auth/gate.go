// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/convstore"
	"github.com/jeranaias/chatterm/internal/kvstore"
	"github.com/jeranaias/chatterm/internal/model"
)

// Storage keys owned by the gate.
const (
	// KeyToken holds the access token.
	KeyToken = "token"

	// KeyUser holds the JSON-encoded user record.
	KeyUser = "user"

	// KeyLanguage holds the language preference.
	KeyLanguage = "language"
)

// ConversationKeyPrefix prefixes the per-identity conversation buffers the
// gate purges on logout.
const ConversationKeyPrefix = convstore.KeyPrefix

// ErrNotAuthenticated indicates an operation that requires a login was
// attempted without one.
var ErrNotAuthenticated = errors.New("not authenticated")

// Navigator is notified when the session ends and the user must log in
// again. The terminal frontend prints a notice and switches the prompt.
type Navigator interface {
	ToLogin()
}

// =============================================================================
// GATE
// =============================================================================

// Gate guards authenticated operations and owns session state.
type Gate struct {
	mu        sync.Mutex
	store     kvstore.Store
	navigator Navigator
	logger    zerolog.Logger

	// tearingDown makes OnUnauthorized idempotent when several in-flight
	// requests all come back 401 at once.
	tearingDown bool
}

// NewGate creates a gate backed by the given store.
func NewGate(store kvstore.Store) *Gate {
	return &Gate{
		store:  store,
		logger: log.Logger,
	}
}

// WithNavigator sets the navigator notified on session teardown.
func (g *Gate) WithNavigator(nav Navigator) *Gate {
	g.navigator = nav
	return g
}

// WithLogger sets the logger for session events.
func (g *Gate) WithLogger(logger zerolog.Logger) *Gate {
	g.logger = logger
	return g
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Token returns the stored access token, or "" when absent.
func (g *Gate) Token() string {
	token, _ := g.store.Get(KeyToken)
	return token
}

// User returns the stored user record, or nil when absent or unreadable.
func (g *Gate) User() *model.User {
	raw, ok := g.store.Get(KeyUser)
	if !ok {
		return nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		g.logger.Debug().Err(err).Msg("stored user record unreadable")
		return nil
	}
	return &u
}

// Credential returns the stored token and user as one record, or nil when
// no token is present.
func (g *Gate) Credential() *model.Credential {
	token := g.Token()
	if token == "" {
		return nil
	}
	cred := &model.Credential{Token: token}
	if u := g.User(); u != nil {
		cred.User = *u
	}
	return cred
}

// Identity returns the key-safe identity of the current session, falling
// back to the guest identity when logged out.
func (g *Gate) Identity() string {
	return g.Credential().Identity()
}

// IsAuthenticated reports whether a usable token is present. A token whose
// expiry claim is readable and already past counts as absent; the final
// verdict on a questionable token always belongs to the server.
func (g *Gate) IsAuthenticated() bool {
	token := g.Token()
	if token == "" {
		return false
	}
	if exp, ok := tokenExpiry(token); ok && time.Now().After(exp) {
		g.logger.Debug().Time("expired_at", exp).Msg("stored token is past its expiry")
		return false
	}
	return true
}

// RequireAuth returns ErrNotAuthenticated when no usable session exists,
// after pointing the user at the login surface through the navigator.
// Callers abort their own work on the error; the navigation is the
// gate's job, not theirs.
func (g *Gate) RequireAuth() error {
	if !g.IsAuthenticated() {
		if g.navigator != nil {
			g.navigator.ToLogin()
		}
		return ErrNotAuthenticated
	}
	return nil
}

// tokenExpiry extracts the exp claim without verifying the signature.
// Verification is the server's job; local inspection only avoids sending
// requests that are certain to bounce.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// =============================================================================
// SESSION TRANSITIONS
// =============================================================================

// Login stores the credential returned by a successful login or signup.
func (g *Gate) Login(cred *model.Credential) error {
	if cred == nil || cred.Token == "" {
		return errors.New("login requires a credential with a token")
	}

	if err := g.store.Set(KeyToken, cred.Token); err != nil {
		return err
	}

	userJSON, err := json.Marshal(cred.User)
	if err != nil {
		return err
	}
	if err := g.store.Set(KeyUser, string(userJSON)); err != nil {
		return err
	}

	if cred.User.Language != "" {
		if err := g.store.Set(KeyLanguage, cred.User.Language); err != nil {
			return err
		}
	}

	g.logger.Info().Str("identity", cred.Identity()).Msg("session started")
	return nil
}

// Logout removes the token, the user record, and every per-identity
// conversation buffer. The language preference survives.
func (g *Gate) Logout() error {
	if err := g.store.Remove(KeyToken); err != nil {
		return err
	}
	if err := g.store.Remove(KeyUser); err != nil {
		return err
	}
	err := g.store.RemoveMatching(func(key string) bool {
		return strings.HasPrefix(key, ConversationKeyPrefix)
	})
	if err != nil {
		return err
	}

	g.logger.Info().Msg("session ended")
	return nil
}

// OnUnauthorized is the global teardown fired when any request returns
// 401. It is safe to call from several goroutines at once; the purge and
// the navigation each run once per teardown.
func (g *Gate) OnUnauthorized() {
	g.mu.Lock()
	if g.tearingDown {
		g.mu.Unlock()
		return
	}
	g.tearingDown = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.tearingDown = false
		g.mu.Unlock()
	}()

	g.logger.Warn().Msg("credential rejected by server, tearing down session")

	if err := g.Logout(); err != nil {
		g.logger.Error().Err(err).Msg("session teardown failed")
	}
	if g.navigator != nil {
		g.navigator.ToLogin()
	}
}

// =============================================================================
// LANGUAGE PREFERENCE
// =============================================================================

// Language returns the stored language preference, or "" when unset.
func (g *Gate) Language() string {
	lang, _ := g.store.Get(KeyLanguage)
	return lang
}

// SetLanguage stores the language preference locally.
func (g *Gate) SetLanguage(lang string) error {
	return g.store.Set(KeyLanguage, lang)
}
