// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convstore persists the working conversation buffer, one buffer
// per identity, in the key-value store.
//
// Persistence here is best-effort by design: a conversation that fails to
// save or load costs the user some scrollback, never the session. Load
// treats any unreadable buffer as empty and Save logs failures without
// surfacing them.
package convstore

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/kvstore"
	"github.com/jeranaias/chatterm/internal/model"
)

// KeyPrefix prefixes every conversation buffer key. The suffix is the
// owning identity, so buffers from different logins never collide.
const KeyPrefix = "conversation_"

// Key returns the storage key for the given identity's buffer.
func Key(identity string) string {
	return KeyPrefix + identity
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes per-identity conversation buffers.
type Store struct {
	kv     kvstore.Store
	logger zerolog.Logger
}

// New creates a conversation store over the given key-value store.
func New(kv kvstore.Store) *Store {
	return &Store{
		kv:     kv,
		logger: log.Logger,
	}
}

// WithLogger sets the logger for persistence events.
func (s *Store) WithLogger(logger zerolog.Logger) *Store {
	s.logger = logger
	return s
}

// Load returns the identity's buffer. A missing, corrupt, or wrongly
// shaped buffer loads as empty; the stored value must be a JSON array.
func (s *Store) Load(identity string) model.Conversation {
	raw, ok := s.kv.Get(Key(identity))
	if !ok {
		return nil
	}

	data := []byte(raw)
	if len(data) == 0 || data[0] != '[' {
		s.logger.Debug().Str("identity", identity).Msg("conversation buffer is not an array, starting fresh")
		return nil
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		s.logger.Debug().Str("identity", identity).Err(err).Msg("conversation buffer unreadable, starting fresh")
		return nil
	}
	return conv
}

// Save writes the identity's buffer. Failures are logged and swallowed so
// a broken disk never blocks the conversation.
func (s *Store) Save(identity string, conv model.Conversation) {
	data, err := json.Marshal(conv)
	if err != nil {
		s.logger.Debug().Str("identity", identity).Err(err).Msg("conversation buffer marshal failed")
		return
	}
	if err := s.kv.Set(Key(identity), string(data)); err != nil {
		s.logger.Debug().Str("identity", identity).Err(err).Msg("conversation buffer save failed")
	}
}

// Clear removes the identity's buffer.
func (s *Store) Clear(identity string) {
	if err := s.kv.Remove(Key(identity)); err != nil {
		s.logger.Debug().Str("identity", identity).Err(err).Msg("conversation buffer clear failed")
	}
}
