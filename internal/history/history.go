// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history browses, deletes, and exports the server-committed
// conversation records.
//
// Entries originate from the remote store only; the client never
// fabricates one. The listing keeps the server's ordering untouched, and
// a selection tracks which entry the frontend is showing in detail.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/export"
	"github.com/jeranaias/chatterm/internal/model"
)

// Error variables for history operations.
var (
	// ErrNoSuchEntry indicates an id that is not in the cached listing.
	ErrNoSuchEntry = errors.New("no such history entry")

	// ErrDeleteDeclined indicates the user declined the delete
	// confirmation.
	ErrDeleteDeclined = errors.New("delete declined")
)

// Remote is the slice of the transport the service needs. The api client
// satisfies it.
type Remote interface {
	History(ctx context.Context) ([]model.HistoryEntry, error)
	DeleteChat(ctx context.Context, id int64) error
	Export(ctx context.Context) (*api.ExportPayload, []byte, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// alwaysConfirm is the default when no confirmer is injected.
type alwaysConfirm struct{}

func (alwaysConfirm) Confirm(string) bool { return true }

// =============================================================================
// SERVICE
// =============================================================================

// Service fetches, deletes, and exports committed history.
type Service struct {
	mu        sync.Mutex
	remote    Remote
	confirmer Confirmer
	logger    zerolog.Logger

	entries  []model.HistoryEntry
	selected int64
}

// NewService creates a history service over the given transport.
func NewService(remote Remote) *Service {
	return &Service{
		remote:    remote,
		confirmer: alwaysConfirm{},
		logger:    log.Logger,
	}
}

// WithConfirmer sets the confirmation gate for deletes.
func (s *Service) WithConfirmer(c Confirmer) *Service {
	if c != nil {
		s.confirmer = c
	}
	return s
}

// WithLogger sets the logger for history events.
func (s *Service) WithLogger(logger zerolog.Logger) *Service {
	s.logger = logger
	return s
}

// =============================================================================
// LISTING AND SELECTION
// =============================================================================

// List fetches the committed entries in server order and caches them for
// selection and deletion.
func (s *Service) List(ctx context.Context) ([]model.HistoryEntry, error) {
	entries, err := s.remote.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	s.mu.Lock()
	s.entries = entries

	// Drop a selection that no longer exists in the fresh listing.
	if s.selected != 0 && s.findLocked(s.selected) == nil {
		s.selected = 0
	}
	s.mu.Unlock()

	out := make([]model.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Entries returns the cached listing without refetching.
func (s *Service) Entries() []model.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Select marks the entry with the given id as the one shown in detail.
func (s *Service) Select(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) == nil {
		return fmt.Errorf("%w: %d", ErrNoSuchEntry, id)
	}
	s.selected = id
	return nil
}

// Selected returns the entry shown in detail, or nil when none is.
func (s *Service) Selected() *model.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == 0 {
		return nil
	}
	if e := s.findLocked(s.selected); e != nil {
		copied := *e
		return &copied
	}
	return nil
}

// ClearSelection drops the detail selection.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selected = 0
	s.mu.Unlock()
}

// findLocked returns the cached entry with the given id. Callers hold mu.
func (s *Service) findLocked(id int64) *model.HistoryEntry {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return &s.entries[i]
		}
	}
	return nil
}

// =============================================================================
// DELETION
// =============================================================================

// Delete removes one entry after confirmation. Deleting the selected
// entry also clears the detail selection; deleting any other entry leaves
// it alone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	entry := s.findLocked(id)
	s.mu.Unlock()

	if entry == nil {
		return fmt.Errorf("%w: %d", ErrNoSuchEntry, id)
	}

	prompt := fmt.Sprintf("Delete history entry %d (%s)?", id, entry.Preview(40))
	if !s.confirmer.Confirm(prompt) {
		return ErrDeleteDeclined
	}

	if err := s.remote.DeleteChat(ctx, id); err != nil {
		return fmt.Errorf("delete history entry %d: %w", id, err)
	}

	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = 0
	}
	s.mu.Unlock()

	s.logger.Debug().Int64("id", id).Msg("history entry deleted")
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Export fetches the full export payload once and renders it to a file in
// dir using the named format. It returns the written path.
func (s *Service) Export(ctx context.Context, format export.Format, dir string) (string, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return "", err
	}

	payload, raw, err := s.remote.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch export payload: %w", err)
	}

	path, err := export.WriteFile(payload, raw, renderer, dir)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("path", path).Str("format", string(format)).Msg("history exported")
	return path, nil
}
