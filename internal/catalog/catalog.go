// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog tracks the models available for chat and which one is
// active. The list comes from the service when reachable and from a
// built-in fallback set otherwise, so a model is always selectable.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/model"
)

// ErrUnknownModel indicates a selection that names no model in the
// current catalog.
var ErrUnknownModel = errors.New("unknown model")

// ErrEmptyCatalog indicates the catalog has not been loaded yet.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Lister fetches the available models from the service.
type Lister interface {
	Models(ctx context.Context) ([]model.ModelDescriptor, error)
}

// fallbackModels is used when the service cannot be reached or returns an
// empty list. The set mirrors what the service offers by default.
func fallbackModels() []model.ModelDescriptor {
	return []model.ModelDescriptor{
		{ID: "grok-beta", Name: "Grok AI", Provider: "x-ai"},
		{ID: "deepseek/deepseek-chat", Name: "DeepSeek Chat", Provider: "deepseek"},
		{ID: "meta-llama/llama-3.1-8b-instruct", Name: "LLaMA 3.1 8B", Provider: "meta"},
	}
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog holds the loaded model list and the active selection.
type Catalog struct {
	mu       sync.RWMutex
	lister   Lister
	logger   zerolog.Logger
	models   []model.ModelDescriptor
	selected string
}

// New creates an unloaded catalog backed by the given lister.
func New(lister Lister) *Catalog {
	return &Catalog{
		lister: lister,
		logger: log.Logger,
	}
}

// WithLogger sets the logger for catalog events.
func (c *Catalog) WithLogger(logger zerolog.Logger) *Catalog {
	c.logger = logger
	return c
}

// Load fetches the model list, falling back to the built-in set when the
// fetch fails or returns nothing. The failure itself is not surfaced; a
// populated catalog is the contract.
func (c *Catalog) Load(ctx context.Context) {
	models, err := c.lister.Models(ctx)
	if err != nil || len(models) == 0 {
		if err != nil {
			c.logger.Debug().Err(err).Msg("model list fetch failed, using fallback set")
		}
		models = fallbackModels()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = models

	// Keep the current selection when it survives the reload, otherwise
	// default to the first entry.
	if c.selected != "" {
		for _, m := range models {
			if m.ID == c.selected {
				return
			}
		}
	}
	c.selected = models[0].ID
}

// Models returns the loaded model list.
func (c *Catalog) Models() []model.ModelDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Selected returns the descriptor of the active model.
func (c *Catalog) Selected() (model.ModelDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m.ID == c.selected {
			return m, nil
		}
	}
	return model.ModelDescriptor{}, ErrEmptyCatalog
}

// SelectedID returns the id of the active model, or "" before Load.
func (c *Catalog) SelectedID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Select makes the model with the given id active. Ids outside the
// catalog are rejected so the active model is always a listed one.
func (c *Catalog) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.models {
		if m.ID == id {
			c.selected = id
			c.logger.Debug().Str("model", id).Msg("model selected")
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownModel, id)
}
