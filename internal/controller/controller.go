// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/convstore"
	"github.com/jeranaias/chatterm/internal/model"
)

// Error variables for submission validation.
var (
	// ErrEmptyInput indicates a submission with no content after trimming.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy indicates a submission while another is in flight.
	ErrBusy = errors.New("a message is already in flight")

	// ErrClosed indicates a submission after Close.
	ErrClosed = errors.New("controller is closed")
)

// State is the controller's position in the conversation loop.
type State int

// Controller states.
const (
	StateIdle State = iota
	StateSending
	StateErrored
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Chatter submits one message to the active model and returns the reply.
type Chatter interface {
	Chat(ctx context.Context, message, modelID string) (string, error)
}

// Session answers whether a login exists and whose conversation buffer to
// use. The auth gate satisfies it.
type Session interface {
	RequireAuth() error
	Identity() string
}

// ModelSelector names the active model. The catalog satisfies it.
type ModelSelector interface {
	SelectedID() string
}

// Notifier receives asynchronous completion events. Calls arrive from the
// dispatch goroutine, never while the controller's lock is held.
type Notifier interface {
	ReplyReceived(msg model.Message)
	SendFailed(err error)
}

type noopNotifier struct{}

func (noopNotifier) ReplyReceived(model.Message) {}
func (noopNotifier) SendFailed(error)            {}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the working conversation and the in-flight exchange.
type Controller struct {
	mu       sync.Mutex
	chatter  Chatter
	session  Session
	selector ModelSelector
	convs    *convstore.Store
	notifier Notifier
	logger   zerolog.Logger

	state   State
	lastErr error
	conv    model.Conversation
	closed  bool
}

// New creates an idle controller and loads the current identity's buffer.
func New(chatter Chatter, session Session, selector ModelSelector, convs *convstore.Store) *Controller {
	c := &Controller{
		chatter:  chatter,
		session:  session,
		selector: selector,
		convs:    convs,
		notifier: noopNotifier{},
		logger:   log.Logger,
	}
	c.conv = convs.Load(session.Identity())
	return c
}

// WithNotifier sets the completion notifier.
func (c *Controller) WithNotifier(n Notifier) *Controller {
	if n != nil {
		c.notifier = n
	}
	return c
}

// WithLogger sets the logger for state transitions.
func (c *Controller) WithLogger(logger zerolog.Logger) *Controller {
	c.logger = logger
	return c
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit validates and dispatches one user message. The user message is
// appended and persisted before the network call starts; the reply lands
// later through the notifier. Submitting from Errored clears the held
// failure.
func (c *Controller) Submit(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyInput
	}
	if err := c.session.RequireAuth(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSending
	c.lastErr = nil

	c.conv = c.conv.Append(model.NewUserMessage(trimmed))
	identity := c.session.Identity()
	c.convs.Save(identity, c.conv)
	modelID := c.selector.SelectedID()
	c.mu.Unlock()

	c.logger.Debug().Str("model", modelID).Msg("dispatching message")
	go c.dispatch(ctx, identity, trimmed, modelID)
	return nil
}

// dispatch runs the network exchange and applies the completion. A
// controller closed mid-flight drops the completion on the floor.
func (c *Controller) dispatch(ctx context.Context, identity, content, modelID string) {
	reply, err := c.chatter.Chat(ctx, content, modelID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if err != nil {
		if errors.Is(err, api.ErrAuthExpired) {
			// The transport already tore the session down. The controller
			// just returns to Idle; there is nothing to retry against a
			// dead credential.
			c.state = StateIdle
			c.lastErr = nil
		} else {
			c.state = StateErrored
			c.lastErr = err
		}
		c.mu.Unlock()

		c.logger.Debug().Err(err).Msg("send failed")
		c.notifier.SendFailed(err)
		return
	}

	msg := model.NewAssistantMessage(reply, modelID)
	c.conv = c.conv.Append(msg)
	c.convs.Save(identity, c.conv)
	c.state = StateIdle
	c.mu.Unlock()

	c.notifier.ReplyReceived(msg)
}

// =============================================================================
// OBSERVATION
// =============================================================================

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConsumeError returns the held failure and moves Errored back to Idle.
// It returns nil in any other state.
func (c *Controller) ConsumeError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateErrored {
		return nil
	}
	err := c.lastErr
	c.state = StateIdle
	c.lastErr = nil
	return err
}

// Conversation returns a copy of the working conversation.
func (c *Controller) Conversation() model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// =============================================================================
// BUFFER MANAGEMENT
// =============================================================================

// ClearConversation empties the working conversation and its persisted
// buffer.
func (c *Controller) ClearConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conv = nil
	c.convs.Clear(c.session.Identity())
}

// ReloadConversation swaps in the buffer of the current identity. The
// frontend calls it after login and logout so the buffer always matches
// the session.
func (c *Controller) ReloadConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conv = c.convs.Load(c.session.Identity())
}

// Close stops the controller. In-flight exchanges are not cancelled, but
// their completions are discarded, so nothing lands after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
