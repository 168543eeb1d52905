// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/auth"
	"github.com/jeranaias/chatterm/internal/convstore"
	"github.com/jeranaias/chatterm/internal/kvstore"
	"github.com/jeranaias/chatterm/internal/model"
)

// stubChatter answers from a function, optionally blocking until released.
type stubChatter struct {
	mu      sync.Mutex
	block   chan struct{}
	reply   string
	err     error
	gotMsg  string
	gotModl string
}

func (s *stubChatter) Chat(ctx context.Context, message, modelID string) (string, error) {
	s.mu.Lock()
	s.gotMsg = message
	s.gotModl = modelID
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return s.reply, s.err
}

type stubSession struct {
	identity string
	authErr  error
}

func (s *stubSession) RequireAuth() error { return s.authErr }
func (s *stubSession) Identity() string   { return s.identity }

type stubSelector struct{ id string }

func (s *stubSelector) SelectedID() string { return s.id }

// chanNotifier forwards completions to channels so tests can wait on them.
type chanNotifier struct {
	replies chan model.Message
	errs    chan error
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{
		replies: make(chan model.Message, 4),
		errs:    make(chan error, 4),
	}
}

func (n *chanNotifier) ReplyReceived(msg model.Message) { n.replies <- msg }
func (n *chanNotifier) SendFailed(err error)            { n.errs <- err }

func newTestController(chatter *stubChatter, session *stubSession) (*Controller, *convstore.Store, *chanNotifier) {
	convs := convstore.New(kvstore.NewMemoryStore())
	notifier := newChanNotifier()
	ctrl := New(chatter, session, &stubSelector{id: "grok-beta"}, convs).WithNotifier(notifier)
	return ctrl, convs, notifier
}

func waitReply(t *testing.T, n *chanNotifier) model.Message {
	t.Helper()
	select {
	case msg := <-n.replies:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reply")
		return model.Message{}
	}
}

func waitError(t *testing.T, n *chanNotifier) error {
	t.Helper()
	select {
	case err := <-n.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for send failure")
		return nil
	}
}

func TestController_SubmitHappyPath(t *testing.T) {
	chatter := &stubChatter{reply: "hello back"}
	session := &stubSession{identity: "alice"}
	ctrl, convs, notifier := newTestController(chatter, session)

	require.NoError(t, ctrl.Submit(context.Background(), "  hello  "))

	reply := waitReply(t, notifier)
	require.Equal(t, "hello back", reply.Content)
	require.Equal(t, model.RoleAssistant, reply.Role)
	require.Equal(t, "grok-beta", reply.Model)

	require.Equal(t, StateIdle, ctrl.State())
	require.Equal(t, "hello", chatter.gotMsg, "content is trimmed before dispatch")
	require.Equal(t, "grok-beta", chatter.gotModl)

	conv := ctrl.Conversation()
	require.Equal(t, 2, conv.Len())
	require.Equal(t, model.RoleUser, conv[0].Role)
	require.Equal(t, model.RoleAssistant, conv[1].Role)

	// Both messages landed in the persisted buffer.
	require.Equal(t, 2, convs.Load("alice").Len())
}

func TestController_SubmitEmptyInput(t *testing.T) {
	ctrl, _, _ := newTestController(&stubChatter{}, &stubSession{identity: "alice"})

	require.ErrorIs(t, ctrl.Submit(context.Background(), ""), ErrEmptyInput)
	require.ErrorIs(t, ctrl.Submit(context.Background(), "   \t\n"), ErrEmptyInput)
	require.Equal(t, StateIdle, ctrl.State())
	require.True(t, ctrl.Conversation().IsEmpty(), "rejected input must not touch the conversation")
}

func TestController_SubmitRequiresAuth(t *testing.T) {
	session := &stubSession{identity: "guest", authErr: auth.ErrNotAuthenticated}
	ctrl, _, _ := newTestController(&stubChatter{}, session)

	require.ErrorIs(t, ctrl.Submit(context.Background(), "hi"), auth.ErrNotAuthenticated)
	require.True(t, ctrl.Conversation().IsEmpty())
}

func TestController_SingleFlight(t *testing.T) {
	chatter := &stubChatter{reply: "ok", block: make(chan struct{})}
	ctrl, _, notifier := newTestController(chatter, &stubSession{identity: "alice"})

	require.NoError(t, ctrl.Submit(context.Background(), "first"))
	require.Equal(t, StateSending, ctrl.State())

	// Concurrent submissions bounce while the first is in flight.
	require.ErrorIs(t, ctrl.Submit(context.Background(), "second"), ErrBusy)

	close(chatter.block)
	waitReply(t, notifier)
	require.Equal(t, StateIdle, ctrl.State())

	// And are accepted again after completion.
	chatter.mu.Lock()
	chatter.block = nil
	chatter.mu.Unlock()
	require.NoError(t, ctrl.Submit(context.Background(), "third"))
	waitReply(t, notifier)
}

func TestController_UserMessagePersistedBeforeDispatch(t *testing.T) {
	chatter := &stubChatter{reply: "ok", block: make(chan struct{})}
	session := &stubSession{identity: "alice"}
	ctrl, convs, notifier := newTestController(chatter, session)

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))

	// The network call has not completed, but the user message is already
	// on disk.
	buf := convs.Load("alice")
	require.Equal(t, 1, buf.Len())
	require.Equal(t, "hello", buf[0].Content)

	close(chatter.block)
	waitReply(t, notifier)
}

func TestController_SendFailure(t *testing.T) {
	sendErr := errors.New("connection reset")
	chatter := &stubChatter{err: sendErr}
	ctrl, convs, notifier := newTestController(chatter, &stubSession{identity: "alice"})

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))
	require.ErrorIs(t, waitError(t, notifier), sendErr)

	require.Equal(t, StateErrored, ctrl.State())

	// The user message stays in the record even though the exchange failed.
	require.Equal(t, 1, ctrl.Conversation().Len())
	require.Equal(t, 1, convs.Load("alice").Len())

	// Errored is transient: consuming the failure returns to Idle.
	require.ErrorIs(t, ctrl.ConsumeError(), sendErr)
	require.Equal(t, StateIdle, ctrl.State())
	require.NoError(t, ctrl.ConsumeError(), "a consumed failure is gone")
}

func TestController_AuthFailureReturnsToIdle(t *testing.T) {
	authErr := fmt.Errorf("%w: token expired", api.ErrAuthExpired)
	chatter := &stubChatter{err: authErr}
	ctrl, _, notifier := newTestController(chatter, &stubSession{identity: "alice"})

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))
	require.ErrorIs(t, waitError(t, notifier), api.ErrAuthExpired)

	// Teardown already ran in the transport layer; nothing is held for
	// retry, so the controller is plain Idle.
	require.Equal(t, StateIdle, ctrl.State())
	require.NoError(t, ctrl.ConsumeError())
}

func TestController_SubmitFromErroredClearsFailure(t *testing.T) {
	chatter := &stubChatter{err: errors.New("boom")}
	ctrl, _, notifier := newTestController(chatter, &stubSession{identity: "alice"})

	require.NoError(t, ctrl.Submit(context.Background(), "first"))
	waitError(t, notifier)
	require.Equal(t, StateErrored, ctrl.State())

	chatter.err = nil
	chatter.reply = "recovered"
	require.NoError(t, ctrl.Submit(context.Background(), "second"))
	waitReply(t, notifier)
	require.Equal(t, StateIdle, ctrl.State())
	require.NoError(t, ctrl.ConsumeError())
}

func TestController_CloseDropsLateCompletions(t *testing.T) {
	chatter := &stubChatter{reply: "late", block: make(chan struct{})}
	session := &stubSession{identity: "alice"}
	ctrl, convs, notifier := newTestController(chatter, session)

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))
	ctrl.Close()
	close(chatter.block)

	select {
	case <-notifier.replies:
		t.Fatal("Completion should be discarded after Close")
	case <-time.After(100 * time.Millisecond):
	}

	// Only the user message was persisted; the late reply never landed.
	require.Equal(t, 1, convs.Load("alice").Len())

	require.ErrorIs(t, ctrl.Submit(context.Background(), "again"), ErrClosed)
}

func TestController_ClearConversation(t *testing.T) {
	chatter := &stubChatter{reply: "ok"}
	session := &stubSession{identity: "alice"}
	ctrl, convs, notifier := newTestController(chatter, session)

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))
	waitReply(t, notifier)

	ctrl.ClearConversation()
	require.True(t, ctrl.Conversation().IsEmpty())
	require.True(t, convs.Load("alice").IsEmpty())
}

func TestController_ReloadConversationFollowsIdentity(t *testing.T) {
	session := &stubSession{identity: "alice"}
	convs := convstore.New(kvstore.NewMemoryStore())

	var aliceBuf model.Conversation
	convs.Save("alice", aliceBuf.Append(model.NewUserMessage("alice's history")))

	ctrl := New(&stubChatter{}, session, &stubSelector{id: "grok-beta"}, convs)
	require.Equal(t, 1, ctrl.Conversation().Len(), "buffer loads on construction")

	session.identity = "guest"
	ctrl.ReloadConversation()
	require.True(t, ctrl.Conversation().IsEmpty(), "guest starts with an empty buffer")
}
