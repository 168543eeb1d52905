// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/export"
	"github.com/jeranaias/chatterm/internal/model"
)

type stubRemote struct {
	entries    []model.HistoryEntry
	historyErr error
	deleteErr  error
	deletedIDs []int64
	payload    *api.ExportPayload
	raw        []byte
	exportErr  error
}

func (s *stubRemote) History(ctx context.Context) ([]model.HistoryEntry, error) {
	return s.entries, s.historyErr
}

func (s *stubRemote) DeleteChat(ctx context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubRemote) Export(ctx context.Context) (*api.ExportPayload, []byte, error) {
	return s.payload, s.raw, s.exportErr
}

func threeEntries() []model.HistoryEntry {
	return []model.HistoryEntry{
		{ID: 3, UserMessage: "newest"},
		{ID: 2, UserMessage: "middle"},
		{ID: 1, UserMessage: "oldest"},
	}
}

func TestService_ListPreservesServerOrder(t *testing.T) {
	svc := NewService(&stubRemote{entries: threeEntries()})

	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestService_ListError(t *testing.T) {
	svc := NewService(&stubRemote{historyErr: errors.New("boom")})
	_, err := svc.List(context.Background())
	require.Error(t, err)
}

func TestService_SelectAndSelected(t *testing.T) {
	svc := NewService(&stubRemote{entries: threeEntries()})
	svc.List(context.Background())

	require.Nil(t, svc.Selected(), "nothing selected initially")

	require.NoError(t, svc.Select(2))
	sel := svc.Selected()
	require.NotNil(t, sel)
	require.Equal(t, "middle", sel.UserMessage)

	require.ErrorIs(t, svc.Select(99), ErrNoSuchEntry)

	svc.ClearSelection()
	require.Nil(t, svc.Selected())
}

func TestService_DeleteSelectedClearsDetail(t *testing.T) {
	remote := &stubRemote{entries: threeEntries()}
	svc := NewService(remote)
	svc.List(context.Background())
	require.NoError(t, svc.Select(2))

	require.NoError(t, svc.Delete(context.Background(), 2))

	require.Equal(t, []int64{2}, remote.deletedIDs)
	require.Nil(t, svc.Selected(), "deleting the selected entry clears the detail view")
	require.Len(t, svc.Entries(), 2)
}

func TestService_DeleteOtherEntryKeepsSelection(t *testing.T) {
	svc := NewService(&stubRemote{entries: threeEntries()})
	svc.List(context.Background())
	require.NoError(t, svc.Select(2))

	require.NoError(t, svc.Delete(context.Background(), 1))

	sel := svc.Selected()
	require.NotNil(t, sel, "deleting another entry leaves the selection intact")
	require.Equal(t, int64(2), sel.ID)
}

func TestService_DeleteDeclined(t *testing.T) {
	remote := &stubRemote{entries: threeEntries()}
	svc := NewService(remote).WithConfirmer(ConfirmerFunc(func(string) bool { return false }))
	svc.List(context.Background())

	require.ErrorIs(t, svc.Delete(context.Background(), 2), ErrDeleteDeclined)
	require.Empty(t, remote.deletedIDs, "declined delete must not reach the server")
	require.Len(t, svc.Entries(), 3)
}

func TestService_DeleteUnknownEntry(t *testing.T) {
	svc := NewService(&stubRemote{entries: threeEntries()})
	svc.List(context.Background())
	require.ErrorIs(t, svc.Delete(context.Background(), 99), ErrNoSuchEntry)
}

func TestService_DeleteRemoteFailureKeepsEntry(t *testing.T) {
	remote := &stubRemote{entries: threeEntries(), deleteErr: errors.New("boom")}
	svc := NewService(remote)
	svc.List(context.Background())
	require.NoError(t, svc.Select(2))

	require.Error(t, svc.Delete(context.Background(), 2))
	require.Len(t, svc.Entries(), 3, "failed delete keeps the cached entry")
	require.NotNil(t, svc.Selected())
}

func TestService_RelistDropsStaleSelection(t *testing.T) {
	remote := &stubRemote{entries: threeEntries()}
	svc := NewService(remote)
	svc.List(context.Background())
	require.NoError(t, svc.Select(2))

	remote.entries = []model.HistoryEntry{{ID: 3}}
	svc.List(context.Background())
	require.Nil(t, svc.Selected(), "selection gone from the fresh listing is dropped")
}

func TestService_ExportWritesFile(t *testing.T) {
	raw := []byte(`{"user":"alice","export_date":"2025-01-15","total_chats":1,"chats":[{"date":"d1","model":"m1","user_message":"u1","ai_response":"a1"}]}`)
	remote := &stubRemote{
		payload: &api.ExportPayload{
			User:       "alice",
			ExportDate: "2025-01-15",
			TotalChats: 1,
			Chats:      []api.ExportRecord{{Date: "d1", Model: "m1", UserMessage: "u1", AIResponse: "a1"}},
		},
		raw: raw,
	}
	svc := NewService(remote)

	dir := t.TempDir()

	rawPath, err := svc.Export(context.Background(), export.FormatRaw, dir)
	require.NoError(t, err)
	content, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	require.Equal(t, string(raw), string(content), "raw export is the wire payload")

	textPath, err := svc.Export(context.Background(), export.FormatText, dir)
	require.NoError(t, err)
	textContent, err := os.ReadFile(textPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(textContent), "# Chat export for alice on 2025-01-15"))
}

func TestService_ExportUnknownFormat(t *testing.T) {
	remote := &stubRemote{exportErr: errors.New("should not be called")}
	svc := NewService(remote)

	_, err := svc.Export(context.Background(), export.Format("docx"), t.TempDir())
	require.Error(t, err)
	require.NotContains(t, err.Error(), "should not be called", "format check happens before the fetch")
}

func TestService_ExportFetchFailure(t *testing.T) {
	svc := NewService(&stubRemote{exportErr: errors.New("boom")})
	_, err := svc.Export(context.Background(), export.FormatText, t.TempDir())
	require.Error(t, err)
}
