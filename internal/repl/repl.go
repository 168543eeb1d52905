// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repl implements the interactive terminal frontend, a prompt
// with slash commands for session, model, and history management. Any
// input that is not a slash command is submitted as a chat message.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/auth"
	"github.com/jeranaias/chatterm/internal/catalog"
	"github.com/jeranaias/chatterm/internal/controller"
	"github.com/jeranaias/chatterm/internal/export"
	"github.com/jeranaias/chatterm/internal/history"
	"github.com/jeranaias/chatterm/internal/model"
)

// ErrQuit signals a clean exit request from the command loop.
var ErrQuit = errors.New("quit")

// replyTimeout bounds how long the prompt waits for an in-flight
// exchange before handing control back to the user.
const replyTimeout = 2 * time.Minute

// =============================================================================
// APP
// =============================================================================

// App wires the engine components to the terminal prompt.
type App struct {
	client    *api.Client
	gate      *auth.Gate
	catalog   *catalog.Catalog
	ctrl      *controller.Controller
	hist      *history.Service
	exportDir string

	line   *liner.State
	out    io.Writer
	logger zerolog.Logger

	replies chan model.Message
	errs    chan error
}

// New creates the frontend over fully wired engine components.
func New(client *api.Client, gate *auth.Gate, cat *catalog.Catalog, ctrl *controller.Controller, hist *history.Service, exportDir string) *App {
	a := &App{
		client:    client,
		gate:      gate,
		catalog:   cat,
		ctrl:      ctrl,
		hist:      hist,
		exportDir: exportDir,
		out:       os.Stdout,
		logger:    log.Logger,
		replies:   make(chan model.Message, 1),
		errs:      make(chan error, 1),
	}
	return a
}

// WithOutput redirects printed output (used by tests).
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// ReplyReceived implements controller.Notifier.
func (a *App) ReplyReceived(msg model.Message) {
	select {
	case a.replies <- msg:
	default:
	}
}

// SendFailed implements controller.Notifier.
func (a *App) SendFailed(err error) {
	select {
	case a.errs <- err:
	default:
	}
}

// ToLogin implements auth.Navigator. It fires both when an operation is
// blocked for want of a login and when a 401 tears the session down.
func (a *App) ToLogin() {
	fmt.Fprintln(a.out, "Not signed in. Use /login to continue.")
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run drives the prompt until /quit or EOF.
func (a *App) Run(ctx context.Context) error {
	a.line = liner.NewLiner()
	a.line.SetCtrlCAborts(true)
	defer a.line.Close()

	a.loadPromptHistory()
	defer a.savePromptHistory()

	a.printWelcome()

	for {
		input, err := a.line.Prompt(a.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out, "Bye.")
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		a.line.AppendHistory(trimmed)

		if err := a.Execute(ctx, trimmed); err != nil {
			if errors.Is(err, ErrQuit) {
				fmt.Fprintln(a.out, "Bye.")
				return nil
			}
			a.printError(err)
		}
	}
}

// prompt returns the prompt string for the current session.
func (a *App) prompt() string {
	if a.gate.IsAuthenticated() {
		return a.gate.Identity() + "> "
	}
	return "guest> "
}

func (a *App) printWelcome() {
	fmt.Fprintln(a.out, "chatterm - terminal chat client. Type /help for commands.")
	if !a.gate.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not signed in. Use /login or /signup to start chatting.")
	}
}

// printError renders an error for the user, preferring the server's own
// wording when it sent one.
func (a *App) printError(err error) {
	if msg, ok := api.ServerMessage(err); ok {
		fmt.Fprintf(a.out, "Error: %s\n", msg)
		return
	}
	switch {
	case errors.Is(err, api.ErrAuthExpired):
		// The navigator already announced the teardown.
	case errors.Is(err, auth.ErrNotAuthenticated):
		// The gate already navigated to the login surface.
	case errors.Is(err, controller.ErrEmptyInput):
		fmt.Fprintln(a.out, "Nothing to send.")
	case errors.Is(err, controller.ErrBusy):
		fmt.Fprintln(a.out, "Still waiting on the previous message.")
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Execute runs one line of input: a slash command, or a chat submission.
func (a *App) Execute(ctx context.Context, input string) error {
	if !strings.HasPrefix(input, "/") {
		return a.chat(ctx, input)
	}

	cmd, arg := splitCommand(input)
	switch cmd {
	case "/help":
		a.printHelp()
		return nil
	case "/login":
		return a.login(ctx)
	case "/signup":
		return a.signup(ctx)
	case "/logout":
		return a.logout()
	case "/models":
		return a.listModels(ctx)
	case "/model":
		return a.selectModel(arg)
	case "/history":
		return a.listHistory(ctx)
	case "/show":
		return a.showEntry(arg)
	case "/delete":
		return a.deleteEntry(ctx, arg)
	case "/export":
		return a.exportHistory(ctx, arg)
	case "/profile":
		return a.showProfile(ctx)
	case "/summary":
		return a.generateSummary(ctx)
	case "/language":
		return a.setLanguage(ctx, arg)
	case "/clear":
		a.ctrl.ClearConversation()
		fmt.Fprintln(a.out, "Conversation cleared.")
		return nil
	case "/quit", "/exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %s, try /help", cmd)
	}
}

// splitCommand separates the command word from its argument.
func splitCommand(input string) (string, string) {
	parts := strings.SplitN(input, " ", 2)
	cmd := strings.ToLower(parts[0])
	if len(parts) == 2 {
		return cmd, strings.TrimSpace(parts[1])
	}
	return cmd, ""
}

func (a *App) printHelp() {
	fmt.Fprint(a.out, `Commands:
  /login              Sign in
  /signup             Create an account
  /logout             Sign out and clear local conversation buffers
  /models             List available models
  /model <id>         Switch the active model
  /history            List committed history entries
  /show <id>          Show one history entry in full
  /delete <id>        Delete one history entry
  /export <format>    Export history (raw, text, pdf)
  /profile            Show profile and summary
  /summary            Regenerate the profile summary
  /language <tag>     Set language preference (e.g. en, es, ar)
  /clear              Clear the working conversation
  /quit               Exit

Anything else is sent to the active model.
`)
}

// =============================================================================
// CHAT
// =============================================================================

// chat submits the input and waits for the asynchronous completion so
// the reply prints before the next prompt.
func (a *App) chat(ctx context.Context, input string) error {
	if err := a.ctrl.Submit(ctx, input); err != nil {
		return err
	}

	select {
	case msg := <-a.replies:
		fmt.Fprintf(a.out, "%s: %s\n", model.RoleAssistant.DisplayName(), msg.Content)
		return nil
	case err := <-a.errs:
		a.ctrl.ConsumeError()
		return err
	case <-time.After(replyTimeout):
		return errors.New("timed out waiting for a reply")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func (a *App) login(ctx context.Context) error {
	username, err := a.promptLine("Username: ")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}

	cred, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.gate.Login(cred); err != nil {
		return err
	}
	a.ctrl.ReloadConversation()

	fmt.Fprintf(a.out, "Signed in as %s.\n", cred.Identity())
	return nil
}

func (a *App) signup(ctx context.Context) error {
	username, err := a.promptLine("Username: ")
	if err != nil {
		return err
	}
	email, err := a.promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := a.promptPassword("Confirm password: ")
	if err != nil {
		return err
	}

	if err := validateSignup(username, email, password, confirm); err != nil {
		return err
	}

	cred, err := a.client.Signup(ctx, api.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
		Language: a.gate.Language(),
	})
	if err != nil {
		return err
	}
	if err := a.gate.Login(cred); err != nil {
		return err
	}
	a.ctrl.ReloadConversation()

	fmt.Fprintf(a.out, "Account created. Signed in as %s.\n", cred.Identity())
	return nil
}

// validateSignup applies the local form checks before the request.
func validateSignup(username, email, password, confirm string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if !strings.Contains(email, "@") {
		return errors.New("email address looks invalid")
	}
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	return nil
}

func (a *App) logout() error {
	if err := a.gate.Logout(); err != nil {
		return err
	}
	a.ctrl.ReloadConversation()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// =============================================================================
// MODEL COMMANDS
// =============================================================================

func (a *App) listModels(ctx context.Context) error {
	a.catalog.Load(ctx)

	selected := a.catalog.SelectedID()
	for _, m := range a.catalog.Models() {
		marker := "  "
		if m.ID == selected {
			marker = "* "
		}
		fmt.Fprintf(a.out, "%s%s  (%s, %s)\n", marker, m.ID, m.Name, m.Provider)
	}
	return nil
}

func (a *App) selectModel(id string) error {
	if id == "" {
		return errors.New("usage: /model <id>")
	}
	if err := a.catalog.Select(id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Active model: %s\n", id)
	return nil
}

// =============================================================================
// HISTORY COMMANDS
// =============================================================================

func (a *App) listHistory(ctx context.Context) error {
	if err := a.gate.RequireAuth(); err != nil {
		return err
	}

	entries, err := a.hist.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No history yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%4d  %s  [%s]  %s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Model, e.Preview(60))
	}
	return nil
}

func (a *App) showEntry(arg string) error {
	id, err := parseEntryID(arg, "/show")
	if err != nil {
		return err
	}
	if err := a.hist.Select(id); err != nil {
		return err
	}

	e := a.hist.Selected()
	fmt.Fprintf(a.out, "Entry %d  %s  [%s]\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Model)
	fmt.Fprintf(a.out, "You:\n%s\n", e.UserMessage)
	fmt.Fprintf(a.out, "AI:\n%s\n", e.AIResponse)
	return nil
}

func (a *App) deleteEntry(ctx context.Context, arg string) error {
	id, err := parseEntryID(arg, "/delete")
	if err != nil {
		return err
	}
	if err := a.hist.Delete(ctx, id); err != nil {
		if errors.Is(err, history.ErrDeleteDeclined) {
			fmt.Fprintln(a.out, "Kept.")
			return nil
		}
		return err
	}
	fmt.Fprintf(a.out, "Deleted entry %d.\n", id)
	return nil
}

func (a *App) exportHistory(ctx context.Context, arg string) error {
	if arg == "" {
		arg = string(export.FormatText)
	}
	path, err := a.hist.Export(ctx, export.Format(arg), a.exportDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", path)
	return nil
}

func parseEntryID(arg, usage string) (int64, error) {
	if arg == "" {
		return 0, fmt.Errorf("usage: %s <id>", usage)
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an entry id", arg)
	}
	return id, nil
}

// =============================================================================
// PROFILE COMMANDS
// =============================================================================

func (a *App) showProfile(ctx context.Context) error {
	p, err := a.client.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "User: %s <%s>\n", p.User.Username, p.User.Email)
	fmt.Fprintf(a.out, "Language: %s\n", p.LanguagePreference)
	fmt.Fprintf(a.out, "Member since: %s\n", p.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(a.out, "Total chats: %d\n", p.TotalChats)
	if p.AISummary != "" {
		fmt.Fprintf(a.out, "Summary:\n%s\n", p.AISummary)
	}
	return nil
}

func (a *App) generateSummary(ctx context.Context) error {
	s, err := a.client.GenerateSummary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Summary:\n%s\n", s.Summary)
	return nil
}

func (a *App) setLanguage(ctx context.Context, tag string) error {
	if tag == "" {
		current := a.gate.Language()
		if current == "" {
			current = "(unset)"
		}
		fmt.Fprintf(a.out, "Language: %s\n", current)
		return nil
	}

	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("%q is not a valid language tag", tag)
	}

	// Local preference sticks even when the server sync fails or the
	// user is signed out.
	if err := a.gate.SetLanguage(tag); err != nil {
		return err
	}
	if a.gate.IsAuthenticated() {
		if err := a.client.UpdateLanguage(ctx, tag); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Language set to %s.\n", tag)
	return nil
}

// =============================================================================
// PROMPT HELPERS
// =============================================================================

func (a *App) promptLine(prompt string) (string, error) {
	input, err := a.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptPassword reads without echo when stdin is a terminal.
func (a *App) promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.promptLine(prompt)
	}

	fmt.Fprint(a.out, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Confirm implements history.Confirmer.
func (a *App) Confirm(prompt string) bool {
	answer, err := a.line.Prompt(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// =============================================================================
// PROMPT HISTORY
// =============================================================================

func promptHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chatterm", "prompt_history")
}

func (a *App) loadPromptHistory() {
	path := promptHistoryPath()
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	a.line.ReadHistory(f)
}

func (a *App) savePromptHistory() {
	path := promptHistoryPath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		a.logger.Debug().Err(err).Msg("could not save prompt history")
		return
	}
	defer f.Close()
	a.line.WriteHistory(f)
}
