package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/api"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
	download      = netx.DownloadFromPresignedURL
)

var errNoConversation = errors.New("no conversation open, use 'new' or 'open'")

// Register prompts for a username, email and password and signs the new
// account in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, username, email, string(password)); err != nil {
		return err
	}

	a.identifier = username
	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for a username or email and a password.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter username or email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, identifier, string(password)); err != nil {
		return err
	}

	a.identifier = identifier
	a.resetConversation()
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	a.identifier = ""
	a.lastList = nil
	a.resetConversation()
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// List prints the user's conversations, newest first, numbered for 'open'.
func (a *App) List(ctx context.Context) error {
	list, err := a.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	a.lastList = list

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No conversations yet. Use 'new' to start one.")
		return nil
	}
	for i, c := range list {
		fmt.Fprintf(a.out, "%2d. %s  %s  (%s)\n", i+1, c.Title, c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// New creates a conversation and makes it the open one.
func (a *App) New(ctx context.Context, title string) error {
	c, err := a.api.CreateConversation(ctx, title)
	if err != nil {
		return err
	}
	a.current = c
	a.seen = 0
	fmt.Fprintf(a.out, "Started %q (%s)\n", c.Title, c.ID)
	return nil
}

func (a *App) Rename(ctx context.Context, ref, title string) error {
	id := a.resolveRef(ref)
	c, err := a.api.RenameConversation(ctx, id, title)
	if err != nil {
		return err
	}
	if a.current != nil && a.current.ID == c.ID {
		a.current = c
	}
	fmt.Fprintf(a.out, "Renamed to %q\n", c.Title)
	return nil
}

// Open selects a conversation by id or by its number in the last listing
// and prints its history.
func (a *App) Open(ctx context.Context, ref string) error {
	id := a.resolveRef(ref)

	msgs, err := a.api.Messages(ctx, id)
	if err != nil {
		return err
	}

	a.current = &api.Conversation{ID: id, Title: id}
	for _, c := range a.lastList {
		if c.ID == id {
			cp := c
			a.current = &cp
		}
	}
	a.printMessages(msgs)
	a.seen = len(msgs)
	return nil
}

func (a *App) History(ctx context.Context) error {
	if a.current == nil {
		return errNoConversation
	}
	msgs, err := a.api.Messages(ctx, a.current.ID)
	if err != nil {
		return err
	}
	a.printMessages(msgs)
	a.seen = len(msgs)
	return nil
}

// Say sends text to the open conversation and prints the turns that are new
// since the last time the transcript was shown.
func (a *App) Say(ctx context.Context, text string) error {
	if a.current == nil {
		return errNoConversation
	}
	if strings.TrimSpace(text) == "" {
		var err error
		text, err = getMultiline(a.reader, "Your message", a.out)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
	}

	msgs, err := a.api.Send(ctx, a.current.ID, text)
	if err != nil {
		return err
	}

	from := a.seen
	if from > len(msgs) {
		from = 0
	}
	// the user's own line is already on screen
	for _, m := range msgs[from:] {
		if m.Sender == "ai" {
			a.printMessages([]api.Message{m})
		}
	}
	a.seen = len(msgs)
	return nil
}

// Export asks the server for a transcript link, downloads it and prints it.
func (a *App) Export(ctx context.Context) error {
	if a.current == nil {
		return errNoConversation
	}
	exp, err := a.api.Export(ctx, a.current.ID)
	if err != nil {
		return err
	}

	data, err := download(ctx, exp.URL)
	if err != nil {
		return err
	}

	var doc struct {
		Conversation api.Conversation `json:"conversation"`
		Messages     []api.Message    `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("bad transcript: %w", err)
	}

	fmt.Fprintf(a.out, "# %s\n", doc.Conversation.Title)
	a.printMessages(doc.Messages)
	fmt.Fprintf(a.out, "Link (valid until %s): %s\n", exp.ExpiresAt.Local().Format("15:04"), exp.URL)
	return nil
}

// --- helpers below ---

func (a *App) resetConversation() {
	a.current = nil
	a.seen = 0
}

func (a *App) resolveRef(ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.lastList) {
		return a.lastList[n-1].ID
	}
	return ref
}

func (a *App) printMessages(msgs []api.Message) {
	for _, m := range msgs {
		who := "you"
		if m.Sender == "ai" {
			who = "ai"
		}
		fmt.Fprintf(a.out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, m.Content)
	}
}
