package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/api"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const onlineCheckInterval = 5 * time.Second

// chatAPI is the part of api.Client the commands use.
type chatAPI interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, identifier, password string) error
	Logout()
	LoggedIn() bool
	UserID() string
	Health(ctx context.Context) error
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*api.Conversation, error)
	RenameConversation(ctx context.Context, id, title string) (*api.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]api.Message, error)
	Send(ctx context.Context, conversationID, text string) ([]api.Message, error)
	Export(ctx context.Context, conversationID string) (*api.Export, error)
}

type App struct {
	config *config.Config
	api    chatAPI
	reader *bufio.Reader
	out    io.Writer

	Mode       Mode
	identifier string

	current  *api.Conversation
	lastList []api.Conversation
	seen     int
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		api:    api.NewClient(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	s := ""
	if a.identifier != "" {
		s = a.identifier + " "
	}
	if a.current != nil {
		s = s + "[" + a.current.Title + "] "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the connectivity watcher and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to GophChat CLI (type 'help' for commands)")

	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// StartOnlineStatusWatcher pings the server every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Health(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
