// Package server wires configuration, storage, the AI provider and the HTTP
// API together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/ai"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/rest"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

const tokenPurgeInterval = time.Hour

var (
	openDB         = repomanager.OpenDB
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newProvider    = defaultProvider
	logOutput      io.Writer = os.Stdout
)

type App struct {
	config              *config.Config
	logger              logging.Logger
	db                  *sql.DB
	userService         *services.UserService
	conversationService *services.ConversationService
	chatService         *services.ChatService
	exportService       *services.ExportService
}

func defaultProvider(ctx context.Context, c *config.Config) (ai.Provider, error) {
	if !c.AIConfigured() {
		return ai.Unconfigured{}, nil
	}
	return ai.NewGemini(ctx, ai.GeminiConfig{
		APIKey:  c.GeminiAPIKey,
		Model:   c.GeminiModel,
		BaseURL: c.GeminiBaseURL,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(logOutput, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	provider, err := newProvider(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ai provider: %w", err)
	}
	if !provider.Configured() {
		logger.Warn(ctx, "GEMINI_API_KEY is not set, replies will be a fixed notice")
	}
	if !c.ExportEnabled() {
		logger.Info(ctx, "S3 bucket not set, transcript export disabled")
	}

	return &App{
		config:              c,
		logger:              logger,
		db:                  db,
		userService:         services.NewUserService(db, rm, c, logger),
		conversationService: services.NewConversationService(db, rm, logger),
		chatService:         services.NewChatService(db, rm, provider, c, logger),
		exportService:       services.NewExportService(db, rm, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newRESTServer() *rest.Server {
	return rest.NewServer(app.config.ListenAddr, app.logger, rest.Deps{
		Users:          app.userService,
		Conversations:  app.conversationService,
		Chat:           app.chatService,
		Export:         app.exportService,
		DB:             app.db,
		JWTSecret:      []byte(app.config.SecretKey),
		AllowedOrigins: app.config.AllowedOrigins,
	})
}

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.newRESTServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startTokenJanitor drops expired refresh tokens until ctx is done.
func (app *App) startTokenJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.userService.PurgeExpiredTokens(ctx); err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
			}
		}
	}
}

// Run blocks until a signal arrives or the HTTP server fails, then closes
// the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startRESTServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTokenJanitor(ctx, tokenPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
