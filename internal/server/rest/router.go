package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*services.Session, error)
	Login(ctx context.Context, identifier, password string) (*services.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.Session, error)
}

type ConversationService interface {
	List(ctx context.Context, callerID, pathUserID string) ([]models.Conversation, error)
	Create(ctx context.Context, callerID, pathUserID, title string) (*models.Conversation, error)
	Rename(ctx context.Context, callerID, conversationID, title string) (*models.Conversation, error)
}

type ChatService interface {
	ListMessages(ctx context.Context, conversationID, callerID string) ([]models.Message, error)
	SubmitTurn(ctx context.Context, conversationID, callerID, text string) ([]models.Message, error)
}

type ExportService interface {
	Export(ctx context.Context, conversationID, callerID string) (string, time.Time, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the router needs. Export and DB may be nil.
type Deps struct {
	Users          UserService
	Conversations  ConversationService
	Chat           ChatService
	Export         ExportService
	DB             Pinger
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         logging.Logger
}

type handler struct {
	Deps
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	h := &handler{Deps: deps}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/conversations/{userId}", h.listConversations)
		r.Post("/conversations/{userId}", h.createConversation)
		r.Put("/conversations/{conversationId}", h.renameConversation)

		r.Get("/messages/{conversationId}", h.listMessages)
		r.Post("/messages/{conversationId}", h.sendMessage)

		r.Post("/export/{conversationId}", h.exportConversation)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
