package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

// Conversation mirrors the server's conversation JSON.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message mirrors the server's message JSON.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// Export is a presigned transcript link.
type Export struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type session struct {
	Token        string `json:"token"`
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	sess session
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// UserID returns the signed-in user, or "".
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.UserID
}

// LoggedIn reports whether an access token is held.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Token != ""
}

// Logout forgets the tokens.
func (c *Client) Logout() {
	c.mu.Lock()
	c.sess = session{}
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/register", body)
}

// Login signs in with a username or email.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	body := map[string]string{"identifier": identifier, "password": password}
	return c.authenticate(ctx, "/api/auth/login", body)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	uid, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	var out []Conversation
	err = c.authed(ctx, http.MethodGet, "/api/chat/conversations/"+url.PathEscape(uid), nil, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	uid, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	var out Conversation
	if err := c.authed(ctx, http.MethodPost, "/api/chat/conversations/"+url.PathEscape(uid), map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameConversation(ctx context.Context, id, title string) (*Conversation, error) {
	var out Conversation
	if err := c.authed(ctx, http.MethodPut, "/api/chat/conversations/"+url.PathEscape(id), map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	err := c.authed(ctx, http.MethodGet, "/api/chat/messages/"+url.PathEscape(conversationID), nil, &out)
	return out, err
}

// Send submits one user turn and returns the full transcript.
func (c *Client) Send(ctx context.Context, conversationID, text string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.authed(ctx, http.MethodPost, "/api/chat/messages/"+url.PathEscape(conversationID), map[string]string{"message": text}, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) Export(ctx context.Context, conversationID string) (*Export, error) {
	var out Export
	if err := c.authed(ctx, http.MethodPost, "/api/chat/export/"+url.PathEscape(conversationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- helpers below ---

func (c *Client) requireUser() (string, error) {
	uid := c.UserID()
	if uid == "" {
		return "", ErrNotLoggedIn
	}
	return uid, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) error {
	var s session
	if err := c.do(ctx, http.MethodPost, path, "", body, &s); err != nil {
		return err
	}
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
	return nil
}

// authed performs a bearer call, refreshing the tokens once on 401.
func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	token, refresh := c.sess.Token, c.sess.RefreshToken
	c.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	err := c.do(ctx, method, path, token, body, out)
	if !errors.Is(err, ErrUnauthorized) || refresh == "" {
		return err
	}

	if rerr := c.authenticate(ctx, "/api/auth/refresh", map[string]string{"refreshToken": refresh}); rerr != nil {
		return err
	}

	c.mu.Lock()
	token = c.sess.Token
	c.mu.Unlock()
	return c.do(ctx, method, path, token, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &APIError{Status: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
