// Package ai wraps the generative model used to answer chat turns.
package ai

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Provider roles understood by the model API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("ai: empty response")

// ErrNotConfigured is returned by providers that have no credential.
var ErrNotConfigured = errors.New("ai: provider not configured")

// Turn is one history entry in provider terms.
type Turn struct {
	Role string
	Text string
}

// Provider generates the next model reply for a conversation.
type Provider interface {
	// Configured reports whether calls can be made at all.
	Configured() bool
	// Generate sends history followed by prompt as the final user turn.
	Generate(ctx context.Context, history []Turn, prompt string, maxTokens int) (string, error)
}

var roles = map[models.Sender]string{
	models.SenderUser: RoleUser,
	models.SenderAI:   RoleModel,
}

// RoleFor maps a stored sender to the provider role.
func RoleFor(s models.Sender) (string, bool) {
	r, ok := roles[s]
	return r, ok
}

// HistoryFrom converts stored messages to provider turns, skipping unknown senders.
func HistoryFrom(msgs []models.Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		role, ok := RoleFor(m.Sender)
		if !ok {
			continue
		}
		out = append(out, Turn{Role: role, Text: m.Content})
	}
	return out
}

// Unconfigured is used when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) Generate(context.Context, []Turn, string, int) (string, error) {
	return "", ErrNotConfigured
}
