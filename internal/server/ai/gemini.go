package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig holds settings for the Gemini provider.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini answers turns with the Gemini generateContent API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

func (g *Gemini) Configured() bool { return true }

func (g *Gemini) Generate(ctx context.Context, history []Turn, prompt string, maxTokens int) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		return "", err
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0].Content
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
