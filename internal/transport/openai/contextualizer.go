package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/domain"
)

var contextPrompt = template.Must(template.New("context").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}).Parse(`<document>
Title: "{{.Title}}"
Type: {{.Type.TypeLabel}}
Category: {{if .Category}}{{.Category}}{{else}}general{{end}}
Tags: {{if .Tags}}{{join .Tags}}{{else}}none{{end}}

Full Content:
{{.Document}}
</document>

Situate the following chunk within the overall document context.
Provide 100-150 characters of concise contextual description in Korean that explains:
- What this chunk is about
- How it relates to the document's main theme
- Key concepts or decisions discussed

<chunk>
{{.Chunk}}
</chunk>

Context (Korean, 100-150 chars):`))

// Contextualizer asks a chat model for a short situating context per chunk.
type Contextualizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ContextualizerConfig holds the chat provider settings.
type ContextualizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewContextualizer creates a chat-completion backed contextualizer.
func NewContextualizer(cfg *ContextualizerConfig) *Contextualizer {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contextualizer{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  model,
		logger: logger,
	}
}

// Contextualize returns the situating context for req.Chunk.
func (c *Contextualizer) Contextualize(ctx context.Context, req domain.ContextRequest) (string, error) {
	prompt, err := renderContextPrompt(req)
	if err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   150,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Debug("context generation failed", zap.String("title", req.Title), zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func renderContextPrompt(req domain.ContextRequest) (string, error) {
	var buf bytes.Buffer
	if err := contextPrompt.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render context prompt: %w", err)
	}
	return buf.String(), nil
}
