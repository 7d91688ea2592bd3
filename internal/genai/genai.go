// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// It generates conversational replies for leads from their qualification
// facts plus the formatted conversation history, and transcribes voice
// messages so the extraction pipeline can treat them as text.
package genai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/imobia/leadpipe/internal/conversation"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultChatModel is the chat model used when none is configured.
const DefaultChatModel = openai.ChatModelGPT4oMini

// ClientInterface defines the GenAI operations the messaging layer depends
// on, so tests can substitute a stub.
type ClientInterface interface {
	// GeneratePrompt generates a response for the given system and user prompts.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// GenerateReply produces the assistant reply for a lead conversation.
	GenerateReply(ctx context.Context, lead models.Lead, history []models.Message, lastMessage string) (string, error)
	// TranscribeAudio converts a voice message into text.
	TranscribeAudio(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// Client wraps the OpenAI client for reply generation and transcription.
type Client struct {
	client openai.Client
	model  string
}

// NewClient initializes a new GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not set via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	slog.Debug("genai.NewClient: creating OpenAI client", "model", cfg.Model)
	return &Client{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	slog.Debug("Client.GeneratePrompt: requesting completion", "model", c.model)
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		slog.Error("Client.GeneratePrompt: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateReply produces the assistant reply for a lead conversation. The
// system prompt carries the lead's known qualification facts and the prior
// exchange so the model answers in context.
func (c *Client) GenerateReply(ctx context.Context, lead models.Lead, history []models.Message, lastMessage string) (string, error) {
	slog.Debug("Client.GenerateReply: requesting completion", "lead_id", lead.ID, "stage", lead.Stage, "history_len", len(history))
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildLeadSystemPrompt(lead, history)),
			openai.UserMessage(lastMessage),
		},
	})
	if err != nil {
		slog.Error("Client.GenerateReply: completion failed", "error", err, "lead_id", lead.ID)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// TranscribeAudio converts a voice message into text using Whisper.
func (c *Client) TranscribeAudio(ctx context.Context, audio io.Reader, filename string) (string, error) {
	slog.Debug("Client.TranscribeAudio: requesting transcription", "filename", filename)
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  audio,
	})
	if err != nil {
		slog.Error("Client.TranscribeAudio: transcription failed", "error", err, "filename", filename)
		return "", fmt.Errorf("audio transcription failed: %w", err)
	}
	return resp.Text, nil
}

// BuildLeadSystemPrompt assembles the system prompt from the lead's known
// facts and the conversation so far.
func BuildLeadSystemPrompt(lead models.Lead, history []models.Message) string {
	var b strings.Builder
	b.WriteString("Você é um assistente imobiliário atendendo um cliente pelo WhatsApp. ")
	b.WriteString("Responda em português, de forma breve e cordial, sempre conduzindo a conversa para qualificar o interesse do cliente.\n\n")

	b.WriteString("Dados conhecidos do cliente:\n")
	if lead.Name != "" {
		fmt.Fprintf(&b, "- Nome: %s\n", lead.Name)
	}
	if lead.BudgetMin != nil && lead.BudgetMax != nil {
		fmt.Fprintf(&b, "- Orçamento: %s a %s\n",
			conversation.FormatCurrencyValue(*lead.BudgetMin),
			conversation.FormatCurrencyValue(*lead.BudgetMax))
	} else if lead.BudgetMax != nil {
		fmt.Fprintf(&b, "- Orçamento: até %s\n", conversation.FormatCurrencyValue(*lead.BudgetMax))
	}
	if lead.Location != nil {
		fmt.Fprintf(&b, "- Região de interesse: %s\n", *lead.Location)
	}
	if lead.Rooms != nil {
		fmt.Fprintf(&b, "- Dormitórios desejados: %d\n", *lead.Rooms)
	}
	if lead.MonthlyIncome != nil {
		fmt.Fprintf(&b, "- Renda mensal: %s\n", conversation.FormatCurrencyValue(*lead.MonthlyIncome))
	}
	fmt.Fprintf(&b, "- Etapa do atendimento: %s\n", lead.Stage)

	if formatted := conversation.FormatConversationHistory(history); formatted != "" {
		b.WriteString("\nHistórico da conversa:\n")
		b.WriteString(formatted)
	}
	return b.String()
}
