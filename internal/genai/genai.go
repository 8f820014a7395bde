// Package genai answers visitor questions about the laboratory using the
// OpenAI chat completion API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// MaxHistoryMessages bounds how much prior conversation is sent with each turn.
const MaxHistoryMessages = 10

// DefaultModel is the chat model used for assistant replies.
const DefaultModel = openai.ChatModelGPT4oMini

// ErrNoChoicesReturned indicates the API responded without any completion choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// FallbackReply is served when the assistant is not configured or the API fails.
const FallbackReply = "For more information please call 021-46833010 or 021-46833011, or visit www.salamatlab.com."

// Role tags one side of the assistant conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the visitor conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the assistant client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Option configures assistant client options.
type Option func(*Opts)

// WithAPIKey sets the API key, overriding the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service for assistant replies.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes an assistant client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: assistant client created", "model", model, "base_url_set", cfg.BaseURL != "")
	return &Client{chat: &openaiChatService{client: cli}, model: model}, nil
}

// Reply answers a visitor message given the prior conversation. Only the most
// recent MaxHistoryMessages turns of history are sent.
func (c *Client) Reply(ctx context.Context, history []Message, userMessage string) (string, error) {
	if len(history) > MaxHistoryMessages {
		history = history[len(history)-MaxHistoryMessages:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(labAssistantPrompt))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Warn("Client.Reply: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// labAssistantPrompt grounds the assistant in the laboratory's public details.
const labAssistantPrompt = `You are the assistant of SalamatLab Medical Diagnostic Laboratory. Laboratory details:

Name: SalamatLab Medical Diagnostic Laboratory
Address: Shahr-e Qods, Mosalla Square
Phones: 021-46833010, 021-46833011
Working hours: Saturday to Thursday, 7 AM to 7 PM
Website: www.salamatlab.com
Instagram: @salamatlab

Services:
- Hematology (blood tests)
- Biochemistry
- Microbiology (cultures)
- Immunology and allergy
- Cytology
- Molecular diagnostics (PCR)
- Flow cytometry
- Coagulation
- Home sampling
- Online results

Always be polite, helpful, and precise. Never give a medical diagnosis.`
