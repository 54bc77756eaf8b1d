// Package chat implements the conversational core: a tool-calling Gemini
// agent with session history, retry, rate limiting and a circuit breaker
// around model calls.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/session"
)

const (
	// Name identifies the chat agent.
	Name = "chat"

	// Description summarizes the chat agent's capabilities.
	Description = "General purpose conversational agent with tool access to the knowledge base, datasets and the web."

	// fallbackResponse covers the rare empty model output.
	fallbackResponse = "I couldn't generate a response. Please try rephrasing your question."

	titleTimeout  = 5 * time.Second
	titleMaxRunes = 80
	inputMaxRunes = 500
)

const systemPrompt = `You are InsightHub, an analysis assistant. You have tools for
searching indexed documents, querying loaded datasets and fetching web pages.
Use them when the question needs facts you do not have; answer directly when
it does not. Be concise and cite tool results when you rely on them.

Today's date is {date}.`

// Sentinel errors for flow and HTTP handlers.
var (
	ErrInvalidSession  = errors.New("invalid session")
	ErrExecutionFailed = errors.New("execution failed")
)

// Response is the final result of one chat turn.
type Response struct {
	FinalText    string
	ToolRequests []*ai.ToolRequest
}

// StreamCallback receives response chunks as they are generated. Returning
// an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config holds the chat agent's dependencies and settings.
type Config struct {
	Genkit   *genkit.Genkit
	Sessions *session.Store
	Logger   log.Logger
	Tools    []ai.Tool // pre-registered via the tools package

	ModelName          string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	MaxTurns           int    // agentic tool loop limit
	MaxHistoryMessages int32  // history window loaded per request

	RetryConfig   RetryConfig
	BreakerConfig BreakerConfig
	RateLimiter   *rate.Limiter // nil gets a default limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the conversational agent. All configuration is captured
// immutably at construction so concurrent requests never race on it.
type Agent struct {
	modelName string
	maxTurns  int
	history   int32

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	g        *genkit.Genkit
	sessions *session.Store
	logger   log.Logger
	tools    []ai.Tool
	toolRefs []ai.ToolRef
}

// New creates a chat agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	history := cfg.MaxHistoryMessages
	if history <= 0 {
		history = 40
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	a := &Agent{
		modelName:      cfg.ModelName,
		maxTurns:       maxTurns,
		history:        history,
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cfg.BreakerConfig),
		rateLimiter:    rl,
		g:              cfg.Genkit,
		sessions:       cfg.Sessions,
		logger:         cfg.Logger,
		tools:          cfg.Tools,
		toolRefs:       toolRefs,
	}

	a.logger.Info("chat agent initialized", "tools", len(a.tools), "max_turns", a.maxTurns)
	return a, nil
}

// Execute runs one non-streaming chat turn.
func (a *Agent) Execute(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	return a.ExecuteStream(ctx, sessionID, input, nil)
}

// ExecuteStream runs one chat turn. A non-nil callback receives chunks as
// they are generated; the complete response is returned either way.
func (a *Agent) ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback StreamCallback) (*Response, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errors.New("input cannot be empty")
	}

	history, err := a.sessions.Messages(ctx, sessionID, a.history)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	resp, err := a.generate(ctx, input, history, callback)
	if err != nil {
		return nil, err
	}

	responseText := resp.Text()
	if strings.TrimSpace(responseText) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response", "session_id", sessionID)
		responseText = fallbackResponse
	}

	// History persistence is best effort; the user already has the answer.
	if _, err := a.sessions.AppendMessage(ctx, sessionID, session.RoleUser, input); err != nil {
		a.logger.Warn("saving user message", "error", err)
	} else if _, err := a.sessions.AppendMessage(ctx, sessionID, session.RoleModel, responseText); err != nil {
		a.logger.Warn("saving model message", "error", err)
	}

	return &Response{
		FinalText:    responseText,
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// generate builds the message list and runs the model behind the breaker
// and retry layers.
func (a *Agent) generate(ctx context.Context, input string, history []session.Message, callback StreamCallback) (*ai.ModelResponse, error) {
	messages := toModelMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	system := strings.ReplaceAll(systemPrompt, "{date}", time.Now().Format("2006-01-02"))

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("circuit breaker rejecting request", "state", a.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		a.circuitBreaker.Failure()
		return nil, err
	}

	a.circuitBreaker.Success()
	return resp, nil
}

// toModelMessages converts stored history into model messages. Tool and
// system roles are not replayed; tool results are already reflected in the
// model turns that followed them.
func toModelMessages(history []session.Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case session.RoleUser:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(msg.Content)))
		case session.RoleModel:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(msg.Content)))
		}
	}
	return out
}

// GenerateTitle derives a short session title from the first message.
// Best effort: returns empty string on failure.
func (a *Agent) GenerateTitle(ctx context.Context, userMessage string) string {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	runes := []rune(userMessage)
	if len(runes) > inputMaxRunes {
		userMessage = string(runes[:inputMaxRunes]) + "..."
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithPrompt(`Generate a concise title (max %d characters) for a chat session based on this first message. Return only the title text, no quotes.

Message: %s`, titleMaxRunes, userMessage),
	)
	if err != nil {
		a.logger.Debug("title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(resp.Text())
	titleRunes := []rune(title)
	if len(titleRunes) > titleMaxRunes {
		title = string(titleRunes[:titleMaxRunes-3]) + "..."
	}
	return title
}
