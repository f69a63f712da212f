package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/mohammad-safakhou/planweave/config"
	"github.com/mohammad-safakhou/planweave/internal/telemetry"
	"github.com/mohammad-safakhou/planweave/internal/tool"
	"github.com/mohammad-safakhou/planweave/provider"
)

// RefusalError signals that the model declined to answer, either explicitly
// or by exhausting the token budget. Refusals are terminal: retrying the
// same request would only reproduce the refusal.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return "model refused the request: " + e.Reason
}

// ErrNoChoices is returned when the remote service answers with an empty
// choice list. The condition is transient and retried.
var ErrNoChoices = errors.New("no choices found in the completion response")

// ErrNoStructuredOutput is returned when a completion carries neither a
// payload nor a refusal. The condition is transient and retried.
var ErrNoStructuredOutput = errors.New("no structured output found in the completion response")

// Client is the gateway every model interaction goes through. It owns model
// routing, retry with exponential backoff, refusal classification and usage
// accounting; the wire protocol lives behind provider.Transport.
type Client struct {
	transport provider.Transport
	routing   config.LLMRoutingConfig
	maxTry    int
	backoff   time.Duration
	logger    *log.Logger
	metrics   *telemetry.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithBackoffUnit overrides the base duration of the exponential backoff.
// The n-th retry waits 2^n units. Mainly useful in tests.
func WithBackoffUnit(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithLogger overrides the gateway's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics attaches prometheus instruments to the gateway.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a gateway over transport. Retry count and model routing come
// from cfg.
func New(transport provider.Transport, cfg config.LLMConfig, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		routing:   cfg.Routing,
		maxTry:    cfg.MaxRetries,
		backoff:   time.Second,
		logger:    log.New(os.Stderr, "[GATEWAY] ", log.LstdFlags),
	}
	if c.maxTry <= 0 {
		c.maxTry = 3
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callSettings struct {
	model     string
	maxTokens int
	maxTry    int
	validate  func([]byte) error
}

// CallOption tweaks a single gateway call.
type CallOption func(*callSettings)

// WithModel routes the call to a specific model.
func WithModel(model string) CallOption {
	return func(s *callSettings) { s.model = model }
}

// WithMaxTokens caps the completion size.
func WithMaxTokens(n int) CallOption {
	return func(s *callSettings) { s.maxTokens = n }
}

// WithMaxTry overrides the retry budget for this call.
func WithMaxTry(n int) CallOption {
	return func(s *callSettings) { s.maxTry = n }
}

// WithValidator runs fn on the raw completion payload before it is decoded.
// The response_format schema only constrains what the remote service claims
// to produce; the validator is the local check on what actually came back.
// A validation failure counts as a failed attempt, like an undecodable
// payload.
func WithValidator(fn func([]byte) error) CallOption {
	return func(s *callSettings) { s.validate = fn }
}

func (c *Client) settings(opts []CallOption) callSettings {
	s := callSettings{
		model:     c.routing.Chat,
		maxTokens: c.routing.ChatMaxTokens,
		maxTry:    c.maxTry,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxTry <= 0 {
		s.maxTry = 1
	}
	return s
}

// sleepBackoff waits out one retry interval, giving up early if ctx ends.
func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[reflect.Type]*jsonschema.Schema{}
)

// schemaForType derives (and caches) the JSON schema the remote service uses
// to constrain structured output for a Go type.
func schemaForType(t reflect.Type) *jsonschema.Schema {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[t]; ok {
		return s
	}
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.ReflectFromType(t)
	schemaCache[t] = s
	return s
}

func schemaName(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return strings.ToLower(name)
	}
	return "structured_output"
}

// StructuredOutput sends messages to the model and decodes its reply into T.
// The model is forced onto T's JSON schema via response_format. Transient
// failures (transport errors, empty choices, missing payload, undecodable or
// invalid payload) are retried with exponential backoff up to the call's retry
// budget, after which the last error is returned. A refusal or a completion
// cut off by the token budget fails immediately with *RefusalError.
func StructuredOutput[T any](ctx context.Context, c *Client, messages []provider.Message, opts ...CallOption) (T, error) {
	var zero T
	set := c.settings(opts)

	t := reflect.TypeOf((*T)(nil)).Elem()
	format := &provider.ResponseFormat{
		Name:   schemaName(t),
		Schema: schemaForType(t),
		Strict: true,
	}

	var lastErr error
	for attempt := 0; attempt < set.maxTry; attempt++ {
		start := time.Now()
		resp, err := c.transport.CreateChatCompletion(ctx, provider.ChatRequest{
			Model:          set.model,
			Messages:       messages,
			MaxTokens:      set.maxTokens,
			ResponseFormat: format,
		})
		c.metrics.ObserveLLMCall("structured_output", set.model, start, err)

		switch {
		case err != nil:
			lastErr = err
		case len(resp.Choices) == 0:
			lastErr = ErrNoChoices
		default:
			c.metrics.AddTokens(set.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			choice := resp.Choices[0]
			if choice.Refusal != "" {
				return zero, &RefusalError{Reason: choice.Refusal}
			}
			if choice.FinishReason == provider.FinishReasonLength {
				return zero, &RefusalError{Reason: "too many tokens"}
			}
			payload := []byte(choice.Content)
			if strings.TrimSpace(choice.Content) == "" {
				lastErr = ErrNoStructuredOutput
				break
			}
			if set.validate != nil {
				if verr := set.validate(payload); verr != nil {
					lastErr = verr
					break
				}
			}
			var out T
			if uerr := json.Unmarshal(payload, &out); uerr != nil {
				lastErr = fmt.Errorf("decode structured output: %w", uerr)
				break
			}
			return out, nil
		}

		if attempt+1 < set.maxTry {
			c.logger.Printf("structured output attempt %d/%d failed: %v", attempt+1, set.maxTry, lastErr)
			if serr := sleepBackoff(ctx, c.backoff<<(attempt+1)); serr != nil {
				return zero, serr
			}
		}
	}
	return zero, lastErr
}

// Chat sends a plain conversation to the model and returns the assistant's
// reply. No retries: conversational calls are cheap to reissue and the
// caller decides whether a second attempt makes sense.
func (c *Client) Chat(ctx context.Context, messages []provider.Message, opts ...CallOption) (provider.Message, error) {
	set := c.settings(opts)

	start := time.Now()
	resp, err := c.transport.CreateChatCompletion(ctx, provider.ChatRequest{
		Model:     set.model,
		Messages:  messages,
		MaxTokens: set.maxTokens,
	})
	c.metrics.ObserveLLMCall("chat", set.model, start, err)
	if err != nil {
		return provider.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return provider.Message{}, ErrNoChoices
	}
	c.metrics.AddTokens(set.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	choice := resp.Choices[0]
	if choice.FinishReason == provider.FinishReasonLength {
		return provider.Message{}, &RefusalError{Reason: "too many tokens"}
	}
	return provider.Message{Role: "assistant", Content: choice.Content}, nil
}

// Embedding returns the embedding vector for the input text, using the
// routing table's embedding model unless overridden.
func (c *Client) Embedding(ctx context.Context, input string, opts ...CallOption) ([]float64, error) {
	set := callSettings{model: c.routing.Embedding}
	for _, opt := range opts {
		opt(&set)
	}

	start := time.Now()
	vec, err := c.transport.CreateEmbedding(ctx, input, set.model)
	c.metrics.ObserveLLMCall("embedding", set.model, start, err)
	return vec, err
}

// FunctionCallResult is what a function-calling conversation produced:
// either tool invocations to execute or a direct assistant message.
type FunctionCallResult struct {
	ToolCalls []provider.ToolCall
	Message   provider.Message
}

// FunctionCall offers the given tools to the model and returns the tool
// calls it selects, or its direct reply when it answers without calling
// anything. The tool-calling system instruction is prepended so the model
// declines gracefully instead of fabricating arguments. Transient failures
// are retried with exponential backoff; refusals fail immediately.
func (c *Client) FunctionCall(ctx context.Context, messages []provider.Message, schemas []tool.ToolSchema, opts ...CallOption) (*FunctionCallResult, error) {
	set := c.settings(opts)

	defs := make([]provider.ToolDefinition, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, toolDefinition(s))
	}
	conv := append([]provider.Message{{Role: "system", Content: ToolCallingInstruction}}, messages...)

	var lastErr error
	for attempt := 0; attempt < set.maxTry; attempt++ {
		start := time.Now()
		resp, err := c.transport.CreateChatCompletion(ctx, provider.ChatRequest{
			Model:      set.model,
			Messages:   conv,
			Tools:      defs,
			ToolChoice: "auto",
		})
		c.metrics.ObserveLLMCall("function_call", set.model, start, err)

		switch {
		case err != nil:
			lastErr = err
		case len(resp.Choices) == 0:
			lastErr = ErrNoChoices
		default:
			c.metrics.AddTokens(set.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			choice := resp.Choices[0]
			if choice.Refusal != "" {
				return nil, &RefusalError{Reason: choice.Refusal}
			}
			if choice.FinishReason == provider.FinishReasonLength {
				return nil, &RefusalError{Reason: "too many tokens"}
			}
			if len(choice.ToolCalls) > 0 {
				return &FunctionCallResult{ToolCalls: choice.ToolCalls}, nil
			}
			return &FunctionCallResult{Message: provider.Message{Role: "assistant", Content: choice.Content}}, nil
		}

		if attempt+1 < set.maxTry {
			c.logger.Printf("function call attempt %d/%d failed: %v", attempt+1, set.maxTry, lastErr)
			if serr := sleepBackoff(ctx, c.backoff<<(attempt+1)); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, fmt.Errorf("function call failed after %d attempts: %w", set.maxTry, lastErr)
}

// toolDefinition converts a registry tool schema into the function-calling
// declaration shape the remote service expects.
func toolDefinition(s tool.ToolSchema) provider.ToolDefinition {
	properties := make(map[string]any, len(s.Parameters))
	required := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return provider.ToolDefinition{
		Name:        s.Name,
		Description: s.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// DescribeFunction asks the model to summarize a function's source-level
// metadata into a tool schema. The doc comment is preferred as the behavior
// description; when absent the full source text is sent instead.
func (c *Client) DescribeFunction(ctx context.Context, meta tool.FuncMeta) (tool.ToolSchema, error) {
	var detail string
	if meta.Doc != "" {
		detail = fmt.Sprintf("<Function doc>\n%s\n</Function doc>", meta.Doc)
	} else {
		detail = fmt.Sprintf("<Function source code>\n%s\n</Function source code>", meta.Source)
	}
	codeMsg := fmt.Sprintf(
		"<Function name>\n%s\n</Function name>\n\n<Function signature>\n%s\n</Function signature>\n\n%s",
		meta.Name, meta.Signature, detail,
	)

	messages := []provider.Message{
		{Role: "system", Content: CodeSummaryInstruction},
		{Role: "user", Content: codeMsg},
	}
	return StructuredOutput[tool.ToolSchema](ctx, c, messages,
		WithModel(c.routing.Description),
		WithMaxTokens(c.routing.DescriptionMaxTokens),
	)
}
