package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mohammad-safakhou/planweave/config"
	openai_provider "github.com/mohammad-safakhou/planweave/provider/openai"
)

// FinishReasonLength marks a completion truncated by the token budget.
const FinishReasonLength = openai_provider.FinishReasonLength

// Message is a single role-tagged message in a conversation.
type Message = openai_provider.Message

// ChatRequest is the abstract request shape the core sends to a remote
// chat-completion service.
type ChatRequest = openai_provider.ChatRequest

// ChatResponse carries the choices returned by the remote service. Each
// choice holds either a payload or a refusal marker.
type ChatResponse = openai_provider.ChatResponse

// Choice is a single completion choice within a ChatResponse.
type Choice = openai_provider.Choice

// ResponseFormat constrains the model's output to a JSON schema.
type ResponseFormat = openai_provider.ResponseFormat

// ToolDefinition declares a callable function to the remote model.
type ToolDefinition = openai_provider.ToolDefinition

// ToolCall is a function invocation requested by the model.
type ToolCall = openai_provider.ToolCall

// Transport is the wire-level collaborator the gateway talks to. Exact
// protocol details (endpoints, auth, encoding) belong to the binding; the
// gateway only depends on this request/response shape and the failure
// signals surfaced through ChatResponse (refusal, finish reason) and errors.
type Transport interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)
	CreateEmbedding(ctx context.Context, input string, model string) ([]float64, error)
}

// New creates the transport binding for the configured endpoint. Only the
// OpenAI-compatible protocol is implemented; the factory keeps the seam for
// additional vendors.
func New(cfg config.LLMConfig) (Transport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key not configured (set OPENAI_API_KEY)")
	}
	return openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout), nil
}

// MarshalToolArguments is a convenience for callers executing tool calls:
// it decodes a tool call's JSON argument payload into dst.
func MarshalToolArguments(call ToolCall, dst any) error {
	return json.Unmarshal([]byte(call.Function.Arguments), dst)
}
