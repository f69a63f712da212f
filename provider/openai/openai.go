package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FinishReasonLength marks a completion truncated by the token budget.
const FinishReasonLength = "length"

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the service for output conforming to a JSON schema.
type ResponseFormat struct {
	Name   string
	Schema any
	Strict bool
}

// ToolDefinition declares a callable function to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any
}

// ToolCall is a function invocation emitted by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatRequest is a request to the chat-completions endpoint.
type ChatRequest struct {
	Model          string
	Messages       []Message
	MaxTokens      int
	ResponseFormat *ResponseFormat
	Tools          []ToolDefinition
	ToolChoice     string
}

// Choice is one completion choice.
type Choice struct {
	Content      string
	Refusal      string
	FinishReason string
	ToolCalls    []ToolCall
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// ChatResponse is the decoded response from the chat-completions endpoint.
type ChatResponse struct {
	Choices []Choice
	Usage   Usage
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OpenAI-compatible transport binding.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireJSONSchema struct {
	Name   string `json:"name"`
	Strict bool   `json:"strict,omitempty"`
	Schema any    `json:"schema"`
}

type wireResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema wireJSONSchema `json:"json_schema"`
}

type wireFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireChatRequest struct {
	Model          string              `json:"model"`
	Messages       []wireMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *wireResponseFormat `json:"response_format,omitempty"`
	Tools          []wireTool          `json:"tools,omitempty"`
	ToolChoice     string              `json:"tool_choice,omitempty"`
}

type wireChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			Refusal   string     `json:"refusal"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// CreateChatCompletion sends one chat-completion request. Refusals and
// finish reasons are surfaced on the response; transport-level problems
// (network, non-200 status, malformed body) come back as errors.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	wire := wireChatRequest{
		Model:      req.Model,
		MaxTokens:  req.MaxTokens,
		ToolChoice: req.ToolChoice,
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}
	if req.ResponseFormat != nil {
		wire.ResponseFormat = &wireResponseFormat{
			Type: "json_schema",
			JSONSchema: wireJSONSchema{
				Name:   req.ResponseFormat.Name,
				Strict: req.ResponseFormat.Strict,
				Schema: req.ResponseFormat.Schema,
			},
		}
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	var out wireChatResponse
	if err := c.post(ctx, "/chat/completions", wire, &out); err != nil {
		return ChatResponse{}, err
	}

	resp := ChatResponse{
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}
	for _, ch := range out.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Content:      ch.Message.Content,
			Refusal:      ch.Message.Refusal,
			FinishReason: ch.FinishReason,
			ToolCalls:    ch.Message.ToolCalls,
		})
	}
	return resp, nil
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string, model string) ([]float64, error) {
	body := map[string]any{"input": input, "model": model}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}
	return out.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
