package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/trendmind/pkg/config"
)

// ErrContentPolicy is returned when the model refused a request by content policy
var ErrContentPolicy = errors.New("rejected by content policy")

// ChatClient is the subset of the openai client used by this package
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI-compatible chat client for openai or azure api types
func NewClient(cfg config.LLMConfig) *openai.Client {
	var clientConfig openai.ClientConfig
	switch cfg.APIType {
	case "azure":
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		clientConfig.APIVersion = cfg.APIVersion
		// model is a deployment name already
		clientConfig.AzureModelMapperFunc = func(model string) string { return model }
	default:
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientConfig.BaseURL = cfg.Endpoint
		}
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientConfig)
}

// chatRequest describes a single system+user completion
type chatRequest struct {
	model       string
	system      string
	user        string
	temperature float64
	maxTokens   int
	jsonMode    bool
}

// complete sends the request and returns the first choice content.
// content policy rejections are reported as ErrContentPolicy.
func complete(ctx context.Context, client ChatClient, r chatRequest) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: float32(r.temperature),
		MaxTokens:   r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.system},
			{Role: openai.ChatMessageRoleUser, Content: r.user},
		},
	}
	if r.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isContentPolicy(err) {
			return "", fmt.Errorf("llm request failed: %w", ErrContentPolicy)
		}
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return "", ErrContentPolicy
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// isContentPolicy detects content filter rejections reported as api errors
func isContentPolicy(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == "content_filter" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "content management policy")
}

// extractJSON returns the outermost json object of the response, models sometimes wrap it with text
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no json object found in response")
	}
	res := content[start : end+1]
	if !json.Valid([]byte(res)) {
		return "", fmt.Errorf("failed to parse json: invalid object")
	}
	return res, nil
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
