package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"careercraft-go/internal/logger"
)

const (
	// DefaultAPIURL DashScope 的 OpenAI 兼容接口
	DefaultAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	// DefaultModel 默认模型
	DefaultModel   = "qwen-plus"
	defaultTimeout = 60 * time.Second
	logBodyLimit   = 512
)

// ErrEmptyChoices 接口返回了空的 choices
var ErrEmptyChoices = errors.New("chat completion 返回空选项")

// APIError 非 200 响应，保留状态码供重试判断
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 请求失败，状态 %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Retryable 429 与 5xx 可以重试
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config 聊天模型配置
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// --- OpenAI 兼容结构 ---

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIMessage struct {
	Role       string               `json:"role"`
	Content    *string              `json:"content"`
	ToolCalls  []openAIToolCallData `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
}

type openAIToolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// ChatModel 通过 OpenAI 兼容的 /chat/completions 接口调用托管模型，
// 实现 model.ChatModel 与 model.ToolCallingChatModel。
type ChatModel struct {
	cfg        Config
	httpClient *http.Client
	tools      []openAITool
	logger     zerolog.Logger
}

// Option ChatModel 的可选项
type Option func(*ChatModel)

// WithHTTPClient 替换默认 http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(m *ChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(m *ChatModel) {
		m.logger = l
	}
}

// NewChatModel 创建聊天模型，APIKey 不能为空
func NewChatModel(cfg Config, opts ...Option) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	m := &ChatModel{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Component("chat_model"),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logger.Info().Str("url", cfg.APIURL).Str("model", cfg.Model).Msg("使用 OpenAI 兼容聊天模型")
	return m, nil
}

// ModelName 返回模型名
func (m *ChatModel) ModelName() string {
	return m.cfg.Model
}

// Generate 实现 model.ChatModel 接口
func (m *ChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := m.cfg.Temperature
	maxTokens := m.cfg.MaxTokens
	modelName := m.cfg.Model
	common := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &modelName,
	}, opts...)

	req := chatCompletionRequest{
		Model:    m.cfg.Model,
		Messages: toOpenAIMessages(messages),
		Tools:    m.tools,
	}
	if common.Model != nil && *common.Model != "" {
		req.Model = *common.Model
	}
	if common.Temperature != nil && *common.Temperature > 0 {
		req.Temperature = common.Temperature
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		req.MaxTokens = common.MaxTokens
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("发送聊天请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	m.logger.Debug().Int("status", httpResp.StatusCode).Str("body", truncate(string(body), logBodyLimit)).Msg("收到聊天响应")

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: truncate(string(body), logBodyLimit)}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyChoices
	}

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

// Stream 暂不支持
func (m *ChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("ChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口。参数 schema 统一按空对象下发。
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.tools = toOpenAITools(tools)
	return nil
}

// WithTools 返回绑定了工具的新实例，不修改原实例
func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *m
	clone.tools = toOpenAITools(tools)
	return &clone, nil
}

var (
	_ model.ChatModel            = (*ChatModel)(nil)
	_ model.ToolCallingChatModel = (*ChatModel)(nil)
)

func toOpenAITools(tools []*schema.ToolInfo) []openAITool {
	out := make([]openAITool, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		out = append(out, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        t.Name,
				Description: t.Desc,
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
		})
	}
	return out
}

func toOpenAIMessages(messages []*schema.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		content := msg.Content
		om := openAIMessage{
			Role:       string(msg.Role),
			Content:    &content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			call := openAIToolCallData{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Function.Name
			call.Function.Arguments = tc.Function.Arguments
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}

func fromOpenAIMessage(msg openAIMessage) *schema.Message {
	result := &schema.Message{Role: schema.RoleType(msg.Role)}
	if msg.Content != nil {
		result.Content = *msg.Content
	}
	if result.Role == "" {
		result.Role = schema.Assistant
	}
	if len(msg.ToolCalls) > 0 {
		result.ToolCalls = make([]schema.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			result.ToolCalls[i] = schema.ToolCall{
				ID: tc.ID,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}
	return result
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
