// Package advisor 提供职业聊天助手、求职信生成与分析、面试准备与模拟。
package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"careercraft-go/internal/logger"
	"careercraft-go/internal/session"
	"careercraft-go/internal/tracing"
)

// Status 聊天结果类型
type Status string

const (
	StatusAnswered      Status = "answered"
	StatusEmpty         Status = "empty"
	StatusUnavailable   Status = "unavailable"
	StatusNotConfigured Status = "not_configured"
)

// Reply 聊天助手的结果。只有 StatusAnswered 时 Text 有内容，其余情况 Reason 说明原因。
type Reply struct {
	Status Status `json:"status"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Answered 是否拿到了回答
func (r Reply) Answered() bool {
	return r.Status == StatusAnswered
}

const (
	defaultHistoryTurns = 10
	defaultTemperature  = 0.7
)

// Chatbot 职业咨询聊天助手
type Chatbot struct {
	model        model.ToolCallingChatModel
	historyTurns int
	temperature  float32
	maxTokens    int
	now          func() time.Time
	logger       zerolog.Logger
}

// ChatbotOption Chatbot 的可选项
type ChatbotOption func(*Chatbot)

// WithHistoryTurns 发送给模型的历史消息条数
func WithHistoryTurns(n int) ChatbotOption {
	return func(c *Chatbot) {
		if n > 0 {
			c.historyTurns = n
		}
	}
}

// WithTemperature 设置采样温度
func WithTemperature(t float32) ChatbotOption {
	return func(c *Chatbot) {
		if t > 0 {
			c.temperature = t
		}
	}
}

// WithMaxTokens 设置最大输出 token 数
func WithMaxTokens(n int) ChatbotOption {
	return func(c *Chatbot) {
		c.maxTokens = n
	}
}

// WithNow 替换时钟
func WithNow(now func() time.Time) ChatbotOption {
	return func(c *Chatbot) {
		c.now = now
	}
}

// NewChatbot 创建聊天助手。m 为 nil 时所有提问都返回 StatusNotConfigured。
func NewChatbot(m model.ToolCallingChatModel, opts ...ChatbotOption) *Chatbot {
	c := &Chatbot{
		model:        m,
		historyTurns: defaultHistoryTurns,
		temperature:  defaultTemperature,
		now:          time.Now,
		logger:       logger.Component("chatbot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured 是否配置了模型
func (c *Chatbot) Configured() bool {
	return c != nil && c.model != nil
}

// Ask 向模型提问。服务故障不会以 error 返回，而是体现在 Reply.Status 中。
// 只有得到回答时才把提问和回答一起追加到 sess 的聊天记录里，调用方负责保存会话。
func (c *Chatbot) Ask(ctx context.Context, sess *session.Session, prompt string) Reply {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Reply{Status: StatusEmpty, Reason: "prompt is empty"}
	}
	if !c.Configured() {
		return Reply{Status: StatusNotConfigured, Reason: "chat model is not configured"}
	}

	messages := c.buildMessages(sess, prompt)
	asked := c.now()

	opts := []model.Option{model.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.model.Generate(ctx, messages, opts...)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "chat model timed out"
		}
		c.logger.Warn().Err(err).Str("prompt", tracing.SafeText(prompt)).Msg("聊天模型调用失败")
		return Reply{Status: StatusUnavailable, Reason: reason}
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if text == "" {
		return Reply{Status: StatusEmpty, Reason: "chat model returned no text"}
	}

	if sess != nil {
		sess.AppendTurn(session.RoleUser, prompt, asked)
		sess.AppendTurn(session.RoleAssistant, text, c.now())
	}
	return Reply{Status: StatusAnswered, Text: text}
}

func (c *Chatbot) buildMessages(sess *session.Session, prompt string) []*schema.Message {
	messages := []*schema.Message{schema.SystemMessage(mustPrompt("chatbot_system"))}
	if sess == nil {
		return append(messages, schema.UserMessage(prompt))
	}

	if len(sess.Skills) > 0 {
		messages = append(messages, schema.SystemMessage(FormatPrompt(mustPrompt("chatbot_profile"), map[string]string{
			"Skills":     strings.Join(sess.Skills, ", "),
			"BestRole":   orUnknown(sess.BestRole),
			"TargetRole": orUnknown(sess.TargetRole),
		})))
	}

	for _, turn := range sess.RecentTurns(c.historyTurns) {
		switch turn.Role {
		case session.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case session.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return append(messages, schema.UserMessage(prompt))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
