// Package session 保存单个用户会话的显式状态：简历文本、技能、角色、聊天记录和面试模拟进度。
// 会话对象由调用方显式传递，没有全局状态。
package session

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("session not found")

// 聊天角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 一轮聊天消息
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// InterviewState 面试模拟器进度
type InterviewState struct {
	Role    string   `json:"role"`
	Index   int      `json:"index"`
	Answers []string `json:"answers"`
}

// Session 单个会话的全部状态
type Session struct {
	ID             string          `json:"id"`
	ResumeText     string          `json:"resume_text,omitempty"`
	Skills         []string        `json:"skills"`
	BestRole       string          `json:"best_role,omitempty"`
	TargetRole     string          `json:"target_role,omitempty"`
	ChatHistory    []Turn          `json:"chat_history"`
	Interview      *InterviewState `json:"interview,omitempty"`
	LastAnalysisID string          `json:"last_analysis_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Store 会话存储
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Reset(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// New 创建一个空会话，ID 为 UUIDv7
func New(now time.Time) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          id.String(),
		Skills:      []string{},
		ChatHistory: []Turn{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AppendTurn 追加一轮聊天
func (s *Session) AppendTurn(role, content string, at time.Time) {
	s.ChatHistory = append(s.ChatHistory, Turn{Role: role, Content: content, At: at})
	s.UpdatedAt = at
}

// RecentTurns 返回最后 n 轮消息，n <= 0 时返回全部
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || n >= len(s.ChatHistory) {
		return s.ChatHistory
	}
	return s.ChatHistory[len(s.ChatHistory)-n:]
}

// Clear 清空除 ID 和创建时间之外的所有状态
func (s *Session) Clear(now time.Time) {
	s.ResumeText = ""
	s.Skills = []string{}
	s.BestRole = ""
	s.TargetRole = ""
	s.ChatHistory = []Turn{}
	s.Interview = nil
	s.LastAnalysisID = ""
	s.UpdatedAt = now
}

// Clone 深拷贝，存储实现用它隔离调用方的修改
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Skills = append([]string{}, s.Skills...)
	c.ChatHistory = append([]Turn{}, s.ChatHistory...)
	if s.Interview != nil {
		iv := *s.Interview
		iv.Answers = append([]string{}, s.Interview.Answers...)
		c.Interview = &iv
	}
	return &c
}
