package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercraft-go/internal/agent"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(time.Now())
	require.NoError(t, err)
	return s
}

func TestChatbotAnswered(t *testing.T) {
	mock := agent.NewMockChatClient("  Learn SQL next.  ", nil)
	bot := NewChatbot(mock)
	sess := newSession(t)
	sess.Skills = []string{"python"}
	sess.BestRole = "Data Analyst"

	reply := bot.Ask(context.Background(), sess, "What should I learn?")
	assert.Equal(t, StatusAnswered, reply.Status)
	assert.Equal(t, "Learn SQL next.", reply.Text)
	assert.True(t, reply.Answered())

	require.Len(t, sess.ChatHistory, 2)
	assert.Equal(t, session.RoleUser, sess.ChatHistory[0].Role)
	assert.Equal(t, session.RoleAssistant, sess.ChatHistory[1].Role)

	input := mock.LastInput()
	require.Len(t, input, 3, "系统提示、个人资料、问题")
	assert.Equal(t, schema.System, input[0].Role)
	assert.Contains(t, input[1].Content, "python")
	assert.Equal(t, "What should I learn?", input[2].Content)
}

func TestChatbotSendsRecentHistory(t *testing.T) {
	mock := agent.NewMockChatClient("ok", nil)
	bot := NewChatbot(mock, WithHistoryTurns(2))
	sess := newSession(t)

	for _, q := range []string{"one", "two", "three"} {
		bot.Ask(context.Background(), sess, q)
	}
	assert.Len(t, sess.ChatHistory, 6)

	input := mock.LastInput()
	// 系统提示 + 2 条历史 + 当前问题
	require.Len(t, input, 4)
	assert.Equal(t, "two", input[1].Content)
	assert.Equal(t, "ok", input[2].Content)
	assert.Equal(t, "three", input[3].Content)
}

func TestChatbotFailureModes(t *testing.T) {
	ctx := context.Background()

	reply := NewChatbot(nil).Ask(ctx, newSession(t), "hello")
	assert.Equal(t, StatusNotConfigured, reply.Status)
	assert.NotEmpty(t, reply.Reason)

	sess := newSession(t)
	reply = NewChatbot(agent.NewMockChatClient("", errors.New("dial tcp: connection refused"))).Ask(ctx, sess, "hello")
	assert.Equal(t, StatusUnavailable, reply.Status)
	assert.Contains(t, reply.Reason, "connection refused")
	assert.Empty(t, reply.Text)
	assert.Empty(t, sess.ChatHistory, "失败时不记录提问")

	reply = NewChatbot(agent.NewMockChatClient("   ", nil)).Ask(ctx, sess, "hello")
	assert.Equal(t, StatusEmpty, reply.Status)
	assert.Empty(t, sess.ChatHistory)

	mock := agent.NewMockChatClient("x", nil)
	reply = NewChatbot(mock).Ask(ctx, newSession(t), "   ")
	assert.Equal(t, StatusEmpty, reply.Status)
	assert.Equal(t, 0, mock.Calls(), "空问题不调用模型")

	reply = NewChatbot(mock).Ask(ctx, nil, "no session")
	assert.Equal(t, StatusAnswered, reply.Status)
}

func TestChatbotFailedTurnNotResent(t *testing.T) {
	ctx := context.Background()
	sess := newSession(t)

	NewChatbot(agent.NewMockChatClient("", errors.New("timeout"))).Ask(ctx, sess, "first")

	mock := agent.NewMockChatClient("answer", nil)
	reply := NewChatbot(mock).Ask(ctx, sess, "second")
	require.Equal(t, StatusAnswered, reply.Status)

	input := mock.LastInput()
	// 系统提示 + 当前问题，失败的提问不进入上下文
	require.Len(t, input, 2)
	assert.Equal(t, "second", input[1].Content)
	require.Len(t, sess.ChatHistory, 2)
	assert.Equal(t, "second", sess.ChatHistory[0].Content)
}

func TestCoverLetterGenerate(t *testing.T) {
	c := catalog.MustDefault()
	ctx := context.Background()
	req := CoverLetterRequest{Name: "Ada", Role: "Data Analyst", Company: "Acme", Skills: []string{"python", "sql"}}

	mock := agent.NewMockChatClient("I am excited to join [Company Name] as a [Position].", nil)
	letter := NewCoverLetters(c, mock).Generate(ctx, req)
	assert.Equal(t, SourceAI, letter.Source)
	assert.True(t, strings.HasPrefix(letter.Text, "Dear Hiring Manager,"))
	assert.Contains(t, letter.Text, "join Acme as a Data Analyst")
	assert.True(t, strings.HasSuffix(letter.Text, "Sincerely,\nAda"))

	prompt := mock.LastInput()[0].Content
	assert.Contains(t, prompt, "Skills: python, sql")
	assert.Contains(t, prompt, "Company: Acme")

	failing := NewCoverLetters(c, agent.NewMockChatClient("", errors.New("boom"))).Generate(ctx, req)
	assert.Equal(t, SourceTemplate, failing.Source)
	assert.Equal(t, "boom", failing.Reason)
	assert.Contains(t, failing.Text, "the Data Analyst position at Acme")

	none := NewCoverLetters(c, nil).Generate(ctx, req)
	assert.Equal(t, SourceTemplate, none.Source)
}

func TestCoverLetterPostProcessKeepsExistingClosing(t *testing.T) {
	cl := NewCoverLetters(catalog.MustDefault(), nil)
	out := cl.PostProcess("Dear Team,\n\nHello.\n\nBest regards,\n[your name]", "Bo", "ML Engineer", "X")
	assert.Equal(t, "Dear Team,\n\nHello.\n\nBest regards,\nBo", out)
}

func TestCoverLetterAnalyze(t *testing.T) {
	cl := NewCoverLetters(catalog.MustDefault(), nil)

	basic := cl.Analyze(cl.Basic("Ada", "Data Analyst", "Acme"))
	assert.True(t, basic.HasGreeting)
	assert.True(t, basic.HasClosing)
	assert.Equal(t, 5, basic.ParagraphCount)
	// 称呼 20 + 结尾 20
	assert.Equal(t, 40, basic.QualityScore)
	assert.Contains(t, basic.Suggestions, "Adjust length to 200-350 words for optimal impact")

	body := strings.Repeat("word ", 70)
	good := "Dear Hiring Manager,\n\n" + body + "my project experience.\n\n" + body + "your company mission.\n\n" + body + "\nSincerely,\nAda"
	a := cl.Analyze(good)
	assert.Equal(t, 4, a.ParagraphCount)
	assert.Equal(t, 100, a.QualityScore)
	assert.Empty(t, a.Suggestions)

	empty := cl.Analyze("")
	assert.Equal(t, 0, empty.QualityScore)
	assert.Len(t, empty.Suggestions, 6)
}

func TestCoverLetterTipsAndTemplates(t *testing.T) {
	c := catalog.MustDefault()
	cl := NewCoverLetters(c, nil)

	tips := cl.Tips("ML Engineer")
	assert.Greater(t, len(tips), len(c.GeneralCoverLetterTips))
	assert.Equal(t, c.GeneralCoverLetterTips, cl.Tips("Chef"))

	tpl, ok := cl.Templates("data analyst")
	require.True(t, ok)
	assert.Contains(t, tpl.Opening, "Data Analyst")
	_, ok = cl.Templates("Chef")
	assert.False(t, ok)
}

func TestInterviewQuestions(t *testing.T) {
	iv := NewInterview(catalog.MustDefault())
	assert.Len(t, iv.Questions("Backend Developer"), 3)
	assert.Empty(t, iv.Questions("Chef"))
	assert.NotNil(t, iv.Questions("Chef"))
	assert.NotEmpty(t, iv.PrepLinks())
}

func TestSimulatorRunsToCompletion(t *testing.T) {
	sim := NewSimulator(catalog.MustDefault())

	state := sim.Start("ML Engineer")
	step := sim.Current(state)
	assert.Equal(t, 1, step.Number)
	assert.Equal(t, 5, step.Total)
	assert.Equal(t, "Explain the bias-variance tradeoff in machine learning.", step.Question)

	for i := 0; i < 5; i++ {
		prev := state
		state = sim.Answer(state, "answer")
		assert.Equal(t, prev.Index+1, state.Index)
		assert.Len(t, prev.Answers, i, "Answer 不修改传入的状态")
	}
	assert.True(t, sim.Current(state).Done)
	assert.Equal(t, state, sim.Answer(state, "extra"))

	sum := sim.Summary(state)
	assert.True(t, sum.Completed)
	require.Len(t, sum.Items, 5)
	assert.Equal(t, "Good structure and clear explanation", sum.Items[0].Feedback)
	assert.Equal(t, "Consider adding more technical details", sum.Items[1].Feedback)
	assert.Equal(t, sum.Items[0].Feedback, sum.Items[4].Feedback)

	again := sim.Summary(state)
	assert.Equal(t, sum, again, "反馈是确定的")
}

func TestSimulatorUnknownRoleUsesDefault(t *testing.T) {
	c := catalog.MustDefault()
	sim := NewSimulator(c)
	state := sim.Start("Chef")
	assert.Equal(t, c.DefaultRole().Name, state.Role)
	assert.False(t, sim.Summary(state).Completed)
}

func TestPromptLoader(t *testing.T) {
	p, err := Prompt("chatbot_system")
	require.NoError(t, err)
	assert.NotEmpty(t, p)

	_, err = Prompt("missing")
	assert.Error(t, err)

	assert.Equal(t, "Hi Ada", FormatPrompt("Hi {{.Name}}", map[string]string{"Name": "Ada"}))
}
