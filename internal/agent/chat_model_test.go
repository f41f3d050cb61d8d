package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModelRequiresKey(t *testing.T) {
	_, err := NewChatModel(Config{APIKey: "  "})
	require.Error(t, err)

	m, err := NewChatModel(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, m.ModelName())
	assert.Equal(t, DefaultAPIURL, m.cfg.APIURL)
}

func TestChatModelGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"Learn SQL first."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewChatModel(Config{APIKey: "secret", APIURL: srv.URL, Model: "qwen-turbo", Temperature: 0.7, MaxTokens: 300})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are a career advisor."),
		schema.UserMessage("What should I learn?"),
	}, model.WithMaxTokens(100))
	require.NoError(t, err)

	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "Learn SQL first.", msg.Content)

	assert.Equal(t, "qwen-turbo", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 100, *got.MaxTokens, "调用选项应覆盖配置")
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-6)
}

func TestChatModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":"slow down"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.True(t, apiErr.Retryable())
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":"bad"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.False(t, apiErr.Retryable())
			},
		},
		{
			name:   "empty choices",
			status: http.StatusOK,
			body:   `{"id":"x","choices":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyChoices)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, err := NewChatModel(Config{APIKey: "k", APIURL: srv.URL})
			require.NoError(t, err)
			_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
			tt.check(t, err)
		})
	}
}

func TestChatModelWithToolsDoesNotMutate(t *testing.T) {
	m, err := NewChatModel(Config{APIKey: "k"})
	require.NoError(t, err)

	bound, err := m.WithTools([]*schema.ToolInfo{{Name: "find_jobs", Desc: "search postings"}})
	require.NoError(t, err)
	assert.Empty(t, m.tools)
	assert.Len(t, bound.(*ChatModel).tools, 1)

	_, err = m.Stream(context.Background(), nil)
	assert.Error(t, err)
}

func TestMockChatClient(t *testing.T) {
	ctx := context.Background()

	fixed := NewMockChatClient("ok", nil)
	msg, err := fixed.Generate(ctx, []*schema.Message{schema.UserMessage("a")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 1, fixed.Calls())
	assert.Len(t, fixed.GetReceivedMessages(), 1)

	seq := NewMockChatClientSequential([]MockResponse{
		{Content: "first"},
		{Error: errors.New("boom")},
	})
	msg, err = seq.Generate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Content)
	_, err = seq.Generate(ctx, nil)
	assert.EqualError(t, err, "boom")
	_, err = seq.Generate(ctx, nil)
	assert.Error(t, err, "顺序响应用尽后应返回错误")

	empty := NewMockChatClientSequential(nil)
	_, err = empty.Generate(ctx, nil)
	assert.Error(t, err)
}
