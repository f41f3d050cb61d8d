package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercraft-go/internal/constants"
	"careercraft-go/internal/storage"
	"careercraft-go/internal/storage/models"
)

func TestApplyPublishResult(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending, ErrorMessage: "old"}
		applyPublishResult(msg, nil, now)
		assert.Equal(t, models.OutboxStatusSent, msg.Status)
		require.NotNil(t, msg.ProcessedAt)
		assert.Equal(t, now, *msg.ProcessedAt)
		assert.Empty(t, msg.ErrorMessage)
	})

	t.Run("failure below limit stays pending", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending}
		applyPublishResult(msg, errors.New("broker down"), now)
		assert.Equal(t, models.OutboxStatusPending, msg.Status)
		assert.Equal(t, 1, msg.RetryCount)
		assert.Equal(t, "broker down", msg.ErrorMessage)
		assert.Nil(t, msg.ProcessedAt)
	})

	t.Run("failure at limit marks failed", func(t *testing.T) {
		msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: maxRetryCount - 1}
		applyPublishResult(msg, errors.New("broker down"), now)
		assert.Equal(t, models.OutboxStatusFailed, msg.Status)
		assert.Equal(t, maxRetryCount, msg.RetryCount)
	})
}

func TestNewAnalysisCompletedMessage(t *testing.T) {
	evt := models.AnalysisCompletedEvent{
		RecordID:   "rec-1",
		SessionID:  "sess-1",
		Role:       "Data Analyst",
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	msg, err := NewAnalysisCompletedMessage(evt, "ex", "analysis.completed")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", msg.AggregateID)
	assert.Equal(t, constants.EventAnalysisCompleted, msg.EventType)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, "ex", msg.TargetExchange)

	var decoded models.AnalysisCompletedEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	assert.Equal(t, evt, decoded)

	_, err = NewAnalysisCompletedMessage(models.AnalysisCompletedEvent{}, "ex", "rk")
	assert.Error(t, err)
}

func TestProcessOnceSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := storage.NewRedisFromClient(client, nil)

	ctx := context.Background()
	token, err := locker.AcquireLock(ctx, constants.KeyOutboxRelayLock, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// 锁被其他实例持有时不访问数据库
	relay := NewMessageRelay(nil, nil, WithLocker(locker), WithBatchSize(3), WithPollingInterval(time.Second))
	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, relay.batchSize)
	assert.Equal(t, time.Second, relay.pollingInterval)

	got, err := client.Get(ctx, constants.KeyOutboxRelayLock).Result()
	require.NoError(t, err)
	assert.Equal(t, token, got, "不应释放他人的锁")
}

func TestStartStop(t *testing.T) {
	relay := NewMessageRelay(nil, nil, WithPollingInterval(time.Hour))
	relay.Start(context.Background())
	relay.Stop()
	relay.Stop()
}
