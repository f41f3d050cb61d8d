package outbox

import (
	"encoding/json"
	"fmt"

	"careercraft-go/internal/constants"
	"careercraft-go/internal/storage/models"
)

// NewAnalysisCompletedMessage 构造 analysis.completed 的 outbox 消息
func NewAnalysisCompletedMessage(evt models.AnalysisCompletedEvent, exchange, routingKey string) (*models.OutboxMessage, error) {
	if evt.RecordID == "" {
		return nil, fmt.Errorf("record_id 不能为空")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      evt.RecordID,
		EventType:        constants.EventAnalysisCompleted,
		Payload:          string(payload),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}
