package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PublishRequest enqueues a watermark request and returns its message id.
func (q *QueueService) PublishRequest(ctx context.Context, params models.WatermarkParameters) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := models.RequestMessage{
		MessageID:  uuid.New().String(),
		Timestamp:  models.NewTimestamp(time.Now().UTC()),
		Procedure:  models.ProcedureWatermark,
		Parameters: params,
	}
	if req.Parameters.MessageID == "" {
		req.Parameters.MessageID = req.MessageID
	}

	if err := q.publishJSON(q.cfg.RequestKey, req.MessageID, "", req); err != nil {
		return "", err
	}

	q.logger.Info("Request published to queue", zap.String("request_id", req.MessageID))
	return req.MessageID, nil
}

// publishResult sends the result envelope on the results routing key.
func (q *QueueService) publishResult(requestID string, result *models.CompositeResult) error {
	msg := models.ResultMessage{
		MessageID:     uuid.New().String(),
		CorrelationID: requestID,
		Timestamp:     models.NewTimestamp(time.Now().UTC()),
		Status:        result.Status,
		Output:        result,
	}
	return q.publishJSON(q.cfg.ResultRoutingKey, msg.MessageID, requestID, msg)
}

func (q *QueueService) publishJSON(routingKey, messageID, correlationID string, payload interface{}) error {
	if q.publisher == nil {
		return fmt.Errorf("queue publisher not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	q.publishMu.Lock()
	defer q.publishMu.Unlock()

	err = q.publisher.Publish(
		q.cfg.Exchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
			MessageId:     messageID,
			CorrelationId: correlationID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
