package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/watermark-tool/internal/metrics"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) StartWorker(ctx context.Context, workerID int) error {
	msgs, err := q.channel.Consume(
		q.cfg.RequestQueue,                 // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))
	q.runWorker(ctx, workerID, msgs)
	return nil
}

// runWorker consumes msgs until ctx is canceled or the channel closes. A
// message already taken is processed to completion, acknowledgement
// included, even when ctx is canceled meanwhile.
func (q *QueueService) runWorker(ctx context.Context, workerID int, msgs <-chan amqp.Delivery) {
	q.activeWorkers.Add(1)
	q.workers.Add(1)
	go func() {
		defer q.workers.Done()
		defer q.activeWorkers.Add(-1)

		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
					return
				}

				q.processMessage(context.WithoutCancel(ctx), msg, workerID)
			}
		}
	}()
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	var req models.RequestMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		q.logger.Error("Failed to unmarshal request",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		q.observer.RecordQueueMessage(metrics.OutcomeMalformed)
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	if req.Procedure != models.ProcedureWatermark {
		q.logger.Warn("Rejecting request for unknown procedure",
			zap.String("request_id", req.MessageID),
			zap.String("procedure", req.Procedure),
			zap.Int("worker_id", workerID))
		q.observer.RecordQueueMessage(metrics.OutcomeRejected)
		msg.Reject(false)
		return
	}

	q.logger.Info("Processing request",
		zap.String("request_id", req.MessageID),
		zap.Int("worker_id", workerID))

	params := req.Parameters
	if params.MessageID == "" {
		params.MessageID = req.MessageID
	}

	start := time.Now()
	result := q.compositor.Apply(params)
	q.observer.RecordApply(metrics.SourceQueue, result.Status, time.Since(start))

	if result.Succeeded() {
		q.logger.Info("Watermark applied",
			zap.String("request_id", req.MessageID),
			zap.String("message_id", result.MessageID),
			zap.Duration("duration", time.Since(start)))
	} else {
		q.logger.Warn("Watermark request failed",
			zap.String("request_id", req.MessageID),
			zap.String("message_id", result.MessageID),
			zap.String("error", result.Error.Message))
	}

	q.storeResult(ctx, req.MessageID, result)

	if err := q.publishResult(req.MessageID, result); err != nil {
		q.logger.Error("Failed to publish result",
			zap.String("request_id", req.MessageID),
			zap.Error(err))
		q.observer.RecordQueueMessage(metrics.OutcomeRequeued)
		msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("request_id", req.MessageID),
			zap.Error(err))
		return
	}
	q.observer.RecordQueueMessage(metrics.OutcomeProcessed)
}

// storeResult saves the result (and archives its image when enabled). Storage
// problems are logged; they never fail the request.
func (q *QueueService) storeResult(ctx context.Context, requestID string, result *models.CompositeResult) {
	if q.store == nil {
		return
	}

	stored := &models.StoredResult{
		RequestID: requestID,
		Result:    result,
		StoredAt:  time.Now(),
	}

	if q.archive && result.Succeeded() {
		url, err := q.store.ArchiveResult(ctx, result)
		if err != nil {
			q.logger.Warn("Failed to archive output image",
				zap.String("message_id", result.MessageID),
				zap.Error(err))
		} else {
			stored.ArchiveURL = url
		}
	}

	if err := q.store.SaveResult(ctx, stored); err != nil {
		q.logger.Warn("Failed to store result",
			zap.String("message_id", result.MessageID),
			zap.Error(err))
		return
	}

	q.logger.Info("Result stored",
		zap.String("message_id", result.MessageID),
		zap.String("status", result.Status))
}
