package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phambaophuc/watermark-tool/internal/config"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ackCall struct {
	kind    string
	requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.record(ackCall{kind: "ack"})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.record(ackCall{kind: "nack", requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.record(ackCall{kind: "reject", requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) record(c ackCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	err  error
	sent []published
}

func (f *fakePublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type fakeApplier struct {
	calls  []models.WatermarkParameters
	result *models.CompositeResult
}

func (f *fakeApplier) Apply(params models.WatermarkParameters) *models.CompositeResult {
	f.calls = append(f.calls, params)
	return f.result
}

type fakeStore struct {
	saved      []*models.StoredResult
	archived   int
	archiveErr error
}

func (f *fakeStore) SaveResult(ctx context.Context, stored *models.StoredResult) error {
	f.saved = append(f.saved, stored)
	return nil
}

func (f *fakeStore) ArchiveResult(ctx context.Context, result *models.CompositeResult) (string, error) {
	f.archived++
	if f.archiveErr != nil {
		return "", f.archiveErr
	}
	return "https://storage.example/watermarked/out.png", nil
}

func testConfig() config.RabbitMQConfig {
	return config.RabbitMQConfig{
		Exchange:         "picturas.tools",
		RequestQueue:     "watermark-requests",
		RequestKey:       "requests.watermark",
		ResultRoutingKey: "results",
	}
}

func newTestService(applier Applier, pub publisher, opts ...Option) *QueueService {
	q := newQueueService(testConfig(), applier, zap.NewNop(), opts...)
	q.publisher = pub
	return q
}

func delivery(t *testing.T, ack amqp.Acknowledger, body interface{}) amqp.Delivery {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: raw}
}

func watermarkRequest() models.RequestMessage {
	return models.RequestMessage{
		MessageID: "req-1",
		Procedure: models.ProcedureWatermark,
		Parameters: models.WatermarkParameters{
			UserID:        "u1",
			ProjectID:     "p1",
			InputImageURI: "data:image/png;base64,AA==",
		},
	}
}

func TestProcessMessageSuccess(t *testing.T) {
	result := models.NewSuccessResult("m1", "u1", "p1", "data:image/png;base64,AA==")
	applier := &fakeApplier{result: result}
	pub := &fakePublisher{}
	store := &fakeStore{}
	ack := &fakeAcknowledger{}

	q := newTestService(applier, pub, WithStore(store, true))
	q.processMessage(context.Background(), delivery(t, ack, watermarkRequest()), 1)

	require.Len(t, applier.calls, 1)
	assert.Equal(t, "req-1", applier.calls[0].MessageID, "request id fills an empty parameter id")

	require.Len(t, pub.sent, 1)
	sent := pub.sent[0]
	assert.Equal(t, "picturas.tools", sent.exchange)
	assert.Equal(t, "results", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "req-1", sent.msg.CorrelationId)

	var msg models.ResultMessage
	require.NoError(t, json.Unmarshal(sent.msg.Body, &msg))
	assert.Equal(t, "req-1", msg.CorrelationID)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, models.StatusSuccess, msg.Status)
	require.NotNil(t, msg.Output)
	assert.Equal(t, "m1", msg.Output.MessageID)

	assert.Equal(t, 1, store.archived)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "req-1", store.saved[0].RequestID)
	assert.Equal(t, "https://storage.example/watermarked/out.png", store.saved[0].ArchiveURL)

	assert.Equal(t, []ackCall{{kind: "ack"}}, ack.calls)
}

func TestProcessMessageErrorResultIsPublished(t *testing.T) {
	result := models.NewErrorResult("m2", "u1", "p1", "bad", errors.New("failed to decode image"))
	pub := &fakePublisher{}
	store := &fakeStore{}
	ack := &fakeAcknowledger{}

	q := newTestService(&fakeApplier{result: result}, pub, WithStore(store, true))
	q.processMessage(context.Background(), delivery(t, ack, watermarkRequest()), 1)

	require.Len(t, pub.sent, 1)
	var msg models.ResultMessage
	require.NoError(t, json.Unmarshal(pub.sent[0].msg.Body, &msg))
	assert.Equal(t, models.StatusError, msg.Status)
	assert.Equal(t, models.ErrorCodeInvalidInput, msg.Output.Error.Code)

	assert.Zero(t, store.archived, "failed results are never archived")
	assert.Len(t, store.saved, 1)
	assert.Equal(t, []ackCall{{kind: "ack"}}, ack.calls)
}

func TestProcessMessageArchiveFailureStillStores(t *testing.T) {
	result := models.NewSuccessResult("m3", "u1", "p1", "data:image/png;base64,AA==")
	store := &fakeStore{archiveErr: errors.New("bucket missing")}
	ack := &fakeAcknowledger{}

	q := newTestService(&fakeApplier{result: result}, &fakePublisher{}, WithStore(store, true))
	q.processMessage(context.Background(), delivery(t, ack, watermarkRequest()), 1)

	require.Len(t, store.saved, 1)
	assert.Empty(t, store.saved[0].ArchiveURL)
	assert.Equal(t, []ackCall{{kind: "ack"}}, ack.calls)
}

func TestProcessMessageMalformed(t *testing.T) {
	applier := &fakeApplier{}
	pub := &fakePublisher{}
	ack := &fakeAcknowledger{}

	q := newTestService(applier, pub)
	q.processMessage(context.Background(), delivery(t, ack, []byte("{not json")), 1)

	assert.Empty(t, applier.calls)
	assert.Empty(t, pub.sent)
	assert.Equal(t, []ackCall{{kind: "nack", requeue: false}}, ack.calls)
}

func TestProcessMessageUnknownProcedure(t *testing.T) {
	applier := &fakeApplier{}
	ack := &fakeAcknowledger{}

	req := watermarkRequest()
	req.Procedure = "binarization"

	q := newTestService(applier, &fakePublisher{})
	q.processMessage(context.Background(), delivery(t, ack, req), 1)

	assert.Empty(t, applier.calls)
	assert.Equal(t, []ackCall{{kind: "reject", requeue: false}}, ack.calls)
}

func TestProcessMessagePublishFailureRequeues(t *testing.T) {
	result := models.NewSuccessResult("m4", "u1", "p1", "data:image/png;base64,AA==")
	ack := &fakeAcknowledger{}

	q := newTestService(&fakeApplier{result: result}, &fakePublisher{err: errors.New("channel closed")})
	q.processMessage(context.Background(), delivery(t, ack, watermarkRequest()), 1)

	assert.Equal(t, []ackCall{{kind: "nack", requeue: true}}, ack.calls)
}

func TestPublishRequest(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestService(&fakeApplier{}, pub)

	id, err := q.PublishRequest(context.Background(), models.WatermarkParameters{
		UserID:        "u1",
		ProjectID:     "p1",
		InputImageURI: "data:image/png;base64,AA==",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "requests.watermark", pub.sent[0].key)
	assert.Equal(t, id, pub.sent[0].msg.MessageId)

	var req models.RequestMessage
	require.NoError(t, json.Unmarshal(pub.sent[0].msg.Body, &req))
	assert.Equal(t, id, req.MessageID)
	assert.Equal(t, models.ProcedureWatermark, req.Procedure)
	assert.Equal(t, id, req.Parameters.MessageID)
	assert.Equal(t, "u1", req.Parameters.UserID)
}

func TestPublishRequestCanceled(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestService(&fakeApplier{}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.PublishRequest(ctx, models.WatermarkParameters{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.sent)
}

func TestHealthCheckWithoutConnection(t *testing.T) {
	q := newTestService(&fakeApplier{}, &fakePublisher{})
	assert.Equal(t, "unhealthy: connection closed", q.HealthCheck())
	assert.NoError(t, q.Close())
}

func TestProcessMessageAcceptsProducerEnvelope(t *testing.T) {
	result := models.NewSuccessResult("m5", "u1", "p1", "data:image/png;base64,AA==")
	applier := &fakeApplier{result: result}
	pub := &fakePublisher{}
	ack := &fakeAcknowledger{}

	// Zone-less timestamp and string configValue, as the upstream producer writes them.
	body := []byte(`{
		"messageId": "req-9",
		"timestamp": "2024-05-01T12:00:00.123456",
		"procedure": "watermark",
		"parameters": {
			"messageId": "param-9",
			"user_id": "u1",
			"project_id": "p1",
			"inputImageURI": "data:image/png;base64,AA==",
			"configValue": "0.5",
			"configColor": "#ffffff"
		}
	}`)

	q := newTestService(applier, pub)
	q.processMessage(context.Background(), delivery(t, ack, body), 1)

	require.Len(t, applier.calls, 1)
	got := applier.calls[0]
	assert.Equal(t, "param-9", got.MessageID)
	require.NotNil(t, got.ConfigValue)
	assert.Equal(t, 0.5, got.ConfigValue.Float64())

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "req-9", pub.sent[0].msg.CorrelationId)
	assert.Equal(t, []ackCall{{kind: "ack"}}, ack.calls)
}

type blockingApplier struct {
	started chan struct{}
	release chan struct{}
	result  *models.CompositeResult
}

func (b *blockingApplier) Apply(params models.WatermarkParameters) *models.CompositeResult {
	close(b.started)
	<-b.release
	return b.result
}

func TestWaitDrainsInFlightMessage(t *testing.T) {
	applier := &blockingApplier{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  models.NewSuccessResult("m6", "u1", "p1", "data:image/png;base64,AA=="),
	}
	ack := &fakeAcknowledger{}
	q := newTestService(applier, &fakePublisher{})

	msgs := make(chan amqp.Delivery, 1)
	msgs <- delivery(t, ack, watermarkRequest())

	ctx, cancel := context.WithCancel(context.Background())
	q.runWorker(ctx, 1, msgs)

	<-applier.started
	cancel()

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, q.Wait(short), context.DeadlineExceeded)

	close(applier.release)
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, []ackCall{{kind: "ack"}}, ack.calls)
	assert.Zero(t, q.activeWorkers.Load())
}

func TestWaitReturnsWhenDeliveriesClose(t *testing.T) {
	q := newTestService(&fakeApplier{}, &fakePublisher{})

	msgs := make(chan amqp.Delivery)
	q.runWorker(context.Background(), 1, msgs)
	assert.Equal(t, int32(1), q.activeWorkers.Load())

	close(msgs)
	require.NoError(t, q.Wait(context.Background()))
	assert.Zero(t, q.activeWorkers.Load())
}
