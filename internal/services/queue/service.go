package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/phambaophuc/watermark-tool/internal/config"
	"github.com/phambaophuc/watermark-tool/internal/metrics"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Applier runs the watermark pipeline for one request.
type Applier interface {
	Apply(params models.WatermarkParameters) *models.CompositeResult
}

// ResultStore persists results and archives output images.
type ResultStore interface {
	SaveResult(ctx context.Context, stored *models.StoredResult) error
	ArchiveResult(ctx context.Context, result *models.CompositeResult) (string, error)
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type QueueService struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	publisher  publisher
	publishMu  sync.Mutex
	logger     *zap.Logger
	cfg        config.RabbitMQConfig
	compositor Applier
	store      ResultStore
	archive    bool
	observer   metrics.Observer

	// consumer goroutines still running
	activeWorkers atomic.Int32
	workers       sync.WaitGroup
}

type Option func(*QueueService)

// WithStore enables result persistence; archive also uploads output images.
func WithStore(store ResultStore, archive bool) Option {
	return func(q *QueueService) {
		q.store = store
		q.archive = archive
	}
}

func WithObserver(observer metrics.Observer) Option {
	return func(q *QueueService) {
		if observer != nil {
			q.observer = observer
		}
	}
}

// NewQueueService connects to RabbitMQ and declares the tool topology: a
// durable direct exchange, the request queue bound on the request key and
// the results queue bound on the results key.
func NewQueueService(
	cfg config.RabbitMQConfig,
	compositor Applier,
	logger *zap.Logger,
	opts ...Option,
) (*QueueService, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel, cfg); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	q := newQueueService(cfg, compositor, logger, opts...)
	q.conn = conn
	q.channel = channel
	q.publisher = channel
	return q, nil
}

func newQueueService(cfg config.RabbitMQConfig, compositor Applier, logger *zap.Logger, opts ...Option) *QueueService {
	q := &QueueService{
		logger:     logger,
		cfg:        cfg,
		compositor: compositor,
		observer:   metrics.NopObserver{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func declareTopology(channel *amqp.Channel, cfg config.RabbitMQConfig) error {
	if err := channel.ExchangeDeclare(
		cfg.Exchange,        // name
		amqp.ExchangeDirect, // kind
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, binding := range []struct{ queue, key string }{
		{cfg.RequestQueue, cfg.RequestKey},
		{cfg.ResultRoutingKey, cfg.ResultRoutingKey},
	} {
		if _, err := channel.QueueDeclare(
			binding.queue, // name
			true,          // durable
			false,         // delete when unused
			false,         // exclusive
			false,         // no-wait
			nil,           // arguments
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", binding.queue, err)
		}

		if err := channel.QueueBind(binding.queue, binding.key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", binding.queue, err)
		}
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	return nil
}

// Wait blocks until every worker has finished its in-flight message and
// returned, or until ctx is done.
func (q *QueueService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
