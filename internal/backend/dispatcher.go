package backend

import (
	"context"
	"fmt"

	"ecobud/internal/amqp"
	"ecobud/internal/jobs"
	"ecobud/internal/jobs/inmemory"
	"ecobud/internal/log"
)

// DispatcherConfig selects where sync jobs run
type DispatcherConfig struct {
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	Workers      int
	QueueSize    int
	MaxJobs      int
}

// Dispatcher carries sync jobs to whatever runs them. With AMQP the jobs
// leave the process and Jobs tracks only what this process published.
type Dispatcher struct {
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	// Queue is set when jobs run in-process and must be started with a handler
	Queue *inmemory.Queue
	// Broker is set when jobs go through AMQP
	Broker *amqp.Client
}

// NewDispatcher connects to the broker when one is configured, and
// otherwise builds the in-process queue.
func NewDispatcher(cfg DispatcherConfig, logger *log.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBackend)
	store := inmemory.NewStore(cfg.MaxJobs)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		logger.Info("Sync jobs dispatched over AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return &Dispatcher{
			Publisher: &trackingPublisher{Publisher: client, store: store},
			Jobs:      store,
			Broker:    client,
		}, nil
	}

	qcfg := inmemory.DefaultQueueConfig()
	if cfg.Workers > 0 {
		qcfg.Workers = cfg.Workers
	}
	if cfg.QueueSize > 0 {
		qcfg.BufferSize = cfg.QueueSize
	}
	queue := inmemory.NewQueue(qcfg, store)
	logger.Info("Sync jobs run in-process", "workers", qcfg.Workers, "buffer", qcfg.BufferSize)
	return &Dispatcher{Publisher: queue, Jobs: store, Queue: queue}, nil
}

// Close releases the queue or the broker connection
func (d *Dispatcher) Close() error {
	return d.Publisher.Close()
}

// trackingPublisher records each job before handing it to the broker
type trackingPublisher struct {
	jobs.Publisher
	store jobs.JobStore
}

func (p *trackingPublisher) PublishSync(ctx context.Context, job *jobs.SyncJob) error {
	if err := p.Publisher.PublishSync(ctx, job); err != nil {
		return err
	}
	return p.store.SaveJob(ctx, job)
}
