package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fraud-viewer/internal/broker/kafka"
	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/usecase/archive"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type messageSource interface {
	StartConsuming(ctx context.Context, out chan<- kafkago.Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg kafkago.Message) error
}

type eventArchiver interface {
	Archive(ctx context.Context, event domain.SubmissionEvent) (*archive.Result, error)
}

// Pool consumes submission events and archives them with a fixed number of workers.
// A message is committed once it is archived or known to need no archiving; failed
// messages stay uncommitted so the group redelivers them.
type Pool struct {
	source      messageSource
	archiver    eventArchiver
	strategy    retry.Strategy
	concurrency int
	logger      *zlog.Zerolog
	wg          sync.WaitGroup
}

func NewPool(source messageSource, archiver eventArchiver, strategy retry.Strategy, concurrency int, logger *zlog.Zerolog) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Pool{
		source:      source,
		archiver:    archiver,
		strategy:    strategy,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info().Int("concurrency", p.concurrency).Msg("Starting worker pool")

	messages := make(chan kafkago.Message, p.concurrency*2)
	go p.source.StartConsuming(ctx, messages, p.strategy)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.processWorker(ctx, id, messages)
		}(i)
	}

	<-ctx.Done()
	p.logger.Info().Msg("Shutting down worker pool")
	p.wg.Wait()
}

func (p *Pool) processWorker(ctx context.Context, id int, messages <-chan kafkago.Message) {
	p.logger.Info().Int("worker_id", id).Msg("Worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case msg := <-messages:
			startTime := time.Now()

			if err := p.safeProcessMessage(ctx, id, msg); err != nil {
				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to process message")
				continue
			}

			if err := p.source.Commit(ctx, msg); err != nil {
				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to commit message")
				continue
			}

			p.logger.Debug().
				Int("worker_id", id).
				Int64("offset", msg.Offset).
				Dur("duration", time.Since(startTime)).
				Msg("Message processed and committed")
		}
	}
}

func (p *Pool) safeProcessMessage(ctx context.Context, workerID int, msg kafkago.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Int64("offset", msg.Offset).
				Msg("Panic recovered while processing message")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.processMessage(ctx, msg)
}

// processMessage returns nil for messages that should be committed, including
// undecodable ones and events that have nothing to archive.
func (p *Pool) processMessage(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.DecodeEvent(msg)
	if err != nil {
		p.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Dropping undecodable event")
		return nil
	}

	result, err := p.archiver.Archive(ctx, event)
	if errors.Is(err, archive.ErrNotArchivable) {
		p.logger.Debug().
			Str("submission_id", event.ID).
			Str("status", string(event.Status)).
			Msg("Event needs no archiving")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to archive submission %s: %w", event.ID, err)
	}

	p.logger.Info().
		Str("submission_id", event.ID).
		Str("prefix", result.Prefix).
		Int("objects", len(result.Paths)).
		Msg("Submission archived")

	return nil
}
