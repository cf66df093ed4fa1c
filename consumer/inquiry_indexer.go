package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ziwuxx-intake/config"
	"ziwuxx-intake/models"
	"ziwuxx-intake/monitoring"
	"ziwuxx-intake/utils"
)

const (
	maxIndexAttempts = 3
	readRetryDelay   = 5 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// InquiryIndexer copies submitted inquiries from Kafka into Elasticsearch
// so staff can search them.
type InquiryIndexer struct {
	reader   messageReader
	es       utils.ElasticsearchClient
	index    string
	logger   *zap.Logger
	backoff  time.Duration
	started  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
}

func NewInquiryIndexer(cfg config.KafkaConfig, index string, es utils.ElasticsearchClient, logger *zap.Logger) *InquiryIndexer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Broker},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		MaxWait: 10 * time.Second,
	})
	return newInquiryIndexer(reader, index, es, logger)
}

func newInquiryIndexer(reader messageReader, index string, es utils.ElasticsearchClient, logger *zap.Logger) *InquiryIndexer {
	return &InquiryIndexer{
		reader:   reader,
		es:       es,
		index:    index,
		logger:   logger,
		backoff:  500 * time.Millisecond,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *InquiryIndexer) Start(ctx context.Context) {
	c.logger.Info("starting inquiry indexer", zap.String("index", c.index))
	c.started.Store(true)

	go func() {
		defer close(c.done)
		for {
			select {
			case <-c.shutdown:
				return
			case <-ctx.Done():
				return
			default:
				c.processMessage(ctx)
			}
		}
	}()
}

// Stop closes the reader and waits for the loop to exit.
func (c *InquiryIndexer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing kafka reader", zap.Error(err))
	}
	if c.started.Load() {
		<-c.done
	}
}

func (c *InquiryIndexer) processMessage(ctx context.Context) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return
		}
		c.logger.Warn("kafka read error, will retry", zap.Error(err))
		c.sleep(ctx, readRetryDelay)
		return
	}

	if err := c.handle(ctx, msg); err != nil {
		monitoring.IndexedInquiries.WithLabelValues("failed").Inc()
		c.logger.Error("dropping inquiry event",
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
	}

	// commit even on failure so one bad event cannot stall the partition
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Warn("failed to commit kafka offset", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

func (c *InquiryIndexer) handle(ctx context.Context, msg kafka.Message) error {
	var event models.InquiryEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	switch event.Event {
	case models.EventInquirySubmitted:
		return c.indexInquiry(ctx, event.Data)
	default:
		monitoring.IndexedInquiries.WithLabelValues("skipped").Inc()
		c.logger.Debug("ignoring event", zap.String("event", event.Event))
		return nil
	}
}

func (c *InquiryIndexer) indexInquiry(ctx context.Context, inquiry models.Inquiry) error {
	id := strconv.FormatUint(uint64(inquiry.ID), 10)
	backoff := c.backoff

	var err error
	for attempt := 1; attempt <= maxIndexAttempts; attempt++ {
		if err = c.es.IndexDocument(ctx, c.index, id, inquiry); err == nil {
			monitoring.IndexedInquiries.WithLabelValues("indexed").Inc()
			c.logger.Info("indexed inquiry", zap.String("id", id))
			return nil
		}
		if attempt < maxIndexAttempts && !c.sleep(ctx, backoff) {
			break
		}
		backoff *= 2
	}
	return err
}

// sleep waits for d and reports false if interrupted by shutdown.
func (c *InquiryIndexer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.shutdown:
		return false
	case <-ctx.Done():
		return false
	}
}
