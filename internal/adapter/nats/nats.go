// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/playforge/levelboard/internal/logger"
	"github.com/playforge/levelboard/internal/port/messagequeue"
)

const streamName = "LEVELBOARD"

const (
	headerRequestID  = "Request-Id"
	headerRetryCount = "Retry-Count"

	// maxRetries is the number of redeliveries before a failing message is
	// parked on its DLQ subject.
	maxRetries = 3

	dlqSuffix = ".dlq"
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	// The wildcards also capture the per-subject ".dlq" parking subjects.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"batches.>", "levels.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject. A request ID present in the
// context is carried along as a header so subscribers can log under it.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header.Set(headerRequestID, reqID)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Payloads
// are validated against the schema registry before the handler runs; messages
// that fail validation, or whose handler keeps failing past maxRetries, are
// parked on "<subject>.dlq".
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
			slog.Error("message validation failed", "subject", msg.Subject(), "error", err)
			q.moveToDLQ(msg)
			return
		}

		msgCtx := context.Background()
		if reqID := msg.Headers().Get(headerRequestID); reqID != "" {
			msgCtx = logger.WithRequestID(msgCtx, reqID)
		}

		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			q.retryOrPark(msg)
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// retryOrPark republishes a failed message with an incremented retry count,
// or parks it on the DLQ once the count reaches maxRetries. Nak alone would
// redeliver the original headers forever, so the retry is a fresh publish.
func (q *Queue) retryOrPark(msg jetstream.Msg) {
	n := retryCount(msg.Headers())
	if n >= maxRetries {
		q.moveToDLQ(msg)
		return
	}

	retry := &nats.Msg{Subject: msg.Subject(), Data: msg.Data(), Header: nats.Header{}}
	for k, vals := range msg.Headers() {
		for _, v := range vals {
			retry.Header.Add(k, v)
		}
	}
	retry.Header.Set(headerRetryCount, strconv.Itoa(n+1))

	if _, err := q.js.PublishMsg(context.Background(), retry); err != nil {
		slog.Error("nats retry publish failed", "subject", msg.Subject(), "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

// moveToDLQ copies the message onto its ".dlq" subject and acks the original.
func (q *Queue) moveToDLQ(msg jetstream.Msg) {
	dlq := &nats.Msg{Subject: msg.Subject() + dlqSuffix, Data: msg.Data(), Header: msg.Headers()}
	if _, err := q.js.PublishMsg(context.Background(), dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", msg.Subject(), "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

// retryCount reads the Retry-Count header, defaulting to zero.
func retryCount(hdrs nats.Header) int {
	n, err := strconv.Atoi(hdrs.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

// KeyValue creates or binds a JetStream key-value bucket with the given TTL.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain gracefully drains all subscriptions before closing the connection.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// IsConnected reports whether the underlying NATS connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}
