// Package messaging は注文イベントの通知（Kafka / ログ）。
package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"storefront/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("storefront/messaging")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer は注文イベントをKafkaへ送る。キーは注文IDなので同じ注文の順番は保たれる。
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer は非同期で送るWriterを作る（注文処理を待たせない）。
func NewProducer(brokers []string, topic string, log logrus.FieldLogger) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
			Async:                  true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.WithError(err).WithField("count", len(messages)).Warn("kafka delivery failed")
				}
			},
		},
	}
}

func newProducerWithWriter(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Notify はusecase.Notifierを満たす。
func (p *Producer) Notify(ctx context.Context, n model.OrderNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := strconv.FormatInt(n.OrderID, 10)

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(n.Event)},
		},
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// LogNotifier はKafkaが無い環境用。ログに出すだけ。
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, ev model.OrderNotification) error {
	n.log.WithFields(logrus.Fields{
		"event_id":    ev.EventID,
		"event":       ev.Event,
		"order_id":    ev.OrderID,
		"customer_id": ev.CustomerID,
		"from":        ev.From,
		"to":          ev.To,
	}).Info("order event")
	return nil
}
