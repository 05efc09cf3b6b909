// Package messaging publica en Kafka los eventos de operaciones confirmadas.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/application/ports"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// EventOperationRecorded tipo de evento publicado por cada operación confirmada.
const EventOperationRecorded = "operation.recorded"

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 1
)

// MessageProducer lo que el publicador necesita de un writer de Kafka.
type MessageProducer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

var _ ports.OperationEventPublisher = (*Publisher)(nil)

// Publisher publica OperationRecordedEvent con clave item_id, para conservar el orden por ítem.
type Publisher struct {
	producer MessageProducer
}

// NewPublisher crea un writer instrumentado con OpenTelemetry que propaga el trace en los headers.
func NewPublisher(brokers []string, topic, clientID string, tp trace.TracerProvider) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: sin brokers")
	}
	baseWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		BatchSize:    batchSize,
	}
	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", clientID),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka writer: %w", err)
	}
	return NewPublisherWithProducer(writer), nil
}

// NewPublisherWithProducer usa un producer ya construido.
func NewPublisherWithProducer(p MessageProducer) *Publisher {
	return &Publisher{producer: p}
}

// PublishOperationRecorded serializa el registro y lo escribe en el tópico.
func (p *Publisher) PublishOperationRecorded(ctx context.Context, rec *entity.OperationRecord) error {
	payload, err := json.Marshal(dto.OperationRecordedEvent{
		EventType:  EventOperationRecorded,
		OccurredAt: rec.CreatedAt,
		Operation:  *inventory.ToOperationResponse(rec),
	})
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.ItemID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOperationRecorded)},
		},
	}
	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("publicar evento: %w", err)
	}
	return nil
}

// Close cierra el writer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
