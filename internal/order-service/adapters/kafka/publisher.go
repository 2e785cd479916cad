// Package kafka publishes order events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Producer is the subset of *kafka.Writer the publisher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter returns a writer that waits for all in-sync replicas.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

// Event is the JSON envelope written to the topic.
type Event struct {
	ID             string       `json:"eventId"`
	Type           string       `json:"type"`
	OccurredAt     time.Time    `json:"occurredAt"`
	PreviousStatus string       `json:"previousStatus,omitempty"`
	Order          OrderPayload `json:"order"`
}

type OrderPayload struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []ItemPayload   `json:"items"`
}

type ItemPayload struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Publisher struct {
	producer Producer
	topic    string
	log      *slog.Logger
	now      func() time.Time
}

func NewPublisher(producer Producer, topic string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, log: log, now: time.Now}
}

func (p *Publisher) OrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, EventOrderCreated, o, "")
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, o *domain.Order, previous domain.OrderStatus) error {
	return p.publish(ctx, EventOrderStatusChanged, o, string(previous))
}

func (p *Publisher) publish(ctx context.Context, eventType string, o *domain.Order, previous string) error {
	evt := Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OccurredAt:     p.now().UTC(),
		PreviousStatus: previous,
		Order:          payloadOf(o),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", eventType, err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(eventType)}}
	headers = injectTrace(ctx, headers)

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(strconv.FormatInt(o.ID, 10)),
		Value:   body,
		Headers: headers,
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s for order %d: %w", eventType, o.ID, err)
	}
	p.log.InfoContext(ctx, "event published", "event_id", evt.ID, "type", eventType, "order_id", o.ID)
	return nil
}

// injectTrace adds the W3C trace headers of ctx, if any.
func injectTrace(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func payloadOf(o *domain.Order) OrderPayload {
	out := OrderPayload{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Items:       make([]ItemPayload, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, ItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		})
	}
	return out
}
