package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yeremiapane/cafe-pos/utils"
)

// Routing keys on the events exchange.
const (
	RoutingBillUpdated = "bill.updated"
	RoutingBillPaid    = "bill.paid"
	RoutingStockLow    = "stock.low"
)

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

type BillEvent struct {
	BillID    uint      `json:"bill_id"`
	TableID   uint      `json:"table_id"`
	Status    int       `json:"status"`
	Lines     int       `json:"lines"`
	SubTotal  float64   `json:"sub_total"`
	Total     float64   `json:"total"`
	UserName  string    `json:"user_name"`
	Timestamp time.Time `json:"timestamp"`
}

type StockAlert struct {
	Kind     string  `json:"kind"` // "material" or "drink"
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	utils.InfoLogger.WithField("routing_key", routingKey).Debugf("event: %+v", payload)
	return nil
}

func (LogPublisher) Close() error { return nil }

// publish never fails the caller; the database is the source of truth.
func publish(ctx context.Context, p EventPublisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, payload); err != nil {
		utils.ErrorLogger.Errorf("Failed to publish %s: %v", routingKey, err)
	}
}
