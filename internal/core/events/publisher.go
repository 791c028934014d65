package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Type string

const (
	LoanBorrowed Type = "loan.borrowed"
	LoanReturned Type = "loan.returned"
	LoanDeleted  Type = "loan.deleted"
)

// LoanEvent 借阅状态变更，事务提交后发布
type LoanEvent struct {
	Type       Type       `json:"type"`
	LoanID     string     `json:"loan_id"`
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_date"`
	ReturnedAt *time.Time `json:"returned_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev LoanEvent) error
	Close()
}

// Nop 未配置 MQ 时使用
type Nop struct{}

func (Nop) Publish(context.Context, LoanEvent) error { return nil }
func (Nop) Close()                                   {}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher 发到默认 exchange，routing key = queue
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    channel
	Queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// durable 队列
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev LoanEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(ev.Type),
		MessageId:    ev.LoanID,
		Timestamp:    ev.OccurredAt,
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
