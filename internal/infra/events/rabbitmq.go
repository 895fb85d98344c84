package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeType тип exchange: диспетчер подписывается по routing key reservation.*
const ExchangeType = "topic"

// amqpChannel часть *amqp.Channel, которая нужна publisher'у
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher публикует события в topic exchange, routing key = тип события
type RabbitMQPublisher struct {
	conn        *amqp.Connection
	channel     amqpChannel
	exchange    string
	serviceName string
}

// NewRabbitMQPublisher подключается к RabbitMQ и объявляет exchange
func NewRabbitMQPublisher(url, exchange, serviceName string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &RabbitMQPublisher{
		conn:        conn,
		channel:     ch,
		exchange:    exchange,
		serviceName: serviceName,
	}, nil
}

func newRabbitMQPublisherWithChannel(ch amqpChannel, exchange, serviceName string) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch, exchange: exchange, serviceName: serviceName}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPublish, event.Type, err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			AppId:        p.serviceName,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: rabbitmq %s: %v", ErrPublish, event.Type, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
