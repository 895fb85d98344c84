// Package events публикация доменных событий бронирований (RabbitMQ или Kafka)
package events

import (
	"context"
	"errors"
)

// ErrPublish ошибка публикации события
var ErrPublish = errors.New("events: failed to publish event")

// Publisher публикует события
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Metrics счетчик опубликованных событий
type Metrics interface {
	IncEvent(eventType string, ok bool)
}

// Instrumented считает опубликованные и неудавшиеся события
type Instrumented struct {
	next    Publisher
	metrics Metrics
}

// NewInstrumented оборачивает publisher метриками
func NewInstrumented(next Publisher, metrics Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

func (p *Instrumented) Publish(ctx context.Context, event Event) error {
	err := p.next.Publish(ctx, event)
	p.metrics.IncEvent(event.Type, err == nil)
	return err
}

func (p *Instrumented) Close() error {
	return p.next.Close()
}
