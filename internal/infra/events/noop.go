package events

import "context"

// LogPublisher только пишет события в лог (events.backend = "none")
type LogPublisher struct {
	logger Logger
}

func NewLogPublisher(logger Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("Event %s id=%s key=%s payload=%s", event.Type, event.ID, event.Key, string(event.Payload))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
