// Package service provides publishers for domain events sent to RabbitMQ.
// Errors are logged and returned so callers can ignore them without
// interrupting the request that produced the event.
package service

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/visit-counter/internal/queue"
)

// VisitPublisher publishes VisitRecordedEvent messages to a durable queue.
// Each Publish dials its own connection, so a broker that is down at
// startup or restarts later needs no reconnect handling here.
type VisitPublisher struct {
	URL   string
	Queue string
}

func NewVisitPublisher(url, queue string) *VisitPublisher {
	return &VisitPublisher{URL: url, Queue: queue}
}

// Publish sends event as a persistent JSON message routed through the
// default exchange to p.Queue.
func (p *VisitPublisher) Publish(ctx context.Context, event q.VisitRecordedEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: dialer(ctx)})
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// dialer bounds the TCP dial by ctx's deadline, falling back to the
// library's default timeout.
func dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	timeout := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return amqp.DefaultDial(timeout)
}
