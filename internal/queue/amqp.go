package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// AMQPQueue bridges the Queue interface onto a RabbitMQ channel so the
// server hands reconcile jobs to the out-of-process worker. Payloads are
// outbound call ids, carried as {"outbound_call_id": n} JSON.
type AMQPQueue struct {
	Channel *amqp.Channel
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	callID, ok := payload.(int)
	if !ok {
		return fmt.Errorf("unsupported payload type %T for topic %s", payload, topic)
	}

	queue, err := q.Channel.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]int{"outbound_call_id": callID})
	if err != nil {
		return err
	}

	return q.Channel.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes the topic with manual acks; a handler error requeues
// the delivery. cmd/worker carries its own consume loop with bounded
// retries, this one serves in-process subscribers.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	queue, err := q.Channel.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return err
	}

	msgs, err := q.Channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var job struct {
				OutboundCallID int `json:"outbound_call_id"`
			}
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("⚠️ Dropping malformed queue message:", err)
				d.Ack(false)
				continue
			}
			if err := handler(job.OutboundCallID); err != nil {
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()

	return nil
}

var _ Queue = (*AMQPQueue)(nil)
var _ Queue = (*InMemoryQueue)(nil)
