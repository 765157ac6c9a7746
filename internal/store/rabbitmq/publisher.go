package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// JobMessage carries only the job id; workers load parameters from the Jobs
// table so a replayed message never runs with stale inputs.
type JobMessage struct {
	JobID    string `json:"job_id"`
	Attempt  int    `json:"attempt"`
	Enqueued string `json:"enqueued"`
}

// Topology names the three queues derived from the main queue name.
type Topology struct {
	Main  string
	Retry string
	DLQ   string
}

func TopologyFor(queue string) Topology {
	return Topology{Main: queue, Retry: queue + ".retry", DLQ: queue + ".dlq"}
}

// DeclareTopology declares the main queue, a retry queue that dead-letters
// back into it, and a DLQ fed by rejected deliveries. Both the publisher and
// the worker declare the same layout so either side can start first.
func DeclareTopology(ch *amqp.Channel, t Topology) error {
	if _, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", t.DLQ, err)
	}
	if _, err := ch.QueueDeclare(t.Retry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.Main,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", t.Retry, err)
	}
	if _, err := ch.QueueDeclare(t.Main, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.DLQ,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", t.Main, err)
	}
	return nil
}

// Publisher enqueues generation jobs for the worker binary.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	topology Topology
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	t := TopologyFor(queue)
	if err := DeclareTopology(ch, t); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, topology: t}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishJob puts a job on the main queue.
func (p *Publisher) PublishJob(ctx context.Context, jobID string) error {
	return publishOn(ctx, p.ch, p.topology.Main, JobMessage{
		JobID:    jobID,
		Attempt:  1,
		Enqueued: time.Now().UTC().Format(time.RFC3339),
	}, 0)
}

// MaxAttempts bounds how often a failed job re-enters the main queue.
const MaxAttempts = 3

// NextRetry decides whether a failed delivery gets another attempt and how
// long it parks on the retry queue first. The delay grows linearly with the
// attempt count.
func NextRetry(msg JobMessage) (time.Duration, bool) {
	if msg.Attempt >= MaxAttempts {
		return 0, false
	}
	attempt := msg.Attempt
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * 30 * time.Second, true
}

// PublishRetryOn parks a failed job on the retry queue over an existing
// channel; the per-message TTL dead-letters it back onto the main queue
// after the delay. The worker calls this with its consumer connection.
func PublishRetryOn(ctx context.Context, ch *amqp.Channel, t Topology, msg JobMessage, delay time.Duration) error {
	msg.Attempt++
	return publishOn(ctx, ch, t.Retry, msg, delay)
}

func publishOn(ctx context.Context, ch *amqp.Channel, queue string, msg JobMessage, ttl time.Duration) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	}
	if ttl > 0 {
		pub.Expiration = fmt.Sprintf("%d", ttl.Milliseconds())
	}

	cctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ch.PublishWithContext(cctx, "", queue, false, false, pub)
}
