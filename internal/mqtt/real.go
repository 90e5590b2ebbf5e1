package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/backup-sensor/internal/logic"
)

// QueueSize bounds how many messages are held while the broker is away.
const QueueSize = 256

// RealPublisher publishes to an actual MQTT broker.
//
// Publish and PublishSystem only enqueue; a sender goroutine delivers the
// queue whenever the client is connected, so the control loop never waits on
// the network.
type RealPublisher struct {
	client paho.Client

	mu    sync.Mutex
	queue *ringBuffer

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewRealPublisher creates a publisher for the given broker. Connection is
// established in the background and retried until Close.
func NewRealPublisher(broker string) *RealPublisher {
	p := newPublisher()

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("backup-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			p.signal()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	p.start()
	return p
}

func newPublisher() *RealPublisher {
	return &RealPublisher{
		queue: newRingBuffer(QueueSize),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// start launches the sender. The client must be set.
func (p *RealPublisher) start() {
	p.wg.Add(1)
	go p.sendLoop()
}

// Publish queues a range event. QoS 0 (at-most-once), not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.enqueue(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem queues a system lifecycle event. QoS 1 so lifecycle
// events survive a flaky link.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close stops the sender, makes a last attempt to deliver the queue and
// disconnects from the broker.
func (p *RealPublisher) Close() error {
	close(p.done)
	p.wg.Wait()
	p.flush()
	if n := p.Pending(); n > 0 {
		log.Printf("mqtt: %d messages undelivered at shutdown", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.queue.push(msg)
	p.mu.Unlock()
	p.signal()
}

func (p *RealPublisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *RealPublisher) sendLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			return
		}
	}
}

// flush sends queued messages in order. On the first failure the rest are
// put back for the next connect.
func (p *RealPublisher) flush() {
	if !p.client.IsConnectionOpen() {
		return
	}

	p.mu.Lock()
	msgs := p.queue.drainAll()
	p.mu.Unlock()

	for i, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish timeout, %d messages requeued", len(msgs)-i)
			p.requeue(msgs[i:])
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish error: %v, %d messages requeued", err, len(msgs)-i)
			p.requeue(msgs[i:])
			return
		}
	}
}

func (p *RealPublisher) requeue(msgs []bufferedMsg) {
	p.mu.Lock()
	p.queue.requeue(msgs)
	p.mu.Unlock()
}

// Pending returns the number of queued messages.
func (p *RealPublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}
