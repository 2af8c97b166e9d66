package alert

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// bufferCapacity bounds the number of alerts held while the broker is
// unreachable. Oldest alerts are dropped on overflow.
const bufferCapacity = 256

// RealReporter publishes alerts to an MQTT broker. While the broker is
// unreachable, alerts are held in a ring buffer and replayed on reconnect
// so operators still see them after an outage.
type RealReporter struct {
	client paho.Client
	now    func() time.Time

	mu  sync.Mutex // guards buf against paho callback goroutines
	buf *ringBuffer
}

// NewRealReporter creates a reporter connected to the given broker.
// Connection is established in the background and retried; Report buffers
// until it succeeds.
func NewRealReporter(broker string) *RealReporter {
	r := &RealReporter{
		now: time.Now,
		buf: newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("safety-interlock").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(r.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("alert: broker connection lost: %v", err)
		})

	r.client = paho.NewClient(opts)
	token := r.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("alert: initial connect: %v", err)
		}
	}()

	return r
}

// Report publishes the alert, buffering it if the broker is unreachable.
func (r *RealReporter) Report(sev Severity, message string) error {
	payload, err := FormatPayload(Alert{Timestamp: r.now(), Severity: sev, Message: message})
	if err != nil {
		return fmt.Errorf("format alert: %w", err)
	}

	msg := bufferedMsg{topic: Topic, payload: payload, qos: 1, retained: false}

	if !r.client.IsConnected() {
		r.mu.Lock()
		r.buf.push(msg)
		n := r.buf.len()
		r.mu.Unlock()
		log.Printf("alert: broker unreachable, buffered alert (%d pending)", n)
		return nil
	}

	return r.publish(msg)
}

func (r *RealReporter) publish(msg bufferedMsg) error {
	// QoS 1 (at-least-once): safety alerts must not be silently lost.
	token := r.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect replays alerts buffered while disconnected.
func (r *RealReporter) onConnect(paho.Client) {
	r.mu.Lock()
	pending := r.buf.drainAll()
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Printf("alert: broker connected, replaying %d buffered alerts", len(pending))
	for _, msg := range pending {
		if err := r.publish(msg); err != nil {
			log.Printf("alert: replay failed: %v", err)
		}
	}
}

// Close disconnects from the broker.
func (r *RealReporter) Close() error {
	r.client.Disconnect(1000) // 1 second timeout
	return nil
}

