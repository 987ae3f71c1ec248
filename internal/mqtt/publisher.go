package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// Options configures a Publisher.
type Options struct {
	Broker     string
	ClientID   string
	Topic      string // telemetry topic, used to derive the availability topic
	BufferSize int
}

// Publisher sends telemetry payloads to an MQTT broker. The Send destination
// is the topic. While disconnected, payloads go to a ring buffer that is
// replayed on reconnect.
type Publisher struct {
	client            paho.Client
	availabilityTopic string
	logger            *zap.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewPublisher creates a publisher and starts connecting to the broker. The
// broker does not need to be up: the client keeps retrying in the background.
// The Last Will marks the node offline on the availability topic.
func NewPublisher(o Options, logger *zap.Logger) (*Publisher, error) {
	p := newPublisher(o, logger)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(p.availabilityTopic, PayloadOffline, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	// With ConnectRetry the token only completes once connected, so a
	// timeout here is not fatal.
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		p.logger.Warn("broker not reachable yet, buffering", zap.String("broker", o.Broker))
	}
	return p, nil
}

func newPublisher(o Options, logger *zap.Logger) *Publisher {
	return &Publisher{
		availabilityTopic: AvailabilityTopic(o.Topic),
		logger:            logger.Named("mqtt"),
		buf:               newRingBuffer(o.BufferSize),
	}
}

// Send publishes payload to topic at QoS 0. When the connection is down the
// payload is buffered and Send returns nil.
func (p *Publisher) Send(ctx context.Context, topic string, payload []byte) error {
	msg := bufferedMsg{topic: topic, payload: append([]byte(nil), payload...)}
	if !p.client.IsConnectionOpen() {
		p.enqueue(msg)
		// onConnect may have drained the buffer before msg went in
		if p.client.IsConnectionOpen() {
			p.flush()
		}
		return nil
	}
	return p.publish(ctx, msg)
}

func (p *Publisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buf.push(msg) {
		p.logger.Warn("buffer full, dropping oldest", zap.Int("capacity", p.buf.capacity))
	}
}

func (p *Publisher) publish(ctx context.Context, msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return errors.New("publish timeout")
	case <-ctx.Done():
		return fmt.Errorf("publish: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect marks the node online and replays buffered payloads in order.
func (p *Publisher) onConnect() {
	p.logger.Info("connected")

	online := bufferedMsg{topic: p.availabilityTopic, payload: []byte(PayloadOnline), qos: 1, retained: true}
	if err := p.publish(context.Background(), online); err != nil {
		p.logger.Warn("publish availability failed", zap.Error(err))
	}

	p.flush()
}

// flush replays buffered payloads in order.
func (p *Publisher) flush() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	p.logger.Info("replaying buffered telemetry", zap.Int("count", len(pending)))
	for _, msg := range pending {
		if err := p.publish(context.Background(), msg); err != nil {
			p.logger.Warn("replay failed", zap.String("topic", msg.topic), zap.Error(err))
		}
	}
}

// Buffered returns the number of payloads waiting for a connection.
func (p *Publisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close marks the node offline and disconnects.
func (p *Publisher) Close() error {
	if p.client.IsConnectionOpen() {
		offline := bufferedMsg{topic: p.availabilityTopic, payload: []byte(PayloadOffline), qos: 1, retained: true}
		if err := p.publish(context.Background(), offline); err != nil {
			p.logger.Warn("publish availability failed", zap.Error(err))
		}
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
