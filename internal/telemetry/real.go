package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// Options configures an MQTTSink.
type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	DeviceID       string
	TopicPrefix    string
	ConnectTimeout time.Duration // total budget for the initial connect
	PublishTimeout time.Duration // per-publish wait
	BufferSize     int           // state messages kept while disconnected
}

// Per-attempt connect wait and retry pacing.
const (
	attemptTimeout     = 5 * time.Second
	retryInitial       = 500 * time.Millisecond
	retryMax           = 30 * time.Second
	breakerTripAfter   = 3
	breakerOpenTimeout = 10 * time.Second
)

var errPublishTimeout = errors.New("publish timeout")

// MQTTSink publishes to an actual MQTT broker.
type MQTTSink struct {
	client         paho.Client
	topics         Topics
	deviceID       string
	connectTimeout time.Duration
	publishTimeout time.Duration
	breaker        *gobreaker.CircuitBreaker
	overrides      overrideMailbox

	mu      sync.Mutex
	pending *backlog

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMQTTSink creates a sink for the given broker. It does not connect; call Connect.
func NewMQTTSink(o Options) *MQTTSink {
	s := &MQTTSink{
		topics:         NewTopics(o.TopicPrefix),
		deviceID:       o.DeviceID,
		connectTimeout: o.ConnectTimeout,
		publishTimeout: o.PublishTimeout,
		pending:        newBacklog(o.BufferSize),
		stop:           make(chan struct{}),
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mqtt-publish",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTripAfter
		},
		// A dropped link is the reconnect logic's problem, not a broker fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, paho.ErrNotConnected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("telemetry: breaker %s %s -> %s", name, from, to)
		},
	})

	will, _ := FormatSystemPayload(SystemEvent{Event: EventOffline, Device: o.DeviceID, Reason: "connection lost"})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(attemptTimeout).
		SetMaxReconnectInterval(retryMax).
		SetBinaryWill(s.topics.System, will, 1, true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("telemetry: connection lost: %v", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	s.client = paho.NewClient(opts)
	return s
}

// Topics returns the topics this sink uses.
func (s *MQTTSink) Topics() Topics {
	return s.topics
}

// Connect retries with exponential backoff until connected or the connect
// budget is spent. On failure a background goroutine keeps retrying until
// ctx ends or the sink is closed, and the error is returned so the caller can
// continue offline.
func (s *MQTTSink) Connect(ctx context.Context) error {
	bo := newRetryBackOff(s.connectTimeout)
	err := backoff.RetryNotify(s.attempt, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Printf("telemetry: connect failed: %v (retry in %v)", err, next.Round(time.Millisecond))
	})
	if err == nil {
		return nil
	}

	s.wg.Add(1)
	go s.reconnect(ctx)
	return fmt.Errorf("connect to broker: %w", err)
}

func (s *MQTTSink) reconnect(ctx context.Context) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := newRetryBackOff(0)
	if err := backoff.Retry(s.attempt, backoff.WithContext(bo, ctx)); err != nil {
		return
	}
	log.Printf("telemetry: connected after background retry")
}

func (s *MQTTSink) attempt() error {
	token := s.client.Connect()
	if !token.WaitTimeout(attemptTimeout) {
		return errors.New("connection timeout")
	}
	return token.Error()
}

// newRetryBackOff returns exponential pacing; maxElapsed 0 retries forever.
func newRetryBackOff(maxElapsed time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitial
	bo.MaxInterval = retryMax
	bo.MaxElapsedTime = maxElapsed
	bo.Reset()
	return bo
}

// onConnect runs on every (re)connect: subscribe, announce, replay the backlog.
func (s *MQTTSink) onConnect(c paho.Client) {
	log.Printf("telemetry: connected")

	token := c.Subscribe(s.topics.LightSet, 1, s.handleOverride)
	if !token.WaitTimeout(attemptTimeout) {
		log.Printf("telemetry: subscribe %s: timeout", s.topics.LightSet)
	} else if err := token.Error(); err != nil {
		log.Printf("telemetry: subscribe %s: %v", s.topics.LightSet, err)
	}

	if err := s.publishSystem(SystemEvent{Timestamp: time.Now(), Event: EventOnline, Device: s.deviceID}); err != nil {
		log.Printf("telemetry: publish online event: %v", err)
	}

	s.mu.Lock()
	dropped := s.pending.dropped
	msgs := s.pending.flush()
	s.mu.Unlock()

	if len(msgs) > 0 {
		log.Printf("telemetry: replaying %d buffered messages (%d dropped)", len(msgs), dropped)
	}
	for _, m := range msgs {
		t := c.Publish(m.topic, 0, false, m.payload)
		if !t.WaitTimeout(s.publishTimeout) {
			log.Printf("telemetry: replay stopped: %v", errPublishTimeout)
			return
		}
		if err := t.Error(); err != nil {
			log.Printf("telemetry: replay stopped: %v", err)
			return
		}
	}
}

func (s *MQTTSink) handleOverride(_ paho.Client, msg paho.Message) {
	on, err := ParseOverride(msg.Payload())
	if err != nil {
		log.Printf("telemetry: ignoring override %q on %s: %v", msg.Payload(), msg.Topic(), err)
		return
	}
	log.Printf("telemetry: light override %s received", policy.OnOff(on))
	s.overrides.put(on)
}

// Publish sends the state message. While disconnected the message is buffered
// and ErrNotConnected returned. Publishes go through a circuit breaker so a
// struggling broker costs at most one PublishTimeout per breaker probe.
func (s *MQTTSink) Publish(snap sensor.Snapshot, state policy.ActuatorState) error {
	payload, err := FormatPayload(snap, state)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if !s.client.IsConnectionOpen() {
		s.buffer(payload)
		return ErrNotConnected
	}

	// QoS 0 (at-most-once), not retained
	_, err = s.breaker.Execute(func() (interface{}, error) {
		token := s.client.Publish(s.topics.State, 0, false, payload)
		if !token.WaitTimeout(s.publishTimeout) {
			return nil, errPublishTimeout
		}
		return nil, token.Error()
	})
	if errors.Is(err, paho.ErrNotConnected) {
		// The link dropped after the check above.
		s.buffer(payload)
		return ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *MQTTSink) buffer(payload []byte) {
	s.mu.Lock()
	s.pending.push(pendingMsg{topic: s.topics.State, payload: payload})
	s.mu.Unlock()
}

func (s *MQTTSink) publishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1, retained: the last lifecycle event is the device's presence.
	token := s.client.Publish(s.topics.System, 1, true, payload)
	if !token.WaitTimeout(attemptTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// PollOverride returns the latest light command received since the last poll.
func (s *MQTTSink) PollOverride() *bool {
	return s.overrides.take()
}

// IsConnected reports whether the broker connection is currently open.
func (s *MQTTSink) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Buffered returns the number of state messages waiting for a connection.
func (s *MQTTSink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.len()
}

// Close publishes an OFFLINE event and disconnects.
func (s *MQTTSink) Close() error {
	return s.CloseWithReason("shutdown")
}

// CloseWithReason is Close with the reason carried in the OFFLINE event.
func (s *MQTTSink) CloseWithReason(reason string) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()

	var err error
	if s.client.IsConnectionOpen() {
		err = s.publishSystem(SystemEvent{Timestamp: time.Now(), Event: EventOffline, Device: s.deviceID, Reason: reason})
	}
	s.client.Disconnect(250)
	return err
}
