package telemetry

import (
	"context"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// FakeSink records published states for test assertions.
type FakeSink struct {
	// Snapshots and States hold every accepted Publish call, in order.
	Snapshots []sensor.Snapshot
	States    []policy.ActuatorState

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// Connected controls the return value of IsConnected.
	Connected bool

	// Closed tracks if Close was called; CloseReason holds the reason given.
	Closed      bool
	CloseReason string

	overrides overrideMailbox
}

// NewFakeSink creates a connected FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{Connected: true}
}

// Connect reports ConnectError, or marks the sink connected.
func (f *FakeSink) Connect(ctx context.Context) error {
	if f.ConnectError != nil {
		return f.ConnectError
	}
	f.Connected = true
	return nil
}

// Publish records the snapshot and state.
func (f *FakeSink) Publish(snap sensor.Snapshot, state policy.ActuatorState) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	if !f.Connected {
		return ErrNotConnected
	}

	payload, err := FormatPayload(snap, state)
	if err != nil {
		return err
	}
	f.Snapshots = append(f.Snapshots, snap)
	f.States = append(f.States, state)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// QueueOverride simulates a light command arriving from the broker.
// Safe to call from any goroutine.
func (f *FakeSink) QueueOverride(on bool) {
	f.overrides.put(on)
}

// PollOverride returns the latest queued override, or nil.
func (f *FakeSink) PollOverride() *bool {
	return f.overrides.take()
}

// IsConnected reports whether the fake sink is "connected".
func (f *FakeSink) IsConnected() bool {
	return f.Connected
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	return f.CloseWithReason("shutdown")
}

// CloseWithReason marks the sink as closed and records reason.
func (f *FakeSink) CloseWithReason(reason string) error {
	f.Closed = true
	f.CloseReason = reason
	f.Connected = false
	return nil
}

// NopSink is used when no broker is configured.
type NopSink struct{}

func (NopSink) Publish(sensor.Snapshot, policy.ActuatorState) error { return nil }
func (NopSink) PollOverride() *bool                                 { return nil }
func (NopSink) IsConnected() bool                                   { return false }
func (NopSink) Close() error                                        { return nil }
