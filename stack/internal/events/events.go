// Package events routes unsolicited server events from the stack's RPC
// socket to per-kind subscribers.
package events

import (
	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/stack/internal/serde"
	"github.com/cskr/pubsub/v2"
)

// Kind identifies an event stream. Values match the Kind byte of the
// frame header.
type Kind byte

const (
	KindNone        Kind = 0
	KindConnection  Kind = 1
	KindChannelData Kind = 2
	KindPairing     Kind = 3
)

// ConnectionEvent reports a connection accepted while advertising.
type ConnectionEvent struct {
	Connection bluetooth.Connection `json:"connection"`
}

// ChannelDataEvent reports a payload received on an open channel.
type ChannelDataEvent struct {
	Channel bluetooth.Channel `json:"channel"`
	Data    []byte            `json:"data"`
}

// PairingChallengeEvent reports a pairing challenge raised by the stack.
type PairingChallengeEvent struct {
	Event bluetooth.PairingEvent `json:"event"`
}

// Decode unmarshals an event payload into its typed form.
func Decode[T any](raw []byte) (T, error) {
	var event T
	err := serde.Unmarshal(raw, &event)

	return event, err
}

// Bus fans server events out to subscribers, keyed by event kind.
// Publishing never blocks; a subscriber that stops draining its channel
// misses events rather than stalling the socket listener.
type Bus struct {
	ps *pubsub.PubSub[Kind, any]
}

// NewBus returns a bus with a per-subscriber buffer.
func NewBus() *Bus {
	return &Bus{ps: pubsub.New[Kind, any](16)}
}

// Publish delivers an event to all subscribers of its kind.
func (b *Bus) Publish(kind Kind, data any) {
	b.ps.TryPub(data, kind)
}

// Subscribe registers a subscriber for one event kind.
func (b *Bus) Subscribe(kind Kind) Subscription {
	ch := b.ps.Sub(kind)

	return Subscription{
		C: ch,
		unsub: func() {
			go b.ps.Unsub(ch, kind)
		},
	}
}

// Shutdown closes all subscriber channels.
func (b *Bus) Shutdown() {
	b.ps.Shutdown()
}

// Subscription is one subscriber's view of an event stream. C is closed
// when the subscription is cancelled or the bus shuts down.
type Subscription struct {
	C     chan any
	unsub func()
}

// Close cancels the subscription.
func (s Subscription) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}
