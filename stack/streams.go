package stack

import (
	"context"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
	"github.com/bt-conformance/ptsproxy/stack/internal/commands"
	"github.com/bt-conformance/ptsproxy/stack/internal/events"
)

type connectionStream struct {
	sub events.Subscription
}

func (c *connectionStream) Next(ctx context.Context) (bluetooth.Connection, error) {
	for {
		select {
		case <-ctx.Done():
			return bluetooth.Connection{}, ctx.Err()

		case v, ok := <-c.sub.C:
			if !ok {
				return bluetooth.Connection{}, errorkinds.ErrStreamClosed
			}

			if ev, ok := v.(events.ConnectionEvent); ok {
				return ev.Connection, nil
			}
		}
	}
}

func (c *connectionStream) Close() {
	c.sub.Close()
}

type dataStream struct {
	sub     events.Subscription
	channel bluetooth.Channel
}

func (d *dataStream) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case v, ok := <-d.sub.C:
			if !ok {
				return nil, errorkinds.ErrStreamClosed
			}

			// Data events are bus-wide; deliver only this channel's payloads.
			if ev, ok := v.(events.ChannelDataEvent); ok && ev.Channel == d.channel {
				return ev.Data, nil
			}
		}
	}
}

func (d *dataStream) Close() {
	d.sub.Close()
}

type pairingStream struct {
	session *Session
	sub     events.Subscription
	out     chan bluetooth.PairingEvent
}

func newPairingStream(s *Session) *pairingStream {
	p := &pairingStream{
		session: s,
		sub:     s.bus.Subscribe(events.KindPairing),
		out:     make(chan bluetooth.PairingEvent, 8),
	}

	go p.forward()

	return p
}

func (p *pairingStream) forward() {
	defer close(p.out)

	for v := range p.sub.C {
		if ev, ok := v.(events.PairingChallengeEvent); ok {
			p.out <- ev.Event
		}
	}
}

func (p *pairingStream) Events() <-chan bluetooth.PairingEvent {
	return p.out
}

func (p *pairingStream) Answer(ctx context.Context, answer bluetooth.PairingAnswer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.PairingReply(answer).
		ExecuteWith(p.session.executor, p.session.cfg.ReplyTimeout)

	return err
}

func (p *pairingStream) Close() {
	p.sub.Close()
}
