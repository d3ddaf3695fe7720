package stack

import (
	"context"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/stack/internal/commands"
	"github.com/bt-conformance/ptsproxy/stack/internal/events"
)

type host struct {
	session *Session
}

func (h *host) Connect(ctx context.Context, peer bluetooth.Address) (bluetooth.Connection, error) {
	if err := ctx.Err(); err != nil {
		return bluetooth.Connection{}, err
	}

	return commands.Connect(peer).ExecuteWith(h.session.executor, h.session.cfg.ReplyTimeout)
}

func (h *host) ConnectLE(ctx context.Context, own bluetooth.OwnAddressType, peer bluetooth.Address) (bluetooth.Connection, error) {
	if err := ctx.Err(); err != nil {
		return bluetooth.Connection{}, err
	}

	return commands.ConnectLE(own, peer).ExecuteWith(h.session.executor, h.session.cfg.ReplyTimeout)
}

func (h *host) WaitConnection(ctx context.Context, peer bluetooth.Address) (bluetooth.Connection, error) {
	if err := ctx.Err(); err != nil {
		return bluetooth.Connection{}, err
	}

	// The peer decides when to connect; allow it more than one reply window.
	return commands.WaitConnection(peer).ExecuteWith(h.session.executor, 3*h.session.cfg.ReplyTimeout)
}

func (h *host) Advertise(ctx context.Context, settings bluetooth.AdvertiseSettings) (bluetooth.ConnectionStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Subscribe before starting so a connection racing the reply is not lost.
	sub := h.session.bus.Subscribe(events.KindConnection)

	if _, err := commands.StartAdvertise(settings).ExecuteWith(h.session.executor, h.session.cfg.ReplyTimeout); err != nil {
		sub.Close()
		return nil, err
	}

	return &connectionStream{sub: sub}, nil
}

func (h *host) Disconnect(ctx context.Context, conn bluetooth.Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.Disconnect(conn).ExecuteWith(h.session.executor, h.session.cfg.ReplyTimeout)

	return err
}

func (h *host) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.Reset().ExecuteWith(h.session.executor, h.session.cfg.ReplyTimeout)

	return err
}

type l2cap struct {
	session *Session
}

func (l *l2cap) Connect(ctx context.Context, conn bluetooth.Connection, req bluetooth.CreditBasedChannelRequest) (bluetooth.Channel, error) {
	if err := ctx.Err(); err != nil {
		return bluetooth.Channel{}, err
	}

	return commands.OpenCreditBasedChannel(conn, req).ExecuteWith(l.session.executor, l.session.cfg.ReplyTimeout)
}

func (l *l2cap) WaitConnection(ctx context.Context, req bluetooth.CreditBasedChannelRequest) (bluetooth.Channel, error) {
	if err := ctx.Err(); err != nil {
		return bluetooth.Channel{}, err
	}

	return commands.ListenCreditBasedChannel(req).ExecuteWith(l.session.executor, 3*l.session.cfg.ReplyTimeout)
}

func (l *l2cap) Send(ctx context.Context, ch bluetooth.Channel, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.SendData(ch, data).ExecuteWith(l.session.executor, l.session.cfg.ReplyTimeout)

	return err
}

func (l *l2cap) Receive(ctx context.Context, ch bluetooth.Channel) (bluetooth.DataStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := l.session.bus.Subscribe(events.KindChannelData)

	if _, err := commands.StartReceive(ch).ExecuteWith(l.session.executor, l.session.cfg.ReplyTimeout); err != nil {
		sub.Close()
		return nil, err
	}

	return &dataStream{sub: sub, channel: ch}, nil
}

type security struct {
	session *Session
}

func (s *security) Secure(ctx context.Context, conn bluetooth.Connection, level bluetooth.SecurityLevel) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Pairing involves the peer and possibly a passkey exchange; give it
	// the same grace as other peer-driven waits.
	_, err := commands.Secure(conn, level).ExecuteWith(s.session.executor, 3*s.session.cfg.ReplyTimeout)

	return err
}

func (s *security) OnPairing(ctx context.Context) (bluetooth.PairingStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream := newPairingStream(s.session)

	if _, err := commands.StartPairingEvents().ExecuteWith(s.session.executor, s.session.cfg.ReplyTimeout); err != nil {
		stream.Close()
		return nil, err
	}

	return stream, nil
}

type opp struct {
	session *Session
}

func (o *opp) AcceptPutOperation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.AcceptPutOperation().ExecuteWith(o.session.executor, o.session.cfg.ReplyTimeout)

	return err
}

func (o *opp) OpenRfcommChannel(ctx context.Context, peer bluetooth.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.OpenRfcommChannel(peer).ExecuteWith(o.session.executor, o.session.cfg.ReplyTimeout)

	return err
}

func (o *opp) OpenL2capChannel(ctx context.Context, peer bluetooth.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := commands.OpenL2capChannel(peer).ExecuteWith(o.session.executor, o.session.cfg.ReplyTimeout)

	return err
}
