package profile_test

import (
	"context"
	"sync"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
)

type fakeConnStream struct {
	conns chan bluetooth.Connection
}

func newFakeConnStream(conns ...bluetooth.Connection) *fakeConnStream {
	s := &fakeConnStream{conns: make(chan bluetooth.Connection, len(conns)+1)}
	for _, c := range conns {
		s.conns <- c
	}

	return s
}

func (s *fakeConnStream) Next(ctx context.Context) (bluetooth.Connection, error) {
	select {
	case <-ctx.Done():
		return bluetooth.Connection{}, ctx.Err()
	case c, ok := <-s.conns:
		if !ok {
			return bluetooth.Connection{}, errorkinds.ErrStreamClosed
		}

		return c, nil
	}
}

func (s *fakeConnStream) Close() {}

type fakeDataStream struct {
	data chan []byte
}

func (s *fakeDataStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-s.data:
		if !ok {
			return nil, errorkinds.ErrStreamClosed
		}

		return d, nil
	}
}

func (s *fakeDataStream) Close() {}

type fakeHost struct {
	mu sync.Mutex

	conn   bluetooth.Connection
	stream *fakeConnStream

	connects    []bluetooth.Address
	leOwnTypes  []bluetooth.OwnAddressType
	waits       []bluetooth.Address
	advertised  []bluetooth.AdvertiseSettings
	disconnects []bluetooth.Connection
	resets      int
}

func (h *fakeHost) Connect(ctx context.Context, peer bluetooth.Address) (bluetooth.Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects = append(h.connects, peer)

	return h.conn, nil
}

func (h *fakeHost) ConnectLE(ctx context.Context, own bluetooth.OwnAddressType, peer bluetooth.Address) (bluetooth.Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leOwnTypes = append(h.leOwnTypes, own)

	return h.conn, nil
}

func (h *fakeHost) WaitConnection(ctx context.Context, peer bluetooth.Address) (bluetooth.Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.waits = append(h.waits, peer)

	return h.conn, nil
}

func (h *fakeHost) Advertise(ctx context.Context, settings bluetooth.AdvertiseSettings) (bluetooth.ConnectionStream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advertised = append(h.advertised, settings)

	if h.stream == nil {
		h.stream = newFakeConnStream()
	}

	return h.stream, nil
}

func (h *fakeHost) Disconnect(ctx context.Context, conn bluetooth.Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects = append(h.disconnects, conn)

	return nil
}

func (h *fakeHost) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++

	return nil
}

type fakeL2CAP struct {
	mu sync.Mutex

	channel    bluetooth.Channel
	connectErr error
	received   *fakeDataStream

	connects []uint16
	listens  []uint16
	sent     [][]byte
}

func (l *fakeL2CAP) Connect(ctx context.Context, conn bluetooth.Connection, req bluetooth.CreditBasedChannelRequest) (bluetooth.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects = append(l.connects, req.SPSM)

	if l.connectErr != nil {
		return bluetooth.Channel{}, l.connectErr
	}

	return l.channel, nil
}

func (l *fakeL2CAP) WaitConnection(ctx context.Context, req bluetooth.CreditBasedChannelRequest) (bluetooth.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listens = append(l.listens, req.SPSM)

	return l.channel, nil
}

func (l *fakeL2CAP) Send(ctx context.Context, ch bluetooth.Channel, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, data)

	return nil
}

func (l *fakeL2CAP) Receive(ctx context.Context, ch bluetooth.Channel) (bluetooth.DataStream, error) {
	if l.received == nil {
		l.received = &fakeDataStream{data: make(chan []byte, 1)}
	}

	return l.received, nil
}

type fakePairingStream struct {
	events  chan bluetooth.PairingEvent
	answers chan bluetooth.PairingAnswer
	once    sync.Once
}

func newFakePairingStream() *fakePairingStream {
	return &fakePairingStream{
		events:  make(chan bluetooth.PairingEvent, 4),
		answers: make(chan bluetooth.PairingAnswer, 4),
	}
}

func (p *fakePairingStream) Events() <-chan bluetooth.PairingEvent {
	return p.events
}

func (p *fakePairingStream) Answer(ctx context.Context, answer bluetooth.PairingAnswer) error {
	p.answers <- answer

	return nil
}

func (p *fakePairingStream) Close() {
	p.once.Do(func() { close(p.events) })
}

type fakeSecurity struct {
	pairing *fakePairingStream
	secured chan bluetooth.Connection
}

func newFakeSecurity() *fakeSecurity {
	return &fakeSecurity{
		pairing: newFakePairingStream(),
		secured: make(chan bluetooth.Connection, 1),
	}
}

func (s *fakeSecurity) Secure(ctx context.Context, conn bluetooth.Connection, level bluetooth.SecurityLevel) error {
	s.secured <- conn

	return nil
}

func (s *fakeSecurity) OnPairing(ctx context.Context) (bluetooth.PairingStream, error) {
	return s.pairing, nil
}

type fakeOpp struct {
	mu sync.Mutex

	acceptPuts int
	rfcomm     []bluetooth.Address
	l2cap      []bluetooth.Address
}

func (o *fakeOpp) AcceptPutOperation(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.acceptPuts++

	return nil
}

func (o *fakeOpp) OpenRfcommChannel(ctx context.Context, peer bluetooth.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rfcomm = append(o.rfcomm, peer)

	return nil
}

func (o *fakeOpp) OpenL2capChannel(ctx context.Context, peer bluetooth.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.l2cap = append(o.l2cap, peer)

	return nil
}
