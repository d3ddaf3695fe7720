// Package stack maintains the RPC session with the IUT's Bluetooth stack
// and exposes typed clients for its host, L2CAP, security and OPP services.
package stack

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/config"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
	"github.com/bt-conformance/ptsproxy/stack/internal/commands"
	"github.com/bt-conformance/ptsproxy/stack/internal/events"
	"github.com/bt-conformance/ptsproxy/stack/internal/serde"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Session is an RPC session with the IUT stack. Commands are written as
// JSON envelopes; replies and unsolicited events arrive on a background
// listener and are routed by request id and event kind respectively.
type Session struct {
	cfg config.Configuration
	log *zap.Logger

	conn   net.Conn
	cancel context.CancelFunc
	closed atomic.Bool

	id      *xsync.Counter
	pending *xsync.MapOf[int64, chan commands.Reply]
	bus     *events.Bus

	sync.Mutex
}

// NewSession returns an unstarted session.
func NewSession(cfg config.Configuration, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{cfg: cfg, log: log}
	s.closed.Store(true)

	return s
}

// Start dials the stack's RPC socket and begins listening for replies
// and events.
func (s *Session) Start(ctx context.Context) error {
	if !s.closed.Load() {
		return nil
	}

	conn, err := net.Dial("unix", s.cfg.SocketPath)
	if err != nil {
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "dial-stack", "socket", s.cfg.SocketPath),
			ftag.With(ftag.Internal),
			fmsg.With("Cannot connect to the IUT stack's RPC socket"),
		)
	}

	listenCtx, cancel := context.WithCancel(context.Background())

	s.Lock()
	s.conn = conn
	s.cancel = cancel
	s.id = xsync.NewCounter()
	s.pending = xsync.NewMapOf[int64, chan commands.Reply]()
	s.bus = events.NewBus()
	s.closed.Store(false)
	s.Unlock()

	go s.listen(listenCtx)

	return nil
}

// Stop closes the socket and shuts down all event streams. Pending
// commands fail with a closed-session error.
func (s *Session) Stop() error {
	if s.closed.Swap(true) {
		return errorkinds.ErrSessionClosed
	}

	s.Lock()
	defer s.Unlock()

	s.cancel()
	err := s.conn.Close()
	s.bus.Shutdown()

	s.pending.Range(func(id int64, ch chan commands.Reply) bool {
		s.pending.Delete(id)
		close(ch)
		return true
	})

	return err
}

// Host returns the connection-level client.
func (s *Session) Host() bluetooth.Host {
	return &host{s}
}

// L2CAP returns the credit-based channel client.
func (s *Session) L2CAP() bluetooth.L2CAP {
	return &l2cap{s}
}

// Security returns the pairing client.
func (s *Session) Security() bluetooth.Security {
	return &security{s}
}

// Opp returns the Object Push client.
func (s *Session) Opp() bluetooth.Opp {
	return &opp{s}
}

func (s *Session) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var raw commands.HeaderBuffer
		if _, err := io.ReadFull(s.conn, raw[:]); err != nil {
			s.listenerExit(err)
			return
		}

		header, err := commands.UnpackHeader(raw)
		if err != nil {
			// A header that does not parse means the byte stream is out of
			// sync; there is no way to resynchronize.
			s.listenerExit(err)
			return
		}

		buf := make([]byte, header.ContentSize)
		if _, err := io.ReadFull(s.conn, buf); err != nil {
			s.listenerExit(err)
			return
		}

		if header.Kind != byte(events.KindNone) {
			s.dispatchEvent(events.Kind(header.Kind), buf)
			continue
		}

		var reply commands.Reply
		if err := serde.Unmarshal(buf, &reply); err != nil {
			s.log.Warn("discarding unparseable reply",
				zap.Int64("request_id", header.RequestId), zap.Error(err))
			continue
		}

		if ch, ok := s.pending.LoadAndDelete(header.RequestId); ok {
			select {
			case ch <- reply:
				close(ch)
			default:
			}
		}
	}
}

func (s *Session) listenerExit(err error) {
	if s.closed.Load() {
		return
	}

	s.log.Warn("stack listener stopped", zap.Error(err))
}

func (s *Session) dispatchEvent(kind events.Kind, buf []byte) {
	var (
		data any
		err  error
	)

	switch kind {
	case events.KindConnection:
		data, err = events.Decode[events.ConnectionEvent](buf)
	case events.KindChannelData:
		data, err = events.Decode[events.ChannelDataEvent](buf)
	case events.KindPairing:
		data, err = events.Decode[events.PairingChallengeEvent](buf)
	default:
		s.log.Warn("unknown event kind", zap.Uint8("kind", byte(kind)))
		return
	}

	if err != nil {
		s.log.Warn("discarding unparseable event",
			zap.Uint8("kind", byte(kind)), zap.Error(err))
		return
	}

	s.bus.Publish(kind, data)
}

// executor submits one command envelope and registers its reply channel.
func (s *Session) executor(params []string) (chan commands.Reply, error) {
	if s.closed.Load() {
		return nil, errorkinds.ErrSessionClosed
	}

	s.id.Inc()
	id := s.id.Value()

	replyChan := make(chan commands.Reply, 1)
	s.pending.Store(id, replyChan)

	envelope := map[string]any{
		"command":    params,
		"request_id": id,
	}

	envelopeBytes, err := serde.Marshal(envelope)
	if err != nil {
		s.pending.Delete(id)
		return nil, err
	}

	s.Lock()
	_, err = s.conn.Write(envelopeBytes)
	s.Unlock()
	if err != nil {
		s.pending.Delete(id)
		return nil, err
	}

	return replyChan, nil
}
