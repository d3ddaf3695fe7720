// Package rootcanal selects the emulated controller ("dongle") presented
// to PTS by the link-layer fault-injection controller's test channel.
package rootcanal

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"go.uber.org/zap"
)

// Dongle is a controller preset name understood by the test channel.
type Dongle string

const (
	DefaultDongle   Dongle = "default"
	CsrRckPtsDongle Dongle = "csr_rck_pts_dongle"
	LairdBl654      Dongle = "laird_bl654"
)

// Controller is a client for the test channel. Selection is idempotent:
// re-selecting the current dongle is a no-op.
type Controller struct {
	addr string
	log  *zap.Logger

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	current Dongle
}

// NewController returns a controller client for the given TCP address.
// An empty address disables selection; SelectDongle becomes a no-op.
func NewController(addr string, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}

	return &Controller{addr: addr, log: log}
}

// SelectDongle switches the emulated controller to the named preset.
func (c *Controller) SelectDongle(ctx context.Context, d Dongle) error {
	if c.addr == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == d {
		return nil
	}

	if c.conn == nil {
		dialer := net.Dialer{}
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return fault.Wrap(err,
				fctx.With(ctx, "error_at", "dial-test-channel", "addr", c.addr),
				fmsg.With("Cannot connect to the controller's test channel"),
			)
		}

		c.conn = conn
		c.reader = bufio.NewReader(conn)
	}

	if _, err := c.conn.Write([]byte("select_dongle " + string(d) + "\n")); err != nil {
		c.reset()
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "select-dongle", "dongle", string(d)),
			fmsg.With("Cannot send the dongle selection command"),
		)
	}

	status, err := c.reader.ReadString('\n')
	if err != nil {
		c.reset()
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "select-dongle-reply", "dongle", string(d)),
			fmsg.With("No reply to the dongle selection command"),
		)
	}

	if strings.TrimSpace(status) != "ok" {
		return fault.New("dongle selection rejected: "+strings.TrimSpace(status),
			fctx.With(ctx, "dongle", string(d)),
		)
	}

	c.current = d
	c.log.Debug("dongle selected", zap.String("dongle", string(d)))

	return nil
}

// Close drops the test channel connection.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()

	return nil
}

func (c *Controller) reset() {
	if c.conn != nil {
		c.conn.Close()
	}

	c.conn = nil
	c.reader = nil
	c.current = ""
}
