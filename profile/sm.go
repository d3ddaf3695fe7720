package profile

import (
	"context"
	"strconv"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"github.com/bt-conformance/ptsproxy/rootcanal"
	"go.uber.org/zap"
)

// SMProxy answers the Security Manager conformance prompts. A background
// responder answers pairing challenges from the stack as they arrive;
// prompts that display a passkey feed it to the responder through a
// channel.
type SMProxy struct {
	*mmi.Registry

	host     bluetooth.Host
	security bluetooth.Security
	canal    *rootcanal.Controller
	log      *zap.Logger

	passkeyTimeout time.Duration
	passkeys       chan uint32
	cancel         context.CancelFunc

	conn      *bluetooth.Connection
	advertise bluetooth.ConnectionStream
}

// NewSMProxy returns an SM proxy with its handlers registered and the
// pairing responder running. Close stops the responder.
func NewSMProxy(host bluetooth.Host, security bluetooth.Security,
	canal *rootcanal.Controller, passkeyTimeout time.Duration, log *zap.Logger) (*SMProxy, error) {
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &SMProxy{
		Registry:       mmi.NewRegistry(),
		host:           host,
		security:       security,
		canal:          canal,
		log:            log.Named("sm"),
		passkeyTimeout: passkeyTimeout,
		passkeys:       make(chan uint32, 1),
		cancel:         cancel,
	}

	pairing, err := security.OnPairing(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	go p.respondToPairing(ctx, pairing)

	p.register()

	return p, nil
}

// Close stops the pairing responder.
func (p *SMProxy) Close() error {
	p.cancel()

	return nil
}

// TestStarted selects the PTS dongle before the first prompt of a test.
func (p *SMProxy) TestStarted(ctx context.Context, test string) error {
	return p.canal.SelectDongle(ctx, rootcanal.CsrRckPtsDongle)
}

// respondToPairing answers pairing challenges until the stream or the
// proxy is closed. Just-works and numeric-comparison challenges are
// confirmed immediately; passkey entry waits for the display prompt to
// supply the code and leaves the challenge unanswered on timeout, which
// is itself the expected outcome of the negative passkey tests.
func (p *SMProxy) respondToPairing(ctx context.Context, pairing bluetooth.PairingStream) {
	defer pairing.Close()

	for {
		var event bluetooth.PairingEvent

		select {
		case <-ctx.Done():
			return
		case ev, ok := <-pairing.Events():
			if !ok {
				return
			}
			event = ev
		}

		answer := bluetooth.PairingAnswer{EventID: event.ID, Confirm: true}

		if event.Method == bluetooth.MethodPasskeyEntryRequest {
			select {
			case <-ctx.Done():
				return
			case passkey := <-p.passkeys:
				answer = bluetooth.PairingAnswer{EventID: event.ID, Passkey: passkey}
			case <-time.After(p.passkeyTimeout):
				p.log.Warn("no passkey provided for the pairing challenge",
					zap.Duration("waited", p.passkeyTimeout))

				continue
			}
		}

		if err := pairing.Answer(ctx, answer); err != nil {
			p.log.Warn("pairing answer failed", zap.Error(err))
			return
		}
	}
}

func (p *SMProxy) register() {
	p.Register("MMI_IUT_ENABLE_CONNECTION_SM", `
		Initiate an connection from the IUT to the PTS.
	`, p.enableConnection)

	p.Register("MMI_ASK_IUT_PERFORM_PAIRING_PROCESS", `
		Please start pairing process.
	`, p.performPairing)

	p.Register("MMI_IUT_SEND_DISCONNECTION_REQUEST", `
		Please initiate a disconnection to the PTS.

		Description: Verify that
		the Implementation Under Test(IUT) can initiate a disconnect request to
		PTS.
	`, p.sendDisconnection)

	p.RegisterAny("MMI_LESC_NUMERIC_COMPARISON", ack)

	p.Register("MMI_ASK_IUT_PERFORM_RESET", `
		Please reset your device.
	`, p.performReset)

	p.Register("MMI_TESTER_ENABLE_CONNECTION_SM", `
		Action: Place the IUT in connectable mode
	`, p.testerEnableConnection)

	p.Register("MMI_IUT_SMP_TIMEOUT_30_SECONDS", `
		Wait for the 30 seconds. Lower tester will not send corresponding or
		next SMP message.
	`, ack)

	p.Register("MMI_IUT_SMP_TIMEOUT_ADDITIONAL_10_SECONDS", `
		Wait for an additional 10 seconds. Lower test will send corresponding or
		next SMP message.
	`, ack)

	p.RegisterPattern("MMI_DISPLAY_PASSKEY_CODE",
		`Please enter (?P<passkey>[0-9]*) in the IUT\.`,
		p.displayPasskey)

	p.Register("MMI_ENTER_PASSKEY_CODE", `
		Please enter 6 digit passkey code.
	`, ack)

	p.Register("MMI_ENTER_WRONG_DYNAMIC_PASSKEY_CODE", `
		Please enter invalid 6 digit pin code.
	`, ack)

	p.RegisterPattern("MMI_IUT_ABORT_PAIRING_PROCESS_DISCONNECT",
		`Lower tester expects IUT aborts pairing process`+
			`(, and disconnect|\. Click OK to confirm pairing is aborted)\.`,
		ack)

	p.Register("MMI_IUT_ACCEPT_CONNECTION_BR_EDR", `
		Please prepare IUT into a connectable mode in BR/EDR.

		Description:
		Verify that the Implementation Under Test (IUT) can accept a connect
		request from PTS.
	`, ack)

	p.Register("_mmi_2001", `
		Please verify the passKey is correct: 000000
	`, ack)

	p.Register("MMI_IUT_INITIATE_CONNECTION_BR_EDR_PAIRING", `
		Please initiate a connection over BR/EDR to the PTS, and initiate
		pairing process.

		Description: Verify that the Implementation Under Test
		(IUT) can initiate a connect request over BR/EDR to PTS, and initiate
		pairing process.
	`, p.initiateBREDRPairing)

	p.Register("MMI_ASK_IUT_PERFORM_FEATURE_EXCHANGE_OVER_BR", `
		Please start pairing feature exchange over BR/EDR.
	`, ack)

	p.Register("MMI_IUT_INITIATES_ENCRYPTION", `
		Initiates encryption with the PTS.
	`, ack)

	p.Register("_mmi_20117", `
		Please start encryption using previously distributed key.

		Description:
		Verify that the Implementation Under Test (IUT) can successfully start
		and complete encryption with previously distributed key.
	`, ack)
}

func (p *SMProxy) enableConnection(ctx context.Context, req *mmi.Request) (string, error) {
	conn, err := p.host.ConnectLE(ctx, bluetooth.RandomAddress, req.PeerAddress)
	if err != nil {
		return "", err
	}

	p.conn = &conn

	return mmi.ReplyOK, nil
}

// performPairing starts the pairing in the background: Secure blocks
// until the procedure completes, but PTS drives the procedure through
// further prompts that must be answered meanwhile.
func (p *SMProxy) performPairing(ctx context.Context, req *mmi.Request) (string, error) {
	if p.conn == nil {
		return mmi.ReplyOK, nil
	}

	conn := *p.conn

	go func() {
		if err := p.security.Secure(context.WithoutCancel(ctx), conn, bluetooth.LELevel3); err != nil {
			p.log.Warn("pairing did not complete",
				zap.String("test", req.Test), zap.Error(err))
		}
	}()

	return mmi.ReplyOK, nil
}

func (p *SMProxy) sendDisconnection(ctx context.Context, req *mmi.Request) (string, error) {
	if p.conn == nil {
		return "", errorkinds.ErrNoConnection
	}

	if err := p.host.Disconnect(ctx, *p.conn); err != nil {
		return "", err
	}

	p.conn = nil

	return mmi.ReplyOK, nil
}

func (p *SMProxy) performReset(ctx context.Context, req *mmi.Request) (string, error) {
	if err := p.host.Reset(ctx); err != nil {
		return "", err
	}

	return mmi.ReplyOK, nil
}

func (p *SMProxy) testerEnableConnection(ctx context.Context, req *mmi.Request) (string, error) {
	stream, err := p.host.Advertise(ctx, bluetooth.AdvertiseSettings{
		Legacy:         true,
		Connectable:    true,
		OwnAddressType: bluetooth.PublicAddress,
	})
	if err != nil {
		return "", err
	}

	p.advertise = stream

	return mmi.ReplyOK, nil
}

func (p *SMProxy) displayPasskey(ctx context.Context, req *mmi.Request) (string, error) {
	passkey, err := strconv.ParseUint(req.Arg("passkey"), 10, 32)
	if err != nil {
		return "", fault.Wrap(err,
			fctx.With(ctx, "test", req.Test, "passkey", req.Arg("passkey")),
			fmsg.With("The displayed passkey is not a number"),
		)
	}

	select {
	case p.passkeys <- uint32(passkey):
	default:
		// A stale passkey from an earlier prompt was never consumed.
		<-p.passkeys
		p.passkeys <- uint32(passkey)
	}

	return mmi.ReplyOK, nil
}

func (p *SMProxy) initiateBREDRPairing(ctx context.Context, req *mmi.Request) (string, error) {
	conn, err := p.host.Connect(ctx, req.PeerAddress)
	if err != nil {
		return "", err
	}

	p.conn = &conn

	return mmi.ReplyOK, nil
}
