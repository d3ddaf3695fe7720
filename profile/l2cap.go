package profile

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"github.com/bt-conformance/ptsproxy/rootcanal"
	"go.uber.org/zap"
)

// Payloads sent on credit-based channels. The "large" packet is kept to a
// single frame: PTS intermittently reports missing L2CAP data when frames
// arrive more than ~100ms apart, even though all of them reach the air.
const (
	leDataPacketLarge  = "data: LE_DATA_PACKET_LARGE"
	leDataPacket1      = "data: LE_PACKET1"
	leDataPacket4Frame = "this is a large data package with at least 4 frames: MMI_UPPER_TESTER_SEND_LE_DATA_PACKET_LARGE"
)

// L2CAPProxy answers the L2CAP conformance prompts.
type L2CAPProxy struct {
	*mmi.Registry

	host     bluetooth.Host
	l2cap    bluetooth.L2CAP
	security bluetooth.Security
	canal    *rootcanal.Controller
	status   *StatusMap
	log      *zap.Logger

	conn      *bluetooth.Connection
	channel   *bluetooth.Channel
	advertise bluetooth.ConnectionStream
	pairing   bluetooth.PairingStream
}

// NewL2CAPProxy returns an L2CAP proxy with all of its prompt handlers
// registered.
func NewL2CAPProxy(host bluetooth.Host, l2cap bluetooth.L2CAP, security bluetooth.Security,
	canal *rootcanal.Controller, status *StatusMap, log *zap.Logger) *L2CAPProxy {
	if log == nil {
		log = zap.NewNop()
	}

	p := &L2CAPProxy{
		Registry: mmi.NewRegistry(),
		host:     host,
		l2cap:    l2cap,
		security: security,
		canal:    canal,
		status:   status,
		log:      log.Named("l2cap"),
	}

	p.register()

	return p
}

// TestStarted selects the PTS dongle before the first prompt of a test.
func (p *L2CAPProxy) TestStarted(ctx context.Context, test string) error {
	return p.canal.SelectDongle(ctx, rootcanal.CsrRckPtsDongle)
}

func (p *L2CAPProxy) register() {
	p.Register("MMI_TESTER_ENABLE_LE_CONNECTION", `
		Place the IUT into LE connectable mode.
	`, p.testerEnableLEConnection)

	p.Register("MMI_IUT_SEND_LE_CREDIT_BASED_CONNECTION_REQUEST", `
		Using the Implementation Under Test (IUT), send a LE Credit based
		connection request to PTS.

		Description: Verify that IUT can setup LE
		credit based channel.
	`, p.sendLECreditBasedConnectionRequest)

	p.Register("MMI_UPPER_TESTER_SEND_LE_DATA_PACKET_LARGE", `
		Upper Tester command IUT to send LE data packet(s) to the PTS.
		Description : The Implementation Under Test(IUT) should send multiple LE
		frames of LE data to PTS.
	`, p.sendPayload(leDataPacketLarge))

	p.Register("MMI_UPPER_TESTER_SEND_LE_DATA_PACKET1", `
		Upper Tester command IUT to send a non-segmented LE data packet to the
		PTS with any values.
		Description : The Implementation Under Test(IUT)
		should send none segmantation LE frame of LE data to the PTS.
	`, p.sendPayload(leDataPacket1))

	p.Register("MMI_UPPER_TESTER_SEND_LE_DATA_PACKET4", `
		Upper Tester command IUT to send at least 4 frames of LE data packets to
		the PTS.
	`, p.sendPayload(leDataPacket4Frame))

	p.Register("MMI_UPPER_TESTER_SEND_LE_DATA_PACKET_CONTINUE", `
		IUT continue to send LE data packet(s) to the PTS.
	`, p.sendPayload(leDataPacket4Frame))

	p.RegisterPattern("MMI_UPPER_TESTER_CONFIRM_LE_DATA",
		`Did the Upper Tester send the data (?P<sent_data>[0-9A-F]*) to to the `+
			`PTS\? Click Yes if it matched, otherwise click No\. `+
			`Description: The Implementation Under Test `+
			`\(IUT\) send data is receive correctly in the PTS\.`,
		p.confirmLEData)

	p.Register("MMI_UPPER_TESTER_CONFIRM_DATA_RECEIVE", `
		Please confirm the Upper Tester receive data
	`, p.confirmDataReceive)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_COMMAND_NOT_UNDERSTAOOD", `
		Did Implementation Under Test(IUT) receive L2CAP Reject with 'command
		not understood' error?
		Click Yes if it is, otherwise click No.
		Description : Verify that after receiving the Command Reject from the
		Lower Tester, the IUT inform the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_PSM", `
		Did Implementation Under Test(IUT) receive Request Reject with 'LE_PSM
		not supported' 0x0002 error.Click Yes if it is, otherwise click No.
		Description : Verify that after receiving the Credit Based Connection
		Request reject from the Lower Tester, the IUT inform the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_AUTHENTICATION", `
		Did Implementation Under Test(IUT) receive Connection refused
		'Insufficient Authentication' 0x0005 error?

		Click Yes if IUT received
		it, otherwise click NO.

		Description: Verify that after receiving the
		Credit Based Connection Request Refused With No Resources error from the
		Lower Tester, the IUT informs the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_AUTHORIZATION", `
		Did Implementation Under Test(IUT) receive Connection refused
		'Insufficient Authorization' 0x0006 error?

		Click Yes if IUT received
		it, otherwise click NO.

		Description: Verify that after receiving the
		Credit Based Connection Request Refused With No Resources error from the
		Lower Tester, the IUT informs the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_ENCRYPTION_KEY_SIZE", `
		Did Implementation Under Test(IUT) receive Connection refused
		'Insufficient Encryption Key Size' 0x0007 error?

		Click Yes if IUT
		received it, otherwise click NO.

		Description: Verify that after
		receiving the Credit Based Connection Request Refused With No Resources
		error from the Lower Tester, the IUT informs the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_INVALID_SOURCE_CID", `
		Did Implementation Under Test(IUT) receive Connection refused 'Invalid
		Source CID' 0x0009 error? And does not send anything over refuse LE data
		channel? Click Yes if it is, otherwise click No.
		Description : Verify
		that after receiving the Credit Based Connection Request refused with
		Invalid Source CID error from the Lower Tester, the IUT inform the Upper
		Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_SOURCE_CID_ALREADY_ALLOCATED", `
		Did Implementation Under Test(IUT) receive Connection refused 'Source
		CID Already Allocated' 0x000A error? And did not send anything over
		refuse LE data channel.Click Yes if it is, otherwise click No.
		Description : Verify that after receiving the Credit Based Connection
		Request refused with Source CID Already Allocated error from the Lower
		Tester, the IUT inform the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_UNACCEPTABLE_PARAMETERS", `
		Did Implementation Under Test(IUT) receive Connection refused
		'Unacceptable Parameters' 0x000B error? Click Yes if it is, otherwise
		click No.
		Description: Verify that after receiving the Credit Based
		Connection Request refused with Unacceptable Parameters error from the
		Lower Tester, the IUT inform the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_UPPER_TESTER_CONFIRM_RECEIVE_REJECT_RESOURCES", `
		Did Implementation Under Test(IUT) receive Connection refused
		'Insufficient Resources' 0x0004 error? Click Yes if it is, otherwise
		click No.
		Description : Verify that after receiving the Credit Based
		Connection Request refused with No resources error from the Lower
		Tester, the IUT inform the Upper Tester.
	`, p.confirmRecordedReject)

	p.Register("MMI_IUT_SEND_INSUFFICIENT_AUTHENTICATION_ON_LE", `
		Please make sure an authentication requirement exists for a channel
		L2CAP.
		When receiving Credit Based Connection Request from PTS, please
		respond with Result 0x0005 (Insufficient Authentication)
	`, p.confirmRecordedReject)
	p.Alias("_mmi_135", "MMI_IUT_SEND_INSUFFICIENT_AUTHENTICATION_ON_LE")

	p.Register("MMI_IUT_SEND_INSUFFICIENT_AUTHORIZATION_ON_LE", `
		Please make sure an authorization requirement exists for a channel
		L2CAP.
		When receiving Credit Based Connection Request from PTS, please
		respond with Result 0x0006 (Insufficient Authorization)
	`, ack)
	p.Alias("_mmi_136", "MMI_IUT_SEND_INSUFFICIENT_AUTHORIZATION_ON_LE")

	p.RegisterAny("MMI_IUT_ENABLE_LE_CONNECTION", p.iutEnableLEConnection)

	p.Register("MMI_IUT_SEND_ACL_DISCONNECTION", `
		Initiate an ACL disconnection from the IUT to the PTS.
		Description :
		The Implementation Under Test(IUT) should disconnect ACL channel by
		sending a disconnect request to PTS.
	`, p.sendACLDisconnection)

	p.RegisterAny("MMI_TESTER_ENABLE_CONNECTION", ack)

	p.Register("MMI_IUT_INITIATE_ACL_CONNECTION", `
		Using the Implementation Under Test(IUT), initiate ACL Create Connection
		Request to the PTS.

		Description : The Implementation Under Test(IUT)
		should create ACL connection request to PTS.
	`, p.initiateACLConnection)

	p.Register("_mmi_2001", `
		Please verify the passKey is correct: 000000
	`, p.verifyPasskey)

	p.Register("MMI_IUT_SEND_CONFIG_REQ", `
		Please send Configure Request.
	`, ack)

	p.Register("MMI_IUT_SEND_CONFIG_RSP", `
		Please send Configure Response.
	`, ack)

	p.Register("MMI_IUT_SEND_DISCONNECT_RSP", `
		Please send L2CAP Disconnection Response to PTS.
	`, ack)

	p.Register("MMI_IUT_SEND_L2CAP_DATA", `
		Using the Implementation Under Test(IUT), send L2CAP_Data over the
		assigned channel with correct DCID to the PTS.
	`, ack)

	p.Register("MMI_IUT_DISABLE_CONNECTION", `
		Initiate an L2CAP disconnection from the IUT to the PTS.

		Description :
		The Implementation Under Test(IUT) should disconnect the active L2CAP
		channel by sending a disconnect request to PTS.
	`, ack)

	p.Register("MMI_IUT_SEND_CONFIGURE_CONNECTION_ACCORDING_TO_FEATURE", `
		Please initiate Information Request procedure to discover supported
		features and configure connection.
	`, ack)

	p.Register("MMI_IUT_REPORT_ERROR", `
		Did the Implementation Under Test(IUT) inform the Upper Tester the
		connection attempt failed?
	`, ack)

	p.Register("MMI_IUT_SEND_L2CAP_CONNECTION_REQ", `
		Please send L2CAP Connection REQ to PTS.
	`, ack)

	p.Register("MMI_CONFIRM_UPPER_TESTER_DOES_NOT_RECEIVE_DATA", `
		Please confirm the IUT does not send the L2CAP Data to the Upper Tester.
		Click Yes if the IUT is not sending data to the Upper Tester. Otherwise
		click No if it is.
	`, ack)
}

func (p *L2CAPProxy) testerEnableLEConnection(ctx context.Context, req *mmi.Request) (string, error) {
	stream, err := p.host.Advertise(ctx, bluetooth.AdvertiseSettings{
		Legacy:         true,
		Connectable:    true,
		OwnAddressType: bluetooth.PublicAddress,
	})
	if err != nil {
		return "", err
	}

	p.advertise = stream

	if _, ok := serverSocketPreopenTests[req.Test]; ok {
		channel, err := p.l2cap.WaitConnection(ctx, bluetooth.CreditBasedChannelRequest{SPSM: 0})
		if err != nil {
			return "", err
		}

		p.channel = &channel
	}

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) sendLECreditBasedConnectionRequest(ctx context.Context, req *mmi.Request) (string, error) {
	// PTS raises this prompt twice in L2CAP/LE/CFC/BV-02-C: the first
	// connection succeeds and the second is expected to fail because the
	// tester's server socket is gone. A manual tester answers "Yes" both
	// times, so the second invocation just acknowledges.
	if p.conn != nil && req.Test == "L2CAP/LE/CFC/BV-02-C" {
		return mmi.ReplyOK, nil
	}

	if p.conn != nil {
		return "", fault.New("the connection should be unset for the first request",
			fctx.With(ctx, "test", req.Test),
		)
	}

	if p.advertise == nil {
		return "", fault.Wrap(errorkinds.ErrNoConnection,
			fctx.With(ctx, "test", req.Test),
			fmsg.With("The IUT was never placed into connectable mode"),
		)
	}

	conn, err := p.advertise.Next(ctx)
	if err != nil {
		return "", err
	}
	p.conn = &conn

	channel, err := p.l2cap.Connect(ctx, conn, bluetooth.CreditBasedChannelRequest{
		SPSM: spsmForTest(req.Test),
	})
	if err != nil {
		if _, expected := creditBasedConnectExpectedFailures[req.Test]; expected {
			p.status.Record(req.Test, mmi.ReplyOK)
			p.log.Info("credit based connect failed as expected",
				zap.String("test", req.Test), zap.Error(err))

			return mmi.ReplyOK, nil
		}

		p.log.Error("credit based connect failed",
			zap.String("test", req.Test), zap.Error(err))

		return "", err
	}

	p.channel = &channel

	return mmi.ReplyOK, nil
}

// sendPayload returns a handler that transmits a fixed payload over the
// open channel.
func (p *L2CAPProxy) sendPayload(payload string) mmi.Func {
	return func(ctx context.Context, req *mmi.Request) (string, error) {
		if p.channel == nil {
			return "", errorkinds.ErrNoChannel
		}

		if err := p.l2cap.Send(ctx, *p.channel, []byte(payload)); err != nil {
			return "", err
		}

		return mmi.ReplyOK, nil
	}
}

func (p *L2CAPProxy) confirmLEData(ctx context.Context, req *mmi.Request) (string, error) {
	expected := bluetooth.HexUpper([]byte(leDataPacketLarge))
	if req.Test == "L2CAP/COS/CFC/BV-02-C" {
		expected = bluetooth.HexUpper([]byte(leDataPacket1))
	}

	if sent := req.Arg("sent_data"); sent != expected {
		return "", fault.New("transmitted data does not match: sent "+sent+", expected "+expected,
			fctx.With(ctx, "test", req.Test),
		)
	}

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) confirmDataReceive(ctx context.Context, req *mmi.Request) (string, error) {
	if p.channel == nil {
		return "", errorkinds.ErrNoChannel
	}

	stream, err := p.l2cap.Receive(ctx, *p.channel)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	data, err := stream.Next(ctx)
	if err != nil {
		return "", err
	}

	if len(data) == 0 {
		return "", fault.New("received data should not be empty",
			fctx.With(ctx, "test", req.Test),
		)
	}

	return mmi.ReplyOK, nil
}

// confirmRecordedReject acknowledges only when an earlier prompt in the
// same test recorded the expected rejection.
func (p *L2CAPProxy) confirmRecordedReject(ctx context.Context, req *mmi.Request) (string, error) {
	if !p.status.Passed(req.Test) {
		return "", fault.Wrap(errorkinds.ErrRejectNotObserved,
			fctx.With(ctx, "test", req.Test, "mmi", req.Name),
			fmsg.With("Unexpected command was received instead of the expected rejection"),
		)
	}

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) iutEnableLEConnection(ctx context.Context, req *mmi.Request) (string, error) {
	conn, err := p.host.ConnectLE(ctx, bluetooth.RandomAddress, req.PeerAddress)
	if err != nil {
		return "", err
	}

	p.conn = &conn

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) sendACLDisconnection(ctx context.Context, req *mmi.Request) (string, error) {
	if _, skip := aclDisconnectSkips[req.Test]; skip {
		return mmi.ReplyOK, nil
	}

	if p.conn == nil {
		return "", errorkinds.ErrNoConnection
	}

	if err := p.host.Disconnect(ctx, *p.conn); err != nil {
		return "", err
	}

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) initiateACLConnection(ctx context.Context, req *mmi.Request) (string, error) {
	pairing, err := p.security.OnPairing(ctx)
	if err != nil {
		return "", err
	}
	p.pairing = pairing

	conn, err := p.host.Connect(ctx, req.PeerAddress)
	if err != nil {
		return "", err
	}
	p.conn = &conn

	return mmi.ReplyOK, nil
}

func (p *L2CAPProxy) verifyPasskey(ctx context.Context, req *mmi.Request) (string, error) {
	const passkey = 0 // prompt always shows 000000

	if p.pairing == nil {
		return "", fault.New("no pairing stream is open", fctx.With(ctx, "test", req.Test))
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()

	case event, ok := <-p.pairing.Events():
		if !ok {
			return "", errorkinds.ErrStreamClosed
		}

		if event.Method != bluetooth.MethodNumericComparison || event.NumericComparison != passkey {
			return "", fault.New("the passkey does not match",
				fctx.With(ctx, "test", req.Test),
			)
		}

		if err := p.pairing.Answer(ctx, bluetooth.PairingAnswer{EventID: event.ID, Confirm: true}); err != nil {
			return "", err
		}

		return mmi.ReplyOK, nil
	}
}

// ack acknowledges prompts that require no action from the IUT.
func ack(context.Context, *mmi.Request) (string, error) {
	return mmi.ReplyOK, nil
}
