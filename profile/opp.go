package profile

import (
	"context"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"go.uber.org/zap"
)

// OPPProxy answers the Object Push Profile and OBEX conformance prompts.
type OPPProxy struct {
	*mmi.Registry

	host bluetooth.Host
	opp  bluetooth.Opp
	log  *zap.Logger

	conn *bluetooth.Connection
}

// NewOPPProxy returns an OPP proxy with all of its prompt handlers
// registered.
func NewOPPProxy(host bluetooth.Host, opp bluetooth.Opp, log *zap.Logger) *OPPProxy {
	if log == nil {
		log = zap.NewNop()
	}

	p := &OPPProxy{
		Registry: mmi.NewRegistry(),
		host:     host,
		opp:      opp,
		log:      log.Named("opp"),
	}

	p.register()

	return p
}

// TestStarted resets per-test connection state.
func (p *OPPProxy) TestStarted(ctx context.Context, test string) error {
	p.conn = nil

	return nil
}

func (p *OPPProxy) register() {
	p.Register("TSC_OBEX_MMI_iut_accept_connect_OPP", `
		Please accept the OBEX CONNECT REQ command for OPP.
	`, p.acceptConnect)

	p.Register("TSC_OPP_mmi_user_action_remove_object", `
		If necessary take action to remove any file(s) named 'BC_BV01.bmp' from
		the IUT.

		Press 'OK' to confirm that the file is not present on the
		IUT.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_accept_put", `
		Please accept the PUT REQUEST.
	`, p.acceptPut)

	p.Register("TSC_OPP_mmi_user_verify_does_object_exist", `
		Does the IUT now contain the following files?

		BC_BV01.bmp

		Note: If
		TSPX_supported_extension is not .bmp, the file content of the file will
		not be formatted for the TSPX_supported extension, this is normal.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_accept_slc_connect_l2cap", `
		Please accept the l2cap channel connection for an OBEX connection.
	`, p.acceptTransportConnect)

	p.Register("TSC_OBEX_MMI_iut_reject_action", `
		Take action to reject the ACTION command sent by PTS.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_accept_disconnect", `
		Please accept the OBEX DISCONNECT REQ command.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_accept_slc_disconnect", `
		Please accept the disconnection of the transport channel.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_initiate_slc_connect_rfcomm", `
		Take action to create an rfcomm channel for an OBEX connection.
	`, p.openRfcommChannel)

	p.Register("TSC_OBEX_MMI_iut_initiate_slc_connect_l2cap", `
		Take action to create an l2cap channel for an OBEX connection.
	`, p.openL2capChannel)

	p.Register("TSC_OPP_mmi_user_verify_opp_format_indication", `
		Does the IUT display that the tester (OPP server) supports the
		following Object Push Formats: vCards, vCal, vNote, vMsg and Other
		content

		Note: If the IUT does not support format indication, please
		press 'Yes' now.
		Note: Do not connect to the tester until requested.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_initiate_connect_OPP", `
		Take action to initiate an OBEX CONNECT REQ for OPP.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_initiate_put", `
		Take action to send a PUT request.  Then allow the operation to
		complete as normal.
	`, ack)

	p.Register("TSC_OPP_mmi_user_verify_client_pushed_file", `
		Does the file named 'x-ms-bmp' in the recently opened window represent
		the file just pushed by the IUT?
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_initiate_slc_disconnect", `
		Take action to disconnect the transport channel.
	`, ack)

	p.Register("TSC_OBEX_MMI_iut_initiate_disconnect", `
		Take action to initiate an OBEX DISCONNECT REQ.
	`, ack)
}

func (p *OPPProxy) acceptConnect(ctx context.Context, req *mmi.Request) (string, error) {
	if p.conn == nil {
		conn, err := p.host.WaitConnection(ctx, req.PeerAddress)
		if err != nil {
			return "", err
		}

		p.conn = &conn
	}

	return mmi.ReplyOK, nil
}

// acceptTransportConnect always waits for a fresh connection: PTS tears
// the link down between OBEX sessions inside a single test.
func (p *OPPProxy) acceptTransportConnect(ctx context.Context, req *mmi.Request) (string, error) {
	conn, err := p.host.WaitConnection(ctx, req.PeerAddress)
	if err != nil {
		return "", err
	}

	p.conn = &conn

	return mmi.ReplyOK, nil
}

func (p *OPPProxy) acceptPut(ctx context.Context, req *mmi.Request) (string, error) {
	if err := p.opp.AcceptPutOperation(ctx); err != nil {
		return "", err
	}

	return mmi.ReplyOK, nil
}

func (p *OPPProxy) openRfcommChannel(ctx context.Context, req *mmi.Request) (string, error) {
	if err := p.opp.OpenRfcommChannel(ctx, req.PeerAddress); err != nil {
		return "", err
	}

	return mmi.ReplyOK, nil
}

func (p *OPPProxy) openL2capChannel(ctx context.Context, req *mmi.Request) (string, error) {
	if err := p.opp.OpenL2capChannel(ctx, req.PeerAddress); err != nil {
		return "", err
	}

	return mmi.ReplyOK, nil
}
