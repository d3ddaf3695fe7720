package profile

import (
	"context"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"go.uber.org/zap"
)

// browsableServices is the service list the reference stack publishes in
// its browse group, in publication order.
var browsableServices = ServiceListRule{
	Expected: []string{
		"Generic Attribute service",
		"Generic Access",
		"AudioSource",
		"A/V_RemoteControlTarget",
		"A/V_RemoteControl",
		"A/V_RemoteControlController",
		"Headset - Audio Gateway",
		"GenericAudio",
		"HandsfreeAudioGateway",
		"GenericAudio",
		"Message Access Server",
		"NAP",
		"PANU",
		"TMAS",
		"Phonebook Access - PSE",
		"OBEXObjectPush",
		"Android Auto Compatibility",
	},
	Optional: []string{
		"Generic Attribute service",
		"A/V_RemoteControlController",
		"Android Auto Compatibility",
		"TMAS",
	},
	// This list should never be extended.
	Movable: []string{
		"Message Access Server",
		"TMAS",
	},
}

// SDPProxy answers the Service Discovery Protocol conformance prompts.
// The stack answers SDP requests on its own; the proxy only acknowledges
// and verifies the reported browse results.
type SDPProxy struct {
	*mmi.Registry

	log *zap.Logger
}

// NewSDPProxy returns an SDP proxy with all of its prompt handlers
// registered.
func NewSDPProxy(log *zap.Logger) *SDPProxy {
	if log == nil {
		log = zap.NewNop()
	}

	p := &SDPProxy{
		Registry: mmi.NewRegistry(),
		log:      log.Named("sdp"),
	}

	p.register()

	return p
}

// TestStarted is a no-op; the proxy keeps no per-test state.
func (p *SDPProxy) TestStarted(ctx context.Context, test string) error {
	return nil
}

func (p *SDPProxy) register() {
	p.Register("TSC_SDP_mmi_iut_accept_connection", `
		If necessary take action to accept the SDP channel connection.
	`, ack)
	p.Alias("_mmi_6000", "TSC_SDP_mmi_iut_accept_connection")

	p.Register("TSC_SDP_mmi_iut_accept_service_attribute", `
		If necessary take action to respond to the Service Attribute operation
		appropriately.
	`, ack)
	p.Alias("_mmi_6001", "TSC_SDP_mmi_iut_accept_service_attribute")

	p.Register("TSC_SDP_mmi_iut_accept_service_search", `
		If necessary take action to accept the Service Search operation.
	`, ack)
	p.Alias("_mmi_6002", "TSC_SDP_mmi_iut_accept_service_search")

	p.Register("TSC_SDP_mmi_iut_accept_service_search_attribute", `
		If necessary take action to respond to the Service Search Attribute
		operation appropriately.
	`, ack)
	p.Alias("_mmi_6003", "TSC_SDP_mmi_iut_accept_service_search_attribute")

	p.RegisterPattern("TSC_SDP_mmi_verify_browsable_services",
		`Are all browsable service classes listed below\? `+
			`(?P<uuids>(?:0x[0-9A-F]+, )+0x[0-9A-F]+)`,
		p.verifyBrowsableServices)
}

func (p *SDPProxy) verifyBrowsableServices(ctx context.Context, req *mmi.Request) (string, error) {
	tokens := strings.Split(req.Arg("uuids"), ", ")

	reported := make([]string, 0, len(tokens))
	for _, token := range tokens {
		reported = append(reported, ServiceName(token))
	}

	if err := browsableServices.Verify(reported); err != nil {
		return "", fault.Wrap(err, fctx.With(ctx, "test", req.Test))
	}

	return mmi.ReplyOK, nil
}
