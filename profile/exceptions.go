package profile

// Per-test exception tables, keyed by PTS test identifier. These record
// known, tolerated behavioral differences of the reference stack against
// the conformance suite. Keep every entry here rather than inline in a
// handler so the full set stays auditable in one place.

// creditBasedConnectExpectedFailures lists tests whose LE credit-based
// connection attempt is expected to be rejected by PTS; the rejection is
// the passing outcome and is recorded in the status map for the
// confirmation prompt that follows.
var creditBasedConnectExpectedFailures = map[string]struct{}{
	"L2CAP/LE/CFC/BV-01-C": {},
	"L2CAP/LE/CFC/BV-04-C": {},
	"L2CAP/LE/CFC/BV-14-C": {},
	"L2CAP/LE/CFC/BV-16-C": {},
	"L2CAP/LE/CFC/BV-18-C": {},
	"L2CAP/LE/CFC/BV-19-C": {},
	"L2CAP/LE/CFC/BV-21-C": {},
}

// serverSocketPreopenTests lists tests that expect the IUT to already be
// listening on a credit-based server channel when PTS connects; the
// channel is opened while entering connectable mode to save the wait.
var serverSocketPreopenTests = map[string]struct{}{
	"L2CAP/COS/CFC/BV-01-C": {},
	"L2CAP/COS/CFC/BV-02-C": {},
	"L2CAP/COS/CFC/BV-03-C": {},
	"L2CAP/COS/CFC/BV-04-C": {},
	"L2CAP/LE/CFC/BV-03-C":  {},
	"L2CAP/LE/CFC/BV-06-C":  {},
	"L2CAP/LE/CFC/BV-09-C":  {},
	"L2CAP/LE/CFC/BV-20-C":  {},
	"L2CAP/LE/CFC/BI-01-C":  {},
}

// aclDisconnectSkips lists tests where the ACL disconnect prompt is
// acknowledged without disconnecting: the stack has no profile-level
// disconnect for these flows and dropping the ACL would fail the test.
var aclDisconnectSkips = map[string]struct{}{
	"L2CAP/COS/CED/BV-01-C": {},
	"L2CAP/COS/CED/BV-04-C": {},
	"L2CAP/COS/CED/BV-09-C": {},
	"L2CAP/COS/CFD/BV-08-C": {},
	"L2CAP/CMC/BI-05-C":     {},
	"L2CAP/CMC/BI-06-C":     {},
}

// SPSM values from the PTS implementation conformance statement. The
// non-default entries steer a test onto an SPSM the IUT rejects for the
// reason under test.
const defaultSPSM = 0x25 // TSPX_spsm

var spsmOverrides = map[string]uint16{
	"L2CAP/LE/CFC/BV-04-C": 0xF1, // TSPX_psm_unsupported
	"L2CAP/LE/CFC/BV-10-C": 0xF2, // TSPX_psm_authentication_required
	"L2CAP/LE/CFC/BV-12-C": 0xF3, // TSPX_psm_authorization_required
}

func spsmForTest(test string) uint16 {
	if spsm, ok := spsmOverrides[test]; ok {
		return spsm
	}

	return defaultSPSM
}
