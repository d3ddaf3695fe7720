package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/mmi"
	"github.com/bt-conformance/ptsproxy/profile"
	"github.com/bt-conformance/ptsproxy/rootcanal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type smFixture struct {
	proxy    *profile.SMProxy
	host     *fakeHost
	security *fakeSecurity
}

func newSMFixture(t *testing.T, passkeyTimeout time.Duration) *smFixture {
	t.Helper()

	f := &smFixture{
		host:     &fakeHost{conn: bluetooth.Connection{Handle: 4}},
		security: newFakeSecurity(),
	}

	proxy, err := profile.NewSMProxy(f.host, f.security,
		rootcanal.NewController("", nil), passkeyTimeout, nil)
	require.NoError(t, err)
	t.Cleanup(func() { proxy.Close() })

	f.proxy = proxy

	return f
}

func (f *smFixture) interact(t *testing.T, name, description string) (string, error) {
	t.Helper()

	return f.proxy.Interact(context.Background(), &mmi.Request{
		Name:        name,
		Description: description,
		Test:        "SM/CEN/PKE/BV-01-C",
	})
}

func (f *smFixture) waitAnswer(t *testing.T) bluetooth.PairingAnswer {
	t.Helper()

	select {
	case answer := <-f.security.pairing.answers:
		return answer
	case <-time.After(5 * time.Second):
		t.Fatal("no pairing answer arrived")
		return bluetooth.PairingAnswer{}
	}
}

func TestSMJustWorksConfirmedImmediately(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	f.security.pairing.events <- bluetooth.PairingEvent{ID: 1, Method: bluetooth.MethodJustWorks}

	answer := f.waitAnswer(t)
	assert.Equal(t, uint64(1), answer.EventID)
	assert.True(t, answer.Confirm)
}

func TestSMNumericComparisonConfirmedImmediately(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	f.security.pairing.events <- bluetooth.PairingEvent{
		ID:                2,
		Method:            bluetooth.MethodNumericComparison,
		NumericComparison: 385874,
	}

	answer := f.waitAnswer(t)
	assert.Equal(t, uint64(2), answer.EventID)
	assert.True(t, answer.Confirm)
}

func TestSMDisplayedPasskeyAnswersEntryRequest(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	reply, err := f.interact(t, "MMI_DISPLAY_PASSKEY_CODE", "Please enter 123456 in the IUT.")
	require.NoError(t, err)
	assert.Equal(t, mmi.ReplyOK, reply)

	f.security.pairing.events <- bluetooth.PairingEvent{ID: 3, Method: bluetooth.MethodPasskeyEntryRequest}

	answer := f.waitAnswer(t)
	assert.Equal(t, uint64(3), answer.EventID)
	assert.False(t, answer.Confirm)
	assert.Equal(t, uint32(123456), answer.Passkey)
}

func TestSMPasskeyTimeoutLeavesChallengeUnanswered(t *testing.T) {
	f := newSMFixture(t, 50*time.Millisecond)

	f.security.pairing.events <- bluetooth.PairingEvent{ID: 4, Method: bluetooth.MethodPasskeyEntryRequest}

	select {
	case answer := <-f.security.pairing.answers:
		t.Fatalf("challenge should stay unanswered, got %+v", answer)
	case <-time.After(300 * time.Millisecond):
	}

	// The responder keeps serving after the timeout.
	f.security.pairing.events <- bluetooth.PairingEvent{ID: 5, Method: bluetooth.MethodJustWorks}

	answer := f.waitAnswer(t)
	assert.Equal(t, uint64(5), answer.EventID)
}

func TestSMConnectionLifecycle(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	reply, err := f.interact(t, "MMI_IUT_ENABLE_CONNECTION_SM",
		"Initiate an connection from the IUT to the PTS.")
	require.NoError(t, err)
	assert.Equal(t, mmi.ReplyOK, reply)

	require.Len(t, f.host.leOwnTypes, 1)
	assert.Equal(t, bluetooth.RandomAddress, f.host.leOwnTypes[0])

	disconnect := `Please initiate a disconnection to the PTS.

		Description: Verify that
		the Implementation Under Test(IUT) can initiate a disconnect request to
		PTS.`

	_, err = f.interact(t, "MMI_IUT_SEND_DISCONNECTION_REQUEST", disconnect)
	require.NoError(t, err)
	require.Len(t, f.host.disconnects, 1)
	assert.Equal(t, f.host.conn, f.host.disconnects[0])
}

func TestSMPerformPairingRunsInBackground(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	_, err := f.interact(t, "MMI_IUT_ENABLE_CONNECTION_SM",
		"Initiate an connection from the IUT to the PTS.")
	require.NoError(t, err)

	reply, err := f.interact(t, "MMI_ASK_IUT_PERFORM_PAIRING_PROCESS", "Please start pairing process.")
	require.NoError(t, err)
	assert.Equal(t, mmi.ReplyOK, reply)

	select {
	case conn := <-f.security.secured:
		assert.Equal(t, f.host.conn, conn)
	case <-time.After(5 * time.Second):
		t.Fatal("pairing was never started")
	}
}

func TestSMResetAndAdvertise(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	_, err := f.interact(t, "MMI_ASK_IUT_PERFORM_RESET", "Please reset your device.")
	require.NoError(t, err)
	assert.Equal(t, 1, f.host.resets)

	_, err = f.interact(t, "MMI_TESTER_ENABLE_CONNECTION_SM",
		"Action: Place the IUT in connectable mode")
	require.NoError(t, err)
	require.Len(t, f.host.advertised, 1)
	assert.Equal(t, bluetooth.PublicAddress, f.host.advertised[0].OwnAddressType)
}

func TestSMAbortPairingPromptVariants(t *testing.T) {
	variants := []string{
		"Lower tester expects IUT aborts pairing process, and disconnect.",
		"Lower tester expects IUT aborts pairing process. Click OK to confirm pairing is aborted.",
	}

	for _, description := range variants {
		f := newSMFixture(t, 15*time.Second)

		reply, err := f.interact(t, "MMI_IUT_ABORT_PAIRING_PROCESS_DISCONNECT", description)
		require.NoError(t, err, description)
		assert.Equal(t, mmi.ReplyOK, reply)
	}
}

func TestSMNumericComparisonPromptNotValidated(t *testing.T) {
	f := newSMFixture(t, 15*time.Second)

	reply, err := f.interact(t, "MMI_LESC_NUMERIC_COMPARISON",
		"Please confirm the following number matches IUT: 902167.")
	require.NoError(t, err)
	assert.Equal(t, mmi.ReplyOK, reply)
}
