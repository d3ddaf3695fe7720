// Package bluetooth defines the value types and client interfaces used to
// drive the Implementation Under Test's Bluetooth stack over its RPC surface.
package bluetooth

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// Address is the Bluetooth device address of a peer.
type Address struct {
	net.HardwareAddr
}

// ParseAddress parses a colon-separated Bluetooth address.
func ParseAddress(s string) (Address, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return Address{}, err
	}

	return Address{hw}, nil
}

// AddressFromBytes wraps a raw 6-byte address as delivered by the
// conformance-test driver.
func AddressFromBytes(b []byte) Address {
	hw := make(net.HardwareAddr, len(b))
	copy(hw, b)

	return Address{hw}
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return len(a.HardwareAddr) == 0
}

// MarshalJSON encodes the address in its colon-separated form.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a colon-separated address.
func (a *Address) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" {
		a.HardwareAddr = nil
		return nil
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}

// OwnAddressType selects the address type the IUT uses on the air.
type OwnAddressType string

const (
	PublicAddress OwnAddressType = "public"
	RandomAddress OwnAddressType = "random"
)

// Connection is an opaque token for an established ACL or LE link.
type Connection struct {
	Handle uint64 `json:"handle"`
}

// IsZero reports whether the token refers to no connection.
func (c Connection) IsZero() bool {
	return c.Handle == 0
}

// Channel is an opaque token for an open credit-based data channel.
type Channel struct {
	ID uint64 `json:"id"`
}

// IsZero reports whether the token refers to no channel.
func (c Channel) IsZero() bool {
	return c.ID == 0
}

// AdvertiseSettings configures connectable advertising on the IUT.
type AdvertiseSettings struct {
	Legacy         bool           `json:"legacy"`
	Connectable    bool           `json:"connectable"`
	OwnAddressType OwnAddressType `json:"own_address_type"`
}

// CreditBasedChannelRequest describes an LE credit-based channel endpoint.
// An SPSM of zero asks the stack to listen on its default test SPSM.
type CreditBasedChannelRequest struct {
	SPSM uint16 `json:"spsm"`
}

// SecurityLevel is the pairing level requested from the security service.
type SecurityLevel string

// LELevel3 requests LE pairing with encryption (authenticated, Mode 1 Level 3).
const LELevel3 SecurityLevel = "le-level3"

// PairingMethod discriminates the kind of a pairing challenge.
type PairingMethod string

const (
	MethodJustWorks           PairingMethod = "just-works"
	MethodNumericComparison   PairingMethod = "numeric-comparison"
	MethodPasskeyEntryRequest PairingMethod = "passkey-entry-request"
)

// PairingEvent is a single pairing challenge raised by the stack.
type PairingEvent struct {
	ID                uint64        `json:"id"`
	Address           Address       `json:"address"`
	Method            PairingMethod `json:"method"`
	NumericComparison uint32        `json:"numeric_comparison,omitempty"`
}

// PairingAnswer answers a previously delivered pairing challenge.
type PairingAnswer struct {
	EventID uint64
	Confirm bool
	Passkey uint32
}

// HexUpper renders a payload the way PTS reports transmitted data in its
// confirmation prompts.
func HexUpper(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// SPSMString renders an SPSM value in the 0x-prefixed form used on the wire.
func SPSMString(spsm uint16) string {
	return fmt.Sprintf("0x%02X", spsm)
}
