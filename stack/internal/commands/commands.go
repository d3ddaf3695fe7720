package commands

import (
	"encoding/hex"
	"strconv"

	"github.com/bt-conformance/ptsproxy/api/bluetooth"
)

// Host commands.
func Connect(peer bluetooth.Address) *Command[bluetooth.Connection] {
	return (&Command[bluetooth.Connection]{cmd: "host connect"}).
		WithArgument(AddressArgument, peer.String())
}
func ConnectLE(own bluetooth.OwnAddressType, peer bluetooth.Address) *Command[bluetooth.Connection] {
	return (&Command[bluetooth.Connection]{cmd: "host connect-le"}).WithArguments(func(am ArgumentMap) {
		am[OwnAddressTypeArgument] = string(own)
		am[AddressArgument] = peer.String()
	})
}
func WaitConnection(peer bluetooth.Address) *Command[bluetooth.Connection] {
	return (&Command[bluetooth.Connection]{cmd: "host wait-connection"}).
		WithArgument(AddressArgument, peer.String())
}
func StartAdvertise(settings bluetooth.AdvertiseSettings) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "host advertise start"}).WithArguments(func(am ArgumentMap) {
		am[OwnAddressTypeArgument] = string(settings.OwnAddressType)
		am[LegacyArgument] = StateArgumentValue(settings.Legacy)
		am[ConnectableArgument] = StateArgumentValue(settings.Connectable)
	})
}
func Disconnect(conn bluetooth.Connection) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "host disconnect"}).
		WithArgument(ConnectionArgument, strconv.FormatUint(conn.Handle, 10))
}
func Reset() *Command[NoResult] {
	return &Command[NoResult]{cmd: "host reset"}
}

// L2CAP commands.
func OpenCreditBasedChannel(conn bluetooth.Connection, req bluetooth.CreditBasedChannelRequest) *Command[bluetooth.Channel] {
	return (&Command[bluetooth.Channel]{cmd: "l2cap connect"}).WithArguments(func(am ArgumentMap) {
		am[ConnectionArgument] = strconv.FormatUint(conn.Handle, 10)
		am[SpsmArgument] = bluetooth.SPSMString(req.SPSM)
	})
}
func ListenCreditBasedChannel(req bluetooth.CreditBasedChannelRequest) *Command[bluetooth.Channel] {
	return (&Command[bluetooth.Channel]{cmd: "l2cap wait-connection"}).
		WithArgument(SpsmArgument, bluetooth.SPSMString(req.SPSM))
}
func SendData(ch bluetooth.Channel, data []byte) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "l2cap send"}).WithArguments(func(am ArgumentMap) {
		am[ChannelArgument] = strconv.FormatUint(ch.ID, 10)
		am[DataArgument] = hex.EncodeToString(data)
	})
}
func StartReceive(ch bluetooth.Channel) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "l2cap receive start"}).
		WithArgument(ChannelArgument, strconv.FormatUint(ch.ID, 10))
}

// Security commands.
func Secure(conn bluetooth.Connection, level bluetooth.SecurityLevel) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "security secure"}).WithArguments(func(am ArgumentMap) {
		am[ConnectionArgument] = strconv.FormatUint(conn.Handle, 10)
		am[LevelArgument] = string(level)
	})
}
func StartPairingEvents() *Command[NoResult] {
	return &Command[NoResult]{cmd: "security pairing-events start"}
}
func PairingReply(answer bluetooth.PairingAnswer) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "security pairing-reply"}).WithArguments(func(am ArgumentMap) {
		am[EventIdArgument] = strconv.FormatUint(answer.EventID, 10)
		if answer.Confirm {
			am[ResponseArgument] = "confirm"
		} else {
			am[ResponseArgument] = "passkey"
			am[PasskeyArgument] = strconv.FormatUint(uint64(answer.Passkey), 10)
		}
	})
}

// Opp commands.
func AcceptPutOperation() *Command[NoResult] {
	return &Command[NoResult]{cmd: "opp accept-put"}
}
func OpenRfcommChannel(peer bluetooth.Address) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "opp open-rfcomm"}).
		WithArgument(AddressArgument, peer.String())
}
func OpenL2capChannel(peer bluetooth.Address) *Command[NoResult] {
	return (&Command[NoResult]{cmd: "opp open-l2cap"}).
		WithArgument(AddressArgument, peer.String())
}
