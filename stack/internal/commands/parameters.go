package commands

// Argument is a named command parameter.
type Argument string

const (
	AddressArgument        Argument = "--address"
	OwnAddressTypeArgument Argument = "--own-address-type"
	ConnectionArgument     Argument = "--connection"
	ChannelArgument        Argument = "--channel"
	SpsmArgument           Argument = "--spsm"
	DataArgument           Argument = "--data"
	LevelArgument          Argument = "--level"
	LegacyArgument         Argument = "--legacy"
	ConnectableArgument    Argument = "--connectable"
	EventIdArgument        Argument = "--event-id"
	ResponseArgument       Argument = "--response"
	PasskeyArgument        Argument = "--passkey"
	StateArgument          Argument = "--state"
)

func (a Argument) String() string {
	return string(a)
}

// StateArgumentValue renders a boolean flag value.
func StateArgumentValue(enable bool) string {
	if !enable {
		return "off"
	}

	return "on"
}
