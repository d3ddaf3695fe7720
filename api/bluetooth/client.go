package bluetooth

import "context"

// Host describes connection-level control of the IUT.
type Host interface {
	// Connect initiates a BR/EDR ACL connection to the peer.
	Connect(ctx context.Context, peer Address) (Connection, error)

	// ConnectLE initiates an LE ACL connection to the peer.
	ConnectLE(ctx context.Context, own OwnAddressType, peer Address) (Connection, error)

	// WaitConnection blocks until the peer connects to the IUT.
	WaitConnection(ctx context.Context, peer Address) (Connection, error)

	// Advertise starts connectable advertising and returns a stream of
	// connections accepted while advertising.
	Advertise(ctx context.Context, settings AdvertiseSettings) (ConnectionStream, error)

	// Disconnect tears down an established connection.
	Disconnect(ctx context.Context, conn Connection) error

	// Reset restores the stack to its initial state.
	Reset(ctx context.Context) error
}

// L2CAP describes credit-based channel operations on the IUT.
type L2CAP interface {
	// Connect opens an LE credit-based channel on an established connection.
	Connect(ctx context.Context, conn Connection, req CreditBasedChannelRequest) (Channel, error)

	// WaitConnection listens for an inbound credit-based channel.
	WaitConnection(ctx context.Context, req CreditBasedChannelRequest) (Channel, error)

	// Send transmits a payload over an open channel.
	Send(ctx context.Context, ch Channel, data []byte) error

	// Receive returns a stream of payloads arriving on an open channel.
	Receive(ctx context.Context, ch Channel) (DataStream, error)
}

// Security describes pairing control of the IUT.
type Security interface {
	// Secure raises the link security to the requested level. It blocks
	// until pairing completes or fails.
	Secure(ctx context.Context, conn Connection, level SecurityLevel) error

	// OnPairing subscribes to pairing challenges raised by the stack.
	OnPairing(ctx context.Context) (PairingStream, error)
}

// Opp describes Object Push Profile control of the IUT.
type Opp interface {
	// AcceptPutOperation accepts the pending OBEX PUT request.
	AcceptPutOperation(ctx context.Context) error

	// OpenRfcommChannel opens an RFCOMM channel for an OBEX connection.
	OpenRfcommChannel(ctx context.Context, peer Address) error

	// OpenL2capChannel opens an L2CAP channel for an OBEX connection.
	OpenL2capChannel(ctx context.Context, peer Address) error
}

// ConnectionStream delivers connections accepted while advertising.
type ConnectionStream interface {
	// Next blocks until a connection is accepted, the stream closes, or the
	// context is done.
	Next(ctx context.Context) (Connection, error)

	// Close unsubscribes from the stream.
	Close()
}

// DataStream delivers payloads received on a data channel.
type DataStream interface {
	// Next blocks until a payload arrives, the stream closes, or the
	// context is done.
	Next(ctx context.Context) ([]byte, error)

	// Close unsubscribes from the stream.
	Close()
}

// PairingStream delivers pairing challenges and accepts answers to them.
type PairingStream interface {
	// Events is the channel of pairing challenges. It is closed when the
	// stream closes.
	Events() <-chan PairingEvent

	// Answer replies to a delivered challenge.
	Answer(ctx context.Context, answer PairingAnswer) error

	// Close unsubscribes from the stream.
	Close()
}
