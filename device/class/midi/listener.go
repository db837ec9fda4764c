package midi

// Listener is the upper MIDI layer fed by the function. Its methods run in
// the controller's interrupt context and must not block.
type Listener interface {
	// ConnectionStateChanged reports that the host configured (true) or
	// dropped (false) the MIDI function.
	ConnectionStateChanged(connected bool)

	// PacketReceived delivers one completed Bulk OUT transfer, a sequence
	// of 4-byte event packets. data is only valid for the duration of the
	// call.
	PacketReceived(data []byte)

	// ReadyToSend reports that a Bulk IN transfer completed and the next
	// may be submitted with [DataPath.Send].
	ReadyToSend()
}

// ListenerFuncs adapts plain functions to a [Listener]. Nil fields are
// skipped.
type ListenerFuncs struct {
	OnConnectionStateChanged func(connected bool)
	OnPacketReceived         func(data []byte)
	OnReadyToSend            func()
}

var _ Listener = ListenerFuncs{}

// ConnectionStateChanged calls OnConnectionStateChanged.
func (f ListenerFuncs) ConnectionStateChanged(connected bool) {
	if f.OnConnectionStateChanged != nil {
		f.OnConnectionStateChanged(connected)
	}
}

// PacketReceived calls OnPacketReceived.
func (f ListenerFuncs) PacketReceived(data []byte) {
	if f.OnPacketReceived != nil {
		f.OnPacketReceived(data)
	}
}

// ReadyToSend calls OnReadyToSend.
func (f ListenerFuncs) ReadyToSend() {
	if f.OnReadyToSend != nil {
		f.OnReadyToSend()
	}
}

// nopListener drops every notification.
type nopListener struct{}

func (nopListener) ConnectionStateChanged(bool) {}
func (nopListener) PacketReceived([]byte)       {}
func (nopListener) ReadyToSend()                {}
