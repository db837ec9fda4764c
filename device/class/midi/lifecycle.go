package midi

import (
	"sync"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// State is the lifecycle state of the MIDI function as seen by the host.
type State uint8

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateDisconnected
	StateConfigured
	StateSuspended
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateDisconnected:
		return "Disconnected"
	case StateConfigured:
		return "Configured"
	case StateSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Lifecycle translates controller bus events into connection-state
// notifications for the upper layer. A notification is sent only when the
// function enters or leaves the connected states, so consecutive
// notifications always alternate.
type Lifecycle struct {
	mutex    sync.Mutex
	state    State
	listener Listener
}

var _ hal.LifecycleObserver = (*Lifecycle)(nil)

// NewLifecycle creates an adapter in the Uninitialized state. A nil
// listener drops notifications.
func NewLifecycle(listener Listener) *Lifecycle {
	l := &Lifecycle{}
	l.SetListener(listener)
	return l
}

// SetListener replaces the notification target.
func (l *Lifecycle) SetListener(listener Listener) {
	if listener == nil {
		listener = nopListener{}
	}
	l.mutex.Lock()
	l.listener = listener
	l.mutex.Unlock()
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state
}

// IsConnected reports whether the host has the function configured. A
// suspended function is still connected.
func (l *Lifecycle) IsConnected() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state.connected()
}

func (s State) connected() bool {
	return s == StateConfigured || s == StateSuspended
}

// transition applies next to the current state under the lock and notifies
// the listener, with the lock released, if connectedness changed. States
// for which next reports false are left untouched.
func (l *Lifecycle) transition(event string, next func(State) (State, bool)) {
	l.mutex.Lock()
	prev := l.state
	to, ok := next(prev)
	if !ok {
		l.mutex.Unlock()
		return
	}
	l.state = to
	listener := l.listener
	l.mutex.Unlock()

	emit := prev.connected() != to.connected()
	pkg.LogDebug(pkg.ComponentLifecycle, event, "from", prev, "to", to, "notify", emit)
	if emit {
		listener.ConnectionStateChanged(to.connected())
	}
}

// Init is called when the controller stack initializes. It is silent.
func (l *Lifecycle) Init() {
	pkg.LogDebug(pkg.ComponentLifecycle, "init", "state", l.State())
}

// Reset is called on a bus reset and drops any configuration.
func (l *Lifecycle) Reset(speed hal.Speed) {
	l.transition("reset", drop)
}

// Configured is called when the host selects the configuration.
func (l *Lifecycle) Configured() {
	l.transition("configured", func(s State) (State, bool) {
		return StateConfigured, s != StateConfigured
	})
}

// Suspended is called when the bus is suspended.
func (l *Lifecycle) Suspended() {
	l.transition("suspended", func(s State) (State, bool) {
		return StateSuspended, s == StateConfigured
	})
}

// Resumed is called when the bus resumes.
func (l *Lifecycle) Resumed() {
	l.transition("resumed", func(s State) (State, bool) {
		return StateConfigured, s == StateSuspended
	})
}

// Connected is called when the device attaches to the bus. It is silent;
// the connection is reported once the host configures the device.
func (l *Lifecycle) Connected() {
	pkg.LogDebug(pkg.ComponentLifecycle, "connected", "state", l.State())
}

// Disconnected is called when the device detaches from the bus.
func (l *Lifecycle) Disconnected() {
	l.transition("disconnected", drop)
}

func drop(s State) (State, bool) {
	return StateDisconnected, s != StateDisconnected
}
