package midi

import (
	"fmt"

	"github.com/ardnew/usbmidi/pkg"
)

// JackKind distinguishes MIDI IN jacks from MIDI OUT jacks.
type JackKind uint8

// Jack kinds.
const (
	JackIn JackKind = iota
	JackOut
)

// String returns the jack kind name.
func (k JackKind) String() string {
	if k == JackOut {
		return "OUT"
	}
	return "IN"
}

// Jack is one MIDI jack of the streaming interface. Source is the jack
// feeding an OUT jack's single input pin and is zero for IN jacks.
type Jack struct {
	ID       uint8
	Kind     JackKind
	Locality uint8 // JackEmbedded or JackExternal
	Source   uint8
	Port     int
}

// Port is one virtual cable. Its four jacks take consecutive identifiers
// starting at 4*Index+1.
type Port struct {
	Index       int
	EmbeddedIn  Jack // Host to device: receives from the Bulk OUT endpoint
	ExternalIn  Jack // Device input connector
	EmbeddedOut Jack // Device to host: feeds the Bulk IN endpoint
	ExternalOut Jack // Device output connector
}

// Jacks returns the port's jacks in identifier order.
func (p *Port) Jacks() [JacksPerPort]Jack {
	return [JacksPerPort]Jack{p.EmbeddedIn, p.ExternalIn, p.EmbeddedOut, p.ExternalOut}
}

// Topology is the jack graph for a fixed number of ports.
type Topology struct {
	ports [MaxPorts]Port
	count int
}

// NewTopology builds the jack graph for n ports. n must be in [1, MaxPorts].
func NewTopology(n int) (*Topology, error) {
	if n < 1 || n > MaxPorts {
		return nil, fmt.Errorf("%d ports: %w", n, pkg.ErrPortCount)
	}

	t := &Topology{count: n}
	for p := 0; p < n; p++ {
		base := uint8(JacksPerPort*p + 1)
		t.ports[p] = Port{
			Index:       p,
			EmbeddedIn:  Jack{ID: base, Kind: JackIn, Locality: JackEmbedded, Port: p},
			ExternalIn:  Jack{ID: base + 1, Kind: JackIn, Locality: JackExternal, Port: p},
			EmbeddedOut: Jack{ID: base + 2, Kind: JackOut, Locality: JackEmbedded, Source: base + 1, Port: p},
			ExternalOut: Jack{ID: base + 3, Kind: JackOut, Locality: JackExternal, Source: base, Port: p},
		}
	}
	return t, nil
}

// NumPorts returns the number of ports.
func (t *Topology) NumPorts() int {
	return t.count
}

// Ports returns the ports in index order.
func (t *Topology) Ports() []Port {
	return t.ports[:t.count]
}

// Jacks returns every jack ordered by identifier.
func (t *Topology) Jacks() []Jack {
	out := make([]Jack, 0, t.count*JacksPerPort)
	for p := range t.ports[:t.count] {
		jacks := t.ports[p].Jacks()
		out = append(out, jacks[:]...)
	}
	return out
}

// EmbeddedInIDs returns the embedded IN jack identifiers in port order. These
// are the jacks associated with the Bulk OUT endpoint.
func (t *Topology) EmbeddedInIDs() []uint8 {
	out := make([]uint8, t.count)
	for p := range out {
		out[p] = t.ports[p].EmbeddedIn.ID
	}
	return out
}

// EmbeddedOutIDs returns the embedded OUT jack identifiers in port order.
// These are the jacks associated with the Bulk IN endpoint.
func (t *Topology) EmbeddedOutIDs() []uint8 {
	out := make([]uint8, t.count)
	for p := range out {
		out[p] = t.ports[p].EmbeddedOut.ID
	}
	return out
}
