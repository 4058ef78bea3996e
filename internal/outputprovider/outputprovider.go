// Package outputprovider defines the capability fixture nodes use to drive
// physical (or simulated) light hardware: open/write/close against a named
// pin, with pin-uniqueness enforced so two fixture nodes can never fight
// over the same output (spec §4.I "OutputProvider capability").
package outputprovider

import "fmt"

// PinAlreadyOpen is returned by Open when the named pin already has an
// open handle.
type PinAlreadyOpen struct {
	Pin string
}

func (e *PinAlreadyOpen) Error() string {
	return fmt.Sprintf("outputprovider: pin %q is already open", e.Pin)
}

// Handle is a single open connection to a pin, returned by Provider.Open.
type Handle interface {
	Write(data []byte) error
	Close() error
}

// Provider opens handles to named output pins.
type Provider interface {
	Open(pin string) (Handle, error)
}

// Registry wraps a Provider and enforces the pin-uniqueness invariant:
// only one Handle per pin name may be open at a time across the whole
// running project, regardless of how many fixture nodes reference that
// pin in their configuration.
type Registry struct {
	backend Provider
	open    map[string]bool
}

func NewRegistry(backend Provider) *Registry {
	return &Registry{backend: backend, open: map[string]bool{}}
}

func (r *Registry) Open(pin string) (Handle, error) {
	if r.open[pin] {
		return nil, &PinAlreadyOpen{Pin: pin}
	}
	h, err := r.backend.Open(pin)
	if err != nil {
		return nil, err
	}
	r.open[pin] = true
	return &trackedHandle{Handle: h, pin: pin, reg: r}, nil
}

type trackedHandle struct {
	Handle
	pin string
	reg *Registry
}

func (t *trackedHandle) Close() error {
	delete(t.reg.open, t.pin)
	return t.Handle.Close()
}
