package outputprovider

// SimulatedProvider opens in-memory handles instead of touching real
// hardware, for workstation preview runs and tests. Writes are kept so a
// caller (a test, or the preview window) can inspect the most recent frame
// pushed to a given pin.
type SimulatedProvider struct{}

func NewSimulated() *SimulatedProvider { return &SimulatedProvider{} }

func (p *SimulatedProvider) Open(pin string) (Handle, error) {
	return &simulatedHandle{pin: pin}, nil
}

type simulatedHandle struct {
	pin    string
	last   []byte
	closed bool
}

func (h *simulatedHandle) Write(data []byte) error {
	h.last = append(h.last[:0], data...)
	return nil
}

func (h *simulatedHandle) Close() error {
	h.closed = true
	return nil
}

// Last returns the most recent frame written to this pin, for tests.
func (h *simulatedHandle) Last() []byte { return h.last }
