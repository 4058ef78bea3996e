package outputprovider

import "testing"

type fakeBackend struct{ opens int }

type fakeHandle struct{ closed bool }

func (f *fakeHandle) Write(data []byte) error { return nil }
func (f *fakeHandle) Close() error             { f.closed = true; return nil }

func (b *fakeBackend) Open(pin string) (Handle, error) {
	b.opens++
	return &fakeHandle{}, nil
}

func TestPinUniqueness(t *testing.T) {
	reg := NewRegistry(&fakeBackend{})
	h1, err := reg.Open("gpio18")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Open("gpio18"); err == nil {
		t.Fatal("expected PinAlreadyOpen error on second open")
	}
	if err := h1.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Open("gpio18"); err != nil {
		t.Fatalf("reopening after close should succeed, got %v", err)
	}
}
