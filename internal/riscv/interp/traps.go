package interp

import "sort"

// TrapEntry names the cause of an EBREAK the compiler emitted at a known
// address (a bounds check, an unreachable-case guard, ...). The table is
// kept sorted by Addr so EBREAK dispatch can binary-search it instead of a
// linear scan over every compiled trap site.
type TrapEntry struct {
	Addr  uint32
	Cause string
}

type TrapTable struct {
	entries []TrapEntry
}

func NewTrapTable() *TrapTable { return &TrapTable{} }

// Add inserts an entry, keeping entries sorted by Addr.
func (t *TrapTable) Add(addr uint32, cause string) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Addr >= addr })
	t.entries = append(t.entries, TrapEntry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = TrapEntry{Addr: addr, Cause: cause}
}

// Lookup finds the cause registered at addr, or ("unknown-ebreak", false).
func (t *TrapTable) Lookup(addr uint32) (string, bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Addr >= addr })
	if i < len(t.entries) && t.entries[i].Addr == addr {
		return t.entries[i].Cause, true
	}
	return "unknown-ebreak", false
}
