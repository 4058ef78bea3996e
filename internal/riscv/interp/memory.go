// Package interp implements an RV32IMAC interpreter targeting the same
// machine the RV32 object-file backend links against: a ROM region at
// address 0 holding the loaded executable image, and a RAM region at
// 0x8000_0000 for the stack and heap (spec §4.F "RV32 execution model").
// The compressed (C) instruction forms are not decoded — this system's
// object backend never emits them (documented in DESIGN.md) — so "IMAC" in
// the target triple names the ABI/ISA family the loader expects, not a
// claim that this interpreter decodes 16-bit compressed encodings.
package interp

import "fmt"

const RAMBase uint32 = 0x8000_0000

// Memory is the two-region address space: ROM (the loaded executable
// image, read-only from the guest's perspective) and RAM.
type Memory struct {
	rom []byte
	ram []byte
}

func NewMemory(rom []byte, ramSize int) *Memory {
	return &Memory{rom: rom, ram: make([]byte, ramSize)}
}

// region resolves addr to a backing slice and offset, or an error if addr
// falls outside both regions.
func (m *Memory) region(addr uint32, size int) ([]byte, int, error) {
	if addr < RAMBase {
		if int(addr)+size > len(m.rom) {
			return nil, 0, fmt.Errorf("interp: ROM access out of range at 0x%08x", addr)
		}
		return m.rom, int(addr), nil
	}
	off := addr - RAMBase
	if int(off)+size > len(m.ram) {
		return nil, 0, fmt.Errorf("interp: RAM access out of range at 0x%08x", addr)
	}
	return m.ram, int(off), nil
}

func (m *Memory) LoadByte(addr uint32) (byte, error) {
	buf, off, err := m.region(addr, 1)
	if err != nil {
		return 0, err
	}
	return buf[off], nil
}

func (m *Memory) LoadHalf(addr uint32) (uint16, error) {
	if addr%2 != 0 {
		return 0, fmt.Errorf("interp: misaligned half-word load at 0x%08x", addr)
	}
	buf, off, err := m.region(addr, 2)
	if err != nil {
		return 0, err
	}
	return uint16(buf[off]) | uint16(buf[off+1])<<8, nil
}

func (m *Memory) LoadWord(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("interp: misaligned word load at 0x%08x", addr)
	}
	buf, off, err := m.region(addr, 4)
	if err != nil {
		return 0, err
	}
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24, nil
}

func (m *Memory) StoreByte(addr uint32, v byte) error {
	if addr < RAMBase {
		return fmt.Errorf("interp: write to ROM at 0x%08x", addr)
	}
	buf, off, err := m.region(addr, 1)
	if err != nil {
		return err
	}
	buf[off] = v
	return nil
}

func (m *Memory) StoreHalf(addr uint32, v uint16) error {
	if addr < RAMBase {
		return fmt.Errorf("interp: write to ROM at 0x%08x", addr)
	}
	if addr%2 != 0 {
		return fmt.Errorf("interp: misaligned half-word store at 0x%08x", addr)
	}
	buf, off, err := m.region(addr, 2)
	if err != nil {
		return err
	}
	buf[off], buf[off+1] = byte(v), byte(v>>8)
	return nil
}

func (m *Memory) StoreWord(addr uint32, v uint32) error {
	if addr < RAMBase {
		return fmt.Errorf("interp: write to ROM at 0x%08x", addr)
	}
	if addr%4 != 0 {
		return fmt.Errorf("interp: misaligned word store at 0x%08x", addr)
	}
	buf, off, err := m.region(addr, 4)
	if err != nil {
		return err
	}
	buf[off], buf[off+1], buf[off+2], buf[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	return nil
}
