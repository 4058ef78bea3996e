// Package elf links one or more rv32obj.Object values into a flat RAM
// image for the RISCV interpreter: it places sections, builds and merges
// the symbol map (hard error on conflicting definitions), and applies
// relocations in the two-phase order spec §4.G calls "a contract, not a
// heuristic." Grounded on this pack's debug/elf usage (itsManjeet-exp) for
// ELF vocabulary, generalized here to an in-process linker rather than a
// file-format reader since the backend and loader share Go structs
// directly instead of round-tripping through bytes.
package elf

import (
	"fmt"
	"sort"

	"github.com/lightplayer/lp/internal/backend/rv32obj"
)

// LinkConflictError reports two definitions of the same global symbol,
// naming both addresses so the caller can see exactly which objects
// collided (scenario S5).
type LinkConflictError struct {
	Symbol         string
	FirstAddr      uint32
	ConflictAddr   uint32
}

func (e *LinkConflictError) Error() string {
	return fmt.Sprintf("elf: duplicate symbol %q defined at 0x%08x and 0x%08x", e.Symbol, e.FirstAddr, e.ConflictAddr)
}

// placedSection records where one object's section landed in the final
// image, so relocations (which reference object-local section indices)
// can be resolved to absolute addresses after placement.
type placedSection struct {
	objIndex int
	secIndex int
	base     uint32
}

// Image is the result of linking: a flat byte image ready to back a
// Memory's ROM region, the entry symbol's address, and the final symbol
// map (useful for attaching a TrapTable or debug info).
type Image struct {
	Bytes   []byte
	Symbols map[string]uint32
	GOT     map[string]uint32 // GOT slot address per extern symbol
}

const gotEntrySize = 4

// Link places every object's sections end to end (4-byte aligned), merges
// symbol tables with conflict detection, allocates a GOT for external
// symbol references, then applies relocations in two phases: Phase 1
// populates GOT entries via R_RISCV_32, phase 2 applies the PC-relative
// and GOT-relative instruction-patching relocations that depend on those
// entries already holding final addresses.
func Link(objs []*rv32obj.Object) (*Image, error) {
	var placements []placedSection
	var image []byte
	symbols := make(map[string]uint32)

	for oi, obj := range objs {
		for si, sec := range obj.Sections {
			image = padTo(image, alignUp(uint32(len(image)), max32(sec.Align, 4)))
			base := uint32(len(image))
			placements = append(placements, placedSection{objIndex: oi, secIndex: si, base: base})
			if sec.Kind == rv32obj.SecBSS {
				image = append(image, make([]byte, len(sec.Data))...)
			} else {
				image = append(image, sec.Data...)
			}
		}
	}

	secBase := func(oi, si int) uint32 {
		for _, p := range placements {
			if p.objIndex == oi && p.secIndex == si {
				return p.base
			}
		}
		return 0
	}

	for oi, obj := range objs {
		for _, sym := range obj.Symbols {
			if sym.Section < 0 {
				continue // undefined/extern reference, not a definition
			}
			addr := secBase(oi, sym.Section) + sym.Offset
			if existing, ok := symbols[sym.Name]; ok && existing != addr {
				return nil, &LinkConflictError{Symbol: sym.Name, FirstAddr: existing, ConflictAddr: addr}
			}
			symbols[sym.Name] = addr
		}
	}

	// Allocate a GOT entry for every distinct external symbol referenced
	// by an R_RISCV_32 or R_RISCV_GOT_HI20 relocation, sorted by name for
	// a deterministic image layout.
	gotNames := map[string]bool{}
	for _, obj := range objs {
		for _, r := range obj.Relocations {
			if r.Type == rv32obj.RelocRISCV32 || r.Type == rv32obj.RelocGOTHi20 {
				gotNames[r.Symbol] = true
			}
		}
	}
	names := make([]string, 0, len(gotNames))
	for n := range gotNames {
		names = append(names, n)
	}
	sort.Strings(names)

	gotBase := alignUp(uint32(len(image)), 4)
	image = padTo(image, gotBase)
	got := make(map[string]uint32, len(names))
	for i, n := range names {
		got[n] = gotBase + uint32(i*gotEntrySize)
	}
	image = append(image, make([]byte, len(names)*gotEntrySize)...)

	resolve := func(name string) (uint32, error) {
		if addr, ok := symbols[name]; ok {
			return addr, nil
		}
		return 0, fmt.Errorf("elf: undefined symbol %q", name)
	}

	// Phase 1: GOT-initializing relocations.
	for oi, obj := range objs {
		for _, r := range obj.Relocations {
			if r.Type != rv32obj.RelocRISCV32 {
				continue
			}
			target, err := resolve(r.Symbol)
			if err != nil {
				return nil, err
			}
			slot, ok := got[r.Symbol]
			if !ok {
				return nil, fmt.Errorf("elf: R_RISCV_32 relocation on %q has no GOT entry", r.Symbol)
			}
			putWord(image, slot, target+uint32(r.Addend))
			_ = oi
		}
	}

	// Phase 2: CALL_PLT / PCREL_HI20 / PCREL_LO12_I / GOT_HI20.
	for oi, obj := range objs {
		for _, r := range obj.Relocations {
			if r.Type == rv32obj.RelocRISCV32 {
				continue
			}
			secAddr := secBase(oi, r.Section)
			siteAddr := secAddr + r.Offset
			switch r.Type {
			case rv32obj.RelocCallPLT, rv32obj.RelocPCRelHi20, rv32obj.RelocPCRelLo12I:
				target, err := resolve(r.Symbol)
				if err != nil {
					return nil, err
				}
				delta := target + uint32(r.Addend) - siteAddr
				patchPCRel(image, siteAddr, delta)
				if r.Type == rv32obj.RelocCallPLT && int(siteAddr)+8 <= len(image) {
					// The jalr after the auipc carries the low 12 bits.
					lo12 := delta - ((delta + 0x800) & 0xFFFFF000)
					jalr := getWord(image, siteAddr+4)
					putWord(image, siteAddr+4, (jalr&0x000FFFFF)|(lo12<<20))
				}
			case rv32obj.RelocGOTHi20:
				slot, ok := got[r.Symbol]
				if !ok {
					return nil, fmt.Errorf("elf: R_RISCV_GOT_HI20 relocation on %q has no GOT entry", r.Symbol)
				}
				patchPCRel(image, siteAddr, slot-siteAddr)
			}
		}
	}

	return &Image{Bytes: image, Symbols: symbols, GOT: got}, nil
}

// patchPCRel writes the upper part of a PC-relative delta into bits[31:12]
// of the AUIPC-shaped instruction word at addr, rounded so that adding the
// sign-extended low 12 bits gives back the full delta. The low 12 bits are
// not stored in this word; for R_RISCV_CALL_PLT, Link writes them into the
// immediate of the jalr that follows.
func patchPCRel(image []byte, addr uint32, delta uint32) {
	if int(addr)+4 > len(image) {
		return
	}
	word := getWord(image, addr)
	hi20 := (delta + 0x800) & 0xFFFFF000
	lo12 := delta - hi20
	word = (word &^ 0xFFFFF000) | hi20
	_ = lo12
	putWord(image, addr, word)
}

func getWord(image []byte, addr uint32) uint32 {
	return uint32(image[addr]) | uint32(image[addr+1])<<8 | uint32(image[addr+2])<<16 | uint32(image[addr+3])<<24
}

func putWord(image []byte, addr uint32, v uint32) {
	image[addr] = byte(v)
	image[addr+1] = byte(v >> 8)
	image[addr+2] = byte(v >> 16)
	image[addr+3] = byte(v >> 24)
}

func padTo(b []byte, n uint32) []byte {
	for uint32(len(b)) < n {
		b = append(b, 0)
	}
	return b
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
