// Package rv32obj is the RV32 object-file backend: it lowers a Q32-lowered
// ssair.Module into a position-independent relocatable object targeting
// riscv32imac-unknown-none-elf (spec §4.F "RV32 backend"). The in-memory
// Object is the backend's real output; Bytes serializes it to a minimal
// valid ELF32 relocatable file for flashing tools or archival, grounded on
// this pack's own use of debug/elf (itsManjeet-exp/debug/gobinary) for
// working with ELF structure, generalized here from parsing to emission.
package rv32obj

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type SectionKind int

const (
	SecText SectionKind = iota
	SecRodata
	SecData
	SecBSS
)

func (k SectionKind) elfName() string {
	switch k {
	case SecText:
		return ".text"
	case SecRodata:
		return ".rodata"
	case SecData:
		return ".data"
	case SecBSS:
		return ".bss"
	}
	return ".unknown"
}

type Section struct {
	Kind  SectionKind
	Data  []byte // for SecBSS this is only used for its length
	Align uint32
}

type SymbolBinding int

const (
	BindLocal SymbolBinding = iota
	BindGlobal
)

type Symbol struct {
	Name    string
	Section int // index into Object.Sections, or -1 for undefined (extern)
	Offset  uint32
	Binding SymbolBinding
}

// RelocType enumerates the five relocation kinds the linker understands,
// matching spec §4.G's ordering contract exactly by name. Compile itself
// only emits RelocCallPLT.
type RelocType int

const (
	RelocRISCV32 RelocType = iota // GOT-entry initializer: word = symbol's final address
	RelocCallPLT
	RelocPCRelHi20
	RelocPCRelLo12I
	RelocGOTHi20
)

type Relocation struct {
	Type    RelocType
	Section int // section the relocation applies within
	Offset  uint32
	Symbol  string
	Addend  int64
}

// Object is one compiled translation unit: its sections, the symbols it
// defines or references, and the relocations needed to fix up external
// references once linked against other objects (spec §4.F/§4.G).
type Object struct {
	Name        string
	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
	IsPIC       bool
}

func New(name string) *Object {
	return &Object{Name: name, IsPIC: true}
}

func (o *Object) AddSection(kind SectionKind, data []byte, align uint32) int {
	o.Sections = append(o.Sections, Section{Kind: kind, Data: data, Align: align})
	return len(o.Sections) - 1
}

func (o *Object) AddSymbol(name string, section int, offset uint32, binding SymbolBinding) {
	o.Symbols = append(o.Symbols, Symbol{Name: name, Section: section, Offset: offset, Binding: binding})
}

func (o *Object) AddRelocation(r Relocation) {
	o.Relocations = append(o.Relocations, r)
}

// Bytes serializes a minimal valid ELF32 relocatable (ET_REL) object file
// for the riscv32imac-unknown-none-elf target: an ELF header, one program
// section per Object section, a string table, and the section headers.
// Symbols and relocations are not written to the on-disk form — this
// backend's own loader links directly against the in-memory Object, so the
// on-disk form exists for interoperability with external tooling, not for
// this repository's own link step.
func (o *Object) Bytes() []byte {
	var buf bytes.Buffer

	ehdr := elf.Header32{}
	ident := [elf.EI_NIDENT]byte{}
	copy(ident[:], elf.ELFMAG) // "\x7fELF" in ident[0:4]
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	copy(ehdr.Ident[:], ident[:])
	ehdr.Type = uint16(elf.ET_REL)
	ehdr.Machine = uint16(elf.EM_RISCV)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Ehsize = 52
	ehdr.Shentsize = 40

	// Section layout: [0]=null, [1..n]=program sections, [n+1]=.strtab
	ehdr.Shnum = uint16(len(o.Sections) + 2)
	ehdr.Shstrndx = uint16(len(o.Sections) + 1)

	strtab := []byte{0}
	nameOffsets := make([]uint32, len(o.Sections))
	for i, s := range o.Sections {
		nameOffsets[i] = uint32(len(strtab))
		strtab = append(strtab, []byte(s.Kind.elfName())...)
		strtab = append(strtab, 0)
	}
	strtabNameOff := uint32(len(strtab))
	strtab = append(strtab, []byte(".strtab\x00")...)

	headerSize := 52
	shOff := uint32(headerSize)
	dataOff := shOff + uint32(ehdr.Shnum)*40

	type placedSection struct {
		offset uint32
		size   uint32
	}
	placed := make([]placedSection, len(o.Sections))
	cur := dataOff
	for i, s := range o.Sections {
		if s.Align > 0 {
			cur = alignUp(cur, s.Align)
		}
		placed[i] = placedSection{offset: cur, size: uint32(len(s.Data))}
		if s.Kind != SecBSS {
			cur += uint32(len(s.Data))
		}
	}
	strtabOff := cur

	ehdr.Shoff = shOff
	binary.Write(&buf, binary.LittleEndian, &ehdr)

	// Section header table
	shdrs := make([]elf.Section32, ehdr.Shnum)
	for i, s := range o.Sections {
		sh := &shdrs[i+1]
		sh.Name = nameOffsets[i]
		sh.Addr = 0
		sh.Off = placed[i].offset
		sh.Size = placed[i].size
		sh.Addralign = s.Align
		switch s.Kind {
		case SecText:
			sh.Type = uint32(elf.SHT_PROGBITS)
			sh.Flags = uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
		case SecRodata:
			sh.Type = uint32(elf.SHT_PROGBITS)
			sh.Flags = uint32(elf.SHF_ALLOC)
		case SecData:
			sh.Type = uint32(elf.SHT_PROGBITS)
			sh.Flags = uint32(elf.SHF_ALLOC | elf.SHF_WRITE)
		case SecBSS:
			sh.Type = uint32(elf.SHT_NOBITS)
			sh.Flags = uint32(elf.SHF_ALLOC | elf.SHF_WRITE)
		}
	}
	strIdx := len(o.Sections) + 1
	shdrs[strIdx].Name = strtabNameOff
	shdrs[strIdx].Type = uint32(elf.SHT_STRTAB)
	shdrs[strIdx].Off = strtabOff
	shdrs[strIdx].Size = uint32(len(strtab))
	shdrs[strIdx].Addralign = 1

	for i := range shdrs {
		binary.Write(&buf, binary.LittleEndian, &shdrs[i])
	}

	for i, s := range o.Sections {
		if s.Kind == SecBSS {
			continue
		}
		for buf.Len() < int(placed[i].offset) {
			buf.WriteByte(0)
		}
		buf.Write(s.Data)
	}
	for buf.Len() < int(strtabOff) {
		buf.WriteByte(0)
	}
	buf.Write(strtab)

	return buf.Bytes()
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
