package elf

import (
	"testing"

	"github.com/lightplayer/lp/internal/backend/rv32obj"
)

func TestLinkPlacesSectionsAndResolvesSymbols(t *testing.T) {
	a := rv32obj.New("a")
	text := a.AddSection(rv32obj.SecText, []byte{0x13, 0x00, 0x00, 0x00}, 4)
	a.AddSymbol("_start", text, 0, rv32obj.BindGlobal)

	img, err := Link([]*rv32obj.Object{a})
	if err != nil {
		t.Fatal(err)
	}
	if addr, ok := img.Symbols["_start"]; !ok || addr != 0 {
		t.Fatalf("_start = %d, ok=%v, want 0", addr, ok)
	}
}

func TestLinkDetectsDuplicateSymbol(t *testing.T) {
	a := rv32obj.New("a")
	secA := a.AddSection(rv32obj.SecText, []byte{0, 0, 0, 0}, 4)
	a.AddSymbol("__lp_fixed32_sin", secA, 0, rv32obj.BindGlobal)

	b := rv32obj.New("b")
	secB := b.AddSection(rv32obj.SecText, []byte{0, 0, 0, 0, 1, 1, 1, 1}, 4)
	b.AddSymbol("__lp_fixed32_sin", secB, 4, rv32obj.BindGlobal)

	_, err := Link([]*rv32obj.Object{a, b})
	if err == nil {
		t.Fatal("expected link conflict error")
	}
	if _, ok := err.(*LinkConflictError); !ok {
		t.Fatalf("got %T, want *LinkConflictError", err)
	}
}

func TestLinkAppliesGOTRelocation(t *testing.T) {
	a := rv32obj.New("a")
	text := a.AddSection(rv32obj.SecText, []byte{0, 0, 0, 0}, 4)
	rodata := a.AddSection(rv32obj.SecRodata, []byte{0, 0, 0, 0}, 4)
	a.AddSymbol("table", rodata, 0, rv32obj.BindGlobal)
	a.AddRelocation(rv32obj.Relocation{Type: rv32obj.RelocRISCV32, Section: text, Offset: 0, Symbol: "table"})

	img, err := Link([]*rv32obj.Object{a})
	if err != nil {
		t.Fatal(err)
	}
	slot, ok := img.GOT["table"]
	if !ok {
		t.Fatal("expected GOT entry for table")
	}
	got := getWord(img.Bytes, slot)
	if got != img.Symbols["table"] {
		t.Fatalf("GOT slot = %d, want %d", got, img.Symbols["table"])
	}
}
