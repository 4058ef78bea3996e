package project

import "fmt"

// ColorOrder is the channel permutation a fixture applies before writing
// into its output's channel buffer, since addressable strips disagree on
// which wire carries which channel (spec.md §4 "a color order ∈
// {Rgb, Grb, …}").
type ColorOrder int

const (
	OrderRGB ColorOrder = iota
	OrderRBG
	OrderGRB
	OrderGBR
	OrderBRG
	OrderBGR
)

func ParseColorOrder(s string) (ColorOrder, error) {
	switch s {
	case "Rgb", "RGB", "rgb":
		return OrderRGB, nil
	case "Rbg", "RBG", "rbg":
		return OrderRBG, nil
	case "Grb", "GRB", "grb":
		return OrderGRB, nil
	case "Gbr", "GBR", "gbr":
		return OrderGBR, nil
	case "Brg", "BRG", "brg":
		return OrderBRG, nil
	case "Bgr", "BGR", "bgr":
		return OrderBGR, nil
	}
	return OrderRGB, fmt.Errorf("project: unknown color order %q", s)
}

// permute reorders an (r,g,b) triple into the wire order the fixture's
// strip expects.
func (o ColorOrder) permute(r, g, b uint16) (c0, c1, c2 uint16) {
	switch o {
	case OrderRBG:
		return r, b, g
	case OrderGRB:
		return g, r, b
	case OrderGBR:
		return g, b, r
	case OrderBRG:
		return b, r, g
	case OrderBGR:
		return b, g, r
	default:
		return r, g, b
	}
}
