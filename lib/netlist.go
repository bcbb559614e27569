package lib

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

/*
	S-expression netlist, one record per net. Pads that belong to
	components excluded from fabrication are left out; a net with no
	pads left is dropped entirely, which is not an error.
*/

func NetlistFileName(board string) string {
	return board + ".net"
}

func netlistQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func RenderNetlist(w io.Writer, board *Board, included map[string]bool) error {
	fmt.Fprintf(w, "(export (version \"D\")\n")
	fmt.Fprintf(w, "  (design\n")
	fmt.Fprintf(w, "    (source %s)\n", netlistQuote(board.Name))
	fmt.Fprintf(w, "    (tool %s))\n", netlistQuote("jfab"))
	fmt.Fprintf(w, "  (nets\n")

	for _, net := range board.Nets {
		pads := make([]NetPad, 0, len(net.Pads))
		for _, pad := range net.Pads {
			if !included[pad.Ref] {
				continue
			}

			pads = append(pads, pad)
		}

		if len(pads) == 0 {
			continue
		}

		sort.SliceStable(pads, func(i, j int) bool {
			if pads[i].Ref != pads[j].Ref {
				return NaturalLess(pads[i].Ref, pads[j].Ref)
			}

			return NaturalLess(pads[i].Pad, pads[j].Pad)
		})

		fmt.Fprintf(w, "    (net (code %s) (name %s)\n",
			netlistQuote(fmt.Sprintf("%d", net.Code)), netlistQuote(net.Name))
		for i, pad := range pads {
			terminator := ""
			if i == len(pads)-1 {
				terminator = ")"
			}

			fmt.Fprintf(w, "      (node (ref %s) (pin %s))%s\n",
				netlistQuote(pad.Ref), netlistQuote(pad.Pad), terminator)
		}
	}

	fmt.Fprintf(w, "  ))\n")

	return nil
}
