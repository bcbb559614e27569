package lib

import (
	"fmt"
	"io"
)

/*
	Excellon output: one drill file for the whole board, metric with
	decimal coordinates. Tools are numbered from T1 in first-seen order
	over the same walk that produces the hits, so repeated runs emit
	identical files.
*/

type DrillTool struct {
	Number   int
	Diameter float64
}

type ToolTable struct {
	tools []*DrillTool
	index map[string]*DrillTool
}

func NewToolTable() *ToolTable {
	return &ToolTable{
		index: map[string]*DrillTool{},
	}
}

func (t *ToolTable) Ensure(diameter float64) *DrillTool {
	key := fmt.Sprintf("%.4f", diameter)
	if tool, ok := t.index[key]; ok {
		return tool
	}

	tool := &DrillTool{
		Number:   1 + len(t.tools),
		Diameter: diameter,
	}

	t.tools = append(t.tools, tool)
	t.index[key] = tool

	return tool
}

func (t *ToolTable) Tools() []*DrillTool {
	return t.tools
}

type drillHit struct {
	tool     *DrillTool
	position Position
}

func DrillFileName(board string) string {
	return board + ".drl"
}

/*
	RenderDrill writes the drill file: through-hole pads of
	fabrication-included components first, in board order, then vias.
*/
func RenderDrill(w io.Writer, board *Board, included map[string]bool) error {
	table := NewToolTable()
	hits := []drillHit{}

	for _, component := range board.Components {
		if !included[component.Reference] {
			continue
		}

		for _, pad := range component.Pads {
			if pad.Drill <= 0 {
				continue
			}

			hits = append(hits, drillHit{
				tool:     table.Ensure(pad.Drill),
				position: pad.Position,
			})
		}
	}

	for _, via := range board.Vias {
		if via.Drill <= 0 {
			continue
		}

		hits = append(hits, drillHit{
			tool:     table.Ensure(via.Drill),
			position: via.Position,
		})
	}

	fmt.Fprintf(w, "M48\n")
	fmt.Fprintf(w, ";%s\n", board.Name)
	fmt.Fprintf(w, "FMAT,2\n")
	fmt.Fprintf(w, "METRIC,TZ\n")
	for _, tool := range table.Tools() {
		fmt.Fprintf(w, "T%dC%.3f\n", tool.Number, tool.Diameter)
	}
	fmt.Fprintf(w, "%%\n")
	fmt.Fprintf(w, "G90\n")
	fmt.Fprintf(w, "G05\n")

	for _, tool := range table.Tools() {
		fmt.Fprintf(w, "T%d\n", tool.Number)
		for _, hit := range hits {
			if hit.tool != tool {
				continue
			}

			fmt.Fprintf(w, "X%.3fY%.3f\n", hit.position.X, hit.position.Y)
		}
	}

	fmt.Fprintf(w, "T0\n")
	fmt.Fprintf(w, "M30\n")

	return nil
}
