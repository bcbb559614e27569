package lib

import (
	"path/filepath"
	"testing"
)

func cplBoard() *Board {
	board := &Board{
		Name:   "demo",
		Origin: Position{X: 100, Y: 100},
		Components: []*Component{
			{
				Reference: "R10",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Position:  Position{X: 102, Y: 97},
				Rotation:  90,
				Side:      SideTop,
			},
			{
				Reference: "R2",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Position:  Position{X: 99, Y: 101},
				Side:      SideBottom,
			},
			{
				Reference:             "TP1",
				Footprint:             "TestPoint:TestPoint_Pad_1.0x1.0mm",
				FPExcludeFromPosition: true,
			},
		},
	}

	ApplyInclusion(board)

	return board
}

func TestBuildCPL(t *testing.T) {
	board := cplBoard()
	if err := TransformPlacements(board, nil, nil); err != nil {
		t.Fatalf("transform: %s", err)
	}

	components := BuildCPL(board, 4)
	if len(components) != 2 {
		t.Fatalf("got %d rows", len(components))
	}

	/*
		Natural designator order puts R2 before R10.
	*/
	if components[0].Designator != "R2" || components[1].Designator != "R10" {
		t.Errorf("order: %s, %s", components[0].Designator, components[1].Designator)
	}

	r10 := components[1]
	if r10.X != "2.0000" || r10.Y != "3.0000" || r10.Rotation != "90.0" || r10.Layer != "top" {
		t.Errorf("R10 row: %+v", r10)
	}

	r2 := components[0]
	if r2.X != "1.0000" || r2.Y != "-1.0000" || r2.Rotation != "180.0" || r2.Layer != "bottom" {
		t.Errorf("R2 row: %+v", r2)
	}
}

func TestWriteReadCPL(t *testing.T) {
	board := cplBoard()
	if err := TransformPlacements(board, nil, nil); err != nil {
		t.Fatalf("transform: %s", err)
	}

	components := BuildCPL(board, 4)
	path := filepath.Join(t.TempDir(), CPLFileName(board.Name))

	if err := WriteCPL(path, components); err != nil {
		t.Fatalf("write: %s", err)
	}

	read := ReadCPL(path)
	if len(read) != len(components) {
		t.Fatalf("round trip lost rows: %d != %d", len(read), len(components))
	}

	for i := range read {
		if *read[i] != *components[i] {
			t.Errorf("row %d: %+v != %+v", i, *read[i], *components[i])
		}
	}
}
