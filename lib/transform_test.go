package lib

import (
	"errors"
	"testing"
)

func TestParseOffset(t *testing.T) {
	dx, dy, err := ParseOffset("R1", "1.5, -2")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if dx != 1.5 || dy != -2 {
		t.Errorf("got %v, %v", dx, dy)
	}
}

func TestParseOffsetMalformed(t *testing.T) {
	for _, field := range []string{"abc,1", "1", "1,2,3", ""} {
		_, _, err := ParseOffset("C3", field)

		var perr *OffsetParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected OffsetParseError for %q, got %v", field, err)
		}

		if perr.Reference != "C3" {
			t.Errorf("error for %q names %q, expected C3", field, perr.Reference)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct{ in, out float64 }{
		{0, 0},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-360, 0},
	}

	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.out {
			t.Errorf("NormalizeRotation(%v) = %v, expected %v", c.in, got, c.out)
		}
	}
}

func transformBoard() *Board {
	board := &Board{
		Name:   "demo",
		Origin: Position{X: 100, Y: 100},
		Components: []*Component{
			{
				Reference: "R1",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Position:  Position{X: 101, Y: 98},
				Rotation:  0,
				Side:      SideTop,
			},
			{
				Reference: "R2",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Position:  Position{X: 99, Y: 101},
				Rotation:  90,
				Side:      SideBottom,
			},
		},
	}

	ApplyInclusion(board)

	return board
}

func TestTransformPlacements(t *testing.T) {
	board := transformBoard()
	if err := TransformPlacements(board, nil, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	r1 := board.FindComponent("R1").Placement
	if r1 == nil {
		t.Fatal("R1 has no placement")
	}
	if r1.X != 1 || r1.Y != 2 || r1.Rotation != 0 || r1.Side != SideTop {
		t.Errorf("R1 placement: %+v", r1)
	}

	/*
		Bottom parts mirror X and flip rotation to (180 - r) mod 360.
	*/
	r2 := board.FindComponent("R2").Placement
	if r2 == nil {
		t.Fatal("R2 has no placement")
	}
	if r2.X != 1 || r2.Y != -1 || r2.Rotation != 90 || r2.Side != SideBottom {
		t.Errorf("R2 placement: %+v", r2)
	}
}

func TestTransformPlacementsOffsetOverride(t *testing.T) {
	board := transformBoard()
	board.FindComponent("R1").OffsetField = "0.5, -0.25"

	if err := TransformPlacements(board, nil, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	r1 := board.FindComponent("R1").Placement
	if r1.X != 1.5 || r1.Y != 1.75 {
		t.Errorf("override not applied: %+v", r1)
	}
}

func TestTransformPlacementsLibraryCorrection(t *testing.T) {
	board := transformBoard()
	corrections := map[string]Position{
		"Resistor_SMD:R_0402_1005Metric": {X: 0.1, Y: 0.2},
	}

	if err := TransformPlacements(board, corrections, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	r1 := board.FindComponent("R1").Placement
	if r1.X != 1.1 || r1.Y != 2.2 {
		t.Errorf("correction not applied: %+v", r1)
	}
}

func TestTransformPlacementsOverrideBeatsCorrection(t *testing.T) {
	board := transformBoard()
	board.FindComponent("R1").OffsetField = "0.5,0"
	corrections := map[string]Position{
		"Resistor_SMD:R_0402_1005Metric": {X: 9, Y: 9},
	}

	if err := TransformPlacements(board, corrections, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	r1 := board.FindComponent("R1").Placement
	if r1.X != 1.5 || r1.Y != 2 {
		t.Errorf("override did not take precedence: %+v", r1)
	}

	/*
		R2 declares no override, so the correction still applies to it.
	*/
	r2 := board.FindComponent("R2").Placement
	if r2.X != 10 || r2.Y != 8 {
		t.Errorf("correction skipped R2: %+v", r2)
	}
}

func TestTransformPlacementsMalformedOffset(t *testing.T) {
	board := transformBoard()
	board.FindComponent("R2").OffsetField = "abc,1"

	err := TransformPlacements(board, nil, nil)

	var perr *OffsetParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected OffsetParseError, got %v", err)
	}
	if perr.Reference != "R2" {
		t.Errorf("error names %q, expected R2", perr.Reference)
	}
}

func TestTransformPlacementsPrecision(t *testing.T) {
	board := transformBoard()
	board.FindComponent("R1").Position.X = 101.00001

	cfg := DefaultConfig()
	cfg.Epsilon = 1e-9

	err := TransformPlacements(board, nil, cfg)

	var perr *PrecisionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PrecisionError, got %v", err)
	}
	if perr.Reference != "R1" || perr.Decimals != 4 {
		t.Errorf("unexpected error fields: %+v", perr)
	}
}

func TestRoundCoordinateHalfToEven(t *testing.T) {
	/*
		Exactly representable halves, so the tie-break is what is
		exercised rather than floating point noise.
	*/
	cases := []struct {
		in       float64
		decimals int
		out      float64
	}{
		{0.25, 1, 0.2},
		{0.75, 1, 0.8},
		{0.125, 2, 0.12},
	}

	for _, c := range cases {
		got, ok := roundCoordinate(c.in, c.decimals, 0.1)
		if !ok || got != c.out {
			t.Errorf("roundCoordinate(%v, %d) = %v, expected %v", c.in, c.decimals, got, c.out)
		}
	}
}

func TestTransformSkipsPositionExcluded(t *testing.T) {
	board := transformBoard()
	board.FindComponent("R1").Inclusion.Position = false

	if err := TransformPlacements(board, nil, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if board.FindComponent("R1").Placement != nil {
		t.Error("excluded component received a placement")
	}
}
