package lib

import (
	"math"
	"strings"
	"testing"
)

const demoPCB = `(kicad_pcb (version 20221018) (generator "pcbnew") (generator_version "7.0")
  (layers
    (0 "F.Cu" signal)
    (31 "B.Cu" signal)
    (44 "Edge.Cuts" user)
  )
  (setup
    (aux_axis_origin 100 100)
  )
  (net 0 "")
  (net 1 "GND")
  (net 2 "VCC")
  (footprint "Resistor_SMD:R_0402_1005Metric"
    (layer "F.Cu")
    (at 101 98 90)
    (property "Reference" "R1")
    (property "Value" "10k")
    (pad "1" smd rect (at -0.5 0) (size 0.5 0.5) (layers "F.Cu")
      (net 1 "GND"))
    (pad "2" smd rect (at 0.5 0) (size 0.5 0.5) (layers "F.Cu")
      (net 2 "VCC"))
  )
  (footprint "TestPoint:TestPoint_Pad_1.0x1.0mm"
    (layer "B.Cu")
    (at 105 99)
    (property "Reference" "TP1")
    (property "Value" "GND")
    (property "JFAB_OFFSET" "0.1,0.2")
    (attr exclude_from_bom exclude_from_pos_files)
    (pad "1" smd circle (at 0 0) (size 1 1) (layers "B.Cu")
      (net 1 "GND"))
  )
  (segment (start 101.5 98) (end 103 98) (width 0.25) (layer "F.Cu") (net 2))
  (gr_line (start 95 95) (end 110 95) (stroke (width 0.1)) (layer "Edge.Cuts"))
  (gr_arc (start 110 95) (mid 112 97) (end 110 99) (stroke (width 0.1)) (layer "Edge.Cuts"))
  (via (at 103 98) (size 0.6) (drill 0.3) (layers "F.Cu" "B.Cu") (net 2))
)`

func TestParseKicadPCB(t *testing.T) {
	pcb, err := ParseKicadPCB(strings.NewReader(demoPCB), "demo")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	if pcb.BoardName() != "demo" {
		t.Errorf("name: %q", pcb.BoardName())
	}

	origin := pcb.AuxOrigin()
	if origin.X != 100 || origin.Y != 100 {
		t.Errorf("origin: %+v", origin)
	}

	components := pcb.EnumerateComponents()
	if len(components) != 2 {
		t.Fatalf("got %d components", len(components))
	}

	r1 := components[0]
	if r1.Reference != "R1" || r1.Value != "10k" || r1.Rotation != 90 || r1.Side != SideTop {
		t.Errorf("R1: %+v", r1)
	}
	if len(r1.Pads) != 2 {
		t.Fatalf("R1 has %d pads", len(r1.Pads))
	}

	/*
		The footprint sits at (101, 98) rotated 90 degrees, so pad 1's
		local offset of (-0.5, 0) resolves to (101, 98.5).
	*/
	pad := r1.Pads[0]
	if math.Abs(pad.Position.X-101) > 1e-9 || math.Abs(pad.Position.Y-98.5) > 1e-9 {
		t.Errorf("pad 1 position: %+v", pad.Position)
	}
	if pad.Net != "GND" {
		t.Errorf("pad 1 net: %q", pad.Net)
	}

	tp1 := components[1]
	if tp1.Reference != "TP1" || tp1.Side != SideBottom {
		t.Errorf("TP1: %+v", tp1)
	}
	if !tp1.FPExcludeFromBOM || !tp1.FPExcludeFromPosition {
		t.Error("TP1 attr flags not picked up")
	}
	if tp1.OffsetField != "0.1,0.2" {
		t.Errorf("TP1 offset field: %q", tp1.OffsetField)
	}

	nets := pcb.EnumerateNets()
	if len(nets) != 2 {
		t.Fatalf("got %d nets, net 0 should be skipped", len(nets))
	}
	if nets[0].Name != "GND" || len(nets[0].Pads) != 2 {
		t.Errorf("GND: %+v", nets[0])
	}

	layers := pcb.EnumerateLayers()
	if len(layers) != 3 {
		t.Fatalf("got %d layers", len(layers))
	}

	fcu := layers[0]
	if fcu.Name != "F.Cu" || len(fcu.Primitives) != 1 {
		t.Fatalf("F.Cu: %+v", fcu)
	}
	if fcu.Primitives[0].Kind != PrimitiveTrack || fcu.Primitives[0].Width != 0.25 {
		t.Errorf("segment: %+v", fcu.Primitives[0])
	}

	edge := layers[2]
	if len(edge.Primitives) != 2 || edge.Primitives[0].Width != 0.1 {
		t.Fatalf("Edge.Cuts: %+v", edge)
	}

	arc := edge.Primitives[1]
	if arc.Kind != PrimitiveArc || arc.Mid.X != 112 || arc.Mid.Y != 97 {
		t.Errorf("arc: %+v", arc)
	}

	vias := pcb.EnumerateVias()
	if len(vias) != 1 || vias[0].Drill != 0.3 || len(vias[0].Layers) != 2 {
		t.Errorf("vias: %+v", vias)
	}
}

func TestParseKicadPCBDnp(t *testing.T) {
	src := `(kicad_pcb (version 20221018)
  (footprint "X" (layer "F.Cu") (at 0 0)
    (property "Reference" "R1")
    (attr smd dnp)
  )
)`

	pcb, err := ParseKicadPCB(strings.NewReader(src), "demo")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	r1 := pcb.EnumerateComponents()[0]
	if !r1.ExcludeFromBOM || !r1.ExcludeFromPosition {
		t.Error("dnp attr did not set exclusions")
	}
	if r1.ExcludeFromBoard {
		t.Error("dnp must not drop the part from fabrication")
	}
}

func TestParseKicadPCBExcludeField(t *testing.T) {
	src := `(kicad_pcb (version 20221018)
  (footprint "X" (layer "F.Cu") (at 0 0)
    (property "Reference" "FID1")
    (property "JFAB_EXCLUDE" "board, bom")
  )
)`

	pcb, err := ParseKicadPCB(strings.NewReader(src), "demo")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	fid := pcb.EnumerateComponents()[0]
	if !fid.ExcludeFromBoard || !fid.ExcludeFromBOM {
		t.Errorf("exclude field not applied: %+v", fid)
	}
	if fid.ExcludeFromPosition {
		t.Error("position exclusion set without being named")
	}
}

func TestParseKicadPCBVersionGate(t *testing.T) {
	if _, err := ParseKicadPCB(strings.NewReader(`(kicad_pcb (version 20171130))`), "old"); err == nil {
		t.Error("pre-6.0 format accepted")
	}

	if _, err := ParseKicadPCB(strings.NewReader(`(schematic (version 1))`), "x"); err == nil {
		t.Error("non-pcb file accepted")
	}

	if _, err := ParseKicadPCB(strings.NewReader(`(kicad_pcb)`), "x"); err == nil {
		t.Error("missing version accepted")
	}
}

func TestParseKicadPCBArcWithoutMid(t *testing.T) {
	src := `(kicad_pcb (version 20221018)
  (layers (44 "Edge.Cuts" user))
  (gr_arc (start 0 0) (end 2 0) (stroke (width 0.1)) (layer "Edge.Cuts"))
)`

	pcb, err := ParseKicadPCB(strings.NewReader(src), "demo")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	edge := pcb.EnumerateLayers()[0]
	if len(edge.Primitives) != 1 || edge.Primitives[0].Kind != PrimitiveTrack {
		t.Errorf("arc without midpoint did not fall back to a straight draw: %+v", edge.Primitives)
	}
}

func TestParseKicadPCBMissingReference(t *testing.T) {
	src := `(kicad_pcb (version 20221018)
  (footprint "X" (layer "F.Cu") (at 0 0))
)`

	if _, err := ParseKicadPCB(strings.NewReader(src), "demo"); err == nil {
		t.Error("footprint without reference accepted")
	}
}
