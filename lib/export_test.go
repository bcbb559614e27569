package lib

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exportSource() *stubSource {
	return &stubSource{
		name:   "demo",
		origin: Position{X: 100, Y: 100},
		components: []*Component{
			{
				Reference: "R1",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Value:     "10k",
				Position:  Position{X: 101, Y: 98},
				Pads: []*Pad{{
					Number:   "1",
					Position: Position{X: 100.5, Y: 98},
					Shape:    "rect",
					Size:     Size{Width: 0.5, Height: 0.5},
					Net:      "GND",
					Layers:   []string{"F.Cu"},
				}},
			},
			{
				Reference: "R2",
				Footprint: "Resistor_SMD:R_0402_1005Metric",
				Value:     "10k",
				Position:  Position{X: 103, Y: 98},
				Pads: []*Pad{{
					Number:   "1",
					Position: Position{X: 102.5, Y: 98},
					Shape:    "rect",
					Size:     Size{Width: 0.5, Height: 0.5},
					Net:      "GND",
					Layers:   []string{"F.Cu"},
				}},
			},
		},
		layers: []*Layer{
			{Name: "F.Cu", Primitives: []*Primitive{{
				Kind:  PrimitiveTrack,
				Start: Position{X: 100.5, Y: 98},
				End:   Position{X: 102.5, Y: 98},
				Width: 0.25,
			}}},
		},
		nets: []*Net{
			{Code: 1, Name: "GND", Pads: []NetPad{
				{Ref: "R1", Pad: "1"},
				{Ref: "R2", Pad: "1"},
			}},
		},
		vias: []*Via{{
			Position: Position{X: 104, Y: 98},
			Size:     0.6,
			Drill:    0.3,
			Layers:   []string{"F.Cu", "B.Cu"},
		}},
	}
}

func exportConfig() *Config {
	cfg := DefaultConfig()
	cfg.Layers = []string{"F.Cu"}

	return cfg
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "production")

	summary, err := Export(exportSource(), ExportOptions{
		OutputDir: dir,
		Config:    exportConfig(),
	})
	if err != nil {
		t.Fatalf("export: %s", err)
	}

	expected := []string{
		"demo-F_Cu.gbr",
		"demo.drl",
		"bom.csv",
		"bom.xlsx",
		"demo-cpl.csv",
		"demo.net",
	}

	if len(summary.Results) != len(expected) {
		t.Fatalf("got %d results: %+v", len(summary.Results), summary.Results)
	}

	for _, name := range expected {
		if !Exists(filepath.Join(dir, name)) {
			t.Errorf("missing output %s", name)
		}
	}
}

func TestExportDeterministic(t *testing.T) {
	base := t.TempDir()
	first := filepath.Join(base, "a")
	second := filepath.Join(base, "b")

	/*
		One source for both runs: snapshots must not leak pad or via
		flashes back into it between exports.
	*/
	source := exportSource()
	for _, dir := range []string{first, second} {
		if _, err := Export(source, ExportOptions{
			OutputDir: dir,
			Config:    exportConfig(),
		}); err != nil {
			t.Fatalf("export: %s", err)
		}
	}

	/*
		Every text output must be byte-identical across runs.
	*/
	for _, name := range []string{
		"demo-F_Cu.gbr", "demo.drl", "bom.csv", "demo-cpl.csv", "demo.net",
	} {
		a, err := os.ReadFile(filepath.Join(first, name))
		if err != nil {
			t.Fatalf("read: %s", err)
		}

		b, err := os.ReadFile(filepath.Join(second, name))
		if err != nil {
			t.Fatalf("read: %s", err)
		}

		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestExportAbortsBeforeWriting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "production")

	source := exportSource()
	source.components[0].OffsetField = "abc"

	summary, err := Export(source, ExportOptions{
		OutputDir: dir,
		Config:    exportConfig(),
	})

	var perr *OffsetParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected OffsetParseError, got %v", err)
	}
	if summary != nil {
		t.Error("summary returned for an aborted run")
	}

	/*
		The output directory must not even exist.
	*/
	if Exists(dir) {
		t.Error("aborted export created the output directory")
	}
}

func TestExportPartialFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "production")

	source := exportSource()
	source.layers[0].Primitives = append(source.layers[0].Primitives, &Primitive{
		Kind:     PrimitiveFlash,
		Position: Position{X: 101, Y: 98},
		Shape:    "trapezoid",
		Size:     Size{Width: 1, Height: 1},
		Owner:    "R1",
	})

	summary, err := Export(source, ExportOptions{
		OutputDir: dir,
		Config:    exportConfig(),
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if summary == nil {
		t.Fatal("renderer failures must still return the summary")
	}

	failed := summary.Failed()
	if len(failed) != 1 || failed[0].Name != "demo-F_Cu.gbr" {
		t.Fatalf("failed: %+v", failed)
	}

	var uerr *UnsupportedPrimitiveError
	if !errors.As(failed[0].Err, &uerr) {
		t.Errorf("unexpected failure cause: %v", failed[0].Err)
	}

	/*
		The failed render leaves no file behind, the others complete.
	*/
	if Exists(filepath.Join(dir, "demo-F_Cu.gbr")) {
		t.Error("failed render left a file")
	}
	if !Exists(filepath.Join(dir, "bom.csv")) {
		t.Error("unrelated output missing")
	}
	if !Exists(filepath.Join(dir, "demo-cpl.csv")) {
		t.Error("unrelated output missing")
	}
}

func TestExportArchive(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "production")

	summary, err := Export(exportSource(), ExportOptions{
		OutputDir: dir,
		Config:    exportConfig(),
		Archive:   true,
	})
	if err != nil {
		t.Fatalf("export: %s", err)
	}

	if !Exists(filepath.Join(base, "demo.zip")) {
		t.Error("archive missing")
	}

	last := summary.Results[len(summary.Results)-1]
	if last.Name != "demo.zip" || last.Err != nil {
		t.Errorf("archive result: %+v", last)
	}
}
