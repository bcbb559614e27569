package lib

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config is not an error: %s", err)
	}

	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jfab.yaml")
	raw := `layers:
  - F.Cu
  - Edge.Cuts
precision: 3
archive: true
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %s", err)
	}

	if !reflect.DeepEqual(cfg.Layers, []string{"F.Cu", "Edge.Cuts"}) {
		t.Errorf("layers: %v", cfg.Layers)
	}
	if cfg.Precision != 3 || !cfg.Archive {
		t.Errorf("got %+v", cfg)
	}

	/*
		Unset numeric fields fall back to the defaults.
	*/
	if cfg.Epsilon != DefaultConfig().Epsilon {
		t.Errorf("epsilon: %v", cfg.Epsilon)
	}
}

func TestDesignatorPrefix(t *testing.T) {
	cases := []struct{ in, out string }{
		{"R10", "R"},
		{"C3", "C"},
		{"SW12", "SW"},
		{"U1A", "UA"},
	}

	for _, c := range cases {
		if got := DesignatorPrefix(c.in); got != c.out {
			t.Errorf("DesignatorPrefix(%q) = %q, expected %q", c.in, got, c.out)
		}
	}
}
