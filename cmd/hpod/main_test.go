package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSpaceDefault(t *testing.T) {
	sp, err := loadSpace("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Len() != 6 {
		t.Fatalf("expected the classifier space, got %d parameters", sp.Len())
	}
}

func TestLoadSpaceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	yaml := `
parameters:
  - name: x
    type: float
    lower: -1
    upper: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write space file: %v", err)
	}

	sp, err := loadSpace(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Len() != 1 {
		t.Fatalf("expected 1 parameter, got %d", sp.Len())
	}

	if _, err := loadSpace(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []interface{ Name() string }{
		newVersionCmd(), newOptimizeCmd(), newEvalCmd(), newServeCmd(), newTrialsCmd(),
	} {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "optimize", "eval", "serve", "trials"} {
		if !names[want] {
			t.Fatalf("missing %s command", want)
		}
	}
}
