package storage

import (
	"path/filepath"
	"testing"

	"github.com/funvibe/automa/internal/value"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "globals.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	s := openTemp(t)
	saved := map[string]value.Value{
		"counter": value.Number(42.5),
		"name":    value.String("kitchen"),
		"nothing": value.NullReason("uninitialized variable"),
		"state":   value.JSON(map[string]any{"on": true, "level": float64(80)}),
	}
	for name, v := range saved {
		if err := s.Save(name, v); err != nil {
			t.Fatalf("Save(%q): %v", name, err)
		}
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != len(saved) {
		t.Fatalf("loaded %d globals, want %d", len(all), len(saved))
	}
	for name, want := range saved {
		got, ok := all[name]
		if !ok {
			t.Errorf("global %q missing after reload", name)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("global %q = %s, want %s", name, got.Str(), want.Str())
		}
	}
	if all["nothing"].Annotation() != "uninitialized variable" {
		t.Errorf("null annotation lost: %q", all["nothing"].Annotation())
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTemp(t)
	if err := s.Save("x", value.Number(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("x", value.String("two")); err != nil {
		t.Fatal(err)
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := all["x"]; got.Str() != "two" {
		t.Errorf("x = %s after overwrite, want \"two\"", got.Str())
	}
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	if err := s.Save("gone", value.Number(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all["gone"]; ok {
		t.Error("deleted global still present")
	}
	// deleting a missing name is not an error
	if err := s.Delete("never-existed"); err != nil {
		t.Errorf("Delete of missing global: %v", err)
	}
}

func TestUnstorableKindsAreSkipped(t *testing.T) {
	s := openTemp(t)
	if err := s.Save("fn", value.Func(nil)); err != nil {
		t.Fatalf("Save of function value: %v", err)
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all["fn"]; ok {
		t.Error("function value should not be persisted")
	}
}
