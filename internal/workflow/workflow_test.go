package workflow

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.py")
	writeFile(t, path, "print(1)")

	name, abs := Locate(path)
	if name != "sim.py" || abs != path {
		t.Errorf("Locate() = %q, %q", name, abs)
	}

	name, abs = Locate(filepath.Join(dir, "missing.py"))
	if name != "missing.py" || abs != "" {
		t.Errorf("Locate(missing) = %q, %q", name, abs)
	}

	if _, abs := Locate(dir); abs != "" {
		t.Errorf("Locate(dir) = %q, want empty", abs)
	}
}

func TestFilesToUpload(t *testing.T) {
	dir := t.TempDir()
	wf := filepath.Join(dir, "sim.py")
	conn := filepath.Join(dir, "data", "connectivity.zip")
	abs := filepath.Join(t.TempDir(), "surface.npz")
	writeFile(t, conn, "zip")
	writeFile(t, abs, "npz")
	writeFile(t, wf, `
import os
conn = load("data/connectivity.zip")
surf = load('`+abs+`')
again = "data/connectivity.zip"
name = "sim.py"
missing = "data/nothing.txt"
folder = "data"
msg = "hello world"
`)

	got, err := FilesToUpload(wf)
	if err != nil {
		t.Fatalf("FilesToUpload() error = %v", err)
	}
	want := []string{conn, abs}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilesToUpload() = %v, want %v", got, want)
	}
}

func TestFilesToUpload_MissingWorkflow(t *testing.T) {
	if _, err := FilesToUpload(filepath.Join(t.TempDir(), "nope.py")); err == nil {
		t.Error("expected error for missing workflow")
	}
}
