package scenario

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/scene"
	testingclock "k8s.io/utils/clock/testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestDirFixtures_ExtractsZip(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "data")
	writeZip(t, filepath.Join(root, "Shop.zip"), map[string]string{
		"save.json":       `{"coins":10}`,
		"profiles/a.json": `{}`,
	})
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "stale.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := DirFixtures{Root: root, Target: target}
	if err := f.Prepare(Descriptor{ID: 1, Name: "Shop"}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if got := readFile(t, filepath.Join(target, "save.json")); got != `{"coins":10}` {
		t.Errorf("save.json = %q", got)
	}
	if _, err := os.Stat(filepath.Join(target, "profiles", "a.json")); err != nil {
		t.Errorf("nested entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale data was not cleared")
	}
}

func TestDirFixtures_CopiesDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "shop-data", "nested")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "level.txt"), []byte("3"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "data")

	f := DirFixtures{Root: root, Target: target}
	if got := f.Locate(Descriptor{Name: "Shop", Fixture: "shop-data"}); got != filepath.Join(root, "shop-data") {
		t.Errorf("Locate() = %q", got)
	}
	if err := f.Prepare(Descriptor{Name: "Shop", Fixture: "shop-data"}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got := readFile(t, filepath.Join(target, "nested", "level.txt")); got != "3" {
		t.Errorf("level.txt = %q, want 3", got)
	}
}

func TestDirFixtures_UseCurrentAndMissing(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "Shop.zip"), map[string]string{"save.json": "new"})
	target := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "save.json"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := DirFixtures{Root: root, Target: target}
	if err := f.Prepare(Descriptor{Name: "Shop", DataMode: DataUseCurrent}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := f.Prepare(Descriptor{Name: "Unknown"}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got := readFile(t, filepath.Join(target, "save.json")); got != "old" {
		t.Errorf("save.json = %q, want existing data kept", got)
	}
}

func TestDirFixtures_RejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "Evil.zip"), map[string]string{"../outside.txt": "x"})
	target := filepath.Join(t.TempDir(), "data")

	f := DirFixtures{Root: root, Target: target}
	if err := f.Prepare(Descriptor{Name: "Evil"}); err == nil {
		t.Error("expected error for entry escaping the target")
	}
}

func TestSceneTracker(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g := scene.NewGraph()
	g.Load("Menu", nil)
	tr := NewSceneTracker(g, clk, nil)

	if _, changed := tr.LastChange(); changed {
		t.Error("LastChange() reports a change before any load")
	}

	clk.Step(time.Second)
	g.Load("Menu", nil)
	if _, changed := tr.LastChange(); changed {
		t.Error("reloading the same scene counted as a change")
	}

	g.Load("Game", nil)
	if tr.Last() != "Game" || tr.Previous() != "Menu" {
		t.Errorf("Last/Previous = %q/%q, want Game/Menu", tr.Last(), tr.Previous())
	}
	if !tr.ChangedWithin(time.Second) {
		t.Error("ChangedWithin(1s) = false right after a change")
	}
	clk.Step(2 * time.Second)
	if tr.ChangedWithin(time.Second) {
		t.Error("ChangedWithin(1s) = true two seconds after the change")
	}

	tr.Close()
	g.Load("Shop", nil)
	if tr.Last() != "Game" {
		t.Errorf("Last() = %q after Close, want Game", tr.Last())
	}
}
