package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArtifacts(t *testing.T) {
	dir := t.TempDir()

	img := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(img, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	got, total, err := Artifacts(img, "", filepath.Join(dir, "missing.jpg"), sub)
	if err != nil {
		t.Fatal(err)
	}
	if total != 8 {
		t.Errorf("total = %d, want 8", total)
	}
	if len(got) != 3 {
		t.Fatalf("expected empty path skipped, got %d artifacts", len(got))
	}
	if !got[0].Exists || got[0].Bytes != 5 {
		t.Errorf("image artifact = %+v", got[0])
	}
	if got[1].Exists || got[1].Bytes != 0 {
		t.Errorf("missing artifact = %+v", got[1])
	}
	if !got[2].Exists || got[2].Bytes != 3 {
		t.Errorf("dir artifact = %+v", got[2])
	}
}
