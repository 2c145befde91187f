package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFilePreservesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "nested", "b.txt")
	if err := os.WriteFile(src, []byte("teapot"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "teapot" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestMoveDirRelocatesTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "folder")
	if err := os.MkdirAll(filepath.Join(src, "processed"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "processed", "img.webp"), []byte{0x1}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := filepath.Join(dir, "archive", "20250101_folder")
	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be gone, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "processed", "img.webp")); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
}
